package vm

import "github.com/mprmesh/mprmesh/ring"

// FoldConst evaluates n immediately if every operand bottoms out in a
// literal, implementing spec.md §4.C's "when the top-of-stack arity is
// already constant, the VM is invoked on the sub-stack and the result
// replaces it". Nodes that read a ring, the wall clock, or loop are
// never foldable (KVar, KVarNumInst, KTT, KReduce).
func FoldConst(n *Instr) (Instr, bool) {
	switch n.Kind {
	case KLit, KVLit:
		return *n, true
	case KOp:
		if len(n.Args) == 1 {
			a, ok := foldVec(n.Args[0])
			if !ok {
				return *n, false
			}
			v, err := applyUnary(n.Op, a)
			if err != nil {
				return *n, false
			}
			return litFrom(v), true
		}
		a, ok1 := foldVec(n.Args[0])
		b, ok2 := foldVec(n.Args[1])
		if !ok1 || !ok2 {
			return *n, false
		}
		if n.Op == Ternary {
			c, ok3 := foldVec(n.Args[2])
			if !ok3 {
				return *n, false
			}
			v, err := applyTernary(a, b, c)
			if err != nil {
				return *n, false
			}
			return litFrom(v), true
		}
		v, err := applyOp(n.Op, a, b)
		if err != nil {
			return *n, false
		}
		return litFrom(v), true
	case KUnary:
		a, ok := foldVec(n.Args[0])
		if !ok {
			return *n, false
		}
		v, err := applyUnary(n.Op, a)
		if err != nil {
			return *n, false
		}
		return litFrom(v), true
	case KFn:
		args, ok := foldArgs(n.Args)
		if !ok {
			return *n, false
		}
		v, err := evalFn(n.Fn, args)
		if err != nil {
			return *n, false
		}
		return litFrom(v), true
	case KVFn:
		args, ok := foldArgs(n.Args)
		if !ok {
			return *n, false
		}
		v, err := evalVFn(n.VFn, args)
		if err != nil {
			return *n, false
		}
		return litFrom(v), true
	case KCast:
		a, ok := foldVec(n.Args[0])
		if !ok {
			return *n, false
		}
		return litFrom(a.Cast(n.CastType)), true
	default:
		return *n, false
	}
}

func foldVec(n *Instr) (ring.Vector, bool) {
	folded, ok := FoldConst(n)
	if !ok {
		return ring.Vector{}, false
	}
	if folded.Kind == KLit {
		return scalarOf(folded.LitType, folded.Lit), true
	}
	return vectorOf(folded.LitType, folded.VLit), true
}

func foldArgs(args []*Instr) ([]ring.Vector, bool) {
	out := make([]ring.Vector, len(args))
	for i, a := range args {
		v, ok := foldVec(a)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func litFrom(v ring.Vector) Instr {
	if v.Len() == 1 {
		return Instr{Kind: KLit, Lit: v.At(0), LitType: v.Type}
	}
	vals := make([]float64, v.Len())
	for i := range vals {
		vals[i] = v.At(i)
	}
	return Instr{Kind: KVLit, VLit: vals, LitType: v.Type}
}
