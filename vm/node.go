package vm

import "github.com/mprmesh/mprmesh/ring"

func ringFor(ref VarRef, ctx *Context) *ring.Ring {
	switch ref.Sel {
	case SelInput:
		return ctx.Inputs[ref.Index]
	case SelOutput:
		return ctx.Output
	case SelVar:
		return ctx.Vars[ref.Index]
	default:
		return nil
	}
}

func scalarOf(t ring.Vtype, f float64) ring.Vector {
	switch t {
	case ring.I32:
		return ring.NewI32(int32(f))
	case ring.F32:
		return ring.NewF32(float32(f))
	default:
		return ring.NewF64(f)
	}
}

func boolVec(b bool) ring.Vector {
	if b {
		return ring.NewI32(1)
	}
	return ring.NewI32(0)
}

// readVar resolves a VAR token against ctx, handling the reserved
// alive/muted side channels, history/vector indexing and an optional
// trailing cast (spec.md §4.B "VAR (slot, hist_idx?, vec_idx?)").
func readVar(ref VarRef, ctx *Context) (ring.Vector, error) {
	switch ref.Sel {
	case SelAlive:
		return boolVec(ctx.Alive), nil
	case SelMuted:
		return boolVec(ctx.Muted), nil
	}
	r := ringFor(ref, ctx)
	val, _, ok := r.Get(ctx.Inst, ref.Hist)
	if !ok {
		val = ring.Zero(r.Type(), r.VecLen())
	}
	if ref.HasVec {
		val = scalarOf(val.Type, val.AtFrac(ref.Vec))
	}
	if ref.HasCast {
		val = val.Cast(ref.Cast)
	}
	return val, nil
}

func evalArgs(args []*Instr, ctx *Context) ([]ring.Vector, error) {
	out := make([]ring.Vector, len(args))
	for i, a := range args {
		v, err := evalNode(a, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// evalNode evaluates one expression-tree node. Args are evaluated
// left-to-right before the node itself, the same order a postfix
// bytecode stream would push its operands.
func evalNode(n *Instr, ctx *Context) (ring.Vector, error) {
	switch n.Kind {
	case KLit:
		return scalarOf(n.LitType, n.Lit), nil
	case KVLit:
		return vectorOf(n.LitType, n.VLit), nil
	case KVar:
		if n.IsIterVar {
			return readVar(ctx.topIter().ref, ctx)
		}
		if n.IsAccVar {
			for i := len(ctx.iters) - 1; i >= 0; i-- {
				if ctx.iters[i].hasAcc {
					return ctx.iters[i].acc, nil
				}
			}
			return ring.NewF64(0), nil
		}
		return readVar(n.Ref, ctx)
	case KVarNumInst:
		r := ringFor(n.Ref, ctx)
		if r == nil {
			return ring.NewI32(0), nil
		}
		return ring.NewI32(int32(r.NumInst())), nil
	case KTT:
		r := ringFor(n.Ref, ctx)
		t := ctx.WallTime
		if r != nil {
			if _, ts, ok := r.Get(ctx.Inst, n.Ref.Hist); ok {
				t = ts
			}
		}
		return ring.NewF64(float64(t)), nil
	case KOp:
		if len(n.Args) == 1 {
			a, err := evalNode(n.Args[0], ctx)
			if err != nil {
				return ring.Vector{}, err
			}
			return applyUnary(n.Op, a)
		}
		a, err := evalNode(n.Args[0], ctx)
		if err != nil {
			return ring.Vector{}, err
		}
		b, err := evalNode(n.Args[1], ctx)
		if err != nil {
			return ring.Vector{}, err
		}
		if n.Op == Ternary {
			c, err := evalNode(n.Args[2], ctx)
			if err != nil {
				return ring.Vector{}, err
			}
			return applyTernary(a, b, c)
		}
		return applyOp(n.Op, a, b)
	case KUnary:
		a, err := evalNode(n.Args[0], ctx)
		if err != nil {
			return ring.Vector{}, err
		}
		return applyUnary(n.Op, a)
	case KFn:
		args, err := evalArgs(n.Args, ctx)
		if err != nil {
			return ring.Vector{}, err
		}
		return evalFn(n.Fn, args)
	case KVFn:
		args, err := evalArgs(n.Args, ctx)
		if err != nil {
			return ring.Vector{}, err
		}
		return evalVFn(n.VFn, args)
	case KReduce:
		return evalReduce(n, ctx)
	case KCast:
		a, err := evalNode(n.Args[0], ctx)
		if err != nil {
			return ring.Vector{}, err
		}
		return a.Cast(n.CastType), nil
	default:
		return ring.Vector{}, errUnknownKind
	}
}

func vectorOf(t ring.Vtype, vals []float64) ring.Vector {
	v := ring.Zero(t, len(vals))
	for i, f := range vals {
		switch t {
		case ring.I32:
			v.I32[i] = int32(f)
		case ring.F32:
			v.F32[i] = float32(f)
		default:
			v.F64[i] = f
		}
	}
	return v
}
