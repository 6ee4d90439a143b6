package vm

import (
	"errors"
	"math"

	"github.com/mprmesh/mprmesh/ring"
)

var errUnknownKind = errors.New("vm: unknown instruction kind")

func isCompare(op Op) bool {
	switch op {
	case Eq, Neq, Lt, Lte, Gt, Gte, LogAnd, LogOr:
		return true
	default:
		return false
	}
}

func isBitwise(op Op) bool {
	switch op {
	case And, Or, Xor, Shl, Shr:
		return true
	default:
		return false
	}
}

func broadcastPair(a, b ring.Vector) (ring.Vector, ring.Vector, int) {
	n := a.Len()
	if b.Len() > n {
		n = b.Len()
	}
	return a.Broadcast(n), b.Broadcast(n), n
}

// applyOp evaluates a binary OP node, preserving each type's native
// arithmetic (i32 wraps, f32/f64 follow IEEE 754) per spec.md §4.B;
// comparisons and logical operators always yield i32 0/1.
func applyOp(op Op, a, b ring.Vector) (ring.Vector, error) {
	if isCompare(op) {
		return applyCompare(op, a, b), nil
	}
	if isBitwise(op) {
		return applyBitwise(op, a.Cast(ring.I32), b.Cast(ring.I32))
	}
	if op == Pow {
		af, bf, _ := broadcastPair(a.Cast(ring.F64), b.Cast(ring.F64))
		out := make([]float64, af.Len())
		for i := range out {
			out[i] = math.Pow(af.F64[i], bf.F64[i])
		}
		return ring.Vector{Type: ring.F64, F64: out}.Cast(ring.Join(a.Type, b.Type)), nil
	}

	t := ring.Join(a.Type, b.Type)
	av, bv, n := broadcastPair(a.Cast(t), b.Cast(t))
	switch t {
	case ring.I32:
		out := make([]int32, n)
		for i := range out {
			x, y := av.I32[i], bv.I32[i]
			switch op {
			case Add:
				out[i] = x + y
			case Sub:
				out[i] = x - y
			case Mul:
				out[i] = x * y
			case Div:
				if y == 0 {
					return ring.Vector{}, errDivZero
				}
				out[i] = x / y
			case Mod:
				if y == 0 {
					return ring.Vector{}, errDivZero
				}
				out[i] = x % y
			default:
				return ring.Vector{}, errUnknownKind
			}
		}
		return ring.Vector{Type: ring.I32, I32: out}, nil
	case ring.F32:
		out := make([]float32, n)
		for i := range out {
			x, y := av.F32[i], bv.F32[i]
			switch op {
			case Add:
				out[i] = x + y
			case Sub:
				out[i] = x - y
			case Mul:
				out[i] = x * y
			case Div:
				out[i] = x / y
			case Mod:
				out[i] = float32(math.Mod(float64(x), float64(y)))
			default:
				return ring.Vector{}, errUnknownKind
			}
		}
		return ring.Vector{Type: ring.F32, F32: out}, nil
	default:
		out := make([]float64, n)
		for i := range out {
			x, y := av.F64[i], bv.F64[i]
			switch op {
			case Add:
				out[i] = x + y
			case Sub:
				out[i] = x - y
			case Mul:
				out[i] = x * y
			case Div:
				out[i] = x / y
			case Mod:
				out[i] = math.Mod(x, y)
			default:
				return ring.Vector{}, errUnknownKind
			}
		}
		return ring.Vector{Type: ring.F64, F64: out}, nil
	}
}

func applyCompare(op Op, a, b ring.Vector) ring.Vector {
	n := a.Len()
	if b.Len() > n {
		n = b.Len()
	}
	if n == 0 {
		n = 1
	}
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		x, y := elemAt(a, i), elemAt(b, i)
		var r bool
		switch op {
		case Eq:
			r = x == y
		case Neq:
			r = x != y
		case Lt:
			r = x < y
		case Lte:
			r = x <= y
		case Gt:
			r = x > y
		case Gte:
			r = x >= y
		case LogAnd:
			r = x != 0 && y != 0
		case LogOr:
			r = x != 0 || y != 0
		}
		if r {
			out[i] = 1
		}
	}
	return ring.Vector{Type: ring.I32, I32: out}
}

func elemAt(v ring.Vector, i int) float64 {
	if v.Len() == 0 {
		return 0
	}
	return v.At(i % v.Len())
}

func applyBitwise(op Op, a, b ring.Vector) (ring.Vector, error) {
	av, bv, n := broadcastPair(a, b)
	out := make([]int32, n)
	for i := range out {
		x, y := av.I32[i], bv.I32[i]
		switch op {
		case And:
			out[i] = x & y
		case Or:
			out[i] = x | y
		case Xor:
			out[i] = x ^ y
		case Shl:
			out[i] = x << uint32(y)
		case Shr:
			out[i] = x >> uint32(y)
		}
	}
	return ring.Vector{Type: ring.I32, I32: out}, nil
}

func applyUnary(op Op, a ring.Vector) (ring.Vector, error) {
	switch op {
	case Neg:
		switch a.Type {
		case ring.I32:
			out := make([]int32, a.Len())
			for i, x := range a.I32 {
				out[i] = -x
			}
			return ring.Vector{Type: ring.I32, I32: out}, nil
		case ring.F32:
			out := make([]float32, a.Len())
			for i, x := range a.F32 {
				out[i] = -x
			}
			return ring.Vector{Type: ring.F32, F32: out}, nil
		default:
			out := make([]float64, a.Len())
			for i, x := range a.F64 {
				out[i] = -x
			}
			return ring.Vector{Type: ring.F64, F64: out}, nil
		}
	case Not:
		out := make([]int32, a.Len())
		for i := range out {
			if a.At(i) == 0 {
				out[i] = 1
			}
		}
		return ring.Vector{Type: ring.I32, I32: out}, nil
	case BitNot:
		ai := a.Cast(ring.I32)
		out := make([]int32, ai.Len())
		for i, x := range ai.I32 {
			out[i] = ^x
		}
		return ring.Vector{Type: ring.I32, I32: out}, nil
	default:
		return ring.Vector{}, errUnknownKind
	}
}

func applyTernary(cond, a, b ring.Vector) (ring.Vector, error) {
	n := cond.Len()
	if a.Len() > n {
		n = a.Len()
	}
	if b.Len() > n {
		n = b.Len()
	}
	t := ring.Join(a.Type, b.Type)
	av, bv := a.Cast(t).Broadcast(n), b.Cast(t).Broadcast(n)
	out := ring.Zero(t, n)
	for i := 0; i < n; i++ {
		var pick ring.Vector
		if elemAt(cond, i) != 0 {
			pick = av
		} else {
			pick = bv
		}
		switch t {
		case ring.I32:
			out.I32[i] = pick.I32[i]
		case ring.F32:
			out.F32[i] = pick.F32[i]
		default:
			out.F64[i] = pick.F64[i]
		}
	}
	return out, nil
}
