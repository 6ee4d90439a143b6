package vm

import (
	"math"

	"github.com/mprmesh/mprmesh/ring"
)

// shapePreserving functions keep their argument's type/width; the rest
// are transcendental and always compute (and answer) in f64, matching
// the promotion lattice's top per spec.md §4.C.
func shapePreserving(fn Fn) bool {
	switch fn {
	case FnAbs, FnFloor, FnCeil, FnRound, FnSign, FnMin, FnMax:
		return true
	default:
		return false
	}
}

// evalFn applies a scalar math-library function element-wise across
// its (broadcast) arguments, per spec.md §4.B "FN k".
func evalFn(fn Fn, args []ring.Vector) (ring.Vector, error) {
	if len(args) == 0 {
		return ring.Vector{}, errUnknownKind
	}
	n := args[0].Len()
	for _, a := range args[1:] {
		if a.Len() > n {
			n = a.Len()
		}
	}
	at := func(a ring.Vector, i int) float64 { return elemAt(a, i) }

	if !shapePreserving(fn) {
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			out[i] = fnFloat(fn, args, at, i)
		}
		return ring.Vector{Type: ring.F64, F64: out}, nil
	}

	t := args[0].Type
	for _, a := range args[1:] {
		t = ring.Join(t, a.Type)
	}
	out := ring.Zero(t, n)
	for i := 0; i < n; i++ {
		f := fnShape(fn, args, at, i)
		switch t {
		case ring.I32:
			out.I32[i] = int32(f)
		case ring.F32:
			out.F32[i] = float32(f)
		default:
			out.F64[i] = f
		}
	}
	return out, nil
}

func fnFloat(fn Fn, args []ring.Vector, at func(ring.Vector, int) float64, i int) float64 {
	x := at(args[0], i)
	switch fn {
	case FnSqrt:
		return math.Sqrt(x)
	case FnSin:
		return math.Sin(x)
	case FnCos:
		return math.Cos(x)
	case FnTan:
		return math.Tan(x)
	case FnExp:
		return math.Exp(x)
	case FnLog:
		return math.Log(x)
	case FnLog2:
		return math.Log2(x)
	case FnLog10:
		return math.Log10(x)
	case FnAtan2:
		return math.Atan2(x, at(args[1], i))
	case FnPow:
		return math.Pow(x, at(args[1], i))
	default:
		return 0
	}
}

func fnShape(fn Fn, args []ring.Vector, at func(ring.Vector, int) float64, i int) float64 {
	x := at(args[0], i)
	switch fn {
	case FnAbs:
		return math.Abs(x)
	case FnFloor:
		return math.Floor(x)
	case FnCeil:
		return math.Ceil(x)
	case FnRound:
		return math.Round(x)
	case FnSign:
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		default:
			return 0
		}
	case FnMin:
		y := at(args[1], i)
		if y < x {
			return y
		}
		return x
	case FnMax:
		y := at(args[1], i)
		if y > x {
			return y
		}
		return x
	default:
		return 0
	}
}
