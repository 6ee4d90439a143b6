package vm

import (
	"math"
	"sort"

	"github.com/mprmesh/mprmesh/ring"
)

// evalVFn folds a vector to a scalar (or, for VSort/VConcat, to
// another vector) per spec.md §4.B "VFN k". Empty-vector identities
// are documented per case; they exist so a reduction over zero
// instances or a signal with no active connections still produces a
// well-defined value instead of panicking.
func evalVFn(fn VFn, args []ring.Vector) (ring.Vector, error) {
	if len(args) == 0 {
		return ring.Vector{}, errUnknownKind
	}
	v := args[0]
	n := v.Len()

	switch fn {
	case VSum:
		return scalarOf(v.Type, reduceSum(v)), nil
	case VMean:
		if n == 0 {
			return ring.NewF64(0), nil
		}
		return ring.NewF64(reduceSum(v) / float64(n)), nil
	case VMin:
		if n == 0 {
			return scalarOf(v.Type, 0), nil
		}
		m := v.At(0)
		for i := 1; i < n; i++ {
			if x := v.At(i); x < m {
				m = x
			}
		}
		return scalarOf(v.Type, m), nil
	case VMax:
		if n == 0 {
			return scalarOf(v.Type, 0), nil
		}
		m := v.At(0)
		for i := 1; i < n; i++ {
			if x := v.At(i); x > m {
				m = x
			}
		}
		return scalarOf(v.Type, m), nil
	case VCenter:
		if n == 0 {
			return ring.NewF64(0), nil
		}
		lo, hi := v.At(0), v.At(0)
		for i := 1; i < n; i++ {
			x := v.At(i)
			if x < lo {
				lo = x
			}
			if x > hi {
				hi = x
			}
		}
		return ring.NewF64((lo + hi) / 2), nil
	case VNorm:
		sum := 0.0
		for i := 0; i < n; i++ {
			x := v.At(i)
			sum += x * x
		}
		return ring.NewF64(math.Sqrt(sum)), nil
	case VLength:
		return ring.NewI32(int32(n)), nil
	case VSort:
		idx := make([]float64, n)
		for i := range idx {
			idx[i] = v.At(i)
		}
		sort.Float64s(idx)
		return vectorOf(v.Type, idx), nil
	case VMedian:
		if n == 0 {
			return ring.NewF64(0), nil
		}
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = v.At(i)
		}
		sort.Float64s(vals)
		mid := n / 2
		if n%2 == 1 {
			return ring.NewF64(vals[mid]), nil
		}
		return ring.NewF64((vals[mid-1] + vals[mid]) / 2), nil
	case VConcat:
		if len(args) < 2 {
			return v, nil
		}
		b := args[1]
		t := ring.Join(v.Type, b.Type)
		return vectorOf(t, append(floatsOf(v), floatsOf(b)...)), nil
	case VDot:
		if len(args) < 2 {
			return ring.NewF64(0), nil
		}
		b := args[1]
		m := n
		if b.Len() < m {
			m = b.Len()
		}
		sum := 0.0
		for i := 0; i < m; i++ {
			sum += v.At(i) * b.At(i)
		}
		return ring.NewF64(sum), nil
	case VAngle:
		if len(args) < 2 {
			return ring.NewF64(0), nil
		}
		b := args[1]
		var dot, na, nb float64
		m := n
		if b.Len() < m {
			m = b.Len()
		}
		for i := 0; i < m; i++ {
			dot += v.At(i) * b.At(i)
			na += v.At(i) * v.At(i)
			nb += b.At(i) * b.At(i)
		}
		if na == 0 || nb == 0 {
			return ring.NewF64(0), nil
		}
		return ring.NewF64(math.Acos(dot / (math.Sqrt(na) * math.Sqrt(nb)))), nil
	case VAny:
		for i := 0; i < n; i++ {
			if v.At(i) != 0 {
				return boolVec(true), nil
			}
		}
		return boolVec(false), nil
	case VAll:
		for i := 0; i < n; i++ {
			if v.At(i) == 0 {
				return boolVec(false), nil
			}
		}
		return boolVec(true), nil
	default:
		return ring.Vector{}, errUnknownKind
	}
}

func reduceSum(v ring.Vector) float64 {
	sum := 0.0
	for i := 0; i < v.Len(); i++ {
		sum += v.At(i)
	}
	return sum
}

func floatsOf(v ring.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}
