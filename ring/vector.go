package ring

import "math"

// Vector is a typed, fixed-width sample: exactly one of I32/F32/F64 is
// populated, per Type. Per-type storage (rather than a single float64
// slice) preserves each type's hardware arithmetic semantics (§4.B:
// i32 wraps on overflow, f32/f64 follow IEEE 754) all the way through
// the VM, since by the time a binary op executes both operands have
// already been promoted to a single shared type by the compiler.
type Vector struct {
	Type Vtype
	I32  []int32
	F32  []float32
	F64  []float64
}

func NewI32(v ...int32) Vector { return Vector{Type: I32, I32: append([]int32{}, v...)} }
func NewF32(v ...float32) Vector { return Vector{Type: F32, F32: append([]float32{}, v...)} }
func NewF64(v ...float64) Vector { return Vector{Type: F64, F64: append([]float64{}, v...)} }

// Zero returns a zero-valued vector of the given type and length.
func Zero(t Vtype, n int) Vector {
	switch t {
	case I32:
		return Vector{Type: I32, I32: make([]int32, n)}
	case F32:
		return Vector{Type: F32, F32: make([]float32, n)}
	default:
		return Vector{Type: F64, F64: make([]float64, n)}
	}
}

func (v Vector) Len() int {
	switch v.Type {
	case I32:
		return len(v.I32)
	case F32:
		return len(v.F32)
	default:
		return len(v.F64)
	}
}

// At returns element i as a float64 for display/comparison purposes;
// numeric ops that must preserve exact per-type semantics operate on
// the typed slices directly (see vm package).
func (v Vector) At(i int) float64 {
	switch v.Type {
	case I32:
		return float64(v.I32[i])
	case F32:
		return float64(v.F32[i])
	default:
		return v.F64[i]
	}
}

// AtFrac interpolates linearly between element floor(idx) and its
// successor, the "vector axis" interpolation named in spec.md §4.A.
func (v Vector) AtFrac(idx float64) float64 {
	n := v.Len()
	if n == 0 {
		return 0
	}
	if idx <= 0 {
		return v.At(0)
	}
	lo := int(math.Floor(idx))
	if lo >= n-1 {
		return v.At(n - 1)
	}
	frac := idx - float64(lo)
	a, b := v.At(lo), v.At(lo+1)
	return a + (b-a)*frac
}

// Cast returns v converted to type t element-wise, with i32-specific
// truncation-toward-zero when narrowing from a float type.
func (v Vector) Cast(t Vtype) Vector {
	if v.Type == t {
		return v
	}
	n := v.Len()
	out := Zero(t, n)
	for i := 0; i < n; i++ {
		f := v.At(i)
		switch t {
		case I32:
			out.I32[i] = int32(f)
		case F32:
			out.F32[i] = float32(f)
		default:
			out.F64[i] = f
		}
	}
	return out
}

// Broadcast widens v to width n by wrapping indices modulo its own
// length, per the VM's binary-op broadcast rule (§4.B).
func (v Vector) Broadcast(n int) Vector {
	l := v.Len()
	if l == n || l == 0 {
		return v
	}
	out := Zero(v.Type, n)
	for i := 0; i < n; i++ {
		j := i % l
		switch v.Type {
		case I32:
			out.I32[i] = v.I32[j]
		case F32:
			out.F32[i] = v.F32[j]
		default:
			out.F64[i] = v.F64[j]
		}
	}
	return out
}

func (v Vector) Clone() Vector {
	switch v.Type {
	case I32:
		return Vector{Type: I32, I32: append([]int32{}, v.I32...)}
	case F32:
		return Vector{Type: F32, F32: append([]float32{}, v.F32...)}
	default:
		return Vector{Type: F64, F64: append([]float64{}, v.F64...)}
	}
}
