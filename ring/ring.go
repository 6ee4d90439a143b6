package ring

import (
	"math"

	"github.com/mprmesh/mprmesh/cmn/debug"
)

// Sample is one timestamped vector observation.
type Sample struct {
	Value Vector
	Time  int64 // nanoseconds; see spec.md §4.B "TT" token
	Has   bool
}

// instRing is the circular buffer for a single instance index.
type instRing struct {
	buf   []Sample
	head  int // index of the most recently pushed sample
	count int // number of valid samples, <= len(buf)
}

// Ring is the per-slot, per-instance ring buffer of spec.md §4.A.
type Ring struct {
	vecLen   int
	typ      Vtype
	histSize int
	insts    []instRing
}

// New allocates a ring with the given shape. history <= 0 is clamped to 1.
func New(typ Vtype, vecLen, history, numInst int) *Ring {
	if history < 1 {
		history = 1
	}
	if numInst < 1 {
		numInst = 1
	}
	debug.Assert(history >= 1, "ring: history must be >= 1")
	r := &Ring{vecLen: vecLen, typ: typ, histSize: history}
	r.insts = make([]instRing, numInst)
	for i := range r.insts {
		r.insts[i] = newInstRing(history)
	}
	return r
}

func newInstRing(history int) instRing {
	return instRing{buf: make([]Sample, history), head: -1}
}

func (r *Ring) VecLen() int   { return r.vecLen }
func (r *Ring) Type() Vtype   { return r.typ }
func (r *Ring) HistSize() int { return r.histSize }
func (r *Ring) NumInst() int  { return len(r.insts) }

// Push advances the head for inst with a new sample, per spec.md §4.A.
func (r *Ring) Push(inst int, v Vector, t int64) {
	ir := &r.insts[inst]
	ir.head = (ir.head + 1) % len(ir.buf)
	ir.buf[ir.head] = Sample{Value: v, Time: t, Has: true}
	if ir.count < len(ir.buf) {
		ir.count++
	}
}

// Reset clears has-value for inst without touching its slot shape.
func (r *Ring) Reset(inst int) {
	ir := &r.insts[inst]
	for i := range ir.buf {
		ir.buf[i] = Sample{}
	}
	ir.head, ir.count = -1, 0
}

// Get returns the sample `offset` steps back from the most recent push
// (0 = most recent; negative for history). Fractional offsets
// linearly interpolate between the two bracketing samples along the
// time axis (spec.md §4.A). history of 1 collapses to no
// interpolation: any offset resolves to the single held sample.
func (r *Ring) Get(inst int, offset float64) (Vector, int64, bool) {
	ir := &r.insts[inst]
	if ir.count == 0 {
		return Vector{}, 0, false
	}
	if len(ir.buf) == 1 {
		s := ir.buf[0]
		return s.Value, s.Time, s.Has
	}
	lo := math.Floor(offset)
	frac := offset - lo
	sLo, okLo := r.at(ir, int(lo))
	if frac == 0 || !okLo {
		if !okLo {
			return Vector{}, 0, false
		}
		return sLo.Value, sLo.Time, sLo.Has
	}
	sHi, okHi := r.at(ir, int(lo)+1) // one step more recent than lo (offset closer to 0)
	if !okHi {
		return sLo.Value, sLo.Time, sLo.Has
	}
	return interp(sLo, sHi, frac), sLo.Time + int64(frac*float64(sHi.Time-sLo.Time)), true
}

// at resolves a non-positive integer offset (0 = most recent) to a stored sample.
func (r *Ring) at(ir *instRing, offset int) (Sample, bool) {
	if offset > 0 || -offset >= ir.count {
		return Sample{}, false
	}
	idx := ir.head + offset
	n := len(ir.buf)
	idx %= n
	if idx < 0 {
		idx += n
	}
	return ir.buf[idx], true
}

func interp(lo, hi Sample, frac float64) Vector {
	n := lo.Value.Len()
	if hi.Value.Len() != n {
		return lo.Value
	}
	switch lo.Value.Type {
	case I32:
		out := make([]int32, n)
		for i := range out {
			out[i] = lo.Value.I32[i] + int32(frac*float64(hi.Value.I32[i]-lo.Value.I32[i]))
		}
		return Vector{Type: I32, I32: out}
	case F32:
		out := make([]float32, n)
		for i := range out {
			out[i] = lo.Value.F32[i] + float32(frac)*(hi.Value.F32[i]-lo.Value.F32[i])
		}
		return Vector{Type: F32, F32: out}
	default:
		out := make([]float64, n)
		for i := range out {
			out[i] = lo.Value.F64[i] + frac*(hi.Value.F64[i]-lo.Value.F64[i])
		}
		return Vector{Type: F64, F64: out}
	}
}

// Realloc is the only operation permitted to change shape (spec.md
// §4.A); it preserves existing values where dimensions overlap.
func (r *Ring) Realloc(typ Vtype, vecLen, history, numInst int) {
	if history < 1 {
		history = 1
	}
	if numInst < 1 {
		numInst = 1
	}
	debug.Assert(history >= 1, "ring: history must be >= 1")
	old := r.insts
	r.insts = make([]instRing, numInst)
	for i := range r.insts {
		r.insts[i] = newInstRing(history)
		if i < len(old) {
			copyOverlap(&r.insts[i], &old[i], typ, vecLen, history)
		}
	}
	r.typ, r.vecLen, r.histSize = typ, vecLen, history
}

func copyOverlap(dst, src *instRing, typ Vtype, vecLen, history int) {
	n := src.count
	if n > history {
		n = history
	}
	// re-push oldest-of-the-overlap first so relative recency survives
	for k := n - 1; k >= 0; k-- {
		idx := src.head - k
		ln := len(src.buf)
		idx %= ln
		if idx < 0 {
			idx += ln
		}
		s := src.buf[idx]
		if !s.Has {
			continue
		}
		v := s.Value
		if v.Type != typ {
			v = v.Cast(typ)
		}
		if v.Len() != vecLen {
			v = v.Broadcast(vecLen)
		}
		dst.head = (dst.head + 1) % len(dst.buf)
		dst.buf[dst.head] = Sample{Value: v, Time: s.Time, Has: true}
		if dst.count < len(dst.buf) {
			dst.count++
		}
	}
}
