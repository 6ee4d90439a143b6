package vm

import "github.com/mprmesh/mprmesh/ring"

// evalReduce concretizes spec.md §4.B's LOOP_START/LOOP_END bytecode
// kind into a single instruction that runs Body once per iteration of
// ReduceKind's dimension (spec.md §9 REDESIGN FLAGS). Nesting two
// reductions of the *same* kind is rejected at compile time, but a
// vector reduce nested inside a history reduce's Body is legal and
// falls out naturally here: each evalReduce call pushes its own
// iterFrame, and an inner KVar only ever consults the top of the
// stack relevant to its own IsIterVar/IsAccVar marker.
func evalReduce(n *Instr, ctx *Context) (ring.Vector, error) {
	count := n.N
	if count <= 0 {
		// instance()/signal()/vector() reductions have no compile-time
		// constant count: it tracks live ring shape, resolved here.
		switch n.ReduceKind {
		case LoopInstance:
			if r := ringFor(n.IterRef, ctx); r != nil {
				count = r.NumInst()
			}
		case LoopSignal:
			count = len(ctx.Inputs)
		case LoopVector:
			if r := ringFor(n.IterRef, ctx); r != nil {
				count = r.VecLen()
			}
		}
	}

	var accVal ring.Vector
	if n.HasAcc && n.AccInit != nil {
		v, err := evalNode(n.AccInit, ctx)
		if err != nil {
			return ring.Vector{}, err
		}
		accVal = v
	}

	results := make([]ring.Vector, 0, count)
	savedInst := ctx.Inst

	for i := 0; i < count; i++ {
		ref := n.IterRef
		switch n.ReduceKind {
		case LoopHistory:
			ref.Hist = -float64(i)
		case LoopInstance:
			ctx.Inst = i
		case LoopSignal:
			ref.Index = i
		case LoopVector:
			ref.HasVec = true
			ref.Vec = float64(i)
		}

		frame := iterFrame{ref: ref}
		if n.HasAcc {
			frame.acc, frame.hasAcc = accVal, true
		}
		ctx.pushIter(frame)
		v, err := evalNode(n.Body, ctx)
		ctx.popIter()
		if n.ReduceKind == LoopInstance {
			ctx.Inst = savedInst
		}
		if err != nil {
			return ring.Vector{}, err
		}
		if n.HasAcc {
			accVal = v
		} else {
			results = append(results, v)
		}
	}

	if n.HasAcc {
		return accVal, nil
	}
	return evalVFn(n.VFnKind, []ring.Vector{collectScalars(results)})
}

// collectScalars folds one scalar per iteration into the vector a
// VFn reduction folds over; non-scalar Body results contribute their
// first element, since the four reduction dimensions are themselves
// scalar-producing by construction (spec.md §4.C).
func collectScalars(results []ring.Vector) ring.Vector {
	if len(results) == 0 {
		return ring.Vector{Type: ring.F64}
	}
	t := results[0].Type
	for _, r := range results[1:] {
		t = ring.Join(t, r.Type)
	}
	vals := make([]float64, len(results))
	for i, r := range results {
		vals[i] = r.At(0)
	}
	return vectorOf(t, vals)
}
