package vm

import (
	"testing"

	"github.com/mprmesh/mprmesh/ring"
)

func newRings(t ring.Vtype, vecLen, hist int) (*ring.Ring, *ring.Ring) {
	return ring.New(t, vecLen, hist, 1), ring.New(t, vecLen, hist, 1)
}

// TestHistoryMean covers scenario S5: history(5).x.mean() as a
// 5-sample moving average.
func TestHistoryMean(t *testing.T) {
	in, out := newRings(ring.F64, 1, 8)
	ctx := NewContext([]*ring.Ring{in}, out, nil)

	body := &Instr{Kind: KVar, IsIterVar: true}
	reduce := &Instr{
		Kind:       KReduce,
		ReduceKind: LoopHistory,
		N:          5,
		IterRef:    VarRef{Sel: SelInput, Index: 0},
		Body:       body,
		VFnKind:    VMean,
	}
	assign := &Instr{
		Kind:       KAssign,
		AssignKind: AssignOrdinary,
		Dest:       VarRef{Sel: SelOutput},
		Args:       []*Instr{reduce},
	}
	prog := &Program{Stmts: []*Instr{assign}}

	vals := []float64{1, 2, 3, 4, 5}
	for i, v := range vals {
		in.Push(0, ring.NewF64(v), int64(i))
	}

	st, err := Eval(prog, ctx)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !st.Has(Update) {
		t.Fatalf("expected Update bit, got %v", st)
	}
	got, _, ok := out.Get(0, 0)
	if !ok {
		t.Fatalf("expected output written")
	}
	if got.At(0) != 3 {
		t.Fatalf("expected mean 3, got %v", got.At(0))
	}
}

// TestIntDivideByZeroSkipsAssignment covers scenario S6: an integer
// divide by zero abandons its assignment rather than failing Eval.
func TestIntDivideByZeroSkipsAssignment(t *testing.T) {
	in, out := newRings(ring.I32, 1, 2)
	ctx := NewContext([]*ring.Ring{in}, out, nil)
	in.Push(0, ring.NewI32(5), 0)

	divExpr := &Instr{
		Kind: KOp,
		Op:   Div,
		Args: []*Instr{
			{Kind: KVar, Ref: VarRef{Sel: SelInput, Index: 0}},
			{Kind: KLit, Lit: 0, LitType: ring.I32},
		},
	}
	assign := &Instr{
		Kind:       KAssign,
		AssignKind: AssignOrdinary,
		Dest:       VarRef{Sel: SelOutput},
		Args:       []*Instr{divExpr},
	}
	prog := &Program{Stmts: []*Instr{assign}}

	st, err := Eval(prog, ctx)
	if err != nil {
		t.Fatalf("eval returned error instead of skipping: %v", err)
	}
	if st.Has(Update) {
		t.Fatalf("did not expect Update after divide by zero, got %v", st)
	}
	if _, _, ok := out.Get(0, 0); ok {
		t.Fatalf("expected output left unwritten")
	}
}

func TestReduceWithAccumulator(t *testing.T) {
	in, out := newRings(ring.F64, 3, 2)
	ctx := NewContext([]*ring.Ring{in}, out, nil)
	in.Push(0, ring.NewF64(1, 2, 3), 0)

	accInit := &Instr{Kind: KLit, Lit: 0, LitType: ring.F64}
	body := &Instr{
		Kind: KOp,
		Op:   Add,
		Args: []*Instr{
			{Kind: KVar, IsAccVar: true},
			{Kind: KVar, IsIterVar: true},
		},
	}
	reduce := &Instr{
		Kind:       KReduce,
		ReduceKind: LoopVector,
		N:          3,
		IterRef:    VarRef{Sel: SelInput, Index: 0},
		Body:       body,
		HasAcc:     true,
		AccSlot:    0,
		AccInit:    accInit,
	}
	assign := &Instr{
		Kind:       KAssign,
		AssignKind: AssignOrdinary,
		Dest:       VarRef{Sel: SelOutput},
		Args:       []*Instr{reduce},
	}
	prog := &Program{Stmts: []*Instr{assign}}

	if _, err := Eval(prog, ctx); err != nil {
		t.Fatalf("eval: %v", err)
	}
	got, _, ok := out.Get(0, 0)
	if !ok || got.At(0) != 6 {
		t.Fatalf("expected accumulated sum 6, got %v ok=%v", got, ok)
	}
}

func TestReleaseSetsStatusBit(t *testing.T) {
	in, out := newRings(ring.F64, 1, 2)
	ctx := NewContext([]*ring.Ring{in}, out, nil)

	assignAlive := &Instr{
		Kind:       KAssign,
		AssignKind: AssignOrdinary,
		Dest:       VarRef{Sel: SelAlive},
		Args:       []*Instr{{Kind: KLit, Lit: 0, LitType: ring.I32}},
	}
	prog := &Program{Stmts: []*Instr{assignAlive}}

	st, err := Eval(prog, ctx)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !st.Has(ReleaseBeforeUpdate) {
		t.Fatalf("expected ReleaseBeforeUpdate, got %v", st)
	}
	if ctx.Alive {
		t.Fatalf("expected instance no longer alive")
	}
}
