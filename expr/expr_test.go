package expr

import (
	"testing"

	"github.com/mprmesh/mprmesh/ring"
	"github.com/mprmesh/mprmesh/vm"
)

func oneInput(t ring.Vtype) Options {
	return Options{NIns: 1, InTypes: []ring.Vtype{t}, InVecLen: []int{1}, OutType: t, OutVecLen: 1}
}

func TestCompileSimpleArithmetic(t *testing.T) {
	prog, err := Compile("y = x * 2 + 1", oneInput(ring.F64))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	in := ring.New(ring.F64, 1, 2, 1)
	out := ring.New(ring.F64, 1, 2, 1)
	ctx := vm.NewContext([]*ring.Ring{in}, out, nil)
	in.Push(0, ring.NewF64(5), 0)

	if _, err := vm.Eval(prog, ctx); err != nil {
		t.Fatalf("eval: %v", err)
	}
	got, _, ok := out.Get(0, 0)
	if !ok || got.At(0) != 11 {
		t.Fatalf("expected 11, got %v ok=%v", got, ok)
	}
}

func TestConstantFolding(t *testing.T) {
	prog, err := Compile("y = x + (2 + 3)", oneInput(ring.F64))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	assign := prog.Stmts[len(prog.Stmts)-1]
	add := assign.Args[0]
	if add.Kind != vm.KOp || add.Op != vm.Add {
		t.Fatalf("expected top node to be +, got %#v", add)
	}
	if add.Args[1].Kind != vm.KLit || add.Args[1].Lit != 5 {
		t.Fatalf("expected constant sub-expression folded to 5, got %#v", add.Args[1])
	}
}

func TestHistoryMeanSugar(t *testing.T) {
	prog, err := Compile("y = history(5).x.mean()", oneInput(ring.F32))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if prog.InputHist[0] != 4 {
		t.Fatalf("expected required input history depth 4, got %d", prog.InputHist[0])
	}

	in := ring.New(ring.F32, 1, 8, 1)
	out := ring.New(ring.F32, 1, 2, 1)
	ctx := vm.NewContext([]*ring.Ring{in}, out, nil)

	for i, v := range []float32{1, 2, 3, 4, 5} {
		in.Push(0, ring.NewF32(v), int64(i))
		if _, err := vm.Eval(prog, ctx); err != nil {
			t.Fatalf("eval: %v", err)
		}
	}
	got, _, ok := out.Get(0, 0)
	if !ok || got.At(0) != 3 {
		t.Fatalf("expected mean 3, got %v", got.At(0))
	}

	in.Push(0, ring.NewF32(6), 5)
	if _, err := vm.Eval(prog, ctx); err != nil {
		t.Fatalf("eval: %v", err)
	}
	got, _, ok = out.Get(0, 0)
	if !ok || got.At(0) != 4 {
		t.Fatalf("expected moving mean 4, got %v", got.At(0))
	}
}

func TestIntegerDivideByZero(t *testing.T) {
	prog, err := Compile("y = x / 0", oneInput(ring.I32))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	in := ring.New(ring.I32, 1, 2, 1)
	out := ring.New(ring.I32, 1, 2, 1)
	ctx := vm.NewContext([]*ring.Ring{in}, out, nil)
	in.Push(0, ring.NewI32(7), 0)

	st, err := vm.Eval(prog, ctx)
	if err != nil {
		t.Fatalf("eval returned error: %v", err)
	}
	if st.Has(vm.Update) {
		t.Fatalf("expected no update after divide by zero")
	}
}

func TestAssignToXIsError(t *testing.T) {
	_, err := Compile("x = 1", oneInput(ring.F64))
	if err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestMixedHistoryReduceOverXAndYIsError(t *testing.T) {
	_, err := Compile("y = history(2).x.mean() + history(2).y.mean()", oneInput(ring.F64))
	if err == nil {
		t.Fatalf("expected compile error for mixed x/y history reduction")
	}
}

func TestUnknownTokenError(t *testing.T) {
	_, err := Compile("y = x @ 1", oneInput(ring.F64))
	if err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestUnmatchedParenError(t *testing.T) {
	_, err := Compile("y = (x + 1", oneInput(ring.F64))
	if err == nil {
		t.Fatalf("expected compile error for unmatched paren")
	}
}

func TestHistoryIndexOutOfRangeError(t *testing.T) {
	_, err := Compile("y = x{-1000}", oneInput(ring.F64))
	if err == nil {
		t.Fatalf("expected history index out of range error")
	}
}

func TestAliveAssignment(t *testing.T) {
	prog, err := Compile("alive = x > 0", oneInput(ring.F64))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !prog.ManagesAlive {
		t.Fatalf("expected ManagesAlive to be set")
	}
	in := ring.New(ring.F64, 1, 2, 1)
	out := ring.New(ring.F64, 1, 2, 1)
	ctx := vm.NewContext([]*ring.Ring{in}, out, nil)
	in.Push(0, ring.NewF64(-1), 0)

	st, err := vm.Eval(prog, ctx)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !st.Has(vm.ReleaseBeforeUpdate) {
		t.Fatalf("expected ReleaseBeforeUpdate, got %v", st)
	}
}

func TestInstanceCountFoldsToVarNumInst(t *testing.T) {
	prog, err := Compile("y = instance().x.count()", oneInput(ring.F64))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	assign := prog.Stmts[len(prog.Stmts)-1]
	if assign.Args[0].Kind != vm.KVarNumInst {
		t.Fatalf("expected instance().x.count() to fold to KVarNumInst, got %#v", assign.Args[0])
	}

	in := ring.New(ring.F64, 1, 2, 3)
	out := ring.New(ring.F64, 1, 2, 3)
	ctx := vm.NewContext([]*ring.Ring{in}, out, nil)
	ctx.Inst = 0

	if _, err := vm.Eval(prog, ctx); err != nil {
		t.Fatalf("eval: %v", err)
	}
	got, _, ok := out.Get(0, 0)
	if !ok || got.At(0) != 3 {
		t.Fatalf("expected instance count 3, got %v", got.At(0))
	}
}

func TestCountRequiresInstancePrefix(t *testing.T) {
	_, err := Compile("y = history(2).x.count()", oneInput(ring.F64))
	if err == nil {
		t.Fatalf("expected compile error for count() without instance prefix")
	}
}

func TestReduceWithAccumulatorSums(t *testing.T) {
	prog, err := Compile("y = reduce(vector().x, acc -> acc + in)", Options{
		NIns: 1, InTypes: []ring.Vtype{ring.F64}, InVecLen: []int{3}, OutType: ring.F64, OutVecLen: 1,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	in := ring.New(ring.F64, 3, 2, 1)
	out := ring.New(ring.F64, 1, 2, 1)
	ctx := vm.NewContext([]*ring.Ring{in}, out, nil)
	in.Push(0, ring.NewF64(1, 2, 3), 0)

	if _, err := vm.Eval(prog, ctx); err != nil {
		t.Fatalf("eval: %v", err)
	}
	got, _, ok := out.Get(0, 0)
	if !ok || got.At(0) != 6 {
		t.Fatalf("expected 6, got %v ok=%v", got, ok)
	}
}
