package ring

import "testing"

func TestPushGet(t *testing.T) {
	r := New(F64, 1, 5, 1)
	for i := 1; i <= 5; i++ {
		r.Push(0, NewF64(float64(i)), int64(i))
	}
	v, ts, ok := r.Get(0, 0)
	if !ok || v.At(0) != 5 || ts != 5 {
		t.Fatalf("got %v %v %v", v, ts, ok)
	}
	v, _, ok = r.Get(0, -4)
	if !ok || v.At(0) != 1 {
		t.Fatalf("oldest sample wrong: %v %v", v, ok)
	}
	_, _, ok = r.Get(0, -5)
	if ok {
		t.Fatalf("expected underrun to fail")
	}
}

func TestHistoryOfOneNoInterp(t *testing.T) {
	r := New(F64, 1, 1, 1)
	r.Push(0, NewF64(3), 10)
	v, _, ok := r.Get(0, -2.7)
	if !ok || v.At(0) != 3 {
		t.Fatalf("history=1 must collapse without interpolation, got %v", v)
	}
}

func TestFractionalTimeInterp(t *testing.T) {
	r := New(F64, 1, 3, 1)
	r.Push(0, NewF64(0), 0)
	r.Push(0, NewF64(10), 10)
	v, _, ok := r.Get(0, -0.5)
	if !ok || v.At(0) != 5 {
		t.Fatalf("expected midpoint 5, got %v", v)
	}
}

func TestReset(t *testing.T) {
	r := New(I32, 1, 3, 2)
	r.Push(1, NewI32(7), 1)
	r.Reset(1)
	_, _, ok := r.Get(1, 0)
	if ok {
		t.Fatalf("expected reset instance to have no value")
	}
}

func TestReallocPreservesOverlap(t *testing.T) {
	r := New(F64, 1, 3, 1)
	r.Push(0, NewF64(1), 1)
	r.Push(0, NewF64(2), 2)
	r.Realloc(F64, 1, 5, 1)
	v, _, ok := r.Get(0, 0)
	if !ok || v.At(0) != 2 {
		t.Fatalf("expected most recent value 2 preserved, got %v ok=%v", v, ok)
	}
	v, _, ok = r.Get(0, -1)
	if !ok || v.At(0) != 1 {
		t.Fatalf("expected previous value 1 preserved, got %v ok=%v", v, ok)
	}
}

func TestVectorBroadcastWrap(t *testing.T) {
	v := NewI32(1, 2, 3)
	b := v.Broadcast(7)
	want := []int32{1, 2, 3, 1, 2, 3, 1}
	for i, w := range want {
		if b.I32[i] != w {
			t.Fatalf("broadcast mismatch at %d: got %d want %d", i, b.I32[i], w)
		}
	}
}
