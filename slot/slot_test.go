package slot

import (
	"testing"

	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/ring"
)

func TestAdmitRelease(t *testing.T) {
	s := New(0, graph.DirIn, ring.F32, 2, 3, 1)
	s.Values.Push(0, ring.NewF32(1, 2), 1)
	released, err := s.Admit(Update{Inst: 0, NullElems: []bool{true, true}, Time: 2})
	if err != nil || !released {
		t.Fatalf("expected release, got released=%v err=%v", released, err)
	}
	if _, _, ok := s.Values.Get(0, 0); ok {
		t.Fatalf("expected value ring reset after release")
	}
}

func TestAdmitRejectsPartialConvergent(t *testing.T) {
	s := New(0, graph.DirIn, ring.F32, 2, 3, 1)
	s.Convergent = true
	_, err := s.Admit(Update{Inst: 0, Values: ring.NewF32(1, 2), NullElems: []bool{false, true}})
	if err != ErrPartialConvergentUpdate {
		t.Fatalf("expected partial-convergent rejection, got %v", err)
	}
}

func TestRouterRegisterUnregister(t *testing.T) {
	r := NewRouter()
	s1 := New(0, graph.DirIn, ring.F32, 1, 1, 1)
	r.Register(100, "map1", s1)
	if len(r.Route(100)) != 1 {
		t.Fatalf("expected one route")
	}
	r.Unregister(100, "map1")
	if len(r.Route(100)) != 0 {
		t.Fatalf("expected route removed")
	}
}

func TestNeedsBroadcast(t *testing.T) {
	if !NeedsBroadcast(1, 3) {
		t.Fatalf("expected broadcast when dest is scalar but sources expose 3 instances")
	}
	if NeedsBroadcast(3, 3) {
		t.Fatalf("did not expect broadcast when dest already matches")
	}
}
