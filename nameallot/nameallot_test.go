package nameallot

import (
	"testing"
	"time"
)

// pairBus wires two allocators' probes/registrations directly to each
// other, modeling scenario S1 (spec.md §8) without a real bus.
type pairBus struct {
	other     *Allocator
	otherBus  Bus // lets `other` reply back to us
	now       *time.Time
}

func (b *pairBus) ProbeName(name string, tie uint32) {
	b.other.OnProbe(*b.now, name, tie, b.otherBus)
}
func (b *pairBus) RegisterName(name string, tie uint32, hint int) {
	b.other.OnRegistered(*b.now, name, hint)
}

func TestCollisionAllocatesDistinctOrdinals(t *testing.T) {
	a := New("node")
	a.Tie = 1
	c := New("node")
	c.Tie = 2

	now := time.Unix(0, 0)
	busA := &pairBus{other: c, now: &now}
	busC := &pairBus{other: a, now: &now}
	busA.otherBus = busC
	busC.otherBus = busA

	for i := 0; i < 20 && (!a.Locked || !c.Locked); i++ {
		now = now.Add(time.Second)
		a.Tick(now, 1, busA)
		c.Tick(now, 1, busC)
	}

	if !a.Locked || !c.Locked {
		t.Fatalf("expected both to lock within bounded ticks: a.Locked=%v c.Locked=%v", a.Locked, c.Locked)
	}
	if a.Name() == c.Name() {
		t.Fatalf("expected distinct names, both locked %s", a.Name())
	}
}

func TestMinimumBumpOfOne(t *testing.T) {
	a := New("node")
	a.CollisionCount = 5
	now := time.Unix(0, 600*int64(time.Millisecond))
	a.bump(now, 0, noopBus{})
	if a.Ordinal < 2 {
		t.Fatalf("expected ordinal to advance by at least 1 even with numDevsSeen=0, got %d", a.Ordinal)
	}
}

type noopBus struct{}

func (noopBus) ProbeName(string, uint32)           {}
func (noopBus) RegisterName(string, uint32, int) {}
