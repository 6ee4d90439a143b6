package graph

import (
	"testing"
	"time"
)

func newSelf() *Device {
	return &Device{ID: 1, Name: "self.1", Version: 1, Signals: map[uint64]*Signal{}}
}

func TestMonotoneVersioning(t *testing.T) {
	g := New(newSelf())
	peer := &Device{ID: 2, Name: "peer.1", Version: 5, Signals: map[uint64]*Signal{}}
	if !g.UpsertDevice(peer) {
		t.Fatalf("expected first upsert to apply")
	}
	stale := &Device{ID: 2, Name: "peer.1", Version: 3, Signals: map[uint64]*Signal{}}
	if g.UpsertDevice(stale) {
		t.Fatalf("version must never decrease")
	}
	got, _ := g.Device("peer.1")
	if got.Version != 5 {
		t.Fatalf("expected version to remain 5, got %d", got.Version)
	}
}

func TestSyncIgnoresOlderVersion(t *testing.T) {
	g := New(newSelf())
	g.UpsertDevice(&Device{ID: 2, Name: "peer.1", Version: 5, Signals: map[uint64]*Signal{}})
	now := time.Now()
	g.Sync("peer.1", 3, now)
	d, _ := g.Device("peer.1")
	if d.Version != 5 {
		t.Fatalf("older /sync version must be ignored, got %d", d.Version)
	}
	g.Sync("peer.1", 6, now)
	d, _ = g.Device("peer.1")
	if d.Version != 6 {
		t.Fatalf("expected version to advance to 6, got %d", d.Version)
	}
}

func TestSubscribeIdempotent(t *testing.T) {
	g := New(newSelf())
	now := time.Now()
	g.Subscribe("10.0.0.5:9000", SubAll, 60, now)
	g.Subscribe("10.0.0.5:9000", SubDevice, 60, now)
	subs := g.Subscribers(SubDevice, now)
	if len(subs) != 1 {
		t.Fatalf("expected exactly one subscriber record, got %d", len(subs))
	}
	if subs[0].Flags != SubDevice {
		t.Fatalf("expected re-subscribe to update flags in place")
	}
}

func TestHousekeepReclaimsExpiredDevice(t *testing.T) {
	g := New(newSelf())
	now := time.Now()
	g.UpsertDevice(&Device{ID: 2, Name: "peer.1", Version: 1, Signals: map[uint64]*Signal{}})
	expired := g.Housekeep(now.Add(time.Hour), 30*time.Second)
	if len(expired) != 1 || expired[0] != "peer.1" {
		t.Fatalf("expected peer.1 to be reclaimed, got %v", expired)
	}
	if _, ok := g.Device("peer.1"); ok {
		t.Fatalf("expired device should be gone")
	}
}

func TestClockSeedsThenAverages(t *testing.T) {
	var c Clock
	base := time.Unix(1000, 0)
	c.SentAt = base
	c.OnPing(base.Add(100*time.Millisecond), base.Add(50*time.Millisecond), 0)
	if c.Latency != 50*time.Millisecond {
		t.Fatalf("expected seeded latency 50ms, got %v", c.Latency)
	}
	c.SentAt = base.Add(time.Second)
	c.OnPing(base.Add(1100*time.Millisecond), base.Add(1050*time.Millisecond), 0)
	if c.Latency != 50*time.Millisecond || c.Offset != 0 {
		t.Fatalf("expected an identical exchange to keep 50ms/0, got %v/%v", c.Latency, c.Offset)
	}
	// 60ms latency: outside the jitter band, only the jitter moves (to 1ms).
	c.SentAt = base.Add(2 * time.Second)
	c.OnPing(base.Add(2*time.Second+120*time.Millisecond), base.Add(2*time.Second+60*time.Millisecond), 0)
	if c.Latency != 50*time.Millisecond {
		t.Fatalf("expected out-of-band latency to be ignored, got %v", c.Latency)
	}
	// 50.5ms latency: inside 50ms +/- 0.95ms jitter, so it is averaged in
	// with weight 0.1, giving 50.05ms.
	c.SentAt = base.Add(3 * time.Second)
	c.OnPing(base.Add(3*time.Second+101*time.Millisecond), base.Add(3*time.Second+50500*time.Microsecond), 0)
	if c.Latency <= 50*time.Millisecond || c.Latency >= 50500*time.Microsecond {
		t.Fatalf("expected in-band latency to be averaged toward 50.5ms, got %v", c.Latency)
	}
}
