package transportx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/mapper"
	"github.com/mprmesh/mprmesh/ring"
	"github.com/mprmesh/mprmesh/transportx/membus"
	"github.com/mprmesh/mprmesh/xmap"
)

// pump drives Poll on every device until no peer's inbox has anything
// left to dispatch, the test-only stand-in for repeated real poll
// ticks against a live transport.
func pump(t *testing.T, hub *membus.Hub, devices map[string]*mapper.Device, now time.Time) {
	t.Helper()
	for round := 0; round < 10; round++ {
		progressed := false
		for name, d := range devices {
			drain := hub.Drain(name, func(data []byte) {
				require.NoError(t, Dispatch(d, data, now))
			})
			before := hub.Pending(name)
			serviced, err := d.Poll(now, drain)
			require.NoError(t, err)
			if serviced > 0 || hub.Pending(name) != before {
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

// TestEndToEndMapNegotiationAndValueFlow exercises spec.md §8 scenario
// S2 over the full transportx.Bus + membus.Hub stack (jsoniter-framed
// negotiation, msgp-framed value bundle) rather than mapper_test.go's
// direct in-process handler calls.
func TestEndToEndMapNegotiationAndValueFlow(t *testing.T) {
	hub := membus.New()
	hub.Register("A")
	hub.Register("B")

	selfA := &graph.Device{Name: "A", ID: 1, Signals: map[uint64]*graph.Signal{}}
	selfB := &graph.Device{Name: "B", ID: 2, Signals: map[uint64]*graph.Signal{}}
	a := mapper.NewDevice(graph.New(selfA), nil, &Bus{Self: "A", T: hub}, nil)
	b := mapper.NewDevice(graph.New(selfB), nil, &Bus{Self: "B", T: hub}, nil)
	devices := map[string]*mapper.Device{"A": a, "B": b}

	a.RegisterSignal("out", graph.DirOut, ring.F32, 1, 1, 1, "")
	b.RegisterSignal("in", graph.DirIn, ring.F32, 1, 1, 1, "")

	now := time.Unix(1700000000, 0)
	_, err := b.CreateMap([]string{"/A/out"}, "/B/in", "y = x + 1", xmap.Source)
	require.NoError(t, err)

	pump(t, hub, devices, now)

	require.Equal(t, xmap.Active, a.Maps[mapIDOf(t, b)].Status)
	require.Equal(t, xmap.Active, b.Maps[mapIDOf(t, b)].Status)

	require.NoError(t, a.SetValue("/A/out", 0, ring.NewF32(41.0), now))
	pump(t, hub, devices, now)

	v, _, ok := b.GetValue("/B/in", 0)
	require.True(t, ok)
	require.InDelta(t, 42.0, v.At(0), 1e-9)
}

func mapIDOf(t *testing.T, b *mapper.Device) string {
	t.Helper()
	for id := range b.Maps {
		return id
	}
	t.Fatal("no map registered on device B")
	return ""
}
