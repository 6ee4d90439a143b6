package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mprmesh/mprmesh/cmn/cos"
	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/ring"
	"github.com/mprmesh/mprmesh/xmap"
)

// registry wires a set of devices together in-process, the role a real
// transport (or transportx's fake bus) plays: every Send* call on one
// device's bus is a direct method call into the named peer's Device,
// so the negotiation and value-propagation round-trips of spec.md §4.F
// and §8 scenario S2 run synchronously and deterministically.
type registry struct {
	devices map[string]*Device
}

type testBus struct {
	self string
	reg  *registry
}

func (b *testBus) ProbeName(name string, tie uint32)             {}
func (b *testBus) RegisterName(name string, tie uint32, hint int) {}

func (b *testBus) SendDevice(d *graph.Device) {}
func (b *testBus) SendSync(name string, version uint64) {}
func (b *testBus) SendPing(peer string, devID uint64, seq int) {}

func (b *testBus) SendMap(destDevice string, m *xmap.Map) {
	srcPaths := make([]string, len(m.Src))
	for i, s := range m.Src {
		srcPaths[i] = s.Path
	}
	b.reg.devices[destDevice].HandleMap(MapReq{
		ID: m.ID, From: b.self, Src: srcPaths, Dst: m.Dst.Path,
		Expr: m.Expr, Process: m.ProcessLocation,
	})
}

func (b *testBus) SendMapTo(destDevice string, m *xmap.Map, srcIdx int) {
	s := m.Src[srcIdx]
	b.reg.devices[destDevice].HandleMapTo(MapToMsg{
		ID: m.ID, From: b.self, SrcIdx: srcIdx,
		Type: s.Type, VecLen: s.VecLen, NumInst: s.NumInst,
	})
}

func (b *testBus) SendMapped(peer string, m *xmap.Map) {
	b.reg.devices[peer].HandleMapped(MappedMsg{
		ID: m.ID, Expr: m.Expr, Process: m.ProcessLocation, Muted: m.Muted,
		DstType: m.Dst.Type, DstVecLen: m.Dst.VecLen, DstNumInst: m.Dst.NumInst,
	})
}

func (b *testBus) SendUnmap(peer string, mapID string) {
	b.reg.devices[peer].HandleUnmap(UnmapMsg{ID: mapID})
}

func (b *testBus) SendUnmapped(peer string, mapID string) {
	b.reg.devices[peer].HandleUnmapped(UnmappedMsg{ID: mapID})
}

func (b *testBus) FlushLink(peer string, sends []PendingSend) {
	target, ok := b.reg.devices[peer]
	if !ok {
		return
	}
	for _, s := range sends {
		target.HandleValue(ValueMsg{
			Path: s.Path, MapID: s.MapID, Inst: s.Inst, Value: s.Value,
			Null: s.Null, GID: s.GID, SlotNo: s.SlotNo, HasSlot: true, Time: s.Time,
		})
	}
}

func newTestDevice(name string, id uint64, reg *registry) *Device {
	self := &graph.Device{Name: name, ID: id, Signals: map[uint64]*graph.Signal{}}
	d := NewDevice(graph.New(self), nil, &testBus{self: name, reg: reg}, nil)
	reg.devices[name] = d
	return d
}

// TestMapNegotiationReachesActiveOnBothSides walks the full /map ->
// /mapTo -> /mapped round-trip of spec.md §4.F, destination-driven,
// source evaluated (process_location = source).
func TestMapNegotiationReachesActiveOnBothSides(t *testing.T) {
	reg := &registry{devices: map[string]*Device{}}
	a := newTestDevice("A", 1, reg)
	b := newTestDevice("B", 2, reg)

	a.RegisterSignal("out", graph.DirOut, ring.F32, 1, 1, 1, "")
	b.RegisterSignal("in", graph.DirIn, ring.F32, 1, 1, 1, "")

	m, err := b.CreateMap([]string{"/A/out"}, "/B/in", "y = x + 1", xmap.Source)
	require.NoError(t, err)

	bMap, ok := b.Maps[m.ID]
	require.True(t, ok)
	require.Equal(t, xmap.Active, bMap.Status)

	aMap, ok := a.Maps[m.ID]
	require.True(t, ok)
	require.Equal(t, xmap.Active, aMap.Status)
	require.NotNil(t, aMap.Prog)
}

// TestSetValuePropagatesAcrossDevices exercises spec.md §8 scenario S2:
// after negotiation completes, pushing a value into the source signal
// on A reaches B's destination signal transformed by the map's
// expression, within the outgoing/flush/incoming sequence a single
// pair of Poll-equivalent passes drives.
func TestSetValuePropagatesAcrossDevices(t *testing.T) {
	reg := &registry{devices: map[string]*Device{}}
	a := newTestDevice("A", 1, reg)
	b := newTestDevice("B", 2, reg)

	a.RegisterSignal("out", graph.DirOut, ring.F32, 1, 1, 1, "")
	b.RegisterSignal("in", graph.DirIn, ring.F32, 1, 1, 1, "")

	_, err := b.CreateMap([]string{"/A/out"}, "/B/in", "y = x + 1", xmap.Source)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	require.NoError(t, a.SetValue("/A/out", 0, ring.NewF32(41.0), now))

	serviced := a.outgoingPass(now)
	require.Equal(t, 1, serviced)
	for _, l := range a.Links {
		l.flush(a.Bus)
	}

	v, _, ok := b.GetValue("/B/in", 0)
	require.True(t, ok)
	require.InDelta(t, 42.0, v.At(0), 1e-9)
}

// TestSetValueLocalOnlySkipsTheWire covers the local-only shortcut of
// spec.md §3: both endpoints owned by one device never touch a Link.
func TestSetValueLocalOnlySkipsTheWire(t *testing.T) {
	reg := &registry{devices: map[string]*Device{}}
	a := newTestDevice("A", 1, reg)

	a.RegisterSignal("out", graph.DirOut, ring.F32, 1, 1, 1, "")
	a.RegisterSignal("in", graph.DirIn, ring.F32, 1, 1, 1, "")

	m, err := a.CreateMap([]string{"/A/out"}, "/A/in", "", xmap.Destination)
	require.NoError(t, err)
	require.True(t, m.LocalOnly)
	require.Equal(t, xmap.Active, m.Status)

	now := time.Unix(1700000000, 0)
	require.NoError(t, a.SetValue("/A/out", 0, ring.NewF32(7.0), now))

	serviced := a.incomingPass(now)
	require.Equal(t, 1, serviced)
	require.Empty(t, a.Links)

	v, _, ok := a.GetValue("/A/in", 0)
	require.True(t, ok)
	require.InDelta(t, 7.0, v.At(0), 1e-9)
}

// TestLookupMapUnknownIDIsErrNotFound covers the miss path HandleMapTo,
// HandleMapped, HandleModify and HandleValue all share.
func TestLookupMapUnknownIDIsErrNotFound(t *testing.T) {
	reg := &registry{devices: map[string]*Device{}}
	a := newTestDevice("A", 1, reg)

	_, err := a.lookupMap("does-not-exist")
	require.Error(t, err)
	require.True(t, cos.IsErrNotFound(err))
}

// TestHistoryReductionSeesRealPastSamples is spec.md §8 scenario S5:
// history(5).x.mean() over five distinct pushes must average the five
// real samples, not five copies of the latest one. This guards against
// a map's slot rings staying pinned at the history-1 depth becomeReady
// allocates them at before the compiled program's actual history
// requirement is known.
func TestHistoryReductionSeesRealPastSamples(t *testing.T) {
	reg := &registry{devices: map[string]*Device{}}
	a := newTestDevice("A", 1, reg)
	b := newTestDevice("B", 2, reg)

	a.RegisterSignal("out", graph.DirOut, ring.F32, 1, 1, 1, "")
	b.RegisterSignal("in", graph.DirIn, ring.F32, 1, 1, 1, "")

	_, err := b.CreateMap([]string{"/A/out"}, "/B/in", "y = history(5).x.mean()", xmap.Source)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0)
	for i, val := range []float32{1, 2, 3, 4, 5} {
		at := now.Add(time.Duration(i) * time.Second)
		require.NoError(t, a.SetValue("/A/out", 0, ring.NewF32(val), at))
		serviced := a.outgoingPass(at)
		require.Equal(t, 1, serviced)
		for _, l := range a.Links {
			l.flush(a.Bus)
		}
	}

	v, _, ok := b.GetValue("/B/in", 0)
	require.True(t, ok)
	require.InDelta(t, 3.0, v.At(0), 1e-9)
}
