package mapper

import (
	"time"

	"github.com/pkg/errors"

	"github.com/mprmesh/mprmesh/cmn/idgen"
	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/ring"
)

// RegisterSignal publishes a new signal owned by this device (spec.md
// §3 "Signal", §6 "/signal"), allocating its live value ring and
// indexing it by path so SetValue and the router can reach it.
func (d *Device) RegisterSignal(name string, dir graph.Direction, typ ring.Vtype, vecLen, numInst, history int, unit string) *graph.Signal {
	localSlot := uint32(len(d.Graph.Self.Signals) + 1)
	sig := &graph.Signal{
		ID:        idgen.SignalID(d.Graph.Self.ID, localSlot),
		DeviceID:  d.Graph.Self.ID,
		Name:      "/" + d.Graph.Self.Name + "/" + name,
		Direction: dir,
		Type:      typ,
		VecLen:    vecLen,
		NumInst:   numInst,
		Unit:      unit,
	}
	d.Graph.UpsertSignal(d.Graph.Self.Name, sig)
	d.signals[sig.ID] = ring.New(typ, vecLen, maxInt(history, 1), numInst)
	d.signalPaths[sig.Name] = sig.ID
	d.changed = true
	return sig
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SetValue applies a local value change to one of this device's own
// signals (the external "set_value" entry point spec.md §8 scenario S2
// exercises), fanning the update out to every map slot routed from it.
func (d *Device) SetValue(path string, inst int, v ring.Vector, now time.Time) error {
	sigID, ok := d.signalPaths[path]
	if !ok {
		return errors.Errorf("mapper: %s is not a local signal", path)
	}
	d.signals[sigID].Push(inst, v, now.UnixNano())
	d.fanOut(sigID, inst, now)
	return nil
}

// GetValue reads the current value of a local signal, standing in for
// the external "handler receives a value" callback of spec.md §8 S2.
func (d *Device) GetValue(path string, inst int) (ring.Vector, int64, bool) {
	sigID, ok := d.signalPaths[path]
	if !ok {
		return ring.Vector{}, 0, false
	}
	return d.signals[sigID].Get(inst, 0)
}

// fanOut writes sigID's current value into every slot the router feeds
// from it and marks the owning maps dirty (spec.md §4.E "the router").
func (d *Device) fanOut(sigID uint64, inst int, now time.Time) {
	v, t, ok := d.signals[sigID].Get(inst, 0)
	if !ok {
		return
	}
	for _, route := range d.Router.Route(sigID) {
		m, ok := d.Maps[route.MapID]
		if !ok {
			continue
		}
		route.Slot.Values.Push(inst, v, t)
		m.MarkUpdated(inst)
	}
	_ = now
}

// deliverLocal applies an update received for path (whether from the
// wire or from a same-process evaluation) to the owning signal and
// fans it out to downstream maps, per spec.md §4.E.
func (d *Device) deliverLocal(path string, inst int, v ring.Vector, nullElems []bool, t int64) {
	sigID, ok := d.signalPaths[path]
	if !ok {
		return
	}
	if isAllNull(nullElems) {
		d.signals[sigID].Reset(inst)
	} else {
		d.signals[sigID].Push(inst, v, t)
	}
	for _, route := range d.Router.Route(sigID) {
		m, ok := d.Maps[route.MapID]
		if !ok {
			continue
		}
		if isAllNull(nullElems) {
			route.Slot.Values.Reset(inst)
		} else {
			route.Slot.Values.Push(inst, v, t)
		}
		m.MarkUpdated(inst)
	}
}

func isAllNull(nulls []bool) bool {
	if len(nulls) == 0 {
		return false
	}
	for _, n := range nulls {
		if !n {
			return false
		}
	}
	return true
}
