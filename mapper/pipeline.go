package mapper

import (
	"time"

	"github.com/mprmesh/mprmesh/slot"
	"github.com/mprmesh/mprmesh/vm"
	"github.com/mprmesh/mprmesh/xmap"
)

// outgoingPass is spec.md §4.F step 3: every local, dirty, non-muted
// map whose process_location is source gets evaluated and its results
// published through the router (locally) or queued to its link
// (remotely).
func (d *Device) outgoingPass(now time.Time) (serviced int) {
	for _, m := range d.Maps {
		if !d.shouldRun(m, xmap.Source) {
			continue
		}
		for _, r := range d.evalMap(m, now) {
			d.publish(m, r, now)
			serviced++
		}
	}
	return serviced
}

// incomingPass is step 5: the symmetric walk for maps evaluated on the
// destination side, delivering straight to the local signal instead of
// a link.
func (d *Device) incomingPass(now time.Time) (serviced int) {
	for _, m := range d.Maps {
		if !d.shouldRun(m, xmap.Destination) {
			continue
		}
		for _, r := range d.evalMap(m, now) {
			d.deliver(m, r)
			serviced++
		}
	}
	return serviced
}

func (d *Device) shouldRun(m *xmap.Map, loc xmap.Location) bool {
	return m.Status == xmap.Active && !m.Muted && m.Dirty && m.ProcessLocation == loc
}

// publish routes an outgoing-pass result to its destination, across
// the wire if the destination device isn't this one.
func (d *Device) publish(m *xmap.Map, r instResult, now time.Time) {
	nulls, ok := releaseNulls(r)
	if !ok {
		return
	}
	destDevice := deviceNameFromPath(m.Dst.Path)
	if destDevice == "" || destDevice == d.Graph.Self.Name || m.LocalOnly {
		d.deliver(m, r)
		return
	}
	gid := d.gidFor(m, r.Inst)
	l := d.link(destDevice, now)
	l.enqueue(PendingSend{
		Path: m.Dst.Path, MapID: m.ID, Value: r.Value, Null: nulls,
		Inst: r.Inst, GID: gid, SlotNo: 0, Time: r.Time,
	})
	if isRelease(nulls) {
		d.releaseInstance(m, r.Inst)
	}
}

// deliver applies a result to the local destination signal (and,
// transitively, the router's further downstream maps), broadcasting
// across every instance when the convergent-map rule of spec.md §4.E
// requires it.
func (d *Device) deliver(m *xmap.Map, r instResult) {
	nulls, ok := releaseNulls(r)
	if !ok {
		return
	}
	if slot.NeedsBroadcast(m.Dst.NumInst, m.NumInst) {
		for inst := 0; inst < m.NumInst; inst++ {
			d.deliverLocal(m.Dst.Path, inst, r.Value, nulls, r.Time)
		}
	} else {
		d.deliverLocal(m.Dst.Path, r.Inst, r.Value, nulls, r.Time)
	}
	if isRelease(nulls) {
		d.releaseInstance(m, r.Inst)
	}
}

// releaseNulls reports whether r should propagate at all (muted
// updates never do) and, if so, the null-element mask to send: all
// true for a release, all false for an ordinary update.
func releaseNulls(r instResult) (nulls []bool, propagate bool) {
	if r.Status.Has(vm.MutedUpdate) {
		return nil, false
	}
	release := r.Status.Has(vm.ReleaseBeforeUpdate) || r.Status.Has(vm.ReleaseAfterUpdate)
	if !release && !r.Status.Has(vm.Update) {
		return nil, false
	}
	nulls = make([]bool, r.Value.Len())
	if release {
		for i := range nulls {
			nulls[i] = true
		}
	}
	return nulls, true
}

func isRelease(nulls []bool) bool {
	for _, n := range nulls {
		if !n {
			return false
		}
	}
	return len(nulls) > 0
}
