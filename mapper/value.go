package mapper

import (
	"github.com/mprmesh/mprmesh/cmn/cos"
	"github.com/mprmesh/mprmesh/cmn/nlog"
	"github.com/mprmesh/mprmesh/idmap"
	"github.com/mprmesh/mprmesh/slot"
)

// HandleValue resolves an inbound value message (spec.md §6 "Value
// messages"): a map-slot-tagged update goes through the ID-map's
// release-race resolution (component D) and the slot's convergent
// admission rules (component E); a plain path update writes the
// signal directly.
func (d *Device) HandleValue(msg ValueMsg) {
	if !msg.HasSlot {
		d.deliverLocal(msg.Path, msg.Inst, msg.Value, msg.Null, msg.Time)
		return
	}

	m, err := d.lookupMap(msg.MapID)
	if err != nil {
		nlog.Warningf("mapper: value: %v", err)
		return
	}
	if msg.SlotNo < 0 || msg.SlotNo >= len(m.Slots) {
		nlog.Warningf("mapper: value: %v", cos.NewErrNotFound("slot %d on map %s", msg.SlotNo, msg.MapID))
		return
	}
	sl := m.Slots[msg.SlotNo]

	tbl := d.IDMap(0)
	hasValues := !isAllNull(msg.Null)
	rec, action := tbl.Resolve(msg.GID, hasValues, true)
	switch action {
	case idmap.ActionDiscard, idmap.ActionIgnore:
		return
	case idmap.ActionBind:
		tbl.Add(uint32(msg.Inst), msg.GID, func() uint64 { return msg.GID })
	case idmap.ActionRelease:
		tbl.GIDDecref(rec)
		tbl.LIDDecref(rec)
		sl.Values.Reset(msg.Inst)
		m.MarkUpdated(msg.Inst)
		return
	case idmap.ActionUpdate:
		// admitted below
	}

	if msg.SlotNo == 0 {
		// Slot 0 is the destination: the sender already evaluated the
		// map, so the value is written to the local destination signal,
		// whose routes carry it on into this slot.
		d.deliverLocal(m.Dst.Path, msg.Inst, msg.Value, msg.Null, msg.Time)
		return
	}

	if _, err := sl.Admit(slot.Update{Inst: msg.Inst, Values: msg.Value, NullElems: msg.Null, Time: msg.Time}); err != nil {
		nlog.Warningf("mapper: admitting value on map %s slot %d: %v", msg.MapID, msg.SlotNo, err)
		return
	}
	m.MarkUpdated(msg.Inst)
}
