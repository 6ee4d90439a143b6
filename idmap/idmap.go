// Package idmap implements component D: per-device, per-signal-group
// LID<->GID mapping with split reference counts and release-race
// resolution (spec.md §4.D).
//
// Grounded in the teacher's object-pool pattern: the C source's
// intrusive active/reserve linked lists are re-expressed per the
// REDESIGN FLAGS (spec.md §9, "Intrusive linked lists everywhere")
// as an arena-plus-index pool, the same shape the teacher uses for its
// own small-scale free lists (cmn/cos.Errs' bounded slice, generalized
// here to a growable arena with O(1) recycle via a free-index stack).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package idmap

import (
	"errors"

	"github.com/mprmesh/mprmesh/cmn/debug"
)

var ErrNoRecord = errors.New("idmap: no matching record")

// Record is one LID<->GID pairing with independent reference counts
// (spec.md §3 "ID-map record").
type Record struct {
	LID uint32
	GID uint64

	LIDRefcount int
	GIDRefcount int

	// ReleasedLocally marks a record whose owning instance has been
	// released on this device but whose GID refcount (remote
	// references) has not yet dropped to zero - the release-race flag
	// consulted by Resolve (spec.md §4.D).
	ReleasedLocally bool
}

func (r *Record) dead() bool { return r.LIDRefcount == 0 && r.GIDRefcount == 0 }

// Table is one signal-group's active/reserve pool. Index 0 within a
// device belongs to the default group; additional groups are
// independent Tables (spec.md §4.D "per device and per signal group").
type Table struct {
	arena   []Record
	active  []int // indices into arena currently live
	reserve []int // free-list of recycled arena slots
	byLID   map[uint32]int
	byGID   map[uint64]int
}

func New() *Table {
	return &Table{
		byLID: make(map[uint32]int),
		byGID: make(map[uint64]int),
	}
}

func (t *Table) LookupByLID(lid uint32) (*Record, bool) {
	if idx, ok := t.byLID[lid]; ok {
		return &t.arena[idx], true
	}
	return nil, false
}

func (t *Table) LookupByGID(gid uint64) (*Record, bool) {
	if idx, ok := t.byGID[gid]; ok {
		return &t.arena[idx], true
	}
	return nil, false
}

// Add allocates a record from the reserve pool (enlarging the arena if
// empty), sets LID refcount = 1 and GID refcount = 0, and binds gid
// (minting one via mint() if gid == 0).
func (t *Table) Add(lid uint32, gid uint64, mint func() uint64) *Record {
	idx := t.alloc()
	if gid == 0 {
		gid = mint()
	}
	rec := &t.arena[idx]
	*rec = Record{LID: lid, GID: gid, LIDRefcount: 1, GIDRefcount: 0}
	t.active = append(t.active, idx)
	t.byLID[lid] = idx
	t.byGID[gid] = idx
	return rec
}

func (t *Table) alloc() int {
	if n := len(t.reserve); n > 0 {
		idx := t.reserve[n-1]
		t.reserve = t.reserve[:n-1]
		return idx
	}
	t.arena = append(t.arena, Record{})
	return len(t.arena) - 1
}

// LIDDecref decrements rec's LID refcount; when both refcounts reach
// zero the record is unlinked from active and pushed to reserve.
func (t *Table) LIDDecref(rec *Record) {
	if rec.LIDRefcount > 0 {
		rec.LIDRefcount--
	}
	t.reclaimIfDead(rec)
}

func (t *Table) GIDDecref(rec *Record) {
	if rec.GIDRefcount > 0 {
		rec.GIDRefcount--
	}
	t.reclaimIfDead(rec)
}

func (t *Table) GIDIncref(rec *Record) { rec.GIDRefcount++ }
func (t *Table) LIDIncref(rec *Record) { rec.LIDRefcount++ }

func (t *Table) reclaimIfDead(rec *Record) {
	if !rec.dead() {
		return
	}
	debug.Assert(rec.LIDRefcount == 0 && rec.GIDRefcount == 0, "idmap: reclaiming record with a live refcount")
	lid, gid := rec.LID, rec.GID
	idx, ok := t.byLID[lid]
	if !ok {
		idx, ok = t.byGID[gid]
	}
	if !ok {
		return // already reclaimed
	}
	delete(t.byLID, lid)
	delete(t.byGID, gid)
	for i, a := range t.active {
		if a == idx {
			t.active = append(t.active[:i], t.active[i+1:]...)
			break
		}
	}
	t.reserve = append(t.reserve, idx)
	t.arena[idx] = Record{}
}

// Active returns the live records; callers must not retain it past the
// next mutating call.
func (t *Table) Active() []*Record {
	out := make([]*Record, len(t.active))
	for i, idx := range t.active {
		out[i] = &t.arena[idx]
	}
	return out
}

// ResolveAction is the decision returned by Resolve.
type ResolveAction int

const (
	// ActionBind: a fresh instance should be activated and bound to gid.
	ActionBind ResolveAction = iota
	// ActionUpdate: rec already exists and should receive the update.
	ActionUpdate
	// ActionIgnore: rec is mid-release-race; this value update is dropped.
	ActionIgnore
	// ActionRelease: rec's release completes; caller should reset the instance.
	ActionRelease
	// ActionDiscard: no record and no values - a release for an instance
	// that was never bound here; nothing to do.
	ActionDiscard
)

// Resolve implements the release-race resolution rule of spec.md §4.D:
// an incoming update carrying gid is classified against the existing
// record (if any) and whether the message carries values.
//
//   - record exists, ReleasedLocally, message carries values -> Ignore
//     (the record is consumed by the release message only).
//   - record exists, ReleasedLocally, message carries no values -> Release
//     (this is that release message; the record is reclaimed by the caller
//     via GIDDecref/LIDDecref as appropriate).
//   - record exists, not released -> Update.
//   - no record, message carries values -> Bind (subject to allowActivate).
//   - no record, message carries no values -> Discard.
func (t *Table) Resolve(gid uint64, hasValues, allowActivate bool) (rec *Record, action ResolveAction) {
	rec, ok := t.LookupByGID(gid)
	if ok {
		if rec.ReleasedLocally {
			if hasValues {
				return rec, ActionIgnore
			}
			return rec, ActionRelease
		}
		return rec, ActionUpdate
	}
	if !hasValues {
		return nil, ActionDiscard
	}
	if !allowActivate {
		return nil, ActionDiscard
	}
	return nil, ActionBind
}
