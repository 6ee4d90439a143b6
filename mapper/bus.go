// Package mapper implements the device half of component F (spec.md
// §4.F): the per-device poll tick that drives maps through negotiation
// and evaluates them, tying together ring, vm, expr, idmap, slot,
// graph, and nameallot. The map lifecycle itself lives in package xmap.
//
// Grounded in the teacher's ais.Target/ais.Proxy run-loop (read in
// full): a single struct owning every subsystem, advanced by one
// poll-shaped method per tick, with an optional goroutine wrapper
// (here built on golang.org/x/sync/errgroup rather than the teacher's
// own cmn/xsync - see DESIGN.md) for callers that want a dedicated
// worker.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package mapper

import (
	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/nameallot"
	"github.com/mprmesh/mprmesh/ring"
	"github.com/mprmesh/mprmesh/xmap"
)

// Bus is the device's external collaborator for everything it sends
// (spec.md §1, §6): discovery, negotiation, and value traffic. A
// concrete bus (transportx's fake in-memory bus, or a real OSC
// transport) turns these calls into wire messages; a Device never
// parses or frames a message itself.
type Bus interface {
	nameallot.Bus // ProbeName, RegisterName (§4.G)

	// SendDevice advertises d's current metadata (§6 "/device").
	SendDevice(d *graph.Device)
	// SendSync emits a liveness heartbeat (§4.H "/sync").
	SendSync(name string, version uint64)
	// SendPing issues this device's side of a bilateral clock exchange
	// (§4.H "/ping"). seq is this device's local sequence number.
	SendPing(peer string, devID uint64, seq int)

	// SendMap proposes a map to its destination device (§4.F "/map").
	SendMap(destDevice string, m *xmap.Map)
	// SendMapTo echoes a source's metadata back to the map's
	// destination device (§4.F "/mapTo").
	SendMapTo(destDevice string, m *xmap.Map, srcIdx int)
	// SendMapped promotes a map to ACTIVE on both sides (§4.F "/mapped").
	SendMapped(peer string, m *xmap.Map)
	// SendUnmap/SendUnmapped tear a map down (§4.F).
	SendUnmap(peer string, mapID string)
	SendUnmapped(peer string, mapID string)

	// FlushLink sends a batch of value updates to peer in one bundle
	// (§6 "Bundles are used to batch messages and carry timetags").
	FlushLink(peer string, sends []PendingSend)
}

// PendingSend is one queued outbound value update (§6 "Value messages").
type PendingSend struct {
	Path   string
	MapID  string
	Value  ring.Vector
	Null   []bool
	Inst   int
	GID    uint64
	SlotNo int
	Time   int64
}
