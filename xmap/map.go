// Package xmap implements the map half of component F (spec.md §3
// "Map", §4.F): the STAGED -> READY -> ACTIVE lifecycle and the
// per-endpoint slot bookkeeping a map carries between negotiation and
// evaluation. The device pipeline that drives maps through this
// lifecycle and evaluates them lives in package mapper.
//
// Grounded in the teacher's xaction state machine (read in full):
// a small enum-status struct advanced by explicit transition methods
// rather than a generic FSM library, with invariant checks inlined at
// each transition point the way xact.Base's Abort/Finish do.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package xmap

import (
	"github.com/pkg/errors"

	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/ring"
	"github.com/mprmesh/mprmesh/slot"
	"github.com/mprmesh/mprmesh/vm"
)

// Status is the map lifecycle of spec.md §4.F.
type Status int

const (
	Staged Status = iota
	Ready
	Active
)

func (s Status) String() string {
	switch s {
	case Staged:
		return "staged"
	case Ready:
		return "ready"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// Location is the map's process_location decision (spec.md §3).
type Location int

const (
	LocationUnset Location = iota
	Source
	Destination
)

// Endpoint names one side of a map before its slot is fully resolved:
// a signal path ("/device/signal") plus, once known from the peer's
// /mapTo or /map, its type and vector length.
type Endpoint struct {
	Path    string
	Type    ring.Vtype
	VecLen  int
	NumInst int
	Known   bool // type/veclen/num_inst have been learned from the peer
}

// Map is spec.md §3's "Map": a directed dataflow from N >= 1 source
// signals to one destination signal.
type Map struct {
	ID string

	Src []Endpoint
	Dst Endpoint

	Slots []*slot.Slot // index 0 = destination, 1..N = sources, populated once Ready

	Expr string
	Prog *vm.Program

	ProcessLocation Location
	UseInst         bool
	NumInst         int // max over every source and the destination, DESIGN.md Open Question #1
	Muted           bool
	Status          Status

	LocalOnly bool // both ends owned by this process; skips the wire

	Dirty       bool         // needs re-evaluation on next pipeline pass
	UpdatedInst map[int]bool // instances touched since the last evaluation

	Vars []*ring.Ring // one ring per user variable declared in Prog, spanning all instances

	// GIDs caches the global instance id minted for each local instance
	// this map has published, so repeated sends reuse the same id and
	// the remote end's idmap table can correlate them (spec.md §4.D).
	GIDs map[int]uint64
}

// New stages a map from a /map request naming its sources and
// destination; it starts life with neither side's metadata known.
func New(id string, srcPaths []string, dstPath string, exprSrc string) *Map {
	srcs := make([]Endpoint, len(srcPaths))
	for i, p := range srcPaths {
		srcs[i] = Endpoint{Path: p}
	}
	return &Map{
		ID:          id,
		Src:         srcs,
		Dst:         Endpoint{Path: dstPath},
		Expr:        exprSrc,
		Status:      Staged,
		UpdatedInst: map[int]bool{},
	}
}

// Convergent reports whether this map has more than one source, the
// precondition for the convergent-instance-count rule (spec.md §3,
// §9 Open Question, slot.NeedsBroadcast).
func (m *Map) Convergent() bool { return len(m.Src) > 1 }

// ResolveEndpoint records metadata learned for src index i (or the
// destination when i == -1, matching spec.md §4.F's "once both sides
// hold complete metadata, ready to promote"). Moves STAGED -> READY
// once every endpoint is known.
func (m *Map) ResolveEndpoint(i int, typ ring.Vtype, vecLen, numInst int) error {
	if i == -1 {
		m.Dst.Type, m.Dst.VecLen, m.Dst.NumInst, m.Dst.Known = typ, vecLen, numInst, true
	} else {
		if i < 0 || i >= len(m.Src) {
			return errors.Errorf("xmap: source slot %d out of range (map has %d sources)", i, len(m.Src))
		}
		m.Src[i].Type, m.Src[i].VecLen, m.Src[i].NumInst, m.Src[i].Known = typ, vecLen, numInst, true
	}
	if m.Status == Staged && m.allKnown() {
		m.becomeReady()
	}
	return nil
}

func (m *Map) allKnown() bool {
	if !m.Dst.Known {
		return false
	}
	for _, s := range m.Src {
		if !s.Known {
			return false
		}
	}
	return true
}

// becomeReady resolves num_inst (max over every source and the
// destination, DESIGN.md Open Question #1), allocates slots sized to each endpoint, and promotes
// to READY. ACTIVE is reached only on a subsequent successful /mapped
// exchange (spec.md §4.F), driven by Activate.
func (m *Map) becomeReady() {
	m.NumInst = 1
	for _, s := range m.Src {
		if s.NumInst > m.NumInst {
			m.NumInst = s.NumInst
		}
	}
	if m.Dst.NumInst > m.NumInst {
		m.NumInst = m.Dst.NumInst
	}

	const history = 1
	m.Slots = make([]*slot.Slot, len(m.Src)+1)
	m.Slots[0] = slot.New(0, graph.DirIn, m.Dst.Type, m.Dst.VecLen, history, m.NumInst)
	m.Slots[0].Convergent = m.Convergent()
	for i, s := range m.Src {
		sl := slot.New(i+1, graph.DirOut, s.Type, s.VecLen, history, s.NumInst)
		sl.Convergent = m.Convergent()
		m.Slots[i+1] = sl
	}
	m.GIDs = map[int]uint64{}
	m.Status = Ready
}

// Activate promotes a READY map to ACTIVE on a successful /mapped
// exchange (spec.md §4.F), compiling expr (if non-empty) against the
// now-known endpoint shapes. An active map has a non-null expression
// iff any transformation is required (invariant, spec.md §3); an empty
// expr is a valid identity map and Prog stays nil.
func (m *Map) Activate(compile func(src string, nIns int, inTypes []ring.Vtype, inVecLen []int, outType ring.Vtype, outVecLen int) (*vm.Program, error)) error {
	if m.Status != Ready {
		return errors.Errorf("xmap: map %s cannot activate from status %s", m.ID, m.Status)
	}
	if m.Expr != "" {
		inTypes := make([]ring.Vtype, len(m.Src))
		inVecLen := make([]int, len(m.Src))
		for i, s := range m.Src {
			inTypes[i], inVecLen[i] = s.Type, s.VecLen
		}
		prog, err := compile(m.Expr, len(m.Src), inTypes, inVecLen, m.Dst.Type, m.Dst.VecLen)
		if err != nil {
			return errors.Wrapf(err, "xmap: activating map %s", m.ID)
		}
		m.Prog = prog
		m.widenHistory(prog)
		if prog.NVars > 0 {
			m.Vars = make([]*ring.Ring, prog.NVars)
			for i := range m.Vars {
				m.Vars[i] = ring.New(ring.F64, 1, 1, m.NumInst)
			}
		}
	}
	m.Status = Active
	m.Dirty = true
	return nil
}

// widenHistory grows each slot's value ring to the depth the compiled
// program actually reads (vm.Program's InputHist/OutputHist, spec.md
// §4.C history reductions and y{-k} initializers), so history(N) and
// y{-k} see N real past samples instead of the history-1 ring
// becomeReady started with. Must run before any evaluation, including
// the program's own history initializers.
func (m *Map) widenHistory(prog *vm.Program) {
	for i, s := range m.Src {
		if i >= len(prog.InputHist) {
			continue
		}
		depth := prog.InputHist[i] + 1
		if depth < 1 {
			depth = 1
		}
		sl := m.Slots[i+1]
		sl.Values.Realloc(s.Type, s.VecLen, depth, sl.Values.NumInst())
	}
	depth := prog.OutputHist + 1
	if depth < 1 {
		depth = 1
	}
	dst := m.Slots[0]
	dst.Values.Realloc(m.Dst.Type, m.Dst.VecLen, depth, dst.Values.NumInst())
}

// Modify applies a /map/modify request to an already-active map,
// re-deriving ACTIVE through the same compile step (spec.md §4.F:
// "modifications to an active map flow through /map/modify -> /mapped").
func (m *Map) Modify(exprSrc string, muted bool, compile func(src string, nIns int, inTypes []ring.Vtype, inVecLen []int, outType ring.Vtype, outVecLen int) (*vm.Program, error)) error {
	if m.Status != Active {
		return errors.Errorf("xmap: map %s: modify requires ACTIVE, has %s", m.ID, m.Status)
	}
	m.Expr = exprSrc
	m.Muted = muted
	m.Status = Ready
	return m.Activate(compile)
}

// MarkUpdated records that inst changed on this tick, per spec.md
// §4.E "sets the map-level updated_inst bitflag".
func (m *Map) MarkUpdated(inst int) {
	m.UpdatedInst[inst] = true
	m.Dirty = true
}

func (m *Map) ClearUpdated() {
	for k := range m.UpdatedInst {
		delete(m.UpdatedInst, k)
	}
	m.Dirty = false
}
