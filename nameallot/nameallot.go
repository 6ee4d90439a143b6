// Package nameallot implements component G: randomized, collision-based
// ordinal allocation (spec.md §4.G).
//
// Grounded in the teacher's `ais.earlystart.go` bootstrap sequence
// (read in full for this module): that file resolves a *primary*
// proxy via a preliminary-decision-then-confirm state machine driven
// by repeated bus rounds and a monotonic Smap version. This package
// borrows the same "decide, wait, confirm-or-retry" tick shape but
// replaces primary election (this system has no leader) with
// decentralized per-name collision counting, per spec.md §4.G.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package nameallot

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mprmesh/mprmesh/cmn/idgen"
	"github.com/mprmesh/mprmesh/cmn/nlog"
)

const numHints = 8

// Bus is the allocator's external collaborator (spec.md §1, §6): the
// real implementation serializes these onto the multicast discovery
// bus as OSC `/name/probe` and `/name/registered` messages.
type Bus interface {
	ProbeName(name string, tie uint32)
	RegisterName(name string, tie uint32, hint int)
}

// Allocator is the per-device state of spec.md §4.G:
// "{ordinal_val, hints[8], collision_count, count_time, locked, online}".
type Allocator struct {
	Prefix         string
	Ordinal        int
	Hints          [numHints]int
	CollisionCount int
	CountTime      time.Time
	Locked         bool
	Online         bool
	Tie            uint32

	DeviceID uint64 // set once Locked, per spec.md §3 "id = hash(name)<<32"
}

func New(prefix string) *Allocator {
	return &Allocator{
		Prefix:  prefix,
		Ordinal: 1,
		Tie:     idgen.GenTie(),
	}
}

func (a *Allocator) Name() string { return fmt.Sprintf("%s.%d", a.Prefix, a.Ordinal) }

// Tick runs the probe/lock/bump decision tree once per device poll
// while the device remains unlocked, per spec.md §4.G.
func (a *Allocator) Tick(now time.Time, numDevsSeen int, bus Bus) {
	if a.Locked {
		return
	}
	elapsed := now.Sub(a.CountTime)
	switch {
	case !a.Online && elapsed >= 5*time.Second:
		a.CountTime = now
		bus.ProbeName(a.Name(), a.Tie)
	case elapsed >= 2*time.Second && a.CollisionCount < 2:
		a.lock(bus)
	case elapsed >= 500*time.Millisecond && a.CollisionCount > 1:
		a.bump(now, numDevsSeen, bus)
	}
}

func (a *Allocator) lock(bus Bus) {
	a.Locked = true
	a.DeviceID = idgen.DeviceID(a.Name())
	bus.RegisterName(a.Name(), a.Tie, 0)
	nlog.Infof("nameallot: locked %s (id=%x)", a.Name(), a.DeviceID)
}

// bump advances the ordinal past a collision. The random component
// assumes a reliable peer count; at fresh boot that count is 0 and
// degenerate (Open Question, spec.md §9) - resolved here with a
// minimum bump of 1 so a lone, miscounted device still makes progress.
func (a *Allocator) bump(now time.Time, numDevsSeen int, bus Bus) {
	hintIdx := a.firstFreeHintIndex()
	mod := numDevsSeen
	if mod < 1 {
		mod = 1
	}
	step := hintIdx + 1 + rand.Intn(mod)
	if step < 1 {
		step = 1
	}
	a.Ordinal += step
	a.Hints = [numHints]int{}
	a.CollisionCount = 0
	a.CountTime = now
	bus.ProbeName(a.Name(), a.Tie)
}

func (a *Allocator) firstFreeHintIndex() int {
	for i, h := range a.Hints {
		if h == 0 {
			return i
		}
	}
	return 0
}

// OnProbe handles an observed `/name/probe` for name/tie from a peer.
// If this device already owns (has locked) that same name, it responds
// with a suggested alternative from its free hint slots. If both sides
// are still racing for the same name, the peer with the lower tie
// yields by counting a collision (spec.md §4.G: "On probe match from a
// peer with a higher random tie-break...").
func (a *Allocator) OnProbe(now time.Time, name string, tie uint32, bus Bus) {
	if name != a.Name() {
		return
	}
	if a.Locked {
		bus.RegisterName(name, tie, a.suggestHint())
		return
	}
	if tie > a.Tie {
		a.CollisionCount++
		a.CountTime = now
	}
}

// OnRegistered handles an observed `/name/registered` naming us (or our
// probed name) as colliding, optionally carrying a suggested ordinal hint.
func (a *Allocator) OnRegistered(now time.Time, name string, hint int) {
	if name != a.Name() || a.Locked {
		return
	}
	a.CollisionCount++
	a.CountTime = now
	if hint > 0 {
		a.Hints[a.firstFreeHintIndex()] = hint
	}
}

func (a *Allocator) suggestHint() int {
	for i := a.Ordinal + 1; i < a.Ordinal+1+numHints; i++ {
		used := false
		for _, h := range a.Hints {
			if h == i {
				used = true
				break
			}
		}
		if !used {
			return i
		}
	}
	return a.Ordinal + 1
}
