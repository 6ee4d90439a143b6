// Package statsrunner tracks device-level counters and gauges.
//
// Adapted from the teacher's stats package: a small Tracker interface
// (mirroring stats.Tracker's "interface guard" convention --
// `var _ Tracker = (*PromTracker)(nil)`) so the device pipeline can run
// against a no-op implementation in tests without a live Prometheus
// registry, the same role Trunner/Prunner play for target vs proxy in
// the teacher.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package statsrunner

// Tracker is the device pipeline's view of its own stats (spec.md
// SPEC_FULL.md AMBIENT STACK): messages serviced per poll, the current
// count of active maps and links, and a running tally of expression
// compile failures.
type Tracker interface {
	AddMessages(n int)
	SetMapsActive(n int)
	SetLinkCount(n int)
	IncCompileErrors()
}

// Noop discards every observation; the zero value is ready to use and
// is the default Tracker for tests and for callers that don't wire a
// Prometheus registry.
type Noop struct{}

var _ Tracker = Noop{}

func (Noop) AddMessages(int)   {}
func (Noop) SetMapsActive(int) {}
func (Noop) SetLinkCount(int)  {}
func (Noop) IncCompileErrors() {}
