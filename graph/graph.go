// Package graph implements component H: the replicated device/signal/map
// index, subscription leases, and per-link clock offset estimation
// (spec.md §4.H, §3 "Graph").
//
// Grounded in the teacher's earlystart.go bootstrap/Smap-sync pattern
// (read in full): a versioned, monotonically-increasing replicated
// index with a periodic heartbeat and lazy reclaim of stale entries.
// This module has no primary/leader (spec.md §1 is fully decentralized)
// so the teacher's primary-election machinery is dropped; what's kept
// is the "monotonic version, ignore-if-stale" discipline (spec.md §8
// invariant 8) and the log-on-state-change idiom from nlog usage
// throughout earlystart.go.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package graph

import (
	"time"

	"github.com/mprmesh/mprmesh/ring"
)

type Direction uint8

const (
	DirIn Direction = iota
	DirOut
	DirBoth
)

// Signal is the graph's replicated view of a signal (spec.md §3).
type Signal struct {
	ID        uint64
	DeviceID  uint64
	Name      string // "/<device>/<signal>"
	Direction Direction
	Type      ring.Vtype
	VecLen    int
	NumInst   int
	Unit      string
	Min, Max  *ring.Vector
	Ephemeral bool // excluded from /sync replication, per original_source/device.c
}

// Device is the graph's replicated view of a peer (spec.md §3).
type Device struct {
	ID      uint64
	Name    string
	Host    string
	Port    int
	Version uint64
	Signals map[uint64]*Signal

	lastSync time.Time
}

// Graph is the per-process index of known devices/signals (spec.md §3
// "Graph"); maps and links are tracked by the higher-level xmap and
// mapper packages respectively, which consult this index for peer
// metadata.
type Graph struct {
	Self    *Device
	devices map[string]*Device // by name
	byID    map[uint64]*Device

	subs []*Subscriber
}

func New(self *Device) *Graph {
	return &Graph{
		Self:    self,
		devices: map[string]*Device{self.Name: self},
		byID:    map[uint64]*Device{self.ID: self},
	}
}

// UpsertDevice applies a /device advertisement. The device's version
// never decreases (invariant 8): an older or equal version than
// already observed is ignored outright.
func (g *Graph) UpsertDevice(d *Device) (applied bool) {
	cur, ok := g.devices[d.Name]
	if ok && d.Version <= cur.Version {
		return false
	}
	if cur != nil {
		d.Signals = cur.Signals
	} else if d.Signals == nil {
		d.Signals = map[uint64]*Signal{}
	}
	d.lastSync = time.Now()
	g.devices[d.Name] = d
	g.byID[d.ID] = d
	return true
}

func (g *Graph) Device(name string) (*Device, bool) {
	d, ok := g.devices[name]
	return d, ok
}

func (g *Graph) DeviceByID(id uint64) (*Device, bool) {
	d, ok := g.byID[id]
	return d, ok
}

func (g *Graph) Devices() []*Device {
	out := make([]*Device, 0, len(g.devices))
	for _, d := range g.devices {
		out = append(out, d)
	}
	return out
}

// UpsertSignal replicates a /signal advertisement for an already-known
// device. Ephemeral signals (original_source supplement) still get a
// local entry for routing; /sync heartbeats carry only a device's name
// and version, so no signal travels with them.
func (g *Graph) UpsertSignal(deviceName string, s *Signal) bool {
	d, ok := g.devices[deviceName]
	if !ok {
		return false
	}
	s.DeviceID = d.ID
	d.Signals[s.ID] = s
	return true
}

func (g *Graph) RemoveSignal(deviceName string, sigID uint64) {
	if d, ok := g.devices[deviceName]; ok {
		delete(d.Signals, sigID)
	}
}

// Sync applies a /sync heartbeat (spec.md §4.H): name + version.
// A heartbeat from a peer with an older version than observed is
// ignored outright (invariant 8).
func (g *Graph) Sync(name string, version uint64, now time.Time) {
	d, ok := g.devices[name]
	if !ok || version < d.Version {
		return
	}
	d.Version = version
	d.lastSync = now
}

// Housekeep reclaims devices (and, transitively, their signals) whose
// /sync heartbeat hasn't been observed within timeout, and drops
// expired subscribers lazily (spec.md §3 "Graph", §4.H).
func (g *Graph) Housekeep(now time.Time, timeout time.Duration) (expiredDevices []string) {
	for name, d := range g.devices {
		if d == g.Self {
			continue
		}
		if now.Sub(d.lastSync) > timeout {
			delete(g.devices, name)
			delete(g.byID, d.ID)
			expiredDevices = append(expiredDevices, name)
		}
	}
	g.pruneSubs(now)
	return expiredDevices
}

// Logout removes a peer immediately on a /logout message (spec.md §3
// "Device... emits logout on destruction").
func (g *Graph) Logout(name string) {
	if d, ok := g.devices[name]; ok {
		delete(g.devices, name)
		delete(g.byID, d.ID)
	}
}

// NextVersion bumps and returns this device's own version, used before
// emitting a /device update (spec.md §4.F step 6).
func (g *Graph) NextVersion() uint64 {
	g.Self.Version++
	return g.Self.Version
}
