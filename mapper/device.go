package mapper

import (
	"time"

	"github.com/mprmesh/mprmesh/cmn/config"
	"github.com/mprmesh/mprmesh/cmn/cos"
	"github.com/mprmesh/mprmesh/cmn/nlog"
	"github.com/mprmesh/mprmesh/expr"
	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/idmap"
	"github.com/mprmesh/mprmesh/nameallot"
	"github.com/mprmesh/mprmesh/ring"
	"github.com/mprmesh/mprmesh/slot"
	"github.com/mprmesh/mprmesh/statsrunner"
	"github.com/mprmesh/mprmesh/vm"
	"github.com/mprmesh/mprmesh/xmap"
)

// Device is the single-threaded-cooperative entity of spec.md §5: one
// process's view of its own signals, maps, and peer links.
type Device struct {
	Graph  *graph.Graph
	Names  *nameallot.Allocator
	Router *slot.Router
	Maps   map[string]*xmap.Map
	Links  map[string]*Link

	Cfg   *config.Config
	Bus   Bus
	Stats statsrunner.Tracker

	idmaps map[int]*idmap.Table // per signal group, group 0 always present

	signals     map[uint64]*ring.Ring // live value ring per locally-owned signal
	signalPaths map[string]uint64     // "/device/signal" -> signal id, local signals only

	nextMapID    uint64
	changed      bool // a property changed since the last /device emission
	lastSyncSent time.Time
}

// NewDevice wires a device around an already-constructed graph (whose
// Self entry names this process), per spec.md §5 "the graph... is
// owned by a single device or shared immutably across multiple
// devices".
func NewDevice(g *graph.Graph, cfg *config.Config, bus Bus, stats statsrunner.Tracker) *Device {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.NumSignalGroups < 0 {
		// a negative group count can't be turned into an idmaps table
		// size; nothing downstream can recover from a misconfiguration
		// this basic.
		cos.Exitf("mapper: config.NumSignalGroups is negative (%d)", cfg.NumSignalGroups)
	}
	if stats == nil {
		stats = statsrunner.Noop{}
	}
	d := &Device{
		Graph:  g,
		Names:  nameallot.New(cfg.Prefix),
		Router: slot.NewRouter(),
		Maps:   map[string]*xmap.Map{},
		Links:  map[string]*Link{},
		Cfg:    cfg,
		Bus:    bus,
		Stats:  stats,
		idmaps: map[int]*idmap.Table{0: idmap.New()},

		signals:     map[uint64]*ring.Ring{},
		signalPaths: map[string]uint64{},
	}
	for grp := 1; grp <= cfg.NumSignalGroups; grp++ {
		d.idmaps[grp] = idmap.New()
	}
	return d
}

// IDMap returns the per-signal-group ID-map table, creating it on
// first use (spec.md §4.D "per device and per signal group").
func (d *Device) IDMap(group int) *idmap.Table {
	t, ok := d.idmaps[group]
	if !ok {
		t = idmap.New()
		d.idmaps[group] = t
	}
	return t
}

func (d *Device) link(peer string, now time.Time) *Link {
	l, ok := d.Links[peer]
	if !ok {
		l = newLink(peer, now)
		d.Links[peer] = l
	}
	return l
}

// compileFor adapts expr.Compile to xmap.Map's Activate/Modify
// compile callback shape.
func (d *Device) compileFor(src string, nIns int, inTypes []ring.Vtype, inVecLen []int, outType ring.Vtype, outVecLen int) (*vm.Program, error) {
	prog, err := expr.Compile(src, expr.Options{
		NIns: nIns, InTypes: inTypes, InVecLen: inVecLen,
		OutType: outType, OutVecLen: outVecLen,
	})
	if err != nil {
		d.Stats.IncCompileErrors()
	}
	return prog, err
}

// Poll runs one tick of spec.md §4.F's per-device pipeline. drain is
// supplied by the transport layer: it delivers up to max already-queued
// inbound messages (by calling back into this Device's Handle*
// methods) and reports how many it actually serviced - step 4's
// "drain inbound value messages up to a proportional cap".
func (d *Device) Poll(now time.Time, drain func(max int) int) (serviced int, err error) {
	// 1. service discovery bus; advance name allocation.
	numPeers := len(d.Graph.Devices()) - 1
	if numPeers < 0 {
		numPeers = 0
	}
	wasLocked := d.Names.Locked
	d.Names.Tick(now, numPeers, d.Bus)
	if d.Names.Locked && !wasLocked {
		d.onNameLocked(now)
	}

	// 2. snapshot the wall clock happens implicitly: `now` is passed
	// through unchanged to every step below.

	// 3. outgoing pass, then flush links.
	serviced += d.outgoingPass(now)
	for _, l := range d.Links {
		serviced += l.flush(d.Bus)
	}

	// 4. bounded inbound drain.
	limit := d.drainCap()
	if drain != nil && limit > 0 {
		serviced += drain(limit)
	}

	// 5. incoming pass.
	serviced += d.incomingPass(now)

	// periodic /sync heartbeat (§4.H "every 5-9 seconds").
	if d.Names.Locked && now.Sub(d.lastSyncSent) >= d.Cfg.SyncInterval {
		d.Bus.SendSync(d.Names.Name(), d.Graph.Self.Version)
		d.lastSyncSent = now
	}

	// 6. emit /device if anything changed and someone's listening.
	if d.changed {
		if subs := d.Graph.Subscribers(graph.SubDevice, now); len(subs) > 0 {
			d.Graph.Self.Version = d.Graph.NextVersion()
			d.Bus.SendDevice(d.Graph.Self)
		}
		d.changed = false
	}

	d.Stats.AddMessages(serviced)
	d.Stats.SetMapsActive(d.countActive())
	d.Stats.SetLinkCount(len(d.Links))
	return serviced, nil
}

// drainCap is spec.md §4.F step 4's heuristic: "1 x (num_inputs +
// n_output_callbacks) extras after the blocking window".
func (d *Device) drainCap() int {
	inputs, outputs := 0, 0
	for _, m := range d.Maps {
		inputs += len(m.Src)
		outputs++
	}
	if inputs+outputs < 1 {
		return 1 // always room for the negotiation message that creates the first map
	}
	return inputs + outputs
}

func (d *Device) countActive() int {
	n := 0
	for _, m := range d.Maps {
		if m.Status == xmap.Active {
			n++
		}
	}
	return n
}

// onNameLocked runs the actions spec.md §4.G assigns to locking:
// "installs its method handlers, broadcasts any cached maps, and sets
// its id". Handler installation is the transport layer's job (it
// dispatches bus paths to this Device's Handle* methods once it sees
// Names.Locked); here we set the device id and re-announce any maps
// staged before the name was known.
func (d *Device) onNameLocked(now time.Time) {
	d.Graph.Self.ID = d.Names.DeviceID
	d.Graph.Self.Name = d.Names.Name()
	d.changed = true
	nlog.Infof("mapper: device locked name %s (id=%x)", d.Graph.Self.Name, d.Graph.Self.ID)
	for _, m := range d.Maps {
		if m.Status == xmap.Staged {
			d.announceMap(m)
		}
	}
}

func (d *Device) announceMap(m *xmap.Map) {
	destDevice := deviceNameFromPath(m.Dst.Path)
	if destDevice == "" || destDevice == d.Graph.Self.Name {
		return
	}
	d.Bus.SendMap(destDevice, m)
}
