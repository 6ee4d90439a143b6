package mapper

import (
	"time"

	"github.com/mprmesh/mprmesh/cmn/nlog"
	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/xmap"
)

// HandleMap is called on a source device when the destination device
// proposes a map (spec.md §4.F "/map"). The source stages its own
// mirror, resolves its half of the metadata locally, and echoes
// /mapTo back with it.
func (d *Device) HandleMap(msg MapReq) {
	m := xmap.New(msg.ID, msg.Src, msg.Dst, msg.Expr)
	m.ProcessLocation = msg.Process
	d.Maps[msg.ID] = m

	mySrcIdx := -1
	for i, p := range msg.Src {
		if deviceNameFromPath(p) == d.Graph.Self.Name {
			mySrcIdx = i
			break
		}
	}
	if mySrcIdx == -1 {
		nlog.Warningf("mapper: /map %s names no local source", msg.ID)
		return
	}
	sig, ok := d.findLocalSignal(msg.Src[mySrcIdx])
	if !ok {
		nlog.Warningf("mapper: /map %s: unknown local signal %s", msg.ID, msg.Src[mySrcIdx])
		return
	}
	_ = m.ResolveEndpoint(mySrcIdx, sig.Type, sig.VecLen, sig.NumInst)
	d.Bus.SendMapTo(msg.From, m, mySrcIdx)
}

// HandleMapTo is called on the destination device as each source
// replies. Once every endpoint is known the map reaches READY and is
// immediately promoted (compiled, activated, announced).
func (d *Device) HandleMapTo(msg MapToMsg) {
	m, err := d.lookupMap(msg.ID)
	if err != nil {
		nlog.Warningf("mapper: /mapTo: %v", err)
		return
	}
	if err := m.ResolveEndpoint(msg.SrcIdx, msg.Type, msg.VecLen, msg.NumInst); err != nil {
		nlog.Warningf("mapper: %v", err)
		return
	}
	if m.Status == xmap.Ready {
		d.promote(m)
	}
}

// HandleMapped is called on a source device once the destination
// announces ACTIVE (spec.md §4.F "/mapped").
func (d *Device) HandleMapped(msg MappedMsg) {
	m, err := d.lookupMap(msg.ID)
	if err != nil {
		nlog.Warningf("mapper: /mapped: %v", err)
		return
	}
	m.Expr = msg.Expr
	m.ProcessLocation = msg.Process
	m.Muted = msg.Muted
	if m.Status == xmap.Staged {
		if err := m.ResolveEndpoint(-1, msg.DstType, msg.DstVecLen, msg.DstNumInst); err != nil {
			nlog.Warningf("mapper: %v", err)
			return
		}
	}
	if m.Status == xmap.Ready {
		if err := m.Activate(d.compileFor); err != nil {
			nlog.Warningf("mapper: activating map %s: %v", msg.ID, err)
			return
		}
		d.registerRoutes(m)
	}
}

// HandleModify applies a /map/modify request (spec.md §4.F:
// "modifications to an active map flow through /map/modify -> /mapped").
// On the device driving the change (the one with ACTIVE status and a
// local destination) the result re-announces /mapped to every source.
func (d *Device) HandleModify(msg ModifyMsg) {
	m, err := d.lookupMap(msg.ID)
	if err != nil {
		nlog.Warningf("mapper: /map/modify: %v", err)
		return
	}
	if err := m.Modify(msg.Expr, msg.Muted, d.compileFor); err != nil {
		nlog.Warningf("mapper: modifying map %s: %v", msg.ID, err)
		return
	}
	if deviceNameFromPath(m.Dst.Path) == d.Graph.Self.Name {
		for _, src := range m.Src {
			if toDevice := deviceNameFromPath(src.Path); toDevice != "" && toDevice != d.Graph.Self.Name {
				d.Bus.SendMapped(toDevice, m)
			}
		}
	}
}

// HandleUnmap / HandleUnmapped tear a map down on either side (spec.md
// §4.F), dropping its router entries so no further update reaches it.
func (d *Device) HandleUnmap(msg UnmapMsg) {
	m, ok := d.Maps[msg.ID]
	if !ok {
		return
	}
	d.unregisterRoutes(m)
	delete(d.Maps, msg.ID)
	for _, src := range m.Src {
		if toDevice := deviceNameFromPath(src.Path); toDevice != "" && toDevice != d.Graph.Self.Name {
			d.Bus.SendUnmap(toDevice, msg.ID)
		}
	}
}

func (d *Device) HandleUnmapped(msg UnmappedMsg) {
	if m, ok := d.Maps[msg.ID]; ok {
		d.unregisterRoutes(m)
		delete(d.Maps, msg.ID)
	}
}

// HandleDevice applies a /device advertisement to the replicated graph.
func (d *Device) HandleDevice(msg DeviceMsg) {
	d.Graph.UpsertDevice(&graph.Device{
		ID: msg.ID, Name: msg.Name, Host: msg.Host, Port: msg.Port, Version: msg.Version,
	})
}

// HandleLogout removes a peer immediately, reclaiming its maps and links.
func (d *Device) HandleLogout(name string) {
	d.Graph.Logout(name)
	delete(d.Links, name)
	for id, m := range d.Maps {
		if deviceOwnsMap(m, name) {
			d.unregisterRoutes(m)
			delete(d.Maps, id)
		}
	}
}

func deviceOwnsMap(m *xmap.Map, device string) bool {
	if deviceNameFromPath(m.Dst.Path) == device {
		return true
	}
	for _, s := range m.Src {
		if deviceNameFromPath(s.Path) == device {
			return true
		}
	}
	return false
}

// HandleSignal / HandleSignalRemoved replicate a peer's signal table.
func (d *Device) HandleSignal(msg SignalMsg) {
	d.Graph.UpsertSignal(msg.Device, msg.Signal)
}

func (d *Device) HandleSignalRemoved(msg SignalRemovedMsg) {
	d.Graph.RemoveSignal(msg.Device, msg.SignalID)
}

// HandleSubscribe / HandleUnsubscribe apply a /dev/subscribe lease
// (spec.md §4.H).
func (d *Device) HandleSubscribe(msg SubscribeMsg, now time.Time) {
	d.Graph.Subscribe(msg.Addr, msg.Flags, msg.LeaseSeconds, now)
}

func (d *Device) HandleUnsubscribe(addr string) {
	d.Graph.Unsubscribe(addr)
}

// HandleSync applies a /sync heartbeat (spec.md §4.H).
func (d *Device) HandleSync(msg SyncMsg, now time.Time) {
	d.Graph.Sync(msg.Name, msg.Version, now)
}

// HandleWho answers a discovery probe by re-announcing this device,
// mirroring the teacher's "respond to whoIS with my own advert" idiom.
func (d *Device) HandleWho() {
	if d.Names.Locked {
		d.Bus.SendDevice(d.Graph.Self)
	}
}

// PingPeer issues this device's side of a bilateral clock exchange
// (spec.md §4.H), recording the send time the eventual reply's
// HandlePing needs to estimate latency.
func (d *Device) PingPeer(peer string, now time.Time) {
	l := d.link(peer, now)
	l.PingSeq++
	l.Clock.SentAt = now
	d.Bus.SendPing(peer, d.Graph.Self.ID, l.PingSeq)
}

// HandlePing applies a /ping reply's clock sample to the sending
// peer's Link (spec.md §4.H); the link's Clock.SentAt must already
// hold the time PingPeer sent our side of the exchange.
func (d *Device) HandlePing(msg PingMsg, now time.Time) {
	l := d.link(msg.From, now)
	l.LastSeen = now
	l.Clock.OnPing(now, msg.RemoteTime, msg.PeerDelta)
}

// HandleNameProbe / HandleNameRegistered feed the name allocator
// (spec.md §4.G), delegated straight to nameallot.Allocator.
func (d *Device) HandleNameProbe(msg NameProbeMsg, now time.Time) {
	d.Names.OnProbe(now, msg.Name, msg.Tie, d.Bus)
}

func (d *Device) HandleNameRegistered(msg NameRegisteredMsg, now time.Time) {
	d.Names.OnRegistered(now, msg.Name, msg.Hint)
}
