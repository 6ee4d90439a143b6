package transportx

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
	"github.com/tinylib/msgp/msgp"

	"github.com/mprmesh/mprmesh/cmn/nlog"
	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/mapper"
	"github.com/mprmesh/mprmesh/wire"
	"github.com/mprmesh/mprmesh/xmap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope is the administrative-channel framing: a message kind tag
// plus its JSON-encoded body, letting one Broadcast/Unicast carry any
// of spec.md §6's negotiation or discovery messages.
type envelope struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

func pack(kind string, body interface{}) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: kind, Body: b})
}

// Bus implements mapper.Bus over a Transport, the concrete collaborator
// every Device needs (mapper/bus.go's doc comment: "a concrete bus...
// turns these calls into wire messages").
type Bus struct {
	Self string
	T    Transport
}

var _ mapper.Bus = (*Bus)(nil)

func (b *Bus) broadcast(kind string, body interface{}) {
	data, err := pack(kind, body)
	if err != nil {
		nlog.Warningf("transportx: encoding %s: %v", kind, err)
		return
	}
	if err := b.T.Broadcast(b.Self, data); err != nil {
		nlog.Warningf("transportx: broadcasting %s: %v", kind, err)
	}
}

func (b *Bus) unicast(peer, kind string, body interface{}) {
	data, err := pack(kind, body)
	if err != nil {
		nlog.Warningf("transportx: encoding %s: %v", kind, err)
		return
	}
	if err := b.T.Unicast(b.Self, peer, data); err != nil {
		nlog.Warningf("transportx: sending %s to %s: %v", kind, peer, err)
	}
}

func (b *Bus) ProbeName(name string, tie uint32) {
	b.broadcast("probe", mapper.NameProbeMsg{Name: name, Tie: tie})
}

func (b *Bus) RegisterName(name string, tie uint32, hint int) {
	b.broadcast("registered", mapper.NameRegisteredMsg{Name: name, Tie: tie, Hint: hint})
}

func (b *Bus) SendDevice(d *graph.Device) {
	b.broadcast("device", mapper.DeviceMsg{Name: d.Name, Host: d.Host, Port: d.Port, ID: d.ID, Version: d.Version})
}

func (b *Bus) SendSync(name string, version uint64) {
	b.broadcast("sync", mapper.SyncMsg{Name: name, Version: version})
}

func (b *Bus) SendPing(peer string, devID uint64, seq int) {
	b.unicast(peer, "ping", mapper.PingMsg{DevID: devID, SeqSent: seq})
}

func (b *Bus) SendMap(destDevice string, m *xmap.Map) {
	srcPaths := make([]string, len(m.Src))
	for i, s := range m.Src {
		srcPaths[i] = s.Path
	}
	b.unicast(destDevice, "map", mapper.MapReq{
		ID: m.ID, From: b.Self, Src: srcPaths, Dst: m.Dst.Path,
		Expr: m.Expr, Process: m.ProcessLocation,
	})
}

func (b *Bus) SendMapTo(destDevice string, m *xmap.Map, srcIdx int) {
	s := m.Src[srcIdx]
	b.unicast(destDevice, "mapTo", mapper.MapToMsg{
		ID: m.ID, From: b.Self, SrcIdx: srcIdx,
		Type: s.Type, VecLen: s.VecLen, NumInst: s.NumInst,
	})
}

func (b *Bus) SendMapped(peer string, m *xmap.Map) {
	b.unicast(peer, "mapped", mapper.MappedMsg{
		ID: m.ID, Expr: m.Expr, Process: m.ProcessLocation, Muted: m.Muted,
		DstType: m.Dst.Type, DstVecLen: m.Dst.VecLen, DstNumInst: m.Dst.NumInst,
	})
}

func (b *Bus) SendUnmap(peer, mapID string) {
	b.unicast(peer, "unmap", mapper.UnmapMsg{ID: mapID})
}

func (b *Bus) SendUnmapped(peer, mapID string) {
	b.unicast(peer, "unmapped", mapper.UnmappedMsg{ID: mapID})
}

// FlushLink msgp-encodes the batch (spec.md §6 "Bundles are used to
// batch messages") and sends it as one unicast, the wire package's
// compact fast path rather than per-message JSON envelopes.
func (b *Bus) FlushLink(peer string, sends []mapper.PendingSend) {
	var buf bytes.Buffer
	w := msgp.NewWriter(&buf)
	if err := w.WriteArrayHeader(uint32(len(sends))); err != nil {
		nlog.Warningf("transportx: framing value bundle to %s: %v", peer, err)
		return
	}
	for _, s := range sends {
		f := &wire.ValueFrame{
			Path: s.Path, MapID: s.MapID, Inst: int32(s.Inst), SlotNo: int32(s.SlotNo),
			HasSlot: true, GID: s.GID, Time: s.Time, Value: s.Value, Null: s.Null,
		}
		if err := f.EncodeMsg(w); err != nil {
			nlog.Warningf("transportx: encoding value frame to %s: %v", peer, err)
			return
		}
	}
	if err := w.Flush(); err != nil {
		nlog.Warningf("transportx: flushing value bundle to %s: %v", peer, err)
		return
	}
	if err := b.T.Unicast(b.Self, peer, append([]byte("\x00msgp"), buf.Bytes()...)); err != nil {
		nlog.Warningf("transportx: sending value bundle to %s: %v", peer, err)
	}
}
