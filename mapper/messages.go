package mapper

import (
	"time"

	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/ring"
	"github.com/mprmesh/mprmesh/xmap"
)

// The structs below are the in-process payloads for the bus messages
// named in spec.md §4.F/§6. A real OSC transport (out of scope, see
// SPEC_FULL.md Non-goals) would parse these off the wire and hand them
// to the matching Handle* method; transportx's fake bus constructs
// them directly.

type MapReq struct {
	ID      string
	From    string // device requesting the map (the destination device)
	Src     []string
	Dst     string
	Expr    string
	Process xmap.Location
}

type MapToMsg struct {
	ID      string
	From    string // source device replying
	SrcIdx  int
	Type    ring.Vtype
	VecLen  int
	NumInst int
}

type MappedMsg struct {
	ID         string
	Expr       string
	Process    xmap.Location
	Muted      bool
	DstType    ring.Vtype
	DstVecLen  int
	DstNumInst int
}

type ModifyMsg struct {
	ID    string
	Expr  string
	Muted bool
}

type UnmapMsg struct{ ID string }
type UnmappedMsg struct{ ID string }

type DeviceMsg struct {
	Name    string
	Host    string
	Port    int
	ID      uint64
	Version uint64
}

type SignalMsg struct {
	Device string
	Signal *graph.Signal
}

type SignalRemovedMsg struct {
	Device   string
	SignalID uint64
}

type SubscribeMsg struct {
	Addr         string
	Flags        graph.SubFlag
	LeaseSeconds int
}

type SyncMsg struct {
	Name    string
	Version uint64
}

// PingMsg is a /ping reply (spec.md §4.H "(dev_id, seq_sent, seq_acked,
// delta_sec)"); RemoteTime is the remote device's own timetag on the
// reply and PeerDelta is its reported elapsed time since it received
// our ping, the two inputs graph.Clock.OnPing needs.
type PingMsg struct {
	From       string
	DevID      uint64
	SeqSent    int
	SeqAcked   int
	RemoteTime time.Time
	PeerDelta  time.Duration
}

type NameProbeMsg struct {
	Name string
	Tie  uint32
}

type NameRegisteredMsg struct {
	Name string
	Tie  uint32
	Hint int
}

// ValueMsg is an incoming value update (spec.md §6 "Value messages").
// HasSlot distinguishes a map-slot-tagged update ("@sl N") from a
// direct signal write.
type ValueMsg struct {
	Path    string
	MapID   string // set together with HasSlot
	Inst    int
	Value   ring.Vector
	Null    []bool
	GID     uint64
	SlotNo  int
	HasSlot bool
	Time    int64
}
