// Package transportx implements mapper.Bus over a pluggable Transport
// (spec.md §6 "external interfaces"), framing every message as a JSON
// envelope (administrative traffic) or a msgp ValueFrame (the per-link
// value fast path), the two wire encodings package wire provides.
//
// Real OSC/UDP framing is out of scope (spec.md §1 Non-goals); this
// package's only concrete Transport is membus, an in-memory fake
// sufficient for deterministic tests.
package transportx

// Transport is the byte-level abstraction a Bus sends through: an
// administrative broadcast (discovery, negotiation - spec.md §6 "OSC
// over UDP... multicast group... for discovery and subscriber-fanout")
// and a targeted unicast (value traffic - "per-link TCP and UDP
// unicast for targeted messages").
type Transport interface {
	Broadcast(from string, data []byte) error
	Unicast(from, peer string, data []byte) error
}
