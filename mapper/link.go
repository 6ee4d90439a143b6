package mapper

import (
	"time"

	"github.com/mprmesh/mprmesh/graph"
)

// Link is one peer connection: its clock-offset estimator (§4.H) and
// its queue of value updates awaiting the next bundle flush (§4.F step
// 3 "walk links, flushing batched OSC bundles").
type Link struct {
	Peer     string
	Clock    graph.Clock
	LastSeen time.Time
	PingSeq  int

	pending []PendingSend
}

func newLink(peer string, now time.Time) *Link {
	return &Link{Peer: peer, LastSeen: now}
}

func (l *Link) enqueue(s PendingSend) { l.pending = append(l.pending, s) }

// flush hands the queued sends to bus in one batch and clears the
// queue; returns the number of messages sent.
func (l *Link) flush(bus Bus) int {
	if len(l.pending) == 0 {
		return 0
	}
	n := len(l.pending)
	bus.FlushLink(l.Peer, l.pending)
	l.pending = l.pending[:0]
	return n
}
