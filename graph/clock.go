package graph

import "time"

// Clock is a per-link clock-offset/latency estimator (spec.md §3
// "Link", §4.H "Per-link clock").
//
// Faithful to original_source/src/network.c's handler_ping: the first
// exchange seeds offset/latency outright; subsequent exchanges
// exponential-average (0.9/0.1) offset and latency when latency falls
// within one jitter band of the running estimate, track a jitter
// estimate the same way, and otherwise replace the offset outright
// when the remote timetag appears to run ahead of the current estimate.
type Clock struct {
	Offset  time.Duration
	Latency time.Duration
	Jitter  time.Duration
	seeded  bool

	SentAt  time.Time // when we last sent our side of the ping
	SeqSent int
}

// OnPing applies a /ping reply. now is local receipt time, then is the
// remote device's timetag carried on the reply, peerDelta is the
// remote-reported elapsed time since it received our ping (spec.md §6
// `/ping <dev_id> <seq> <ack> <delta>`).
func (c *Clock) OnPing(now, then time.Time, peerDelta time.Duration) {
	elapsed := now.Sub(c.SentAt)
	latency := time.Duration((elapsed - peerDelta).Nanoseconds() / 2)
	if latency < 0 {
		latency = 0
	}
	offset := now.Sub(then) - latency

	if !c.seeded {
		c.Offset, c.Latency, c.Jitter = offset, latency, 0
		c.seeded = true
		return
	}

	c.Jitter = time.Duration(float64(c.Jitter)*0.9 + float64(abs(c.Latency-latency))*0.1)
	switch {
	case offset > c.Offset:
		// remote timetag is in the future
		c.Offset = offset
	case latency < c.Latency+c.Jitter && latency > c.Latency-c.Jitter:
		c.Offset = time.Duration(float64(c.Offset)*0.9 + float64(offset)*0.1)
		c.Latency = time.Duration(float64(c.Latency)*0.9 + float64(latency)*0.1)
	}
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Remote converts a local timestamp to the remote device's clock,
// consulted when a map's expression needs to compare timetags across
// a link (spec.md §5 "Ordering guarantees").
func (c *Clock) Remote(local time.Time) time.Time { return local.Add(c.Offset) }
