package graph

import "time"

// SubFlag is the object_flags bitmask named in spec.md §6
// ("/%s/subscribe [all|device|signals|maps|incoming_maps|outgoing_maps]").
type SubFlag uint8

const (
	SubDevice SubFlag = 1 << iota
	SubSignals
	SubMaps
	SubIncomingMaps
	SubOutgoingMaps
	SubAll = SubDevice | SubSignals | SubMaps | SubIncomingMaps | SubOutgoingMaps
)

// Subscriber is a (address, expiry_time, flag_mask) record (spec.md §4.H).
type Subscriber struct {
	Addr   string
	Flags  SubFlag
	Expiry time.Time
}

// Subscribe applies a /dev/subscribe request idempotently (invariant 7
// / property 7, spec.md §8): re-subscribing the same address within its
// lease updates the existing record in place rather than duplicating it.
func (g *Graph) Subscribe(addr string, flags SubFlag, leaseSeconds int, now time.Time) {
	expiry := now.Add(time.Duration(leaseSeconds) * time.Second)
	for _, s := range g.subs {
		if s.Addr == addr {
			s.Flags = flags
			s.Expiry = expiry
			return
		}
	}
	g.subs = append(g.subs, &Subscriber{Addr: addr, Flags: flags, Expiry: expiry})
}

func (g *Graph) Unsubscribe(addr string) {
	for i, s := range g.subs {
		if s.Addr == addr {
			g.subs = append(g.subs[:i], g.subs[i+1:]...)
			return
		}
	}
}

// Subscribers returns the non-expired subscribers matching flag,
// filtering lazily (spec.md §4.H "filters subscribers by flag and by
// expiry... dropped lazily on next publish").
func (g *Graph) Subscribers(flag SubFlag, now time.Time) []*Subscriber {
	live := g.subs[:0:0]
	out := make([]*Subscriber, 0, len(g.subs))
	for _, s := range g.subs {
		if now.After(s.Expiry) {
			continue
		}
		live = append(live, s)
		if s.Flags&flag != 0 {
			out = append(out, s)
		}
	}
	g.subs = live
	return out
}

func (g *Graph) pruneSubs(now time.Time) {
	live := g.subs[:0:0]
	for _, s := range g.subs {
		if !now.After(s.Expiry) {
			live = append(live, s)
		}
	}
	g.subs = live
}
