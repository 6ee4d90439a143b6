// Package membus is the in-memory fake Transport spec.md §1's
// Non-goals call for instead of a real OSC/UDP implementation:
// sufficient to drive transportx.Bus deterministically in tests, with
// every peer's queued messages held in its own inbox until drained.
package membus

// Hub fans messages out between registered peers in-process.
type Hub struct {
	inboxes map[string][][]byte
}

func New() *Hub { return &Hub{inboxes: map[string][][]byte{}} }

// Register opens peer's inbox. Call once per device before it sends
// or receives anything.
func (h *Hub) Register(peer string) { h.inboxes[peer] = nil }

// Broadcast delivers data to every registered peer except from
// (spec.md §6 "multicast group... for discovery and subscriber-fanout").
func (h *Hub) Broadcast(from string, data []byte) error {
	for name := range h.inboxes {
		if name == from {
			continue
		}
		h.inboxes[name] = append(h.inboxes[name], data)
	}
	return nil
}

// Unicast delivers data to peer only ("per-link... unicast for
// targeted messages").
func (h *Hub) Unicast(from, peer string, data []byte) error {
	if _, ok := h.inboxes[peer]; !ok {
		return nil
	}
	h.inboxes[peer] = append(h.inboxes[peer], data)
	return nil
}

// Drain returns a mapper.Device.Poll-shaped callback that pops up to
// max queued messages for peer, applying handle to each.
func (h *Hub) Drain(peer string, handle func(data []byte)) func(max int) int {
	return func(max int) int {
		box := h.inboxes[peer]
		n := 0
		for n < max && len(box) > 0 {
			handle(box[0])
			box = box[1:]
			n++
		}
		h.inboxes[peer] = box
		return n
	}
}

// Pending reports how many messages are queued for peer, useful for
// tests that want to assert a drain fully caught up.
func (h *Hub) Pending(peer string) int { return len(h.inboxes[peer]) }
