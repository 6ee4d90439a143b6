package slot

// Route is one routing-table entry: a destination slot within a named
// map, reached from a given source signal (spec.md §4.E "router").
type Route struct {
	MapID string
	Slot  *Slot
}

// Router is the per-device map from signal to the list of (slot, map)
// entries it feeds, per spec.md §4.E. It is intentionally decoupled
// from the map package itself (identified only by MapID) to avoid a
// slot<->mapper import cycle; the mapper package owns the MapID->*Map
// lookup.
type Router struct {
	bySignal map[uint64][]Route
}

func NewRouter() *Router {
	return &Router{bySignal: map[uint64][]Route{}}
}

func (r *Router) Register(signalID uint64, mapID string, s *Slot) {
	r.bySignal[signalID] = append(r.bySignal[signalID], Route{MapID: mapID, Slot: s})
}

func (r *Router) Unregister(signalID uint64, mapID string) {
	routes := r.bySignal[signalID]
	out := routes[:0]
	for _, rt := range routes {
		if rt.MapID != mapID {
			out = append(out, rt)
		}
	}
	if len(out) == 0 {
		delete(r.bySignal, signalID)
	} else {
		r.bySignal[signalID] = out
	}
}

func (r *Router) Route(signalID uint64) []Route {
	return r.bySignal[signalID]
}
