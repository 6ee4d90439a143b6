package mapper

import (
	"sort"
	"time"

	"github.com/mprmesh/mprmesh/cmn/idgen"
	"github.com/mprmesh/mprmesh/cmn/nlog"
	"github.com/mprmesh/mprmesh/ring"
	"github.com/mprmesh/mprmesh/vm"
	"github.com/mprmesh/mprmesh/xmap"
)

// instResult is one instance's outcome from evaluating a map on this
// tick (spec.md §4.F "invoke the VM per affected instance").
type instResult struct {
	Inst   int
	Status vm.Status
	Value  ring.Vector
	Time   int64
}

// evalMap runs m's expression (or, for an identity map with no
// expression, a straight copy - spec.md §3 "identity maps may omit
// it") over every instance m marked updated this tick, in ascending
// instance-index order. The walk does not follow the active-instance
// order of any particular input, including the source slot with the
// greatest instance count.
func (d *Device) evalMap(m *xmap.Map, now time.Time) []instResult {
	insts := sortedInsts(m.UpdatedInst)
	if len(insts) == 0 {
		return nil
	}
	defer m.ClearUpdated()

	if m.Prog == nil {
		return d.evalIdentity(m, insts, now)
	}

	inputs := make([]*ring.Ring, len(m.Src))
	for i := range m.Src {
		inputs[i] = m.Slots[i+1].Values
	}
	ctx := vm.NewContext(inputs, m.Slots[0].Values, m.Vars)

	out := make([]instResult, 0, len(insts))
	for _, inst := range insts {
		ctx.Inst = inst
		ctx.WallTime = now.UnixNano()
		st, err := vm.Eval(m.Prog, ctx)
		if err != nil {
			nlog.Warningf("mapper: map %s instance %d eval: %v", m.ID, inst, err)
			continue
		}
		v, t, ok := m.Slots[0].Values.Get(inst, 0)
		if !ok {
			v, t = ring.Zero(m.Dst.Type, m.Dst.VecLen), now.UnixNano()
		}
		out = append(out, instResult{Inst: inst, Status: st, Value: v, Time: t})
	}
	return out
}

func (d *Device) evalIdentity(m *xmap.Map, insts []int, now time.Time) []instResult {
	out := make([]instResult, 0, len(insts))
	for _, inst := range insts {
		v, t, ok := m.Slots[1].Values.Get(inst, 0)
		if !ok {
			continue
		}
		m.Slots[0].Values.Push(inst, v, t)
		out = append(out, instResult{Inst: inst, Status: vm.Update | vm.Done, Value: v, Time: t})
	}
	_ = now
	return out
}

func sortedInsts(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for i := range m {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// gidFor returns the global instance id this map has already minted
// for inst, minting one on first use (spec.md §4.D).
func (d *Device) gidFor(m *xmap.Map, inst int) uint64 {
	if gid, ok := m.GIDs[inst]; ok {
		return gid
	}
	gid := idgen.GID(d.Graph.Self.ID)
	m.GIDs[inst] = gid
	return gid
}

// releaseInstance drops the cached GID for inst and resets its slot
// rings, mirroring the remote-release handling idmap.Resolve drives on
// the receiving side (spec.md §4.D, §4.E).
func (d *Device) releaseInstance(m *xmap.Map, inst int) {
	delete(m.GIDs, inst)
	for _, s := range m.Slots {
		s.Values.Reset(inst)
	}
}
