package mapper

import (
	"fmt"

	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/xmap"
)

// CreateMap is the external entry point for staging a new map from
// this device (spec.md §4.F: "the destination device drives
// creation"). dstPath must name a signal owned by this device.
func (d *Device) CreateMap(srcPaths []string, dstPath, exprSrc string, loc xmap.Location) (*xmap.Map, error) {
	d.nextMapID++
	id := fmt.Sprintf("%s.%d", d.Graph.Self.Name, d.nextMapID)

	m := xmap.New(id, srcPaths, dstPath, exprSrc)
	m.ProcessLocation = loc
	m.LocalOnly = d.allLocal(srcPaths, dstPath)
	d.Maps[id] = m

	if sig, ok := d.findLocalSignal(dstPath); ok {
		_ = m.ResolveEndpoint(-1, sig.Type, sig.VecLen, sig.NumInst)
	}

	for i, src := range srcPaths {
		toDevice := deviceNameFromPath(src)
		if toDevice == d.Graph.Self.Name {
			if sig, ok := d.findLocalSignal(src); ok {
				_ = m.ResolveEndpoint(i, sig.Type, sig.VecLen, sig.NumInst)
			}
			continue
		}
		d.Bus.SendMap(toDevice, m)
	}
	if m.Status == xmap.Ready {
		d.promote(m)
	}
	return m, nil
}

// allLocal reports whether every endpoint names a signal owned by this
// device, the "local-only" case of spec.md §3 that skips the wire.
func (d *Device) allLocal(srcPaths []string, dstPath string) bool {
	if deviceNameFromPath(dstPath) != d.Graph.Self.Name {
		return false
	}
	for _, p := range srcPaths {
		if deviceNameFromPath(p) != d.Graph.Self.Name {
			return false
		}
	}
	return true
}

func (d *Device) findLocalSignal(path string) (*graph.Signal, bool) {
	sigID, ok := d.signalPaths[path]
	if !ok {
		return nil, false
	}
	sig, ok := d.Graph.Self.Signals[sigID]
	return sig, ok
}

// promote compiles and activates m once READY, then announces ACTIVE
// to every remote source (spec.md §4.F: "/mapped promotes to ACTIVE").
func (d *Device) promote(m *xmap.Map) {
	if err := m.Activate(d.compileFor); err != nil {
		return
	}
	d.registerRoutes(m)
	for _, src := range m.Src {
		toDevice := deviceNameFromPath(src.Path)
		if toDevice != "" && toDevice != d.Graph.Self.Name {
			d.Bus.SendMapped(toDevice, m)
		}
	}
	d.changed = true
}

// registerRoutes wires m's local slots into the router: every source
// path owned by this device feeds its slot, and (for maps evaluated
// here) the destination path's updates reach further downstream maps.
func (d *Device) registerRoutes(m *xmap.Map) {
	for i, src := range m.Src {
		if deviceNameFromPath(src.Path) != d.Graph.Self.Name {
			continue
		}
		if sigID, ok := d.signalPaths[src.Path]; ok {
			d.Router.Register(sigID, m.ID, m.Slots[i+1])
		}
	}
	if deviceNameFromPath(m.Dst.Path) == d.Graph.Self.Name {
		if sigID, ok := d.signalPaths[m.Dst.Path]; ok {
			d.Router.Register(sigID, m.ID, m.Slots[0])
		}
	}
}

func (d *Device) unregisterRoutes(m *xmap.Map) {
	for _, src := range m.Src {
		if sigID, ok := d.signalPaths[src.Path]; ok {
			d.Router.Unregister(sigID, m.ID)
		}
	}
	if sigID, ok := d.signalPaths[m.Dst.Path]; ok {
		d.Router.Unregister(sigID, m.ID)
	}
}
