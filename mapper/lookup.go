package mapper

import (
	"github.com/mprmesh/mprmesh/cmn/cos"
	"github.com/mprmesh/mprmesh/xmap"
)

// lookupMap resolves a map by id, returning a *cos.ErrNotFound the
// caller can log or test for (cos.IsErrNotFound) instead of each call
// site re-deriving its own "unknown map" message.
func (d *Device) lookupMap(id string) (*xmap.Map, error) {
	m, ok := d.Maps[id]
	if !ok {
		return nil, cos.NewErrNotFound("map %s", id)
	}
	return m, nil
}
