package transportx

import (
	"bytes"
	"time"

	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"

	"github.com/mprmesh/mprmesh/mapper"
	"github.com/mprmesh/mprmesh/wire"
)

var valueBundlePrefix = []byte("\x00msgp")

// Dispatch decodes one transport-delivered message and applies it to
// d, the receive-side counterpart to Bus's Send* methods. A real OSC
// receive loop (or membus's fake delivery) calls this once per queued
// message, typically from the drain callback mapper.Device.Poll takes.
func Dispatch(d *mapper.Device, data []byte, now time.Time) error {
	if bytes.HasPrefix(data, valueBundlePrefix) {
		return dispatchValueBundle(d, data[len(valueBundlePrefix):])
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return errors.Wrap(err, "transportx: decoding envelope")
	}
	switch env.Kind {
	case "probe":
		var m mapper.NameProbeMsg
		if err := json.Unmarshal(env.Body, &m); err != nil {
			return err
		}
		d.HandleNameProbe(m, now)
	case "registered":
		var m mapper.NameRegisteredMsg
		if err := json.Unmarshal(env.Body, &m); err != nil {
			return err
		}
		d.HandleNameRegistered(m, now)
	case "device":
		var m mapper.DeviceMsg
		if err := json.Unmarshal(env.Body, &m); err != nil {
			return err
		}
		d.HandleDevice(m)
	case "sync":
		var m mapper.SyncMsg
		if err := json.Unmarshal(env.Body, &m); err != nil {
			return err
		}
		d.HandleSync(m, now)
	case "ping":
		var m mapper.PingMsg
		if err := json.Unmarshal(env.Body, &m); err != nil {
			return err
		}
		d.HandlePing(m, now)
	case "map":
		var m mapper.MapReq
		if err := json.Unmarshal(env.Body, &m); err != nil {
			return err
		}
		d.HandleMap(m)
	case "mapTo":
		var m mapper.MapToMsg
		if err := json.Unmarshal(env.Body, &m); err != nil {
			return err
		}
		d.HandleMapTo(m)
	case "mapped":
		var m mapper.MappedMsg
		if err := json.Unmarshal(env.Body, &m); err != nil {
			return err
		}
		d.HandleMapped(m)
	case "unmap":
		var m mapper.UnmapMsg
		if err := json.Unmarshal(env.Body, &m); err != nil {
			return err
		}
		d.HandleUnmap(m)
	case "unmapped":
		var m mapper.UnmappedMsg
		if err := json.Unmarshal(env.Body, &m); err != nil {
			return err
		}
		d.HandleUnmapped(m)
	default:
		return errors.Errorf("transportx: unknown message kind %q", env.Kind)
	}
	return nil
}

func dispatchValueBundle(d *mapper.Device, data []byte) error {
	r := msgp.NewReader(bytes.NewReader(data))
	n, err := r.ReadArrayHeader()
	if err != nil {
		return errors.Wrap(err, "transportx: decoding value bundle header")
	}
	for i := uint32(0); i < n; i++ {
		var f wire.ValueFrame
		if err := f.DecodeMsg(r); err != nil {
			return errors.Wrap(err, "transportx: decoding value frame")
		}
		d.HandleValue(mapper.ValueMsg{
			Path: f.Path, MapID: f.MapID, Inst: int(f.Inst), Value: f.Value,
			Null: f.Null, GID: f.GID, SlotNo: int(f.SlotNo), HasSlot: f.HasSlot,
			Time: f.Time,
		})
	}
	return nil
}
