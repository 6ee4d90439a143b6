// Package wire holds the two wire encodings the DOMAIN STACK wires in
// alongside the transport-agnostic Go types mapper and transportx
// exchange: jsoniter for the open property bag (props.go) and msgp for
// a compact binary value-update frame (this file), the fast alternative
// to the OSC-ish text framing spec.md §6 sketches.
//
// Grounded in the teacher's cmn.LsoResult, which trades its usual JSON
// shape for hand-paired msgp.Writer/Reader calls on its hot transport
// path (xact/xs/lso.go); this package hand-writes the same
// Writer/Reader pairing msgp's codegen would produce rather than
// running the generator.
package wire

import (
	"github.com/pkg/errors"
	"github.com/tinylib/msgp/msgp"

	"github.com/mprmesh/mprmesh/ring"
)

// ValueFrame is the compact binary encoding of one value update for
// the per-link unicast channel (spec.md §6 "Value messages"): the
// fields mapper.PendingSend/mapper.ValueMsg carry, reduced to msgp's
// tuple (array) wire shape.
type ValueFrame struct {
	Path    string
	MapID   string
	Inst    int32
	SlotNo  int32
	HasSlot bool
	GID     uint64
	Time    int64
	Value   ring.Vector
	Null    []bool
}

const valueFrameArity = 9

// EncodeMsg writes f as a 9-element msgpack array, the shape a
// `//msgp:tuple` struct tag would generate.
func (f *ValueFrame) EncodeMsg(w *msgp.Writer) error {
	if err := w.WriteArrayHeader(valueFrameArity); err != nil {
		return err
	}
	if err := w.WriteString(f.Path); err != nil {
		return err
	}
	if err := w.WriteString(f.MapID); err != nil {
		return err
	}
	if err := w.WriteInt32(f.Inst); err != nil {
		return err
	}
	if err := w.WriteInt32(f.SlotNo); err != nil {
		return err
	}
	if err := w.WriteBool(f.HasSlot); err != nil {
		return err
	}
	if err := w.WriteUint64(f.GID); err != nil {
		return err
	}
	if err := w.WriteInt64(f.Time); err != nil {
		return err
	}
	if err := encodeVector(w, f.Value); err != nil {
		return err
	}
	return encodeNulls(w, f.Null)
}

// DecodeMsg reads back a frame written by EncodeMsg.
func (f *ValueFrame) DecodeMsg(r *msgp.Reader) error {
	sz, err := r.ReadArrayHeader()
	if err != nil {
		return err
	}
	if sz != valueFrameArity {
		return errors.Errorf("wire: value frame has %d fields, want %d", sz, valueFrameArity)
	}
	if f.Path, err = r.ReadString(); err != nil {
		return err
	}
	if f.MapID, err = r.ReadString(); err != nil {
		return err
	}
	if f.Inst, err = r.ReadInt32(); err != nil {
		return err
	}
	if f.SlotNo, err = r.ReadInt32(); err != nil {
		return err
	}
	if f.HasSlot, err = r.ReadBool(); err != nil {
		return err
	}
	if f.GID, err = r.ReadUint64(); err != nil {
		return err
	}
	if f.Time, err = r.ReadInt64(); err != nil {
		return err
	}
	if f.Value, err = decodeVector(r); err != nil {
		return err
	}
	f.Null, err = decodeNulls(r)
	return err
}

// encodeVector writes a type tag followed by the typed element array,
// preserving the i32/f32/f64 distinction ring.Vector carries (spec.md
// §4.A): the msgp frame never silently widens a value's type.
func encodeVector(w *msgp.Writer, v ring.Vector) error {
	if err := w.WriteUint8(uint8(v.Type)); err != nil {
		return err
	}
	n := v.Len()
	if err := w.WriteArrayHeader(uint32(n)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		var err error
		switch v.Type {
		case ring.I32:
			err = w.WriteInt32(v.I32[i])
		case ring.F32:
			err = w.WriteFloat32(v.F32[i])
		default:
			err = w.WriteFloat64(v.F64[i])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeVector(r *msgp.Reader) (ring.Vector, error) {
	typeByte, err := r.ReadUint8()
	if err != nil {
		return ring.Vector{}, err
	}
	typ := ring.Vtype(typeByte)
	n, err := r.ReadArrayHeader()
	if err != nil {
		return ring.Vector{}, err
	}
	v := ring.Zero(typ, int(n))
	for i := uint32(0); i < n; i++ {
		switch typ {
		case ring.I32:
			v.I32[i], err = r.ReadInt32()
		case ring.F32:
			v.F32[i], err = r.ReadFloat32()
		default:
			v.F64[i], err = r.ReadFloat64()
		}
		if err != nil {
			return ring.Vector{}, err
		}
	}
	return v, nil
}

func encodeNulls(w *msgp.Writer, nulls []bool) error {
	if err := w.WriteArrayHeader(uint32(len(nulls))); err != nil {
		return err
	}
	for _, n := range nulls {
		if err := w.WriteBool(n); err != nil {
			return err
		}
	}
	return nil
}

func decodeNulls(r *msgp.Reader) ([]bool, error) {
	n, err := r.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]bool, n)
	for i := range out {
		if out[i], err = r.ReadBool(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
