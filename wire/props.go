package wire

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/ring"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Properties is the wire form of a signal's property table (original_source
// object.c, SPEC_FULL "SUPPLEMENTED FEATURES" #1): a closed set of
// well-known keys the rest of this module understands, plus a
// string-keyed overflow map for anything else a peer attaches -
// the same closed-keys-plus-overflow shape the teacher's cmn.Bck.Props
// round-trips through jsoniter.
type Properties struct {
	Unit      string    `json:"unit,omitempty"`
	Min       []float64 `json:"min,omitempty"`
	Max       []float64 `json:"max,omitempty"`
	Ephemeral bool      `json:"ephemeral,omitempty"`

	Overflow map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Overflow's keys alongside the closed fields,
// the way cmn.Bck.Props merges its typed fields with an arbitrary
// extension map for forward compatibility.
func (p Properties) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{}
	for k, v := range p.Overflow {
		out[k] = v
	}
	if p.Unit != "" {
		out["unit"] = p.Unit
	}
	if len(p.Min) > 0 {
		out["min"] = p.Min
	}
	if len(p.Max) > 0 {
		out["max"] = p.Max
	}
	if p.Ephemeral {
		out["ephemeral"] = true
	}
	return json.Marshal(out)
}

func (p *Properties) UnmarshalJSON(data []byte) error {
	raw := map[string]interface{}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Overflow = map[string]interface{}{}
	for k, v := range raw {
		switch k {
		case "unit":
			if s, ok := v.(string); ok {
				p.Unit = s
			}
		case "min":
			p.Min = toFloat64s(v)
		case "max":
			p.Max = toFloat64s(v)
		case "ephemeral":
			if b, ok := v.(bool); ok {
				p.Ephemeral = b
			}
		default:
			p.Overflow[k] = v
		}
	}
	return nil
}

func toFloat64s(v interface{}) []float64 {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, e := range raw {
		if f, ok := e.(float64); ok {
			out = append(out, f)
		}
	}
	return out
}

// FromSignal projects a graph.Signal's closed property fields into
// their wire form for a /signal announcement.
func FromSignal(s *graph.Signal) Properties {
	p := Properties{Unit: s.Unit, Ephemeral: s.Ephemeral}
	if s.Min != nil {
		p.Min = vectorToFloats(*s.Min)
	}
	if s.Max != nil {
		p.Max = vectorToFloats(*s.Max)
	}
	return p
}

// ApplyTo copies p's closed fields onto s, leaving s's identity
// (ID, DeviceID, Name, Type, VecLen, NumInst) untouched.
func (p Properties) ApplyTo(s *graph.Signal) {
	s.Unit = p.Unit
	s.Ephemeral = p.Ephemeral
	if len(p.Min) > 0 {
		v := ring.Zero(s.Type, len(p.Min))
		for i, f := range p.Min {
			setAt(&v, i, f)
		}
		s.Min = &v
	}
	if len(p.Max) > 0 {
		v := ring.Zero(s.Type, len(p.Max))
		for i, f := range p.Max {
			setAt(&v, i, f)
		}
		s.Max = &v
	}
}

func vectorToFloats(v ring.Vector) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}

func setAt(v *ring.Vector, i int, f float64) {
	switch v.Type {
	case ring.I32:
		v.I32[i] = int32(f)
	case ring.F32:
		v.F32[i] = float32(f)
	default:
		v.F64[i] = f
	}
}
