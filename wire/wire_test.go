package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"

	"github.com/mprmesh/mprmesh/graph"
	"github.com/mprmesh/mprmesh/ring"
)

func TestValueFrameRoundTrip(t *testing.T) {
	want := &ValueFrame{
		Path: "/B/in", MapID: "A.1", Inst: 2, SlotNo: 0,
		HasSlot: true, GID: 0xdeadbeef, Time: 1700000000,
		Value: ring.NewF32(1, 2, 3),
		Null:  []bool{false, false, false},
	}

	var buf bytes.Buffer
	w := msgp.NewWriter(&buf)
	require.NoError(t, want.EncodeMsg(w))
	require.NoError(t, w.Flush())

	got := &ValueFrame{}
	r := msgp.NewReader(&buf)
	require.NoError(t, got.DecodeMsg(r))

	require.Equal(t, want.Path, got.Path)
	require.Equal(t, want.MapID, got.MapID)
	require.Equal(t, want.GID, got.GID)
	require.Equal(t, want.Value.Type, got.Value.Type)
	require.Equal(t, want.Value.F32, got.Value.F32)
	require.Equal(t, want.Null, got.Null)
}

func TestPropertiesRoundTripWithOverflow(t *testing.T) {
	sig := &graph.Signal{Type: ring.F32, VecLen: 1, Unit: "volts"}
	p := FromSignal(sig)
	p.Overflow = map[string]interface{}{"vendor.calibrated": true}

	data, err := p.MarshalJSON()
	require.NoError(t, err)

	var got Properties
	require.NoError(t, got.UnmarshalJSON(data))
	require.Equal(t, "volts", got.Unit)
	require.Equal(t, true, got.Overflow["vendor.calibrated"])

	dst := &graph.Signal{Type: ring.F32, VecLen: 1}
	got.ApplyTo(dst)
	require.Equal(t, "volts", dst.Unit)
}
