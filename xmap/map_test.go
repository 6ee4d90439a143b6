package xmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mprmesh/mprmesh/ring"
	"github.com/mprmesh/mprmesh/vm"
)

func noopCompile(string, int, []ring.Vtype, []int, ring.Vtype, int) (*vm.Program, error) {
	return &vm.Program{}, nil
}

func TestMapLifecycleStagedToActive(t *testing.T) {
	m := New("1", []string{"/a/out"}, "/b/in", "")
	require.Equal(t, Staged, m.Status)

	require.NoError(t, m.ResolveEndpoint(0, ring.F32, 1, 1))
	require.Equal(t, Staged, m.Status, "still missing destination metadata")

	require.NoError(t, m.ResolveEndpoint(-1, ring.F32, 1, 1))
	require.Equal(t, Ready, m.Status)
	require.Len(t, m.Slots, 2)

	require.NoError(t, m.Activate(noopCompile))
	require.Equal(t, Active, m.Status)
	require.True(t, m.Dirty)
}

func TestConvergentNumInstIsMaxOverSources(t *testing.T) {
	m := New("2", []string{"/a/out", "/b/out"}, "/c/in", "")
	require.NoError(t, m.ResolveEndpoint(0, ring.F32, 1, 3))
	require.NoError(t, m.ResolveEndpoint(1, ring.F32, 1, 5))
	require.NoError(t, m.ResolveEndpoint(-1, ring.F32, 1, 1))

	require.Equal(t, Ready, m.Status)
	require.Equal(t, 5, m.NumInst, "num_inst resolves as max over sources, DESIGN.md Open Question #1")
	require.True(t, m.Convergent())
}

func TestResolveEndpointOutOfRangeIsError(t *testing.T) {
	m := New("3", []string{"/a/out"}, "/b/in", "")
	err := m.ResolveEndpoint(5, ring.F32, 1, 1)
	require.Error(t, err)
}

func TestActivateRequiresReady(t *testing.T) {
	m := New("4", []string{"/a/out"}, "/b/in", "")
	err := m.Activate(noopCompile)
	require.Error(t, err)
}

func TestModifyRequiresActive(t *testing.T) {
	m := New("5", []string{"/a/out"}, "/b/in", "")
	err := m.Modify("y = x", false, noopCompile)
	require.Error(t, err)
}

func TestMarkUpdatedSetsDirty(t *testing.T) {
	m := New("6", []string{"/a/out"}, "/b/in", "")
	m.Dirty = false
	m.MarkUpdated(0)
	require.True(t, m.Dirty)
	require.True(t, m.UpdatedInst[0])

	m.ClearUpdated()
	require.False(t, m.Dirty)
	require.Empty(t, m.UpdatedInst)
}
