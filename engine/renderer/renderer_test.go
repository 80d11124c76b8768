package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullDeviceDefaults(t *testing.T) {
	d := NewNullDevice()
	tier, err := d.WorkGraphsTier()
	require.NoError(t, err)
	assert.Equal(t, WorkGraphsTier1_1, tier)

	so, err := d.CreateStateObject(StateObjectDesc{ProgramName: "Ivy"})
	require.NoError(t, err)
	idx, err := so.WorkGraphIndex("Ivy")
	require.NoError(t, err)
	require.NoError(t, so.SetMaximumInputRecords(idx, 2, 2))

	req, err := so.MemoryRequirements(idx)
	require.NoError(t, err)
	assert.Equal(t, uint64(defaultNullBackingMemory), req.MinSize)

	id, err := so.ProgramIdentifier("Ivy")
	require.NoError(t, err)
	assert.False(t, id.IsZero())

	_, err = so.ProgramIdentifier("Other")
	assert.Error(t, err)
}

func TestNullDeviceOptions(t *testing.T) {
	boom := errors.New("boom")
	d := NewNullDevice(
		WithWorkGraphsTier(WorkGraphsTier1_0, nil),
		WithBackingMemorySize(0),
		WithEntrypoints("area", "branch"),
	)
	tier, _ := d.WorkGraphsTier()
	assert.Equal(t, WorkGraphsTier1_0, tier)

	so, err := d.CreateStateObject(StateObjectDesc{ProgramName: "Ivy"})
	require.NoError(t, err)
	req, err := so.MemoryRequirements(0)
	require.NoError(t, err)
	assert.Zero(t, req.MinSize)

	i, err := so.EntrypointIndex(0, "branch")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), i)
	_, err = so.EntrypointIndex(0, "missing")
	assert.Error(t, err)

	failing := NewNullDevice(WithStateObjectError(boom))
	_, err = failing.CreateStateObject(StateObjectDesc{ProgramName: "Ivy"})
	assert.ErrorIs(t, err, boom)
}

func TestNullStateObjectAssignsEntrypointsInQueryOrder(t *testing.T) {
	so, err := NewNullDevice().CreateStateObject(StateObjectDesc{ProgramName: "Ivy"})
	require.NoError(t, err)

	a, _ := so.EntrypointIndex(0, "first")
	b, _ := so.EntrypointIndex(0, "second")
	again, _ := so.EntrypointIndex(0, "first")
	assert.Equal(t, uint32(0), a)
	assert.Equal(t, uint32(1), b)
	assert.Equal(t, a, again)
}

func TestNullDeviceBuffers(t *testing.T) {
	d := NewNullDevice()
	b, err := d.CreateBuffer(BufferDesc{Label: "backing", Size: 13, Alignment: BackingMemoryAlignment, Usage: wgpu.BufferUsageStorage})
	require.NoError(t, err)
	assert.Equal(t, uint64(13), b.Size())
	assert.Equal(t, uint64(BackingMemoryAlignment), b.(*NullBuffer).Desc().Alignment)

	_, err = d.CreateBuffer(BufferDesc{Label: "small", Size: 2, Data: []byte{1, 2, 3}})
	assert.Error(t, err)

	for _, align := range []uint64{3, 12, nullMaxAlignment * 2} {
		_, err = d.CreateBuffer(BufferDesc{Label: "odd", Size: 16, Alignment: align})
		assert.Error(t, err, "alignment %d", align)
	}

	b.Release()
	require.Len(t, d.Buffers(), 1)
	assert.True(t, d.Buffers()[0].Released())

	addr, err := d.AllocConstantBuffer([]byte{9, 8, 7})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), addr.Size)
	assert.Equal(t, [][]byte{{9, 8, 7}}, d.Constants())

	s, err := d.CreateSampler(common.DefaultSamplerDesc())
	require.NoError(t, err)
	assert.Equal(t, common.DefaultSamplerDesc(), s.Desc())
}

func TestNullCommandListRecords(t *testing.T) {
	cl := NewNullCommandList(true)
	cl.BeginMarker("m")
	cl.BeginRaster(nil, nil)
	wg, err := cl.WorkGraphCommands()
	require.NoError(t, err)
	records := []byte{1, 2, 3, 4}
	wg.DispatchGraph(DispatchGraphDesc{Mode: DispatchModeMultiNodeCPUInput, Inputs: []NodeCPUInput{{NumRecords: 1, Records: records, RecordStride: 4}}})
	records[0] = 42
	cl.EndRaster()
	cl.EndMarker()

	assert.True(t, cl.Balanced())
	assert.Zero(t, cl.DispatchesOutsideRaster)
	require.Len(t, cl.Dispatches, 1)
	assert.Equal(t, byte(1), cl.Dispatches[0].Inputs[0].Records[0])
	assert.Equal(t, []string{"BeginMarker", "BeginRaster", "DispatchGraph", "EndRaster", "EndMarker"}, cl.Ops)

	_, err = NewNullCommandList(false).WorkGraphCommands()
	assert.ErrorIs(t, err, ErrNoWorkGraphCommands)
}

func TestBindingRangeContains(t *testing.T) {
	r := BindingRange{BaseSlot: 50, Count: 1000}
	assert.True(t, r.Contains(50))
	assert.True(t, r.Contains(1049))
	assert.False(t, r.Contains(1050))
	assert.False(t, r.Contains(49))
}
