package dispatch

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/bindless"
	"github.com/Carmen-Shannon/oxy-ivy/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ivy/engine/records"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/parameter_set"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ivy/engine/workgraph"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompiler struct{}

func (stubCompiler) Compile(m shader.Module) (shader.Blob, error) {
	return shader.NewBlob([]byte(m.Name), DefaultBranchEntryPoint, DefaultAreaEntryPoint), nil
}

type fixedArchetypes struct{ stem, leaf int32 }

func (a fixedArchetypes) ArchetypeIndices() (int32, int32) { return a.stem, a.leaf }

type fixture struct {
	device  *renderer.NullDevice
	program *workgraph.Program
	params  parameter_set.ParameterSet
	store   records.Store
	orch    Orchestrator
}

func newFixture(t *testing.T, store records.Store, opts ...OrchestratorOption) *fixture {
	t.Helper()
	d := renderer.NewNullDevice(renderer.WithEntrypoints(DefaultAreaEntryPoint, DefaultBranchEntryPoint))
	p, err := workgraph.NewBuilder(
		workgraph.WithShaderLibrary("ivy"),
		workgraph.WithEntryPoints(DefaultBranchEntryPoint, DefaultAreaEntryPoint),
		workgraph.WithMaxInputRecords(8),
	).Build(context.Background(), d, stubCompiler{})
	require.NoError(t, err)
	ps := parameter_set.NewParameterSet(parameter_set.WithLayout(bindless.Layout()))
	return &fixture{
		device:  d,
		program: p,
		params:  ps,
		store:   store,
		orch:    NewOrchestrator(d, p, ps, store, fixedArchetypes{stem: 4, leaf: -1}, opts...),
	}
}

func gbuffer() GBuffer {
	rt := func(name string, f wgpu.TextureFormat) renderer.RenderTarget {
		return &renderer.NullRenderTarget{TargetName: name, TargetFormat: f}
	}
	return GBuffer{
		Albedo:           rt("albedo", wgpu.TextureFormatRGBA8Unorm),
		Normal:           rt("normal", wgpu.TextureFormatRGBA16Float),
		AORoughnessMetal: rt("arm", wgpu.TextureFormatRGBA8Unorm),
		Motion:           rt("motion", wgpu.TextureFormatRG16Float),
		Depth:            rt("depth", wgpu.TextureFormatDepth32Float),
	}
}

func frame(cmd renderer.CommandList) Frame {
	return Frame{
		Commands:   cmd,
		Camera:     NewStaticCamera([3]float32{0, 5, -20}, [3]float32{0, 5, 0}, common.Perspective(1, 16.0/9.0, 0.1, 100)),
		Scene:      renderer.NullAccelerationStructure(42),
		Targets:    gbuffer(),
		Upscaler:   UpscalerNone,
		Resolution: Resolution{RenderWidth: 1280, RenderHeight: 720, DisplayWidth: 1920, DisplayHeight: 1080},
	}
}

func TestEmptyBranchEntryIsLegal(t *testing.T) {
	areas := []records.AreaRecord{
		{Transform: common.Identity(), Seed: 1, Density: 0.1},
		{Transform: common.Identity(), Seed: 2, Density: 0.2},
		{Transform: common.Identity(), Seed: 3, Density: 0.3},
	}
	f := newFixture(t, records.NewStore(records.WithBranches(nil), records.WithAreas(areas)))
	cmd := renderer.NewNullCommandList(true)

	require.NoError(t, f.orch.Execute(frame(cmd)))
	require.Len(t, cmd.Dispatches, 1)
	desc := cmd.Dispatches[0]
	assert.Equal(t, renderer.DispatchModeMultiNodeCPUInput, desc.Mode)
	require.Len(t, desc.Inputs, 2)

	branch, area := desc.Inputs[0], desc.Inputs[1]
	assert.Equal(t, uint32(1), branch.EntrypointIndex)
	assert.Zero(t, branch.NumRecords)
	assert.Empty(t, branch.Records)
	assert.Equal(t, uint64(records.BranchRecordStride), branch.RecordStride)

	assert.Equal(t, uint32(0), area.EntrypointIndex)
	assert.Equal(t, uint32(3), area.NumRecords)
	assert.Len(t, area.Records, 3*records.AreaRecordStride)
	assert.Equal(t, uint64(records.AreaRecordStride), area.RecordStride)
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(area.Records[2*records.AreaRecordStride+64:]))
}

func TestInitializeFlagIsOneShot(t *testing.T) {
	f := newFixture(t, records.NewStore())
	cmd := renderer.NewNullCommandList(true)
	assert.Equal(t, workgraph.BackingMemoryNeedsInit, f.program.BackingMemory().State())

	for range 4 {
		require.NoError(t, f.orch.Execute(frame(cmd)))
	}
	require.Len(t, cmd.Programs, 4)
	assert.Equal(t, renderer.SetProgramFlagsInitialize, cmd.Programs[0].Flags)
	for _, p := range cmd.Programs[1:] {
		assert.Equal(t, renderer.SetProgramFlagsNone, p.Flags)
	}
	assert.Equal(t, f.program.Identifier(), cmd.Programs[3].Identifier)
	assert.Equal(t, f.program.BackingMemory().Address(), cmd.Programs[0].BackingMemory)
	assert.Equal(t, workgraph.BackingMemorySteady, f.program.BackingMemory().State())
}

func TestExecuteSequence(t *testing.T) {
	f := newFixture(t, records.NewStore())
	cmd := renderer.NewNullCommandList(true)
	require.NoError(t, f.orch.Execute(frame(cmd)))

	assert.Equal(t, []string{
		"BeginMarker", "ResourceBarrier", "BeginRaster", "SetViewportScissor",
		"SetBindings", "SetProgram", "DispatchGraph",
		"EndRaster", "ResourceBarrier", "EndMarker",
	}, cmd.Ops)
	assert.True(t, cmd.Balanced())
	assert.Zero(t, cmd.DispatchesOutsideRaster)
	assert.Equal(t, []string{DefaultMarker}, cmd.Markers)

	require.Len(t, cmd.Barriers, 2)
	in, out := cmd.Barriers[0], cmd.Barriers[1]
	require.Len(t, in, 5)
	for _, b := range in[:4] {
		assert.Equal(t, renderer.ResourceStateRenderTarget, b.After)
	}
	assert.Equal(t, renderer.ResourceStateDepthWrite, in[4].After)
	for i := range in {
		assert.Equal(t, in[i].Resource, out[i].Resource)
		assert.Equal(t, in[i].After, out[i].Before)
		assert.Equal(t, in[i].Before, out[i].After)
	}

	require.Len(t, cmd.RasterScopes, 1)
	assert.Len(t, cmd.RasterScopes[0].Colors, 4)
	assert.Equal(t, "depth", cmd.RasterScopes[0].Depth.Name())

	bindings := cmd.Bindings[0]
	assert.Contains(t, bindings.ConstantBuffers, bindless.ConstantsSlot)
	assert.Equal(t, renderer.NullAccelerationStructure(42), bindings.AccelerationStructures[bindless.SceneSlot])

	consts := f.device.Constants()
	require.Len(t, consts, 1)
	require.Len(t, consts[0], FrameConstantsSize)
	assert.Equal(t, int32(4), int32(binary.LittleEndian.Uint32(consts[0][224:])))
	assert.Equal(t, int32(-1), int32(binary.LittleEndian.Uint32(consts[0][228:])))
}

func TestViewportFollowsUpscaler(t *testing.T) {
	tests := []struct {
		state UpscalerState
		w, h  float32
	}{
		{UpscalerNone, 1920, 1080},
		{UpscalerPreUpscale, 1280, 720},
		{UpscalerPostUpscale, 1920, 1080},
	}
	for _, tt := range tests {
		f := newFixture(t, records.NewStore())
		cmd := renderer.NewNullCommandList(true)
		fr := frame(cmd)
		fr.Upscaler = tt.state
		require.NoError(t, f.orch.Execute(fr))
		assert.Equal(t, renderer.Viewport{Width: tt.w, Height: tt.h, MaxDepth: 1}, cmd.Viewports[0])
	}
}

func TestMissingWorkGraphCommandsIsFatal(t *testing.T) {
	f := newFixture(t, records.NewStore())
	cmd := renderer.NewNullCommandList(false)

	err := f.orch.Execute(frame(cmd))
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, renderer.ErrNoWorkGraphCommands)
	assert.Empty(t, cmd.Ops)
	assert.Equal(t, workgraph.BackingMemoryNeedsInit, f.program.BackingMemory().State())
}

func TestIncompleteFrame(t *testing.T) {
	f := newFixture(t, records.NewStore())
	cmd := renderer.NewNullCommandList(true)
	fr := frame(cmd)
	fr.Targets.Motion = nil
	assert.ErrorIs(t, f.orch.Execute(fr), ErrIncompleteFrame)
	assert.Empty(t, cmd.Ops)
}

func TestProfilerCountsRecords(t *testing.T) {
	now := time.Unix(0, 0)
	p := profiler.NewProfiler(profiler.WithClock(func() time.Time { return now }))
	f := newFixture(t, records.NewStore(), WithProfiler(p))
	cmd := renderer.NewNullCommandList(true)

	require.NoError(t, f.orch.Execute(frame(cmd)))
	now = now.Add(2 * time.Second)
	require.NoError(t, f.orch.Execute(frame(cmd)))
	assert.Equal(t, 2, p.Last().Dispatches)
	assert.Equal(t, 6, p.Last().Records)
}

func TestFrameConstants(t *testing.T) {
	eye := [3]float32{3, 4, 5}
	prevView := common.LookAt([3]float32{1, 2, 3}, [3]float32{0, 0, 0}, [3]float32{0, 1, 0})
	cam := NewStaticCamera(eye, [3]float32{0, 0, 0}, common.Perspective(1, 1, 0.1, 50))
	cam.PrevViewMatrix = prevView

	c := NewFrameConstants(cam, 2, 7)
	assert.Equal(t, FrameConstantsSize, c.Size())
	assert.Equal(t, common.Vec4{3, 4, 5, 1}, c.CameraPosition)
	for i, want := range []float32{1, 2, 3, 1} {
		assert.InDelta(t, want, c.PreviousCameraPosition[i], 1e-4)
	}

	id := common.Mul4(c.ViewProjection, c.InverseViewProjection)
	for i, v := range common.Identity() {
		assert.InDelta(t, v, id[i], 1e-2)
	}
	buf := c.Marshal()
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[228:]))
}
