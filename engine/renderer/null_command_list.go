package renderer

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoWorkGraphCommands is returned by a NullCommandList created without execution graph support.
var ErrNoWorkGraphCommands = errors.New("renderer: command list has no execution graph interface")

// RasterScope records one BeginRaster call.
type RasterScope struct {
	Colors []RenderTarget
	Depth  RenderTarget
}

// NullCommandList is a CommandList that records every call. Ops holds the names of the calls in
// order, so tests can check sequencing.
type NullCommandList struct {
	Ops          []string
	Barriers     [][]Barrier
	RasterScopes []RasterScope
	Viewports    []Viewport
	Bindings     []Bindings
	Markers      []string
	Programs     []ProgramDesc
	Dispatches   []DispatchGraphDesc

	// DispatchesOutsideRaster counts dispatches issued with no open raster scope.
	DispatchesOutsideRaster int

	noWorkGraphs bool
	rasterDepth  int
	markerDepth  int
}

var _ CommandList = &NullCommandList{}
var _ WorkGraphCommandList = &NullCommandList{}

// NewNullCommandList creates a recording command list.
//
// Parameters:
//   - workGraphs: whether WorkGraphCommands succeeds
//
// Returns:
//   - *NullCommandList: the command list
func NewNullCommandList(workGraphs bool) *NullCommandList {
	return &NullCommandList{noWorkGraphs: !workGraphs}
}

func (c *NullCommandList) ResourceBarrier(barriers ...Barrier) {
	c.Ops = append(c.Ops, "ResourceBarrier")
	c.Barriers = append(c.Barriers, append([]Barrier(nil), barriers...))
}

func (c *NullCommandList) BeginRaster(colors []RenderTarget, depth RenderTarget) {
	c.Ops = append(c.Ops, "BeginRaster")
	c.RasterScopes = append(c.RasterScopes, RasterScope{Colors: append([]RenderTarget(nil), colors...), Depth: depth})
	c.rasterDepth++
}

func (c *NullCommandList) SetViewportScissor(v Viewport) {
	c.Ops = append(c.Ops, "SetViewportScissor")
	c.Viewports = append(c.Viewports, v)
}

func (c *NullCommandList) EndRaster() {
	c.Ops = append(c.Ops, "EndRaster")
	if c.rasterDepth > 0 {
		c.rasterDepth--
	}
}

func (c *NullCommandList) BeginMarker(name string) {
	c.Ops = append(c.Ops, "BeginMarker")
	c.Markers = append(c.Markers, name)
	c.markerDepth++
}

func (c *NullCommandList) EndMarker() {
	c.Ops = append(c.Ops, "EndMarker")
	if c.markerDepth > 0 {
		c.markerDepth--
	}
}

func (c *NullCommandList) SetBindings(b Bindings) {
	c.Ops = append(c.Ops, "SetBindings")
	c.Bindings = append(c.Bindings, b)
}

func (c *NullCommandList) WorkGraphCommands() (WorkGraphCommandList, error) {
	if c.noWorkGraphs {
		return nil, ErrNoWorkGraphCommands
	}
	return c, nil
}

func (c *NullCommandList) SetProgram(desc ProgramDesc) {
	c.Ops = append(c.Ops, "SetProgram")
	c.Programs = append(c.Programs, desc)
}

func (c *NullCommandList) DispatchGraph(desc DispatchGraphDesc) {
	c.Ops = append(c.Ops, "DispatchGraph")
	inputs := make([]NodeCPUInput, len(desc.Inputs))
	for i, in := range desc.Inputs {
		in.Records = append([]byte(nil), in.Records...)
		inputs[i] = in
	}
	desc.Inputs = inputs
	c.Dispatches = append(c.Dispatches, desc)
	if c.rasterDepth == 0 {
		c.DispatchesOutsideRaster++
	}
}

// Balanced reports whether every raster scope and marker that was opened was closed.
func (c *NullCommandList) Balanced() bool {
	return c.rasterDepth == 0 && c.markerDepth == 0
}

// NullRenderTarget is a RenderTarget with no storage.
type NullRenderTarget struct {
	TargetName   string
	TargetFormat wgpu.TextureFormat
}

var _ RenderTarget = &NullRenderTarget{}

func (t *NullRenderTarget) Name() string {
	return t.TargetName
}

func (t *NullRenderTarget) Format() wgpu.TextureFormat {
	return t.TargetFormat
}

// NullAccelerationStructure is an AccelerationStructure identified only by its ID.
type NullAccelerationStructure uint64

func (a NullAccelerationStructure) ID() uint64 {
	return uint64(a)
}
