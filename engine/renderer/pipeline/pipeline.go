package pipeline

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// MaxColorTargets is the maximum number of simultaneous color outputs a graphics node may write.
const MaxColorTargets = 8

// FillMode selects solid or wireframe rasterization.
type FillMode int

const (
	// FillModeSolid fills triangles.
	FillModeSolid FillMode = iota
	// FillModeWireframe draws triangle edges.
	FillModeWireframe
)

// GraphicsState is the fixed-function state shared by every graphics node of an execution graph.
// Each node combines it with the RasterizerState of the cull mode it declares.
type GraphicsState struct {
	// Topology is the primitive topology the generation stages emit.
	Topology wgpu.PrimitiveTopology
	// DepthFormat is the format of the bound depth target.
	DepthFormat wgpu.TextureFormat
	// ColorFormats are the formats of the bound color targets, in binding order.
	ColorFormats []wgpu.TextureFormat
	// FrontFace is the winding order considered front facing.
	FrontFace wgpu.FrontFace
	// FillMode is the rasterizer fill mode.
	FillMode FillMode
}

// RasterizerState is a rasterizer variant. Graph builds create one per cull mode in use.
type RasterizerState struct {
	CullMode  wgpu.CullMode
	FrontFace wgpu.FrontFace
	FillMode  FillMode
}

// NewGraphicsState creates the shared graphics state. The defaults are a triangle list with
// counter-clockwise front faces, solid fill and a Depth32Float depth target.
//
// Parameters:
//   - opts: a variadic list of GraphicsStateOption functions to configure the state
//
// Returns:
//   - GraphicsState: the configured state
func NewGraphicsState(opts ...GraphicsStateOption) GraphicsState {
	s := GraphicsState{
		Topology:    wgpu.PrimitiveTopologyTriangleList,
		DepthFormat: wgpu.TextureFormatDepth32Float,
		FrontFace:   wgpu.FrontFaceCCW,
		FillMode:    FillModeSolid,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Rasterizer returns the rasterizer variant of this state for a cull mode.
//
// Parameters:
//   - cullMode: the cull mode of the variant
//
// Returns:
//   - RasterizerState: the rasterizer state
func (s GraphicsState) Rasterizer(cullMode wgpu.CullMode) RasterizerState {
	return RasterizerState{
		CullMode:  cullMode,
		FrontFace: s.FrontFace,
		FillMode:  s.FillMode,
	}
}

// Validate checks the state can be expressed by a graphics node.
//
// Returns:
//   - error: an error describing the first invalid field, or nil
func (s GraphicsState) Validate() error {
	if len(s.ColorFormats) > MaxColorTargets {
		return fmt.Errorf("pipeline: %d color formats exceed the limit of %d", len(s.ColorFormats), MaxColorTargets)
	}
	if s.DepthFormat == wgpu.TextureFormatUndefined {
		return errors.New("pipeline: depth format is undefined")
	}
	for i, f := range s.ColorFormats {
		if f == wgpu.TextureFormatUndefined {
			return fmt.Errorf("pipeline: color format %d is undefined", i)
		}
	}
	return nil
}
