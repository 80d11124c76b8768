package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// GraphicsStateOption is a functional option used to configure a GraphicsState during construction.
type GraphicsStateOption func(*GraphicsState)

// WithTopology sets the primitive topology.
//
// Parameters:
//   - topology: the primitive topology to use (e.g., wgpu.PrimitiveTopologyTriangleList)
//
// Returns:
//   - GraphicsStateOption: a function that sets the primitive topology
func WithTopology(topology wgpu.PrimitiveTopology) GraphicsStateOption {
	return func(s *GraphicsState) {
		s.Topology = topology
	}
}

// WithDepthFormat sets the depth target format.
//
// Parameters:
//   - format: the depth format (e.g., wgpu.TextureFormatDepth32Float)
//
// Returns:
//   - GraphicsStateOption: a function that sets the depth format
func WithDepthFormat(format wgpu.TextureFormat) GraphicsStateOption {
	return func(s *GraphicsState) {
		s.DepthFormat = format
	}
}

// WithColorFormats sets the color target formats in binding order.
//
// Parameters:
//   - formats: the color formats, at most MaxColorTargets
//
// Returns:
//   - GraphicsStateOption: a function that sets the color formats
func WithColorFormats(formats ...wgpu.TextureFormat) GraphicsStateOption {
	return func(s *GraphicsState) {
		s.ColorFormats = append([]wgpu.TextureFormat(nil), formats...)
	}
}

// WithFrontFace sets the front face winding order.
//
// Parameters:
//   - frontFace: the front face to use (e.g., wgpu.FrontFaceCCW, wgpu.FrontFaceCW)
//
// Returns:
//   - GraphicsStateOption: a function that sets the front face
func WithFrontFace(frontFace wgpu.FrontFace) GraphicsStateOption {
	return func(s *GraphicsState) {
		s.FrontFace = frontFace
	}
}

// WithFillMode sets the rasterizer fill mode.
//
// Parameters:
//   - mode: FillModeSolid or FillModeWireframe
//
// Returns:
//   - GraphicsStateOption: a function that sets the fill mode
func WithFillMode(mode FillMode) GraphicsStateOption {
	return func(s *GraphicsState) {
		s.FillMode = mode
	}
}
