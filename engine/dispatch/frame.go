package dispatch

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/renderer"
)

// UpscalerState is where the host's upscaler sits relative to this pass.
type UpscalerState int

const (
	// UpscalerNone renders at display resolution with no upscaler.
	UpscalerNone UpscalerState = iota
	// UpscalerPreUpscale means this pass runs before upscaling, at render resolution.
	UpscalerPreUpscale
	// UpscalerPostUpscale means this pass runs after upscaling, at display resolution.
	UpscalerPostUpscale
)

// Resolution holds the render and display sizes of the current frame.
type Resolution struct {
	RenderWidth, RenderHeight   uint32
	DisplayWidth, DisplayHeight uint32
}

// Viewport returns the full-target viewport for an upscaler state: display resolution with no
// upscaler or after upscaling, render resolution otherwise.
//
// Parameters:
//   - state: the upscaler state
//
// Returns:
//   - renderer.Viewport: the viewport, depth range [0, 1]
func (r Resolution) Viewport(state UpscalerState) renderer.Viewport {
	w, h := r.RenderWidth, r.RenderHeight
	if state == UpscalerNone || state == UpscalerPostUpscale {
		w, h = r.DisplayWidth, r.DisplayHeight
	}
	return renderer.Viewport{Width: float32(w), Height: float32(h), MinDepth: 0, MaxDepth: 1}
}

// Camera is the host camera of the current frame.
type Camera interface {
	// View returns the current view matrix.
	View() common.Mat4
	// PreviousView returns the view matrix of the previous frame.
	PreviousView() common.Mat4
	// JitteredProjection returns the current projection including the sub-pixel jitter.
	JitteredProjection() common.Mat4
	// PreviousJitteredProjection returns the jittered projection of the previous frame.
	PreviousJitteredProjection() common.Mat4
	// Position returns the current world-space eye position.
	Position() common.Vec4
}

// GBuffer is the set of targets the graph's mesh nodes rasterize into.
type GBuffer struct {
	Albedo           renderer.RenderTarget
	Normal           renderer.RenderTarget
	AORoughnessMetal renderer.RenderTarget
	Motion           renderer.RenderTarget
	Depth            renderer.RenderTarget
}

// Colors returns the colour targets in output order.
func (g GBuffer) Colors() []renderer.RenderTarget {
	return []renderer.RenderTarget{g.Albedo, g.Normal, g.AORoughnessMetal, g.Motion}
}

func (g GBuffer) complete() bool {
	for _, t := range g.Colors() {
		if t == nil {
			return false
		}
	}
	return g.Depth != nil
}

// Frame is everything Execute needs from the host for one frame.
type Frame struct {
	Commands   renderer.CommandList
	Camera     Camera
	Scene      renderer.AccelerationStructure
	Targets    GBuffer
	Upscaler   UpscalerState
	Resolution Resolution
}

// FrameConstants is the constant buffer bound at the constants slot for every dispatch.
// Size: 232 bytes.
type FrameConstants struct {
	ViewProjection         common.Mat4 // offset 0
	PreviousViewProjection common.Mat4 // offset 64
	InverseViewProjection  common.Mat4 // offset 128
	CameraPosition         common.Vec4 // offset 192
	PreviousCameraPosition common.Vec4 // offset 208
	StemSurfaceIndex       int32       // offset 224
	LeafSurfaceIndex       int32       // offset 228
}

// FrameConstantsSize is the packed size of FrameConstants in bytes.
const FrameConstantsSize = 232

// NewFrameConstants derives the constants from the camera and the archetype surface indices.
//
// Parameters:
//   - cam: the frame camera
//   - stem, leaf: the archetype surface indices, -1 when not loaded
//
// Returns:
//   - FrameConstants: the constants
func NewFrameConstants(cam Camera, stem, leaf int32) FrameConstants {
	vp := common.Mul4(cam.JitteredProjection(), cam.View())
	inv, _ := common.Invert4(vp)
	prevInvView, _ := common.Invert4(cam.PreviousView())
	return FrameConstants{
		ViewProjection:         vp,
		PreviousViewProjection: common.Mul4(cam.PreviousJitteredProjection(), cam.PreviousView()),
		InverseViewProjection:  inv,
		CameraPosition:         cam.Position(),
		PreviousCameraPosition: common.Col(prevInvView, 3),
		StemSurfaceIndex:       stem,
		LeafSurfaceIndex:       leaf,
	}
}

// Size returns the size of the FrameConstants struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (c *FrameConstants) Size() int {
	return int(unsafe.Sizeof(*c))
}

// Marshal serializes the constants into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 232-byte buffer ready for GPU upload.
func (c *FrameConstants) Marshal() []byte {
	buf := make([]byte, FrameConstantsSize)
	off := common.PutMat4(buf, c.ViewProjection)
	off += common.PutMat4(buf[off:], c.PreviousViewProjection)
	off += common.PutMat4(buf[off:], c.InverseViewProjection)
	off += common.PutVec4(buf[off:], c.CameraPosition)
	off += common.PutVec4(buf[off:], c.PreviousCameraPosition)
	common.PutInt32(buf[off:], c.StemSurfaceIndex)
	common.PutInt32(buf[off+4:], c.LeafSurfaceIndex)
	return buf
}

// StaticCamera is a Camera with fixed matrices, used by tools that have no camera controller.
type StaticCamera struct {
	ViewMatrix     common.Mat4
	PrevViewMatrix common.Mat4
	Projection     common.Mat4
	PrevProjection common.Mat4
	Eye            common.Vec4
}

var _ Camera = &StaticCamera{}

func (c *StaticCamera) View() common.Mat4                       { return c.ViewMatrix }
func (c *StaticCamera) PreviousView() common.Mat4               { return c.PrevViewMatrix }
func (c *StaticCamera) JitteredProjection() common.Mat4         { return c.Projection }
func (c *StaticCamera) PreviousJitteredProjection() common.Mat4 { return c.PrevProjection }
func (c *StaticCamera) Position() common.Vec4                   { return c.Eye }

// NewStaticCamera returns a camera at eye looking at center whose previous frame equals the current
// one.
//
// Parameters:
//   - eye: the eye position
//   - center: the look-at target
//   - proj: the projection matrix
//
// Returns:
//   - *StaticCamera: the camera
func NewStaticCamera(eye, center [3]float32, proj common.Mat4) *StaticCamera {
	view := common.LookAt(eye, center, [3]float32{0, 1, 0})
	return &StaticCamera{
		ViewMatrix:     view,
		PrevViewMatrix: view,
		Projection:     proj,
		PrevProjection: proj,
		Eye:            common.Vec4{eye[0], eye[1], eye[2], 1},
	}
}
