// Package camera provides a jittered perspective camera that tracks its previous frame, for hosts
// that do not bring their own camera.
package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/Carmen-Shannon/oxy-ivy/engine/dispatch"
	"github.com/chewxy/math32"
)

// DefaultJitterPhases is the length of the Halton jitter sequence.
const DefaultJitterPhases = 8

type cameraImpl struct {
	mu *sync.Mutex

	up [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	// render target size the jitter is expressed against; zero disables jitter
	jitterWidth, jitterHeight uint32
	jitterPhases              int
	frame                     int
	jitter                    [2]float32

	view, prevView         common.Mat4
	projection             common.Mat4
	jittered, prevJittered common.Mat4
	position               common.Vec4

	controller Controller
}

// Camera is a perspective camera driven by a Controller. Update advances one frame: the current
// matrices become the previous ones and the next jitter phase is applied.
type Camera interface {
	dispatch.Camera

	// Projection returns the projection without jitter.
	Projection() common.Mat4

	// Jitter returns the current sub-pixel offset in pixels, each component in [-0.5, 0.5).
	Jitter() (x, y float32)

	// Update reads the controller and recomputes the matrices for a new frame.
	// If no controller is attached, this method does nothing.
	Update()

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetRenderSize sets the resolution the jitter is expressed against. Zero disables jitter.
	//
	// Parameters:
	//   - width, height: the render resolution in pixels
	SetRenderSize(width, height uint32)

	// SetController attaches a Controller to the camera.
	//
	// Parameters:
	//   - ctrl: the controller to attach
	SetController(ctrl Controller)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings. The first Update after
// construction has no distinct previous frame: previous and current matrices are equal.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:           &sync.Mutex{},
		up:           [3]float32{0, 1, 0},
		fov:          45.0 * (math32.Pi / 180.0), // radians
		aspect:       1.0,
		near:         0.1,
		far:          1000.0,
		jitterPhases: DefaultJitterPhases,
		view:         common.Identity(),
		projection:   common.Identity(),
		jittered:     common.Identity(),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	c.prevView, c.prevJittered = c.view, c.jittered
	return c
}

func (c *cameraImpl) View() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) PreviousView() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prevView
}

func (c *cameraImpl) Projection() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) JitteredProjection() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jittered
}

func (c *cameraImpl) PreviousJitteredProjection() common.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prevJittered
}

func (c *cameraImpl) Position() common.Vec4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Jitter() (float32, float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jitter[0], c.jitter[1]
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.prevView, c.prevJittered = c.view, c.jittered
	c.frame++
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetRenderSize(width, height uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jitterWidth, c.jitterHeight = width, height
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl Controller) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

// updateMatrices recalculates the view and both projections. The view is only read from the
// controller when one is attached. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.controller != nil {
		eye := c.controller.Position()
		c.view = common.LookAt(eye, c.controller.Target(), c.up)
		c.position = common.Vec4{eye[0], eye[1], eye[2], 1}
	}

	c.projection = common.Perspective(c.fov, c.aspect, c.near, c.far)
	c.jittered = c.projection
	c.jitter = [2]float32{}
	if c.jitterWidth == 0 || c.jitterHeight == 0 || c.jitterPhases < 1 {
		return
	}
	phase := c.frame%c.jitterPhases + 1
	c.jitter = [2]float32{halton(phase, 2) - 0.5, halton(phase, 3) - 0.5}
	// offset the clip-space x and y by the jitter in NDC units
	c.jittered[8] += 2 * c.jitter[0] / float32(c.jitterWidth)
	c.jittered[9] -= 2 * c.jitter[1] / float32(c.jitterHeight)
}

// halton returns element index of the Halton sequence in the given base, in [0, 1).
func halton(index, base int) float32 {
	f, r := float32(1), float32(0)
	for i := index; i > 0; i /= base {
		f /= float32(base)
		r += f * float32(i%base)
	}
	return r
}
