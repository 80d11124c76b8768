package camera

import (
	"sync"

	"github.com/chewxy/math32"
)

// Controller supplies the eye position and look-at target of a Camera.
type Controller interface {
	// Position returns the eye position.
	Position() [3]float32

	// Target returns the look-at target.
	Target() [3]float32
}

// orbitController orbits a target on a sphere. Position is derived from the target and the
// spherical coordinates whenever either changes.
type orbitController struct {
	mu *sync.Mutex

	position [3]float32
	target   [3]float32

	radius    float32
	azimuth   float32 // around Y
	elevation float32 // from the horizontal plane

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	zoomSpeed float32
}

// OrbitController is a Controller that orbits a target point.
type OrbitController interface {
	Controller

	// Orbit rotates the eye around the target.
	//
	// Parameters:
	//   - dAzimuth: the change in azimuth in radians
	//   - dElevation: the change in elevation in radians, clamped to the elevation bounds
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the eye toward the target by delta times the zoom speed, clamped to the radius
	// bounds.
	Zoom(delta float32)

	// SetTarget moves the target and keeps the spherical offset.
	SetTarget(x, y, z float32)

	// Radius returns the distance from the target.
	Radius() float32

	// Elevation returns the elevation in radians.
	Elevation() float32
}

var _ OrbitController = &orbitController{}

// NewOrbitController creates an orbit controller. The defaults frame the stock ivy wall from the
// front at a slight elevation.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - OrbitController: the newly created controller
func NewOrbitController(options ...OrbitControllerOption) OrbitController {
	oc := &orbitController{
		mu:           &sync.Mutex{},
		target:       [3]float32{0, 8, 0},
		radius:       40.0,
		azimuth:      math32.Pi,
		elevation:    math32.Pi / 12,
		minRadius:    1.0,
		maxRadius:    500.0,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,
		zoomSpeed:    2.0,
	}
	for _, option := range options {
		option(oc)
	}
	oc.radius = clamp(oc.radius, oc.minRadius, oc.maxRadius)
	oc.elevation = clamp(oc.elevation, oc.minElevation, oc.maxElevation)
	oc.updatePosition()
	return oc
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

// updatePosition recomputes the eye from the spherical coordinates. Caller must hold the mutex.
func (oc *orbitController) updatePosition() {
	sinElev, cosElev := math32.Sincos(oc.elevation)
	sinAzim, cosAzim := math32.Sincos(oc.azimuth)
	oc.position = [3]float32{
		oc.target[0] + oc.radius*cosElev*sinAzim,
		oc.target[1] + oc.radius*sinElev,
		oc.target[2] + oc.radius*cosElev*cosAzim,
	}
}

func (oc *orbitController) Position() [3]float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.position
}

func (oc *orbitController) Target() [3]float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.target
}

func (oc *orbitController) SetTarget(x, y, z float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.target = [3]float32{x, y, z}
	oc.updatePosition()
}

func (oc *orbitController) Orbit(dAzimuth, dElevation float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.azimuth += dAzimuth
	oc.elevation = clamp(oc.elevation+dElevation, oc.minElevation, oc.maxElevation)
	oc.updatePosition()
}

func (oc *orbitController) Zoom(delta float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = clamp(oc.radius-delta*oc.zoomSpeed, oc.minRadius, oc.maxRadius)
	oc.updatePosition()
}

func (oc *orbitController) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.radius
}

func (oc *orbitController) Elevation() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.elevation
}
