package camera

// OrbitControllerOption is a functional option for configuring an OrbitController.
type OrbitControllerOption func(*orbitController)

// WithTarget sets the point the controller orbits.
//
// Parameters:
//   - x, y, z: the target position
//
// Returns:
//   - OrbitControllerOption: a function that sets the target
func WithTarget(x, y, z float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.target = [3]float32{x, y, z}
	}
}

// WithRadius sets the initial distance from the target.
//
// Parameters:
//   - radius: the distance
//
// Returns:
//   - OrbitControllerOption: a function that sets the radius
func WithRadius(radius float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.radius = radius
	}
}

// WithAngles sets the initial azimuth and elevation in radians.
//
// Parameters:
//   - azimuth: the angle around Y
//   - elevation: the angle from the horizontal plane
//
// Returns:
//   - OrbitControllerOption: a function that sets the angles
func WithAngles(azimuth, elevation float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.azimuth, oc.elevation = azimuth, elevation
	}
}

// WithRadiusBounds sets the zoom limits.
//
// Parameters:
//   - min, max: the radius bounds
//
// Returns:
//   - OrbitControllerOption: a function that sets the bounds
func WithRadiusBounds(min, max float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.minRadius, oc.maxRadius = min, max
	}
}

// WithZoomSpeed sets the radius change per unit of zoom delta.
//
// Parameters:
//   - speed: the zoom speed
//
// Returns:
//   - OrbitControllerOption: a function that sets the zoom speed
func WithZoomSpeed(speed float32) OrbitControllerOption {
	return func(oc *orbitController) {
		oc.zoomSpeed = speed
	}
}
