package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-ivy/common"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHalton(t *testing.T) {
	assert.InDelta(t, 0.5, halton(1, 2), 1e-6)
	assert.InDelta(t, 0.25, halton(2, 2), 1e-6)
	assert.InDelta(t, 0.75, halton(3, 2), 1e-6)
	assert.InDelta(t, 1.0/3.0, halton(1, 3), 1e-6)
	assert.InDelta(t, 2.0/3.0, halton(2, 3), 1e-6)
	assert.InDelta(t, 1.0/9.0, halton(3, 3), 1e-6)
}

func TestOrbitControllerClamps(t *testing.T) {
	oc := NewOrbitController(WithTarget(0, 0, 0), WithRadius(10), WithAngles(0, 0), WithRadiusBounds(5, 20), WithZoomSpeed(1))
	p := oc.Position()
	assert.InDelta(t, 10, p[2], 1e-4)

	oc.Zoom(100)
	assert.Equal(t, float32(5), oc.Radius())
	oc.Zoom(-100)
	assert.Equal(t, float32(20), oc.Radius())

	oc.Orbit(0, math32.Pi)
	assert.Less(t, oc.Elevation(), math32.Pi/2)

	oc.SetTarget(1, 2, 3)
	assert.Equal(t, [3]float32{1, 2, 3}, oc.Target())
}

func TestCameraTracksPreviousFrame(t *testing.T) {
	oc := NewOrbitController(WithTarget(0, 0, 0), WithRadius(10), WithAngles(0, 0))
	c := NewCamera(WithController(oc), WithAspect(16.0/9.0))

	assert.Equal(t, c.View(), c.PreviousView())
	first := c.View()
	firstEye := c.Position()
	assert.InDelta(t, 10, firstEye[2], 1e-4)
	assert.Equal(t, float32(1), firstEye[3])

	oc.Orbit(0.5, 0)
	c.Update()
	assert.Equal(t, first, c.PreviousView())
	assert.NotEqual(t, first, c.View())

	inv, ok := common.Invert4(c.PreviousView())
	require.True(t, ok)
	prevEye := common.Col(inv, 3)
	for i := range 3 {
		assert.InDelta(t, firstEye[i], prevEye[i], 1e-3)
	}
}

func TestJitterCyclesAndStaysSubPixel(t *testing.T) {
	oc := NewOrbitController()
	c := NewCamera(WithController(oc), WithJitter(1280, 720, 4))

	seen := map[[2]float32]bool{}
	for range 8 {
		x, y := c.Jitter()
		assert.GreaterOrEqual(t, x, float32(-0.5))
		assert.Less(t, x, float32(0.5))
		assert.GreaterOrEqual(t, y, float32(-0.5))
		assert.Less(t, y, float32(0.5))
		seen[[2]float32{x, y}] = true

		j, p := c.JitteredProjection(), c.Projection()
		assert.InDelta(t, 2*x/1280, j[8]-p[8], 1e-6)
		c.Update()
	}
	assert.Len(t, seen, 4)

	c.SetRenderSize(0, 0)
	assert.Equal(t, c.Projection(), c.JitteredProjection())
}

func TestUpdateWithoutController(t *testing.T) {
	c := NewCamera()
	before := c.View()
	c.Update()
	assert.Equal(t, before, c.View())
	assert.Equal(t, common.Identity(), before)
}
