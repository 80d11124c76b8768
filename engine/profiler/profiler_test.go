package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickLogsAtInterval(t *testing.T) {
	now := time.Unix(0, 0)
	p := NewProfiler(WithInterval(time.Second), WithClock(func() time.Time { return now }))

	now = now.Add(300 * time.Millisecond)
	assert.False(t, p.Tick(3))
	now = now.Add(300 * time.Millisecond)
	assert.False(t, p.Tick(0))
	now = now.Add(400 * time.Millisecond)
	assert.True(t, p.Tick(2))

	s := p.Last()
	assert.Equal(t, 3, s.Dispatches)
	assert.Equal(t, 5, s.Records)
	assert.InDelta(t, 3.0, s.DispatchRate, 1e-9)

	now = now.Add(100 * time.Millisecond)
	assert.False(t, p.Tick(1))
	assert.Equal(t, 3, p.Last().Dispatches)
}
