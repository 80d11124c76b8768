package profiler

import "time"

// ProfilerOption is a functional option applied to a Profiler during construction via NewProfiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often statistics are logged. Non-positive values keep the default.
//
// Parameters:
//   - d: the logging interval
//
// Returns:
//   - ProfilerOption: a function that sets the interval
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces the time source.
//
// Parameters:
//   - now: returns the current time
//
// Returns:
//   - ProfilerOption: a function that sets the clock
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}
