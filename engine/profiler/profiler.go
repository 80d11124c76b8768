package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-ivy/common"
)

// Stats is one interval of dispatch statistics.
type Stats struct {
	// Dispatches is the number of graph dispatches issued in the interval.
	Dispatches int
	// Records is the total number of entry records supplied in the interval.
	Records int
	// DispatchRate is Dispatches per second.
	DispatchRate float64
	// HeapMB is the live heap at the end of the interval.
	HeapMB float64
	// AllocRateMB is the heap allocation rate in MB per second.
	AllocRateMB float64
	// GCCount is the cumulative number of garbage collections.
	GCCount uint32
	// MaxPauseUs is the longest GC pause during the interval, in microseconds.
	MaxPauseUs uint64
}

// Profiler tracks graph dispatch throughput and memory statistics.
// Outputs stats to the module logger at a configurable interval.
type Profiler struct {
	dispatches     int
	records        int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: ProfilerOption values
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per dispatch.
// Logs statistics when the update interval has elapsed.
//
// Parameters:
//   - records: the number of entry records the dispatch supplied
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(records int) bool {
	p.dispatches++
	p.records += records
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		Dispatches:   p.dispatches,
		Records:      p.records,
		DispatchRate: float64(p.dispatches) / elapsed.Seconds(),
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:  float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:      p.memStats.NumGC,
	}

	// PauseNs is a circular buffer of the last 256 GC pauses
	startIdx := p.lastGCCount
	if s.GCCount-startIdx > 256 {
		startIdx = s.GCCount - 256
	}
	for i := startIdx; i < s.GCCount; i++ {
		s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}

	common.ComponentLogger("profiler").Info("dispatch stats",
		slog.Int("dispatches", s.Dispatches),
		slog.Int("records", s.Records),
		slog.Float64("dispatch_rate", s.DispatchRate),
		slog.Float64("heap_mb", s.HeapMB),
		slog.Float64("alloc_rate_mb", s.AllocRateMB),
		slog.Uint64("gc", uint64(s.GCCount)),
		slog.Uint64("max_pause_us", s.MaxPauseUs),
	)

	p.last = s
	p.dispatches = 0
	p.records = 0
	p.lastTime = currentTime
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the statistics of the most recently completed interval.
func (p *Profiler) Last() Stats {
	return p.last
}
