package profiler

import (
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Profiler tracks frame timing and memory statistics for diagnostics.
// It has no effect on scheduling; frames are driven by the window's redraw requests.
type Profiler struct {
	log            *logrus.Entry
	now            func() time.Time
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	// last window's results, kept for callers that display them
	frameTime time.Duration
	fps       float64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions to configure the Profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		log:            logrus.WithField("component", "profiler"),
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per rendered frame.
// Once more than the update interval has elapsed since the last report it logs the windowed
// average frame time and FPS together with heap, allocation rate and GC statistics, then starts a new window.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed <= p.updateInterval {
		return false
	}

	p.fps = float64(p.frameCount) / elapsed.Seconds()
	p.frameTime = elapsed / time.Duration(p.frameCount)

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	p.log.WithFields(logrus.Fields{
		"frame_time_ms":  float64(p.frameTime.Microseconds()) / 1000,
		"fps":            p.fps,
		"heap_mb":        allocMB,
		"alloc_rate_mbs": allocRateMB,
		"gc":             p.memStats.NumGC - p.lastGCCount,
	}).Info("frame stats")

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// FrameTime returns the average frame time of the last completed window, or 0 before the first report.
func (p *Profiler) FrameTime() time.Duration {
	return p.frameTime
}

// FPS returns the frame rate of the last completed window, or 0 before the first report.
func (p *Profiler) FPS() float64 {
	return p.fps
}
