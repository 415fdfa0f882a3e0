package profiler

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ProfilerBuilderOption is a functional option applied to a Profiler during construction via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how much time must pass between two reports. Values <= 0 keep the 1 second default.
//
// Parameters:
//   - interval: the report interval
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval option to a Profiler
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithLogger sets the logrus entry the profiler reports through.
func WithLogger(log *logrus.Entry) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.log = log.WithField("component", "profiler")
	}
}

// WithClock replaces time.Now, letting callers drive the profiler from their own frame timestamps.
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
