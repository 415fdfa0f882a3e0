package engine

import (
	"github.com/Carmen-Shannon/oxy-mip/engine/profiler"
	"github.com/sirupsen/logrus"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables frame time reporting.
//
// Parameters:
//   - enabled: if true, enables frame time reporting
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler sets the profiler ticked after every rendered frame.
//
// Parameters:
//   - p: the profiler to use
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithRenderCallback registers the function called after each rendered frame.
//
// Parameters:
//   - callback: function receiving the time since the previous frame in seconds
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderCallback(callback func(deltaTime float32)) EngineBuilderOption {
	return func(e *engine) {
		e.renderCallback = callback
	}
}

// WithLogger sets the logrus entry the engine logs through.
func WithLogger(log *logrus.Entry) EngineBuilderOption {
	return func(e *engine) {
		e.log = log.WithField("component", "engine")
	}
}
