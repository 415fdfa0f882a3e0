package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/Carmen-Shannon/oxy-mip/engine/profiler"
	"github.com/Carmen-Shannon/oxy-mip/engine/window"
	"github.com/sirupsen/logrus"
)

// State is the lifecycle state of one windowed session.
type State int

const (
	// StateUninitialized means no renderer exists yet; every event is ignored.
	StateUninitialized State = iota
	// StateReady means frames are drawn on every redraw request.
	StateReady
	// StateTerminated means the session ended; no further frames are drawn.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FrameRenderer is the part of a renderer the frame loop drives.
type FrameRenderer interface {
	Resize(width, height int) bool
	RenderFrame() error
	Release()
}

// RendererFactory creates the renderer once the window's surface and first size are known.
type RendererFactory func(w window.Window) (FrameRenderer, error)

// engine implements the Engine interface.
type engine struct {
	log *logrus.Entry

	state    State
	quitOnce sync.Once

	window      window.Window
	newRenderer RendererFactory
	renderer    FrameRenderer

	profiler         *profiler.Profiler
	profilingEnabled bool

	renderCallback func(deltaTime float32)
	lastRender     time.Time
	now            func() time.Time
}

// Engine is the frame loop controller of a windowed session.
// It reacts to the window's event stream; frame cadence is set by redraw requests, never by a timer.
// All methods must be called from the goroutine that runs the window message loop.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// State returns the current lifecycle state.
	State() State

	// HandleEvent applies one window event to the state machine.
	// Uninitialized ignores every event. Ready renders on redraw, resizes the surface on a non-zero
	// resize and terminates on a close request or the escape key. Terminated ignores every event.
	//
	// Parameters:
	//   - e: the event to handle
	HandleEvent(e window.Event)

	// Run creates the renderer, requests the first redraw and runs the window message loop
	// until the session terminates. The renderer is released before Run returns.
	//
	// Returns:
	//   - error: error if the renderer could not be created
	Run() error

	// EnableProfiler enables frame time reporting to the log.
	EnableProfiler()

	// DisableProfiler disables frame time reporting.
	DisableProfiler()

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function receiving the time since the previous frame in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// LastRender returns the time of the most recent redraw request, or the zero time before the first one.
	LastRender() time.Time

	// Quit moves the session to Terminated and stops the message loop.
	// Safe to call multiple times and from inside a frame; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine in the Uninitialized state.
//
// Parameters:
//   - w: the window providing events and the surface
//   - newRenderer: creates the renderer when Run starts
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(w window.Window, newRenderer RendererFactory, options ...EngineBuilderOption) Engine {
	e := &engine{
		log:         logrus.WithField("component", "engine"),
		state:       StateUninitialized,
		window:      w,
		newRenderer: newRenderer,
		now:         time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.log))
	}
	w.SetEventHandler(e.HandleEvent)
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) State() State {
	return e.state
}

func (e *engine) LastRender() time.Time {
	return e.lastRender
}

func (e *engine) Run() error {
	if err := e.initialize(); err != nil {
		return err
	}
	defer e.shutdown()

	e.window.ProcessMessages()
	e.Quit()
	return nil
}

// initialize creates the renderer and moves Uninitialized to Ready.
func (e *engine) initialize() error {
	if e.state != StateUninitialized {
		return fmt.Errorf("engine already %s", e.state)
	}
	width, height := e.window.Width(), e.window.Height()
	r, err := e.newRenderer(e.window)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	e.renderer = r
	e.state = StateReady
	e.log.WithFields(logrus.Fields{"width": width, "height": height}).Info("engine ready")

	e.window.RequestRedraw()
	return nil
}

func (e *engine) shutdown() {
	if e.renderer != nil {
		e.renderer.Release()
		e.renderer = nil
	}
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		e.state = StateTerminated
		e.window.RequestClose()
		e.log.Info("engine terminated")
	})
}

func (e *engine) HandleEvent(ev window.Event) {
	if e.state != StateReady {
		e.log.WithFields(logrus.Fields{"event": ev.Kind, "state": e.state}).Debug("ignoring event")
		return
	}

	switch ev.Kind {
	case window.EventResize:
		if ev.Width == 0 || ev.Height == 0 {
			e.log.WithFields(logrus.Fields{"width": ev.Width, "height": ev.Height}).Debug("ignoring zero-sized resize")
			return
		}
		e.renderer.Resize(ev.Width, ev.Height)
		e.window.RequestRedraw()
	case window.EventCloseRequested:
		e.log.Info("close requested")
		e.Quit()
	case window.EventKeyPressed:
		if ev.Key == common.KeyEsc {
			e.log.Info("escape pressed")
			e.Quit()
		}
	case window.EventRedrawRequested:
		e.redraw()
	}
}

// redraw renders one frame. Per-frame failures and panics are handled here so they never escape the loop.
func (e *engine) redraw() {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", r).Error("frame recovered from panic")
			e.Quit()
		}
	}()

	now := e.now()
	var dt float32
	if !e.lastRender.IsZero() {
		dt = float32(now.Sub(e.lastRender).Seconds())
	}
	e.lastRender = now

	if err := e.renderer.RenderFrame(); err != nil {
		switch {
		case errors.Is(err, common.ErrSurfaceLost), errors.Is(err, common.ErrTimeout):
			e.log.WithError(err).Warn("frame skipped")
		default:
			e.log.WithError(err).Error("frame failed")
		}
	}

	if e.state != StateReady {
		return
	}

	if e.renderCallback != nil {
		e.renderCallback(dt)
		// the callback may have quit
		if e.state != StateReady {
			return
		}
	}
	if e.profilingEnabled {
		e.profiler.Tick()
	}
	e.window.RequestRedraw()
}

// EnableProfiler enables frame time reporting to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables frame time reporting.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderCallback registers the function called after each rendered frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}
