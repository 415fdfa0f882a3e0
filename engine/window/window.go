package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides a platform window, its surface descriptor and a stream of input events.
// Events are delivered synchronously to the handler from ProcessMessages on the calling thread.
type Window interface {
	// SetEventHandler sets the function that receives every window event.
	//
	// Parameters:
	//   - handler: function to call for each event (or nil to drop events)
	SetEventHandler(handler func(Event))

	// RequestRedraw asks for one EventRedrawRequested on the next message loop iteration.
	// Repeated requests before that iteration collapse into one event.
	RequestRedraw()

	// RequestClose stops the message loop after the current iteration without destroying the window.
	RequestClose()

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed or RequestClose is called.
	ProcessMessages()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and the event handler.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// maxWidth is the maximum allowed window width during resize.
	maxWidth int

	// maxHeight is the maximum allowed window height during resize.
	maxHeight int

	// minWidth is the minimum allowed window width during resize.
	minWidth int

	// minHeight is the minimum allowed window height during resize.
	minHeight int

	// width is the current framebuffer width in pixels.
	width int

	// height is the current framebuffer height in pixels.
	height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// onEvent receives every event emitted by the platform callbacks.
	onEvent func(Event)

	// redrawPending is set by RequestRedraw and cleared when the redraw event is emitted.
	redrawPending bool

	// closeRequested is set by RequestClose.
	closeRequested bool
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

// newEngineWindow applies defaults and options without touching the platform.
func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:     "oxy-view",
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  160,
		minHeight: 120,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetEventHandler(handler func(Event)) {
	w.onEvent = handler
}

func (w *engineWindow) RequestRedraw() {
	w.redrawPending = true
}

func (w *engineWindow) RequestClose() {
	w.closeRequested = true
}

// emit records size changes and forwards the event to the handler.
func (w *engineWindow) emit(e Event) {
	if e.Kind == EventResize {
		w.width = e.Width
		w.height = e.Height
	}
	if w.onEvent != nil {
		w.onEvent(e)
	}
}

// flushRedraw emits the pending redraw, if any. Reports whether an event was emitted.
func (w *engineWindow) flushRedraw() bool {
	if !w.redrawPending || w.closeRequested {
		return false
	}
	w.redrawPending = false
	w.emit(RedrawEvent())
	return true
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return !w.closeRequested && platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		w.flushRedraw()

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
