package window

import "fmt"

// EventKind identifies what a window Event reports.
type EventKind int

const (
	// EventResize reports a new framebuffer size in pixels. Either dimension may be 0 while minimized.
	EventResize EventKind = iota
	// EventCloseRequested reports that the user asked to close the window.
	EventCloseRequested
	// EventKeyPressed reports a key press (not a repeat or release).
	EventKeyPressed
	// EventRedrawRequested reports that a frame should be drawn.
	EventRedrawRequested
)

func (k EventKind) String() string {
	switch k {
	case EventResize:
		return "resize"
	case EventCloseRequested:
		return "close_requested"
	case EventKeyPressed:
		return "key_pressed"
	case EventRedrawRequested:
		return "redraw_requested"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one notification from the window to its handler.
// Width and Height are set for EventResize, Key for EventKeyPressed.
type Event struct {
	Kind   EventKind
	Width  int
	Height int
	Key    uint32
}

// ResizeEvent returns an EventResize for the given framebuffer size.
func ResizeEvent(width, height int) Event {
	return Event{Kind: EventResize, Width: width, Height: height}
}

// KeyEvent returns an EventKeyPressed for the given key code.
func KeyEvent(key uint32) Event {
	return Event{Kind: EventKeyPressed, Key: key}
}

// CloseEvent returns an EventCloseRequested.
func CloseEvent() Event {
	return Event{Kind: EventCloseRequested}
}

// RedrawEvent returns an EventRedrawRequested.
func RedrawEvent() Event {
	return Event{Kind: EventRedrawRequested}
}
