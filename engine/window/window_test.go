package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-mip/common"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyEventFor(t *testing.T) {
	tests := []struct {
		name   string
		key    glfw.Key
		action glfw.Action
		want   bool
	}{
		{name: "escape press", key: glfw.KeyEscape, action: glfw.Press, want: true},
		{name: "space press", key: glfw.KeySpace, action: glfw.Press, want: true},
		{name: "repeat", key: glfw.KeySpace, action: glfw.Repeat, want: false},
		{name: "release", key: glfw.KeyEscape, action: glfw.Release, want: false},
		{name: "unknown key", key: glfw.KeyUnknown, action: glfw.Press, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := keyEventFor(tt.key, tt.action)
			assert.Equal(t, tt.want, ok)
			if ok {
				assert.Equal(t, EventKeyPressed, e.Kind)
				assert.Equal(t, uint32(tt.key), e.Key)
			}
		})
	}

	e, _ := keyEventFor(glfw.KeyEscape, glfw.Press)
	assert.Equal(t, uint32(common.KeyEsc), e.Key)
}

func TestEmitTracksSize(t *testing.T) {
	w := newEngineWindow(WithWidth(640), WithHeight(480))
	var got []Event
	w.SetEventHandler(func(e Event) { got = append(got, e) })

	w.emit(ResizeEvent(800, 600))
	w.emit(KeyEvent(common.KeySpace))
	w.emit(ResizeEvent(0, 0))

	require.Len(t, got, 3)
	assert.Equal(t, EventResize, got[0].Kind)
	assert.Equal(t, EventKeyPressed, got[1].Kind)
	assert.Equal(t, 0, w.Width(), "a minimized size is still reported")
	assert.Equal(t, 0, w.Height())
}

func TestRedrawRequestsCollapse(t *testing.T) {
	w := newEngineWindow()
	redraws := 0
	w.SetEventHandler(func(e Event) {
		if e.Kind == EventRedrawRequested {
			redraws++
		}
	})

	assert.False(t, w.flushRedraw())

	w.RequestRedraw()
	w.RequestRedraw()
	assert.True(t, w.flushRedraw())
	assert.False(t, w.flushRedraw())
	assert.Equal(t, 1, redraws)

	w.RequestRedraw()
	w.RequestClose()
	assert.False(t, w.flushRedraw(), "no redraw after a close request")
	assert.False(t, w.IsRunning())
}

func TestBuilderDefaultsAndOptions(t *testing.T) {
	w := newEngineWindow()
	assert.Equal(t, 1280, w.Width())
	assert.Equal(t, 720, w.Height())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())

	w = newEngineWindow(WithTitle("mips"), WithMinSize(10, 20), WithMaxSize(30, 40))
	assert.Equal(t, "mips", w.title)
	assert.Equal(t, 10, w.minWidth)
	assert.Equal(t, 20, w.minHeight)
	assert.Equal(t, 30, w.maxWidth)
	assert.Equal(t, 40, w.maxHeight)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "resize", EventResize.String())
	assert.Equal(t, "redraw_requested", EventRedrawRequested.String())
	assert.Equal(t, "event(42)", EventKind(42).String())
}
