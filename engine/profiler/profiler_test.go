package profiler

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestTickReportsAfterInterval(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(WithClock(clock.now), WithLogger(logrus.NewEntry(logger)))

	// 50 frames of 20ms land exactly on the interval, which is not yet "more than" a second
	for range 50 {
		clock.advance(20 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	assert.Empty(t, hook.AllEntries())

	clock.advance(20 * time.Millisecond)
	require.True(t, p.Tick())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "profiler", entry.Data["component"])
	assert.InDelta(t, 20.0, entry.Data["frame_time_ms"], 0.001)
	assert.InDelta(t, 50.0, entry.Data["fps"], 0.001)
	assert.Contains(t, entry.Data, "heap_mb")

	assert.Equal(t, 20*time.Millisecond, p.FrameTime())
	assert.InDelta(t, 50.0, p.FPS(), 0.001)
}

func TestTickStartsNewWindow(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithLogger(logrus.NewEntry(logger)), WithInterval(100*time.Millisecond))

	clock.advance(200 * time.Millisecond)
	require.True(t, p.Tick())
	assert.InDelta(t, 5.0, p.FPS(), 0.001)

	clock.advance(50 * time.Millisecond)
	assert.False(t, p.Tick())
	clock.advance(60 * time.Millisecond)
	require.True(t, p.Tick())
	assert.Equal(t, 55*time.Millisecond, p.FrameTime())
	assert.Len(t, hook.AllEntries(), 2)
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithInterval(0), WithInterval(-time.Second))
	assert.Equal(t, time.Second, p.updateInterval)
}
