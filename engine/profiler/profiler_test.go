package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTickLogsOncePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	p := NewProfiler(WithInterval(time.Second), WithClock(clock.now))

	for range 9 {
		clock.advance(100 * time.Millisecond)
		_, ok := p.Tick()
		require.False(t, ok)
	}
	clock.advance(100 * time.Millisecond)
	stats, ok := p.Tick()
	require.True(t, ok)
	assert.InDelta(t, 10, stats.FPS, 1e-9)
	assert.Greater(t, stats.SysMB, 0.0)
	assert.Nil(t, stats.Viewports)

	clock.advance(500 * time.Millisecond)
	_, ok = p.Tick()
	assert.False(t, ok)
}

func TestRecordAveragesViewportTimings(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	p := NewProfiler(WithClock(clock.now), WithRenderTimings(true))

	p.Record(Sample{Name: "main", Timings: renderer.Timings{Sync: 2 * time.Millisecond, Render: 4 * time.Millisecond}})
	p.Record(Sample{Name: "main", Timings: renderer.Timings{Sync: 4 * time.Millisecond, Render: 8 * time.Millisecond}},
		Sample{Name: "hud", Timings: renderer.Timings{Prepare: time.Millisecond}})
	clock.advance(time.Second)
	stats, ok := p.Tick()
	require.True(t, ok)
	require.Len(t, stats.Viewports, 2)
	assert.Equal(t, renderer.Timings{Sync: 3 * time.Millisecond, Render: 6 * time.Millisecond}, stats.Viewports["main"])
	assert.Equal(t, renderer.Timings{Prepare: time.Millisecond}, stats.Viewports["hud"])

	clock.advance(time.Second)
	stats, ok = p.Tick()
	require.True(t, ok)
	assert.Nil(t, stats.Viewports)
}

func TestRecordIgnoredWithoutTimings(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	p := NewProfiler(WithClock(clock.now))
	p.Record(Sample{Name: "main", Timings: renderer.Timings{Sync: time.Millisecond}})
	clock.advance(2 * time.Second)
	stats, ok := p.Tick()
	require.True(t, ok)
	assert.Nil(t, stats.Viewports)
}
