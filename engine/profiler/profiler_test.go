package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsEachInterval(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { common.SetLogger(nil) })

	start := time.Unix(0, 0)
	clock := start
	p := NewProfiler()
	p.now = func() time.Time { return clock }
	p.lastTime = start

	for i := 0; i < 59; i++ {
		clock = clock.Add(time.Second / 60)
		require.False(t, p.Tick(i%2 == 0))
	}
	clock = start.Add(time.Second)
	require.True(t, p.Tick(false))

	r := p.Last()
	assert.InDelta(t, 60, r.FPS, 0.01)
	assert.Equal(t, 30, r.Rendered)
	assert.Equal(t, time.Second, r.IntervalTime)
	assert.Contains(t, buf.String(), "stats.fps=60")
	assert.Contains(t, buf.String(), "stats.rendered=30")

	clock = clock.Add(time.Second / 2)
	assert.False(t, p.Tick(true), "counters restart after a report")
}

func TestSetIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(0)
	assert.Equal(t, time.Second, p.updateInterval)
	p.SetInterval(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, p.updateInterval)
}
