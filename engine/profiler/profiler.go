package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-view/common"
)

// Report is one interval's worth of statistics.
type Report struct {
	FPS          float64
	Rendered     int
	HeapMB       float64
	AllocRateMB  float64
	GCCount      uint32
	LastPauseUs  uint64
	MaxPauseUs   uint64
	SysMB        float64
	IntervalTime time.Duration
}

// LogValue implements slog.LogValuer so a Report logs as a group of attributes.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("fps", r.FPS),
		slog.Int("rendered", r.Rendered),
		slog.Float64("heap_mb", r.HeapMB),
		slog.Float64("alloc_rate_mb_s", r.AllocRateMB),
		slog.Uint64("gc", uint64(r.GCCount)),
		slog.Uint64("gc_last_pause_us", r.LastPauseUs),
		slog.Uint64("gc_max_pause_us", r.MaxPauseUs),
		slog.Float64("sys_mb", r.SysMB),
	)
}

// Profiler tracks tick rate, rendered frames and memory statistics.
// Reports through the engine logger at a configurable interval.
type Profiler struct {
	frameCount     int
	renderedCount  int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	now            func() time.Time
	last           Report
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		now:            time.Now,
	}
}

// SetInterval changes how often statistics are reported.
//
// Parameters:
//   - d: the reporting interval; values <= 0 are ignored
func (p *Profiler) SetInterval(d time.Duration) {
	if d > 0 {
		p.updateInterval = d
	}
}

// Tick should be called once per compositor tick.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: tick rate, rendered frames, heap usage, allocation rate, GC count/pause times, total memory.
//
// Parameters:
//   - rendered: whether the tick produced a frame
//
// Returns:
//   - bool: true if stats were reported this tick, false otherwise
func (p *Profiler) Tick(rendered bool) bool {
	p.frameCount++
	if rendered {
		p.renderedCount++
	}
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	r := Report{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		Rendered:     p.renderedCount,
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:        float64(p.memStats.Sys) / 1024 / 1024,
		GCCount:      p.memStats.NumGC,
		IntervalTime: elapsed,
	}
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	r.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	if gcCount := p.memStats.NumGC; gcCount > 0 {
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > r.MaxPauseUs {
				r.MaxPauseUs = pause
			}
		}
	}

	common.Logger().Info("profiler", "stats", r)

	p.last = r
	p.frameCount = 0
	p.renderedCount = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recent report.
//
// Returns:
//   - Report: the last report, zero before the first interval elapsed
func (p *Profiler) Last() Report {
	return p.last
}
