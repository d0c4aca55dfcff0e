package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer"
)

// Sample is one viewport's render timings for a frame.
type Sample struct {
	Name    string
	Timings renderer.Timings
}

// Stats is the summary of one profiler interval.
type Stats struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
	// Viewports holds the average timings per viewport name, when timing collection is on.
	Viewports map[string]renderer.Timings
}

// Profiler tracks frame rate, memory statistics and viewport render timings.
// Outputs stats to the logger at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	collectTimings bool
	timingSums     map[string]renderer.Timings
	timingCounts   map[string]int
	now            func() time.Time
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: optional ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		timingSums:     make(map[string]renderer.Timings),
		timingCounts:   make(map[string]int),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Record adds one frame's viewport timings to the current interval. It does nothing unless timing
// collection is on.
//
// Parameters:
//   - samples: the timings of every viewport rendered this frame
func (p *Profiler) Record(samples ...Sample) {
	if !p.collectTimings {
		return
	}
	for _, s := range samples {
		sum := p.timingSums[s.Name]
		sum.Sync += s.Timings.Sync
		sum.Prepare += s.Timings.Prepare
		sum.Render += s.Timings.Render
		p.timingSums[s.Name] = sum
		p.timingCounts[s.Name]++
	}
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory and the
// average viewport timings.
//
// Returns:
//   - Stats: the interval summary, valid when the bool is true
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() (Stats, bool) {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return Stats{}, false
	}

	runtime.ReadMemStats(&p.memStats)
	stats := Stats{
		FPS:     float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:  float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:   float64(p.memStats.Sys) / 1024 / 1024,
		GCCount: p.memStats.NumGC,
	}
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	stats.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	if gcCount := stats.GCCount; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		stats.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			stats.MaxPauseUs = max(stats.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	common.Logger().Info("profiler",
		"fps", stats.FPS,
		"heap_mb", stats.HeapMB,
		"alloc_rate_mb", stats.AllocRateMB,
		"gc", stats.GCCount,
		"gc_last_us", stats.LastPauseUs,
		"gc_max_us", stats.MaxPauseUs,
		"sys_mb", stats.SysMB,
	)
	if len(p.timingCounts) > 0 {
		stats.Viewports = make(map[string]renderer.Timings, len(p.timingCounts))
		for name, n := range p.timingCounts {
			sum := p.timingSums[name]
			avg := renderer.Timings{
				Sync:    sum.Sync / time.Duration(n),
				Prepare: sum.Prepare / time.Duration(n),
				Render:  sum.Render / time.Duration(n),
			}
			stats.Viewports[name] = avg
			common.Logger().Info("profiler viewport", "viewport", name, "frames", n,
				"sync", avg.Sync, "prepare", avg.Prepare, "render", avg.Render)
		}
		clear(p.timingSums)
		clear(p.timingCounts)
	}

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = stats.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return stats, true
}
