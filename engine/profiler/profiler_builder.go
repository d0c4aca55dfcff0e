package profiler

import "time"

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often stats are logged.
//
// Parameters:
//   - d: the log interval
//
// Returns:
//   - ProfilerBuilderOption: the option
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithRenderTimings enables averaging viewport render timings into each log line.
//
// Parameters:
//   - enabled: whether Record collects timings
//
// Returns:
//   - ProfilerBuilderOption: the option
func WithRenderTimings(enabled bool) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.collectTimings = enabled
	}
}

// WithClock replaces the time source.
//
// Parameters:
//   - now: returns the current time
//
// Returns:
//   - ProfilerBuilderOption: the option
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}
