package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/render_context"
	"github.com/Carmen-Shannon/oxy-scene/engine/window"
)

// EngineBuilderOption configures an Engine created by NewEngine.
type EngineBuilderOption func(*engine)

// WithProfiling turns the periodic frame rate and memory log on or off regardless of the
// profile_seconds setting.
//
// Parameters:
//   - enabled: true to log profiler stats
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets how often the tick callback runs. Scene edits made from the tick callback are
// picked up by the next rendered frame. Non-positive rates fall back to 60.
//
// Parameters:
//   - fps: ticks per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets the window the engine renders into. Without a window the engine runs headless
// on the recording device.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderContext renders with an existing render context instead of creating a device.
//
// Parameters:
//   - rc: the render context
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderContext(rc render_context.RenderContext) EngineBuilderOption {
	return func(e *engine) {
		e.rc = rc
	}
}

// WithSettings sets the renderer settings. A settings file given with WithSettingsFile wins.
//
// Parameters:
//   - cfg: the settings
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSettings(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.settings = cfg
	}
}

// WithSettingsFile loads the renderer settings from a TOML file and reloads them whenever the
// file changes while the engine runs.
//
// Parameters:
//   - path: the settings file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSettingsFile(path string) EngineBuilderOption {
	return func(e *engine) {
		e.settingsFile = path
	}
}

// WithSurfaceSize sets the surface size of a headless engine in device pixels. A window's own
// framebuffer size takes precedence.
//
// Parameters:
//   - width: surface width
//   - height: surface height
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSurfaceSize(width, height int) EngineBuilderOption {
	return func(e *engine) {
		e.surface = common.Size{Width: width, Height: height}
	}
}

// WithRenderFrameLimit caps how many frames the render goroutine produces per second while
// something keeps changing. Zero removes the cap.
//
// Parameters:
//   - fps: frame cap, 0 for none
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
