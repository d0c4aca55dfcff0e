// Package config loads the renderer settings file. Settings are TOML, decoded over DefaultConfig so
// a file only needs the keys it changes. A few settings can be overridden from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/pelletier/go-toml/v2"
)

// EnvDumpRenderTimes enables render-time logging when set to "1".
const EnvDumpRenderTimes = "OXY_DUMP_RENDERTIMES"

// ErrInvalidSetting is returned when a settings file holds an unknown or out-of-range value.
var ErrInvalidSetting = errors.New("config: invalid setting")

// Config is the renderer settings file.
type Config struct {
	Render  RenderConfig  `toml:"render"`
	Picking PickingConfig `toml:"picking"`
	Debug   DebugConfig   `toml:"debug"`
}

// RenderConfig holds the default antialiasing and presentation settings.
type RenderConfig struct {
	// AAMode is one of "none", "msaa", "ssaa" or "progressive".
	AAMode string `toml:"aa_mode"`
	// AAQuality is one of "medium", "high" or "veryhigh".
	AAQuality          string  `toml:"aa_quality"`
	TemporalAA         bool    `toml:"temporal_aa"`
	TemporalAAStrength float32 `toml:"temporal_aa_strength"`
	// MSAAFallback lets MSAA degrade to the nearest supported sample count instead of failing validation.
	MSAAFallback bool `toml:"msaa_fallback"`
	// PresentMode is "vsync" or "uncapped".
	PresentMode string `toml:"present_mode"`
	// ForceSoftware renders with the recording device instead of the GPU.
	ForceSoftware bool `toml:"force_software"`
}

// PickingConfig sizes the picking worker pool.
type PickingConfig struct {
	Workers int `toml:"workers"`
}

// DebugConfig holds diagnostic toggles.
type DebugConfig struct {
	DumpRenderTimes bool `toml:"dump_render_times"`
	Wireframe       bool `toml:"wireframe"`
	// ProfileSeconds is the profiler log interval; zero disables the profiler.
	ProfileSeconds float64 `toml:"profile_seconds"`
}

var aaModes = map[string]graph.AntialiasingMode{
	"none":        graph.AntialiasingNone,
	"msaa":        graph.AntialiasingMSAA,
	"ssaa":        graph.AntialiasingSSAA,
	"progressive": graph.AntialiasingProgressive,
}

var aaQualities = map[string]graph.AntialiasingQuality{
	"medium":   graph.QualityMedium,
	"high":     graph.QualityHigh,
	"veryhigh": graph.QualityVeryHigh,
}

var presentModes = map[string]rhi.PresentMode{
	"vsync":    rhi.PresentModeVSync,
	"uncapped": rhi.PresentModeUncapped,
}

// DefaultConfig returns the settings used when no file is given.
//
// Returns:
//   - Config: the defaults
func DefaultConfig() Config {
	return Config{
		Render: RenderConfig{
			AAMode:             "none",
			AAQuality:          "high",
			TemporalAAStrength: 0.3,
			MSAAFallback:       true,
			PresentMode:        "vsync",
		},
		Picking: PickingConfig{
			Workers: 4,
		},
	}
}

// Load reads a settings file over the defaults and applies environment overrides. A missing file
// yields the defaults.
//
// Parameters:
//   - path: the TOML file
//
// Returns:
//   - Config: the settings
//   - error: an error if the file cannot be read or parsed, or a value is invalid
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		applyEnv(&cfg)
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg as TOML, creating the parent directory if needed.
//
// Parameters:
//   - path: the destination file
//   - cfg: the settings
//
// Returns:
//   - error: an error if cfg is invalid or the file cannot be written
func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: failed to marshal settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}

// DumpRenderTimesFromEnv reports whether EnvDumpRenderTimes is set to "1".
//
// Returns:
//   - bool: true if render times should be logged
func DumpRenderTimesFromEnv() bool {
	return os.Getenv(EnvDumpRenderTimes) == "1"
}

func applyEnv(cfg *Config) {
	if DumpRenderTimesFromEnv() {
		cfg.Debug.DumpRenderTimes = true
	}
}

// Validate checks every enumerated value and range.
//
// Returns:
//   - error: an error wrapping ErrInvalidSetting naming the first bad key
func (c Config) Validate() error {
	if _, _, err := c.Antialiasing(); err != nil {
		return err
	}
	if _, err := c.PresentMode(); err != nil {
		return err
	}
	if c.Render.TemporalAAStrength < 0 {
		return fmt.Errorf("%w: render.temporal_aa_strength %v is negative", ErrInvalidSetting, c.Render.TemporalAAStrength)
	}
	if c.Picking.Workers < 1 {
		return fmt.Errorf("%w: picking.workers must be at least 1, got %d", ErrInvalidSetting, c.Picking.Workers)
	}
	if c.Debug.ProfileSeconds < 0 {
		return fmt.Errorf("%w: debug.profile_seconds %v is negative", ErrInvalidSetting, c.Debug.ProfileSeconds)
	}
	return nil
}

// Antialiasing returns the AA mode and quality named by the render section.
//
// Returns:
//   - graph.AntialiasingMode: the mode
//   - graph.AntialiasingQuality: the quality
//   - error: an error wrapping ErrInvalidSetting for an unknown name
func (c Config) Antialiasing() (graph.AntialiasingMode, graph.AntialiasingQuality, error) {
	mode, ok := aaModes[strings.ToLower(c.Render.AAMode)]
	if !ok {
		return 0, 0, fmt.Errorf("%w: render.aa_mode %q", ErrInvalidSetting, c.Render.AAMode)
	}
	quality, ok := aaQualities[strings.ToLower(c.Render.AAQuality)]
	if !ok {
		return 0, 0, fmt.Errorf("%w: render.aa_quality %q", ErrInvalidSetting, c.Render.AAQuality)
	}
	return mode, quality, nil
}

// PresentMode returns the present mode named by the render section.
//
// Returns:
//   - rhi.PresentMode: the mode
//   - error: an error wrapping ErrInvalidSetting for an unknown name
func (c Config) PresentMode() (rhi.PresentMode, error) {
	mode, ok := presentModes[strings.ToLower(c.Render.PresentMode)]
	if !ok {
		return 0, fmt.Errorf("%w: render.present_mode %q", ErrInvalidSetting, c.Render.PresentMode)
	}
	return mode, nil
}
