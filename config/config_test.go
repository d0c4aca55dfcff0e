package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv(EnvDumpRenderTimes, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadDecodesOverDefaults(t *testing.T) {
	t.Setenv(EnvDumpRenderTimes, "")
	path := filepath.Join(t.TempDir(), "oxy.toml")
	require.NoError(t, os.WriteFile(path, []byte("[render]\naa_mode = \"progressive\"\naa_quality = \"veryhigh\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	mode, quality, err := cfg.Antialiasing()
	require.NoError(t, err)
	assert.Equal(t, graph.AntialiasingProgressive, mode)
	assert.Equal(t, graph.QualityVeryHigh, quality)
	assert.Equal(t, 4, cfg.Picking.Workers)
	assert.Equal(t, "vsync", cfg.Render.PresentMode)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv(EnvDumpRenderTimes, "")
	dir := t.TempDir()
	cases := map[string]string{
		"mode":    "[render]\naa_mode = \"fxaa\"\n",
		"quality": "[render]\naa_quality = \"ultra\"\n",
		"present": "[render]\npresent_mode = \"triple\"\n",
		"workers": "[picking]\nworkers = 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			assert.ErrorIs(t, err, ErrInvalidSetting)
		})
	}
}

func TestLoadReportsParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[render\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSetting)
}

func TestEnvOverridesDumpRenderTimes(t *testing.T) {
	t.Setenv(EnvDumpRenderTimes, "1")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.True(t, cfg.Debug.DumpRenderTimes)
	assert.True(t, DumpRenderTimesFromEnv())

	t.Setenv(EnvDumpRenderTimes, "0")
	assert.False(t, DumpRenderTimesFromEnv())
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv(EnvDumpRenderTimes, "")
	path := filepath.Join(t.TempDir(), "nested", "oxy.toml")
	cfg := DefaultConfig()
	cfg.Render.AAMode = "msaa"
	cfg.Render.PresentMode = "uncapped"
	cfg.Debug.Wireframe = true

	require.NoError(t, Save(path, cfg))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	mode, err := got.PresentMode()
	require.NoError(t, err)
	assert.Equal(t, rhi.PresentModeUncapped, mode)
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Render.AAMode = "bogus"
	err := Save(filepath.Join(t.TempDir(), "oxy.toml"), cfg)
	assert.ErrorIs(t, err, ErrInvalidSetting)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	t.Setenv(EnvDumpRenderTimes, "")
	path := filepath.Join(t.TempDir(), "oxy.toml")
	require.NoError(t, Save(path, DefaultConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloads := make(chan Config, 8)
	require.NoError(t, Watch(ctx, path, func(cfg Config, err error) {
		if err == nil {
			reloads <- cfg
		}
	}))

	cfg := DefaultConfig()
	cfg.Picking.Workers = 7
	require.NoError(t, Save(path, cfg))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-reloads:
			if got.Picking.Workers == 7 {
				return
			}
		case <-deadline:
			t.Fatal("settings were not reloaded")
		}
	}
}
