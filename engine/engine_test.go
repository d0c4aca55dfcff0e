package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/lightmapper"
	"github.com/Carmen-Shannon/oxy-scene/engine/object"
	"github.com/Carmen-Shannon/oxy-scene/engine/picking"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi/rhitest"
	"github.com/Carmen-Shannon/oxy-scene/engine/viewport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeadless(t *testing.T, options ...EngineBuilderOption) (*engine, *rhitest.Device) {
	t.Helper()
	e := NewEngine(append([]EngineBuilderOption{WithSurfaceSize(200, 100)}, options...)...).(*engine)
	dev, ok := e.rc.Device().(*rhitest.Device)
	require.True(t, ok, "headless engines render with the recording device")
	return e, dev
}

func cubeScene(v viewport.Viewport, name string, color common.Color) *object.Model {
	v.SetCamera(object.NewCamera(object.WithCameraNode(object.WithPosition(0, 0, 600))))
	mat := object.NewMaterial(graph.MaterialDefault, object.WithBaseColor(color), object.WithUnlit())
	cube := object.NewModel("#Cube",
		object.WithModelNode(object.WithName(name), object.WithPickable(true)),
		object.WithModelMaterials(mat))
	v.SceneManager().Attach(cube)
	return cube
}

func surfaceDraws(dev *rhitest.Device) []string {
	var out []string
	inSurface := false
	for _, op := range dev.Ops() {
		switch op.Kind {
		case rhitest.OpBeginPass:
			inSurface = op.Target == rhitest.SurfaceLabel
		case rhitest.OpEndPass:
			inSurface = false
		case rhitest.OpDraw:
			if inSurface {
				out = append(out, op.Label)
			}
		}
	}
	return out
}

func TestRenderFrameComposesViewportsInZOrder(t *testing.T) {
	e, dev := newHeadless(t)
	top := e.NewViewport(10, viewport.WithName("top"))
	bottom := e.NewViewport(-5, viewport.WithName("bottom"))
	cubeScene(top, "cube", common.Color{G: 1, A: 1})
	cubeScene(bottom, "cube", common.Color{R: 1, A: 1})
	e.SetContentCallback(func(cb rhi.CommandBuffer) {
		cb.Draw(rhi.DrawItem{Label: "host"})
	})

	require.True(t, e.needsFrame())
	dev.ResetOps()
	e.renderFrame(0.016)

	assert.Equal(t, []string{"host", "bottom", "top"}, surfaceDraws(dev))
	assert.Equal(t, 1, dev.Frames())
	rect, dpr := top.Geometry()
	assert.Equal(t, common.Rect{Width: 200, Height: 100}, rect)
	assert.Equal(t, float32(1), dpr)
	assert.Equal(t, 2, len(e.Viewports()))
	assert.Same(t, top, e.Viewport(10))
}

func TestRenderFrameSkipsInactiveViewports(t *testing.T) {
	e, dev := newHeadless(t)
	v := e.NewViewport(0, viewport.WithName("hidden"))
	cubeScene(v, "cube", common.Color{R: 1, A: 1})
	v.SetActive(false)

	dev.ResetOps()
	e.renderFrame(0.016)
	assert.Empty(t, surfaceDraws(dev))
	assert.Nil(t, v.Renderer())
}

func TestIdleWhenNothingChanged(t *testing.T) {
	e, _ := newHeadless(t)
	v := e.NewViewport(0)
	cubeScene(v, "cube", common.Color{R: 1, A: 1})
	e.renderFrame(0.016)
	e.renderFrame(0.016)
	assert.False(t, e.needsFrame())

	v.Environment().SetBackground(graph.BackgroundColor, common.Color{B: 1, A: 1})
	assert.True(t, e.needsFrame())
	e.renderFrame(0.016)
	assert.False(t, e.needsFrame())
}

func TestRemoveViewportCloses(t *testing.T) {
	e, _ := newHeadless(t)
	v := e.NewViewport(0)
	e.renderFrame(0.016)
	require.Equal(t, 1, e.Registry().Len())

	e.RemoveViewport(0)
	assert.Nil(t, e.Viewport(0))
	assert.Equal(t, 0, e.Registry().Len())
	assert.False(t, v.Synchronize(e.rc))
}

func TestResizeStretchesFullWindowViewports(t *testing.T) {
	e, dev := newHeadless(t)
	full := e.NewViewport(0)
	inset := e.NewViewport(1, viewport.WithGeometry(common.Rect{X: 10, Y: 10, Width: 50, Height: 50}, 1))

	e.sendResize(common.Size{Width: 400, Height: 300})
	e.renderFrame(0.016)

	rect, _ := full.Geometry()
	assert.Equal(t, common.Rect{Width: 400, Height: 300}, rect)
	rect, _ = inset.Geometry()
	assert.Equal(t, common.Rect{X: 10, Y: 10, Width: 50, Height: 50}, rect)
	assert.Equal(t, common.Size{Width: 400, Height: 300}, dev.Surface().Size())
}

func TestPointerGoesToTopmostViewportFirst(t *testing.T) {
	e, _ := newHeadless(t)
	var got []string
	handler := func(name string) viewport.PointerCallback {
		return func(ev common.PointerEvent, hit picking.Result) bool {
			got = append(got, name)
			return hit.Object.IsValid()
		}
	}
	bottom := e.NewViewport(0, viewport.WithPointerCallback(handler("bottom")))
	top := e.NewViewport(1, viewport.WithPointerCallback(handler("top")),
		viewport.WithGeometry(common.Rect{Width: 90, Height: 100}, 1))
	cubeScene(bottom, "cube", common.Color{R: 1, A: 1})
	cubeScene(top, "cube", common.Color{G: 1, A: 1})
	e.renderFrame(0.016)

	// The top viewport covers the left part of the window; its cube sits at its center.
	assert.True(t, e.dispatchPointer(common.PointerEvent{X: 45, Y: 50, Action: common.PointerPress}))
	assert.Equal(t, []string{"top"}, got)

	got = nil
	assert.True(t, e.dispatchPointer(common.PointerEvent{X: 100, Y: 50, Action: common.PointerPress}))
	assert.Equal(t, []string{"bottom"}, got)

	got = nil
	assert.False(t, e.dispatchPointer(common.PointerEvent{X: 195, Y: 5, Action: common.PointerMove}))
	assert.Empty(t, got, "misses are not reported")
}

func TestApplySettingsUpdatesViewports(t *testing.T) {
	e, dev := newHeadless(t)
	v := e.NewViewport(0)

	cfg := config.DefaultConfig()
	cfg.Render.AAMode = "msaa"
	cfg.Render.AAQuality = "veryhigh"
	cfg.Render.PresentMode = "uncapped"
	require.NoError(t, e.ApplySettings(cfg))

	mode, quality := v.Environment().Antialiasing()
	assert.Equal(t, graph.AntialiasingMSAA, mode)
	assert.Equal(t, graph.QualityVeryHigh, quality)
	assert.Equal(t, rhi.PresentModeUncapped, dev.PresentMode())
	assert.Equal(t, "msaa", e.Settings().Render.AAMode)

	cfg.Render.AAMode = "fxaa"
	assert.ErrorIs(t, e.ApplySettings(cfg), config.ErrInvalidSetting)
	assert.Equal(t, "msaa", e.Settings().Render.AAMode)
}

func TestSettingsFileSetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("[render]\naa_mode = \"ssaa\"\n"), 0o644))

	e, _ := newHeadless(t, WithSettingsFile(path))
	assert.Equal(t, "ssaa", e.Settings().Render.AAMode)
	mode, _ := e.NewViewport(0).Environment().Antialiasing()
	assert.Equal(t, graph.AntialiasingSSAA, mode)
}

func TestBakeLightmapsLightsViewportModels(t *testing.T) {
	e, _ := newHeadless(t)
	v := e.NewViewport(0)
	cube := cubeScene(v, "cube", common.Color{R: 1, A: 1})
	cube.SetUsedInBakedLighting(true)
	sun := object.NewLight(graph.LightDirectional, object.WithBakeMode(graph.BakeAll))
	v.SceneManager().Attach(sun)

	var progress []lightmapper.Progress
	res, err := e.BakeLightmaps(0, func(p lightmapper.Progress) { progress = append(progress, p) })
	require.NoError(t, err)
	require.Len(t, res.Models, 1)
	assert.Len(t, progress, 1)
	assert.Positive(t, res.Vertices)

	_, err = e.BakeLightmaps(7, nil)
	assert.ErrorIs(t, err, ErrNoViewport)
}

func TestRunHeadlessUntilQuit(t *testing.T) {
	e, dev := newHeadless(t, WithTickRate(200))
	cubeScene(e.NewViewport(0), "cube", common.Color{R: 1, A: 1})

	ticks := make(chan struct{}, 1)
	e.SetTickCallback(func(float32) {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-ticks:
	case <-time.After(5 * time.Second):
		t.Fatal("engine never ticked")
	}
	require.Eventually(t, func() bool { return dev.Frames() > 0 }, 5*time.Second, 10*time.Millisecond)
	e.Quit()
	e.Quit()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
	assert.Empty(t, e.Viewports())
}
