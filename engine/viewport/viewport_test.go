package viewport

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/object"
	"github.com/Carmen-Shannon/oxy-scene/engine/picking"
	"github.com/Carmen-Shannon/oxy-scene/engine/render_context"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi/rhitest"
	"github.com/Carmen-Shannon/oxy-scene/engine/window_attachment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWindow common.WindowHandle = 3

var red = common.Color{R: 1, A: 1}

type recorder struct {
	events []common.PointerEvent
}

func (r *recorder) HandlePointer(ev common.PointerEvent) bool {
	r.events = append(r.events, ev)
	return true
}

type fixture struct {
	dev *rhitest.Device
	rc  render_context.RenderContext
	reg *window_attachment.Registry
}

func newFixture() *fixture {
	dev := rhitest.NewDevice()
	dev.ConfigureSurface(common.Size{Width: 200, Height: 200})
	return &fixture{dev: dev, rc: render_context.NewRenderContext(dev), reg: window_attachment.NewRegistry()}
}

// viewport creates a 100x100 viewport at (10, 20) looking at a red cube from z=600.
func (f *fixture) viewport(t *testing.T, options ...ViewportBuilderOption) (Viewport, *object.Model) {
	t.Helper()
	cam := object.NewCamera(object.WithCameraNode(object.WithPosition(0, 0, 600)))
	options = append([]ViewportBuilderOption{
		WithCamera(cam),
		WithGeometry(common.Rect{X: 10, Y: 20, Width: 100, Height: 100}, 1),
	}, options...)
	v := NewViewport(f.reg, testWindow, options...)

	mat := object.NewMaterial(graph.MaterialDefault, object.WithBaseColor(red), object.WithUnlit())
	cube := object.NewModel("#Cube",
		object.WithModelNode(object.WithName("cube"), object.WithPickable(true)),
		object.WithModelMaterials(mat))
	v.SceneManager().Attach(cube)
	return v, cube
}

func (f *fixture) frame(t *testing.T, content func(rhi.CommandBuffer), viewports ...Viewport) {
	t.Helper()
	for _, v := range viewports {
		require.True(t, v.Synchronize(f.rc))
	}
	f.dev.ResetOps()
	cb, err := f.dev.BeginFrame()
	require.NoError(t, err)
	Compose(Frame{CB: cb, Surface: common.Size{Width: 200, Height: 200}, Content: content}, viewports...)
	require.NoError(t, f.dev.EndFrame())
}

func host(cb rhi.CommandBuffer) {
	cb.Draw(rhi.DrawItem{Label: "host"})
}

// surfaceDraws returns the draw labels recorded into the surface pass.
func (f *fixture) surfaceDraws() []string {
	var out []string
	inSurface := false
	for _, op := range f.dev.Ops() {
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

func TestOffscreenCompositesTextureAfterHostContent(t *testing.T) {
	f := newFixture()
	v, _ := f.viewport(t, WithName("view"))
	f.frame(t, host, v)

	tex := v.Texture()
	require.NotNil(t, tex)
	assert.Equal(t, common.Size{Width: 100, Height: 100}, tex.Size())
	assert.Equal(t, red, tex.(*rhitest.Texture).Color)

	ops := f.dev.OpsOf(rhitest.OpBeginPass)
	require.Len(t, ops, 2)
	assert.NotEqual(t, rhitest.SurfaceLabel, ops[0].Target, "scene renders offscreen first")
	assert.Equal(t, rhitest.SurfaceLabel, ops[1].Target)
	assert.Equal(t, []string{"host", "view"}, f.surfaceDraws())
	assert.Equal(t, red, f.dev.Surface().Color)

	draws := f.dev.OpsOf(rhitest.OpDraw)
	composite := draws[len(draws)-1].Item
	assert.Same(t, tex, composite.Texture)
	assert.True(t, composite.Blend)
}

func TestDirectModesRecordIntoSurfacePass(t *testing.T) {
	cases := []struct {
		mode RenderMode
		want []string
	}{
		{RenderModeUnderlay, []string{"cube", "host"}},
		{RenderModeOverlay, []string{"host", "cube"}},
		{RenderModeInline, []string{"host", "cube"}},
	}
	for _, tc := range cases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			f := newFixture()
			v, _ := f.viewport(t, WithRenderMode(tc.mode))
			f.frame(t, host, v)

			assert.Len(t, f.dev.OpsOf(rhitest.OpBeginPass), 1, "no offscreen pass")
			assert.Equal(t, tc.want, f.surfaceDraws())
			assert.Nil(t, v.Texture())
		})
	}
}

func TestComposeOrdersViewports(t *testing.T) {
	f := newFixture()
	under, _ := f.viewport(t, WithName("under"), WithRenderMode(RenderModeUnderlay))
	over, _ := f.viewport(t, WithName("over"), WithRenderMode(RenderModeOverlay))
	off, _ := f.viewport(t, WithName("offscreen"))
	inline, _ := f.viewport(t, WithName("inline"), WithRenderMode(RenderModeInline))

	f.frame(t, host, over, off, inline, under)
	assert.Equal(t, []string{"cube", "host", "offscreen", "cube", "cube"}, f.surfaceDraws())
}

func TestRenderModesDrawTheSameScene(t *testing.T) {
	var drawn [][]string
	for _, mode := range []RenderMode{RenderModeOffscreen, RenderModeUnderlay, RenderModeOverlay} {
		f := newFixture()
		v, _ := f.viewport(t, WithRenderMode(mode))
		f.frame(t, nil, v)

		var labels []string
		for _, op := range f.dev.OpsOf(rhitest.OpDraw) {
			if op.Item.Texture == nil {
				labels = append(labels, op.Label)
			}
		}
		drawn = append(drawn, labels)
	}
	assert.Equal(t, []string{"cube"}, drawn[0])
	assert.Equal(t, drawn[0], drawn[1])
	assert.Equal(t, drawn[0], drawn[2])
}

func TestSetRenderModeRecreatesRenderer(t *testing.T) {
	f := newFixture()
	v, _ := f.viewport(t)
	f.frame(t, nil, v)
	first := v.Renderer()
	tex := v.Texture().(*rhitest.Texture)
	require.True(t, tex.Built())

	v.SetRenderMode(RenderModeOffscreen)
	assert.Same(t, first, v.Renderer(), "same mode keeps the renderer")

	v.SetRenderMode(RenderModeOverlay)
	assert.Nil(t, v.Renderer())
	assert.False(t, tex.Built(), "offscreen targets are released")
	assert.False(t, f.rc.Arena().Contains(first.Layer()))

	f.frame(t, nil, v)
	require.NotNil(t, v.Renderer())
	assert.NotEqual(t, first.Layer(), v.Renderer().Layer())
	assert.Equal(t, RenderModeOverlay, v.RenderMode())
	assert.Equal(t, []string{"cube"}, f.surfaceDraws())
}

func TestSynchronizeWithoutContextSkips(t *testing.T) {
	f := newFixture()
	v, _ := f.viewport(t)
	assert.False(t, v.Synchronize(nil))
	assert.Nil(t, v.Renderer())

	f.dev.ResetOps()
	cb, err := f.dev.BeginFrame()
	require.NoError(t, err)
	v.RenderFrame(Frame{CB: cb, Surface: common.Size{Width: 200, Height: 200}, Content: host})
	assert.Equal(t, []string{"host"}, f.surfaceDraws())
}

func TestInactiveViewportIsSkipped(t *testing.T) {
	f := newFixture()
	v, _ := f.viewport(t)
	v.SetActive(false)
	f.frame(t, host, v)
	assert.Equal(t, []string{"host"}, f.surfaceDraws())
	assert.Len(t, f.dev.OpsOf(rhitest.OpBeginPass), 1)
}

func TestNeedsFrameFollowsChanges(t *testing.T) {
	f := newFixture()
	updates := 0
	v, cube := f.viewport(t, WithUpdateCallback(func() { updates++ }))
	assert.True(t, v.NeedsFrame())

	f.frame(t, nil, v)
	assert.False(t, v.NeedsFrame())

	cube.SetVisible(false)
	assert.True(t, v.NeedsFrame())
	assert.Positive(t, updates)

	f.frame(t, nil, v)
	assert.False(t, v.NeedsFrame())
	v.Environment().SetAntialiasing(graph.AntialiasingProgressive, graph.QualityMedium)
	assert.True(t, v.NeedsFrame())

	f.frame(t, nil, v)
	assert.True(t, v.NeedsFrame(), "progressive AA keeps requesting frames")
}

func TestPickInViewportCoordinates(t *testing.T) {
	f := newFixture()
	v, cube := f.viewport(t)
	require.True(t, v.Synchronize(f.rc))

	hit, ok := v.Pick(50, 50)
	require.True(t, ok)
	assert.Equal(t, cube.Handle(), hit.Object)
	assert.Len(t, v.PickAll(50, 50), 1)
	assert.Len(t, v.PickSubset(50, 50, []object.Object{cube}), 1)
	assert.Empty(t, v.PickSubset(50, 50, []object.Object{v.Camera()}))
	assert.Empty(t, v.PickSubset(50, 50, nil))

	_, ok = v.Pick(150, 50)
	assert.False(t, ok)
}

func TestHandlePointerForwardsIntoSubscene(t *testing.T) {
	f := newFixture()
	var hits []picking.Result
	v, cube := f.viewport(t, WithPointerCallback(func(ev common.PointerEvent, hit picking.Result) bool {
		hits = append(hits, hit)
		return true
	}))
	cube.SetVisible(false)

	recv := &recorder{}
	item := object.NewItem2D(common.Size{Width: 200, Height: 100}, recv)
	v.SceneManager().Attach(item)
	require.True(t, v.Synchronize(f.rc))

	ev := common.PointerEvent{X: 60, Y: 70, Button: common.MouseButtonLeft, Action: common.PointerPress}
	assert.True(t, v.HandlePointer(ev))
	require.Len(t, recv.events, 1)
	got := recv.events[0]
	assert.InDelta(t, 100, got.X, 0.5)
	assert.InDelta(t, 50, got.Y, 0.5)
	assert.Equal(t, common.PointerPress, got.Action)
	assert.Empty(t, hits)

	assert.False(t, v.HandlePointer(ev.At(5, 5)), "outside the viewport")
	assert.Len(t, recv.events, 1)

	item.SetVisible(false)
	cube.SetVisible(true)
	require.True(t, v.Synchronize(f.rc))
	assert.True(t, v.HandlePointer(ev))
	require.Len(t, hits, 1)
	assert.Equal(t, cube.Handle(), hits[0].Object)
	assert.Len(t, recv.events, 1)
}

func TestCloseDetachesFromWindow(t *testing.T) {
	f := newFixture()
	v, cube := f.viewport(t)
	f.frame(t, nil, v)
	layer := v.Renderer().Layer()
	require.Equal(t, 1, f.reg.Len())

	v.Close()
	assert.Zero(t, f.reg.Len())
	assert.False(t, f.rc.Arena().Contains(layer))
	assert.False(t, cube.Handle().IsValid())
	assert.False(t, v.Synchronize(f.rc))
	assert.False(t, v.Active())
	_, ok := v.Pick(50, 50)
	assert.False(t, ok)

	v.Close()
}

func TestImportSceneIsShownAndKept(t *testing.T) {
	f := newFixture()
	other := NewViewport(f.reg, testWindow)
	defer other.Close()

	v, _ := f.viewport(t, WithImportScene(other.SceneManager()))
	mat := object.NewMaterial(graph.MaterialDefault, object.WithUnlit())
	other.SceneManager().Attach(object.NewModel("#Sphere",
		object.WithModelNode(object.WithName("imported"), object.WithPosition(150, 0, 0)),
		object.WithModelMaterials(mat)))

	f.frame(t, nil, v)
	assert.ElementsMatch(t, []string{"cube", "imported"}, labelsOf(f.dev.OpsOf(rhitest.OpDraw)))

	v.Close()
	assert.Equal(t, 1, f.reg.Len(), "the import scene stays attached to the window")
}

func labelsOf(ops []rhitest.Op) []string {
	var out []string
	for _, op := range ops {
		if op.Item.Texture == nil {
			out = append(out, op.Label)
		}
	}
	return out
}
