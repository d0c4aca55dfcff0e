package window_attachment

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/object"
	"github.com/Carmen-Shannon/oxy-scene/engine/render_context"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi/rhitest"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene_manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWindow common.WindowHandle = 7

func counting(n *int) scene_manager.SceneManagerBuilderOption {
	return scene_manager.WithUpdateRequestCallback(func() { *n++ })
}

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry()
	first := scene_manager.NewSceneManager()
	second := scene_manager.NewSceneManager()

	wa := reg.Attach(testWindow, first)
	assert.Same(t, wa, reg.Attach(testWindow, second))
	assert.Same(t, wa, reg.Acquire(testWindow))
	assert.Equal(t, []scene_manager.SceneManager{first, second}, wa.SceneManagers())
	assert.Equal(t, testWindow, wa.Window())

	wa.Attach(first)
	assert.Len(t, wa.SceneManagers(), 2)

	reg.Detach(testWindow, first)
	assert.Equal(t, 1, reg.Len())
	reg.Detach(testWindow, second)
	assert.Equal(t, 0, reg.Len())
	_, ok := reg.Lookup(testWindow)
	assert.False(t, ok)

	reg.Detach(testWindow, second)
}

func TestSynchronizeRunsEveryManager(t *testing.T) {
	rc := render_context.NewRenderContext(nil)
	wa := NewWindowAttachment(testWindow)
	a, b := scene_manager.NewSceneManager(), scene_manager.NewSceneManager()
	wa.Attach(a)
	wa.Attach(b)

	na, nb := object.NewNode(), object.NewModel("#Cube")
	a.Attach(na)
	b.Attach(nb)

	out := map[graph.Handle]struct{}{}
	assert.False(t, wa.Synchronize(rc, out))
	assert.True(t, rc.Arena().Contains(na.Handle()))
	assert.True(t, rc.Arena().Contains(nb.Handle()))
	assert.Same(t, rc, a.RenderContext())
	assert.False(t, nb.Bounds().IsEmpty(), "bounding boxes are read back in the same pass")
	assert.Empty(t, out)
}

func TestSharedResourceChangeRequestsEveryScene(t *testing.T) {
	rc := render_context.NewRenderContext(nil)
	wa := NewWindowAttachment(testWindow)
	var na, nb int
	a := scene_manager.NewSceneManager(counting(&na))
	b := scene_manager.NewSceneManager(counting(&nb))
	wa.Attach(a)
	wa.Attach(b)

	td := object.NewTextureData(1, 1, []byte{0, 0, 0, 255})
	a.Attach(td)
	wa.Synchronize(rc, nil)

	na, nb = 0, 0
	td.SetPixels(1, 1, []byte{255, 255, 255, 255})
	assert.True(t, wa.Synchronize(rc, nil))
	assert.Positive(t, nb, "the scene that did not change is asked to redraw")
	assert.Positive(t, na)
}

func TestResourceLoadersAreUnioned(t *testing.T) {
	rc := render_context.NewRenderContext(nil)
	wa := NewWindowAttachment(testWindow)
	a, b := scene_manager.NewSceneManager(), scene_manager.NewSceneManager()
	wa.Attach(a)
	wa.Attach(b)

	geo := object.NewGeometry([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, nil, nil, []uint32{0, 1, 2})
	a.Attach(object.NewResourceLoader(geo))
	b.Attach(object.NewResourceLoader(geo))

	out := map[graph.Handle]struct{}{}
	wa.Synchronize(rc, out)
	wa.Synchronize(rc, out)
	assert.Equal(t, map[graph.Handle]struct{}{geo.Handle(): {}}, out)
}

func TestSharedTextureDestroyedOnceAcrossScenes(t *testing.T) {
	d := rhitest.NewDevice()
	rc := render_context.NewRenderContext(d)
	reg := NewRegistry()
	owner, user := scene_manager.NewSceneManager(), scene_manager.NewSceneManager()
	wa := reg.Attach(testWindow, owner)
	reg.Attach(testWindow, user)

	tex := object.NewTexture(object.WithTextureData(object.NewTextureData(1, 1, []byte{255, 0, 0, 255})))
	owner.Attach(tex)
	mat := object.NewMaterial(graph.MaterialDefault, object.WithBaseColorMap(tex))
	user.Attach(mat)
	assert.Same(t, owner, tex.Manager(), "the first scene keeps ownership")

	wa.Synchronize(rc, nil)
	texH := tex.Handle()
	_, err := rc.BufferManager().LoadRenderImage(rc.Arena(), texH)
	require.NoError(t, err)
	require.Equal(t, 1, d.LiveResources())

	tex.Destroy()
	wa.Synchronize(rc, nil)
	assert.False(t, rc.Arena().Contains(texH), "retired handles are hidden at once")
	assert.Equal(t, 1, wa.PendingReleases())

	wa.QueueResourceRelease(texH)
	assert.Equal(t, 1, wa.PendingReleases())

	assert.Equal(t, 1, wa.ReleaseCachedResources(rc))
	assert.Empty(t, rc.BufferManager().RegisteredImages())
	assert.Equal(t, 0, d.LiveResources())

	wa.QueueResourceRelease(texH)
	assert.Equal(t, 0, wa.ReleaseCachedResources(rc), "a freed handle is never released twice")
}

func TestDetachingLastManagerFlushesReleases(t *testing.T) {
	rc := render_context.NewRenderContext(nil)
	reg := NewRegistry()
	sm := scene_manager.NewSceneManager(scene_manager.WithRenderContext(rc))
	wa := reg.Attach(testWindow, sm)

	model := object.NewModel("#Cube")
	sm.Attach(model)
	wa.Synchronize(rc, nil)
	h := model.Handle()

	sm.Close()
	assert.Equal(t, 1, wa.PendingReleases())
	reg.Detach(testWindow, sm)
	assert.Equal(t, 0, wa.PendingReleases())
	_, live := rc.Arena().Take(h)
	assert.False(t, live)
}

func TestResynchronizingUnchangedScenesIsIdempotent(t *testing.T) {
	rc := render_context.NewRenderContext(nil)
	wa := NewWindowAttachment(testWindow)
	sm := scene_manager.NewSceneManager()
	wa.Attach(sm)

	mat := object.NewMaterial(graph.MaterialDefault)
	sm.Attach(object.NewNode())
	sm.Attach(object.NewModel("#Cube", object.WithModelMaterials(mat)))
	sm.Attach(object.NewLight(graph.LightDirectional))
	wa.Synchronize(rc, nil)

	rev, n := rc.Arena().Revision(), rc.Arena().Len()
	assert.False(t, wa.Synchronize(rc, nil))
	assert.Equal(t, rev, rc.Arena().Revision())
	assert.Equal(t, n, rc.Arena().Len())
}

func TestResourcesResolveAcrossManagersInOnePass(t *testing.T) {
	rc := render_context.NewRenderContext(nil)
	wa := NewWindowAttachment(testWindow)
	a, b := scene_manager.NewSceneManager(), scene_manager.NewSceneManager()
	wa.Attach(a)
	wa.Attach(b)

	mat := object.NewMaterial(graph.MaterialDefault)
	b.Attach(mat)
	model := object.NewModel("#Cube", object.WithModelMaterials(mat))
	a.Attach(model)
	require.Same(t, b, mat.Manager())

	wa.Synchronize(rc, nil)
	gm, ok := graph.Lookup[*graph.Model](rc.Arena(), model.Handle())
	require.True(t, ok)
	require.True(t, mat.Handle().IsValid())
	assert.Equal(t, []graph.Handle{mat.Handle()}, gm.Materials)
}

func TestDestroyedSharedTextureLeavesEveryLoaderSet(t *testing.T) {
	d := rhitest.NewDevice()
	rc := render_context.NewRenderContext(d)
	wa := NewWindowAttachment(testWindow)
	a, b := scene_manager.NewSceneManager(), scene_manager.NewSceneManager()
	wa.Attach(a)
	wa.Attach(b)

	tex := object.NewTexture(object.WithTextureData(object.NewTextureData(1, 1, []byte{0, 255, 0, 255})))
	a.Attach(tex)
	matA := object.NewMaterial(graph.MaterialDefault, object.WithBaseColorMap(tex))
	matB := object.NewMaterial(graph.MaterialDefault, object.WithBaseColorMap(tex))
	a.Attach(object.NewResourceLoader(matA))
	b.Attach(object.NewResourceLoader(matB))

	out := map[graph.Handle]struct{}{}
	wa.Synchronize(rc, out)
	texH := tex.Handle()
	assert.Equal(t, map[graph.Handle]struct{}{texH: {}}, out)
	assert.Equal(t, []graph.Handle{texH}, a.ResourceLoaders())
	assert.Equal(t, []graph.Handle{texH}, b.ResourceLoaders())
	_, err := rc.BufferManager().LoadRenderImage(rc.Arena(), texH)
	require.NoError(t, err)
	require.Equal(t, 1, d.LiveResources())

	tex.Destroy()
	out = map[graph.Handle]struct{}{}
	wa.Synchronize(rc, out)
	assert.Empty(t, out)
	assert.Empty(t, a.ResourceLoaders())
	assert.Empty(t, b.ResourceLoaders())

	assert.Equal(t, 1, wa.ReleaseCachedResources(rc))
	assert.Equal(t, 0, d.LiveResources())
	wa.Synchronize(rc, nil)
	assert.Equal(t, 0, wa.ReleaseCachedResources(rc))
}
