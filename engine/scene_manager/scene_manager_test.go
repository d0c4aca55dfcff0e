package scene_manager

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/buffer_manager"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/object"
	"github.com/Carmen-Shannon/oxy-scene/engine/render_context"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type releaseRecorder struct {
	handles []graph.Handle
}

func (r *releaseRecorder) sink(h graph.Handle) { r.handles = append(r.handles, h) }

func newManager(t *testing.T) (SceneManager, render_context.RenderContext, *releaseRecorder, *int) {
	t.Helper()
	rc := render_context.NewRenderContext(nil)
	rec := &releaseRecorder{}
	requests := 0
	sm := NewSceneManager(
		WithRenderContext(rc),
		WithReleaseSink(rec.sink),
		WithUpdateRequestCallback(func() { requests++ }),
	)
	return sm, rc, rec, &requests
}

func synchronize(sm SceneManager) bool {
	sm.CleanupNodes()
	shared := sm.UpdateDirtyResourceNodes()
	sm.UpdateDirtySpatialNodes()
	return shared
}

func TestSpatialNodesAttachUnderParentAndRoot(t *testing.T) {
	sm, rc, _, requests := newManager(t)
	parent := object.NewNode(object.WithName("parent"))
	child := object.NewModel("#Cube")
	child.SetParent(parent)
	sm.Attach(parent)
	assert.Positive(t, *requests)

	synchronize(sm)
	arena := rc.Arena()

	rootH := sm.SceneRoot().Handle()
	parentH, childH := parent.Handle(), child.Handle()
	require.True(t, arena.Contains(rootH))
	require.True(t, arena.Contains(parentH))
	require.True(t, arena.Contains(childH))

	assert.Equal(t, rootH, graph.SpatialOf(arena, parentH).Parent)
	assert.Equal(t, parentH, graph.SpatialOf(arena, childH).Parent)
	assert.Same(t, child, sm.LookUpNode(childH))
	assert.Equal(t, childH, graph.SpatialOf(arena, childH).InstanceRoot)
	assert.Zero(t, child.Dirty()&^object.DirtyBounds)
}

func TestUpdateDirtyNodeProducesParentOnDemand(t *testing.T) {
	sm, rc, _, _ := newManager(t)
	parent := object.NewNode()
	child := object.NewNode()
	child.SetParent(parent)
	sm.Attach(parent)

	sm.UpdateDirtyNode(child)
	require.True(t, rc.Arena().Contains(parent.Handle()))
	assert.Equal(t, parent.Handle(), graph.SpatialOf(rc.Arena(), child.Handle()).Parent)
	assert.Zero(t, parent.QueueTicket(), "the parent was unlinked when produced on demand")
}

func TestChildrenFollowDeclarationOrder(t *testing.T) {
	sm, rc, _, _ := newManager(t)
	parent := object.NewNode()
	a, b, c := object.NewNode(), object.NewNode(), object.NewNode()
	for _, n := range []*object.Node{a, b, c} {
		n.SetParent(parent)
	}
	sm.Attach(parent)

	sm.UpdateDirtyNode(parent)
	sm.UpdateDirtyNode(c)
	sm.UpdateDirtyNode(a)
	sm.UpdateDirtyNode(b)

	pn := graph.SpatialOf(rc.Arena(), parent.Handle())
	assert.Equal(t, []graph.Handle{a.Handle(), b.Handle(), c.Handle()}, pn.Children)
}

func TestReparentMovesBackendNode(t *testing.T) {
	sm, rc, _, _ := newManager(t)
	first, second := object.NewNode(), object.NewNode()
	child := object.NewNode()
	child.SetParent(first)
	sm.Attach(first)
	sm.Attach(second)
	synchronize(sm)

	child.SetParent(second)
	synchronize(sm)
	arena := rc.Arena()
	assert.Equal(t, second.Handle(), graph.SpatialOf(arena, child.Handle()).Parent)
	assert.Empty(t, graph.SpatialOf(arena, first.Handle()).Children)
}

func TestCleanupIsIdempotentAndHidesNode(t *testing.T) {
	sm, rc, rec, _ := newManager(t)
	model := object.NewModel("#Cube")
	node := object.NewNode()
	sm.Attach(model)
	sm.Attach(node)
	synchronize(sm)

	modelH, nodeH := model.Handle(), node.Handle()
	sm.Cleanup(modelH)
	sm.Cleanup(modelH)
	model.Destroy()
	node.Destroy()
	assert.Nil(t, sm.LookUpNode(modelH))
	assert.Nil(t, sm.LookUpNode(nodeH))

	arena := rc.Arena()
	assert.True(t, arena.Contains(modelH), "cleanup frees nothing by itself")

	sm.CleanupNodes()
	assert.Equal(t, []graph.Handle{modelH}, rec.handles)
	assert.False(t, arena.Contains(modelH), "retired until the release sink frees it")
	assert.False(t, arena.Contains(nodeH))
	_, taken := arena.Take(modelH)
	assert.True(t, taken)
	assert.False(t, arena.Free(nodeH), "plain nodes are freed immediately")

	sm.CleanupNodes()
	assert.Len(t, rec.handles, 1)
}

func TestDestroyedParentOrphansReattachToRoot(t *testing.T) {
	sm, rc, _, _ := newManager(t)
	parent := object.NewNode()
	child := object.NewNode()
	child.SetParent(parent)
	sm.Attach(parent)
	synchronize(sm)

	parent.Destroy()
	synchronize(sm)
	assert.Equal(t, sm.SceneRoot().Handle(), graph.SpatialOf(rc.Arena(), child.Handle()).Parent)
}

func TestResourcesReportSharedChanges(t *testing.T) {
	sm, rc, _, _ := newManager(t)
	mat := object.NewMaterial(graph.MaterialDefault)
	sm.Attach(mat)
	assert.False(t, synchronize(sm))
	assert.True(t, rc.Arena().Contains(mat.Handle()))

	td := object.NewTextureData(1, 1, []byte{255, 255, 255, 255})
	tex := object.NewTexture(object.WithTextureData(td))
	sm.Attach(tex)
	assert.True(t, synchronize(sm))

	img, ok := graph.Lookup[*graph.Image](rc.Arena(), tex.Handle())
	require.True(t, ok)
	assert.Equal(t, td.Handle(), img.Source)
	assert.False(t, synchronize(sm))
}

func TestLightsResolveScopeAfterSpatialNodes(t *testing.T) {
	sm, rc, _, _ := newManager(t)
	light := object.NewLight(graph.LightPoint)
	sm.Attach(light)
	scope := object.NewNode()
	light.SetScope(scope)
	sm.Attach(scope)

	synchronize(sm)
	gl, ok := graph.Lookup[*graph.Light](rc.Arena(), light.Handle())
	require.True(t, ok)
	assert.Equal(t, scope.Handle(), gl.Scope)
}

func TestNoRenderContextKeepsDirtyBits(t *testing.T) {
	sm := NewSceneManager()
	node := object.NewNode()
	sm.Attach(node)
	synchronize(sm)
	assert.False(t, node.Handle().IsValid())
	assert.Equal(t, object.DirtyAll, node.Dirty())

	rc := render_context.NewRenderContext(nil)
	sm.SetRenderContext(rc)
	node.SetPosition(mgl32.Vec3{1, 0, 0})
	synchronize(sm)
	assert.True(t, rc.Arena().Contains(node.Handle()))
}

func TestUnlinkedObjectsAreSkipped(t *testing.T) {
	sm, _, _, _ := newManager(t)
	node := object.NewNode()
	sm.Attach(node)
	sm.Unlink(node)
	synchronize(sm)
	assert.False(t, node.Handle().IsValid())

	sm.MarkDirty(node)
	synchronize(sm)
	assert.True(t, node.Handle().IsValid())
}

func TestDirtyItemOnlySchedulesAFrame(t *testing.T) {
	sm, _, _, requests := newManager(t)
	node := object.NewNode()
	sm.Attach(node)
	sm.Unlink(node)

	before := *requests
	sm.DirtyItem(node)
	assert.Equal(t, before+1, *requests)
	assert.Zero(t, node.QueueTicket())

	synchronize(sm)
	assert.False(t, node.Handle().IsValid(), "DirtyItem does not queue the object")
}

func TestReplacedNodeLeavesHierarchyImmediately(t *testing.T) {
	sm, rc, _, _ := newManager(t)
	parent := object.NewNode()
	light := object.NewLight(graph.LightPoint)
	light.SetParent(parent)
	sm.Attach(parent)
	synchronize(sm)
	arena := rc.Arena()

	// A camera in the light's slot makes the next update produce a node of another type.
	camH := arena.Insert(graph.NewCamera())
	require.True(t, arena.AddChild(parent.Handle(), camH))
	grandchild := arena.Insert(graph.NewNode())
	require.True(t, arena.AddChild(camH, grandchild))
	light.SetHandle(camH)

	sm.UpdateDirtyNode(light)

	assert.NotEqual(t, camH, light.Handle())
	assert.NotContains(t, graph.SpatialOf(arena, parent.Handle()).Children, camH)
	assert.Contains(t, graph.SpatialOf(arena, parent.Handle()).Children, light.Handle())
	assert.False(t, graph.SpatialOf(arena, camH).Parent.IsValid())
	assert.Empty(t, graph.SpatialOf(arena, camH).Children)
	assert.False(t, graph.SpatialOf(arena, grandchild).Parent.IsValid())
	assert.True(t, arena.Contains(camH), "the arena slot is released by the cleanup pass")

	synchronize(sm)
	assert.False(t, arena.Contains(camH))
}

func TestSubsceneTextureWaitsForItem(t *testing.T) {
	sm, rc, _, _ := newManager(t)
	item := object.NewItem2D(common.Size{Width: 32, Height: 16}, nil)
	tex := object.NewTexture(object.WithSourceItem(item))
	sm.Attach(tex)
	sm.Attach(item)

	synchronize(sm)
	assert.False(t, tex.Handle().IsValid(), "images drain before the item exists")
	assert.NotZero(t, tex.QueueTicket(), "producing the item re-queued the texture")

	synchronize(sm)
	img, ok := graph.Lookup[*graph.Image](rc.Arena(), tex.Handle())
	require.True(t, ok)
	assert.Equal(t, item.Handle(), img.Subscene)
}

func TestUpdateBoundingBoxes(t *testing.T) {
	sm, rc, _, _ := newManager(t)
	model := object.NewModel(buffer_manager.MeshCube)
	var got common.AABB
	model.SetBoundsChangedCallback(func(b common.AABB) { got = b })
	sm.Attach(model)
	synchronize(sm)

	sm.UpdateBoundingBoxes(rc.BufferManager())
	assert.Equal(t, mgl32.Vec3{-50, -50, -50}, got.Min)
	assert.Equal(t, mgl32.Vec3{50, 50, 50}, got.Max)
	assert.False(t, model.HasDirty(object.DirtyBounds))

	gm, ok := graph.Lookup[*graph.Model](rc.Arena(), model.Handle())
	require.True(t, ok)
	assert.Equal(t, got, gm.Bounds)
}

func TestResourceLoadersExpandMaterials(t *testing.T) {
	sm, rc, _, _ := newManager(t)
	td := object.NewTextureData(1, 1, []byte{255, 0, 0, 255})
	tex := object.NewTexture(object.WithTextureData(td))
	mat := object.NewMaterial(graph.MaterialDefault, object.WithBaseColorMap(tex))
	geo := object.NewGeometry([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, nil, nil, []uint32{0, 1, 2})
	loader := object.NewResourceLoader(mat, geo, tex)
	sm.Attach(loader)
	synchronize(sm)
	synchronize(sm)

	assert.Equal(t, []graph.Handle{tex.Handle(), geo.Handle()}, sm.ResourceLoaders())

	loader.Destroy()
	sm.CleanupNodes()
	assert.Empty(t, sm.ResourceLoaders())
	assert.True(t, rc.Arena().Contains(mat.Handle()))
}

func TestCloseReleasesEverything(t *testing.T) {
	sm, rc, rec, _ := newManager(t)
	model := object.NewModel("#Sphere")
	node := object.NewNode()
	model.SetParent(node)
	sm.Attach(node)
	synchronize(sm)
	modelH := model.Handle()

	sm.Close()
	assert.Equal(t, []graph.Handle{modelH}, rec.handles)
	assert.Nil(t, model.Manager())
	assert.Nil(t, sm.LookUpNode(modelH))
	assert.Equal(t, 1, rc.Arena().Len(), "only the retired model waits for its release")

	node.SetPosition(mgl32.Vec3{1, 1, 1})
	sm.Close()
	assert.Len(t, rec.handles, 1)
}
