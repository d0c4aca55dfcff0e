// Package scene_manager turns dirty front-end objects into backend graph objects. One scene manager
// serves one scene; every scene manager on a window shares the window's render context.
package scene_manager

import (
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/buffer_manager"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/object"
	"github.com/Carmen-Shannon/oxy-scene/engine/render_context"
)

// SceneManager owns the dirty queues and the front-end to backend mapping of one scene.
type SceneManager interface {
	object.Manager

	// DirtyItem schedules a frame for an object its setters already linked. It does not queue obj.
	//
	// Parameters:
	//   - obj: the object whose dirty mask changed
	DirtyItem(obj object.Object)

	// UpdateDirtyResourceNodes drains the texture data queue, then images, then every other resource.
	//
	// Returns:
	//   - bool: true if a resource shared between scenes was touched
	UpdateDirtyResourceNodes() bool

	// UpdateDirtySpatialNodes drains the spatial queue, then lights, so light scopes see the final hierarchy.
	UpdateDirtySpatialNodes()

	// UpdateDirtyNode produces or updates the backend object of obj now, unlinking it from its queue.
	//
	// Parameters:
	//   - obj: the object to synchronize
	UpdateDirtyNode(obj object.Object)

	// UpdateBoundingBoxes reads the bounds of models that asked for them back into the front end.
	//
	// Parameters:
	//   - bm: the buffer manager holding the meshes
	UpdateBoundingBoxes(bm *buffer_manager.BufferManager)

	// CleanupNodes releases the backend objects queued by Cleanup. Objects holding device resources go
	// to the release sink; everything else is freed immediately.
	CleanupNodes()

	// LookUpNode returns the front-end object that produced h.
	//
	// Parameters:
	//   - h: the backend handle
	//
	// Returns:
	//   - object.Object: the front end, or nil if h is unknown or pending cleanup
	LookUpNode(h graph.Handle) object.Object

	// ResourceLoaders returns the live resources listed by every resource loader of the scene,
	// with materials expanded to their textures.
	//
	// Returns:
	//   - []graph.Handle: the resources in discovery order
	ResourceLoaders() []graph.Handle

	// SetRenderContext sets the window context the next synchronization produces into.
	//
	// Parameters:
	//   - rc: the render context, or nil
	SetRenderContext(rc render_context.RenderContext)

	// RenderContext returns the current render context.
	//
	// Returns:
	//   - render_context.RenderContext: the context, or nil
	RenderContext() render_context.RenderContext

	// SetReleaseSink sets where backend objects holding device resources are sent for deferred release.
	//
	// Parameters:
	//   - sink: the release queue, or nil to release immediately
	SetReleaseSink(sink func(graph.Handle))

	// SetUpdateRequestCallback sets the function called whenever the scene needs another frame.
	//
	// Parameters:
	//   - fn: the callback, or nil
	SetUpdateRequestCallback(fn func())

	// SceneRoot returns the node that parentless spatial objects attach to.
	//
	// Returns:
	//   - *object.Node: the scene root
	SceneRoot() *object.Node

	// Attach makes this manager own obj, its subtree and the resources it references.
	//
	// Parameters:
	//   - obj: the object to attach
	Attach(obj object.Object)

	// Close detaches every object and releases every backend object the manager produced.
	Close()
}

type queueEntry struct {
	obj    object.Object
	ticket uint64
}

type sceneManager struct {
	mu *sync.Mutex

	rc         render_context.RenderContext
	root       *object.Node
	queues     [object.CategoryCount][]queueEntry
	nextTicket uint64

	nodes        map[graph.Handle]object.Object
	cleanupList  []graph.Handle
	cleanupSet   map[graph.Handle]struct{}
	loaders      map[graph.Handle]struct{}
	boundsModels []*object.Model

	releaseSink   func(graph.Handle)
	updateRequest func()
	closed        bool
}

var _ SceneManager = &sceneManager{}

// NewSceneManager creates a scene manager with an empty scene root.
//
// Parameters:
//   - options: optional SceneManagerBuilderOption functions
//
// Returns:
//   - SceneManager: the new scene manager
func NewSceneManager(options ...SceneManagerBuilderOption) SceneManager {
	sm := &sceneManager{
		mu:         &sync.Mutex{},
		nodes:      make(map[graph.Handle]object.Object),
		cleanupSet: make(map[graph.Handle]struct{}),
		loaders:    make(map[graph.Handle]struct{}),
	}
	for _, opt := range options {
		opt(sm)
	}
	sm.root = object.NewNode(object.WithName("scene root"))
	sm.root.AttachTo(sm)
	return sm
}

func (sm *sceneManager) MarkDirty(obj object.Object) {
	b := obj.Base()
	sm.mu.Lock()
	if sm.closed || b.QueueTicket() != 0 {
		sm.mu.Unlock()
		return
	}
	sm.nextTicket++
	ticket := sm.nextTicket
	b.SetQueueTicket(ticket)
	cat := object.CategoryOf(obj.Type())
	sm.queues[cat] = append(sm.queues[cat], queueEntry{obj: obj, ticket: ticket})
	sm.mu.Unlock()
	sm.RequestUpdate()
}

func (sm *sceneManager) DirtyItem(object.Object) {
	sm.RequestUpdate()
}

// Unlink leaves the queue entry in place; a cleared ticket makes the drain skip it.
func (sm *sceneManager) Unlink(obj object.Object) {
	sm.mu.Lock()
	obj.Base().SetQueueTicket(0)
	sm.mu.Unlock()
}

func (sm *sceneManager) Cleanup(h graph.Handle) {
	if !h.IsValid() {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.nodes, h)
	if _, queued := sm.cleanupSet[h]; queued {
		return
	}
	sm.cleanupSet[h] = struct{}{}
	sm.cleanupList = append(sm.cleanupList, h)
}

func (sm *sceneManager) RequestUpdate() {
	sm.mu.Lock()
	fn := sm.updateRequest
	sm.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (sm *sceneManager) SetUpdateRequestCallback(fn func()) {
	sm.mu.Lock()
	sm.updateRequest = fn
	sm.mu.Unlock()
}

func (sm *sceneManager) SetReleaseSink(sink func(graph.Handle)) {
	sm.mu.Lock()
	sm.releaseSink = sink
	sm.mu.Unlock()
}

func (sm *sceneManager) SetRenderContext(rc render_context.RenderContext) {
	sm.mu.Lock()
	sm.rc = rc
	sm.mu.Unlock()
}

func (sm *sceneManager) RenderContext() render_context.RenderContext {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.rc
}

func (sm *sceneManager) SceneRoot() *object.Node {
	return sm.root
}

func (sm *sceneManager) Attach(obj object.Object) {
	if obj == nil {
		return
	}
	obj.Base().AttachTo(sm)
}

func (sm *sceneManager) LookUpNode(h graph.Handle) object.Object {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.nodes[h]
}

func (sm *sceneManager) arena() *graph.Arena {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.rc == nil {
		return nil
	}
	return sm.rc.Arena()
}

// detach takes the whole queue of a category. Objects linked while it drains land in the next cycle.
func (sm *sceneManager) detach(cat object.Category) []queueEntry {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	q := sm.queues[cat]
	sm.queues[cat] = nil
	return q
}

func (sm *sceneManager) drain(cat object.Category, fn func(object.Object)) {
	for _, e := range sm.detach(cat) {
		b := e.obj.Base()
		sm.mu.Lock()
		current := b.QueueTicket() == e.ticket
		if current {
			b.SetQueueTicket(0)
		}
		sm.mu.Unlock()
		if current {
			fn(e.obj)
		}
	}
}

func (sm *sceneManager) UpdateDirtyResourceNodes() bool {
	if rc := sm.RenderContext(); rc != nil {
		rc.CheckThread("scene_manager.UpdateDirtyResourceNodes")
	}
	shared := false
	touch := func(obj object.Object) {
		if obj.Type().IsSharedResource() {
			shared = true
		}
		sm.UpdateDirtyNode(obj)
	}
	sm.drain(object.CategoryTextureData, touch)
	sm.drain(object.CategoryImage, touch)
	sm.drain(object.CategoryResource, touch)
	return shared
}

func (sm *sceneManager) UpdateDirtySpatialNodes() {
	sm.drain(object.CategorySpatial, sm.UpdateDirtyNode)
	sm.drain(object.CategoryLight, sm.UpdateDirtyNode)
}

func (sm *sceneManager) UpdateDirtyNode(obj object.Object) {
	b := obj.Base()
	sm.mu.Lock()
	b.SetQueueTicket(0)
	sm.mu.Unlock()

	arena := sm.arena()
	ctx := &object.UpdateContext{Arena: arena}
	if !ctx.Ready() || b.Destroyed() {
		return
	}

	dirty := b.Dirty()
	old := b.Handle()
	existing, _ := arena.Get(old)
	produced := obj.UpdateGraphObject(ctx, existing)
	if produced == nil {
		return
	}

	h := old
	kindChanged := existing != nil && produced != existing
	if kindChanged {
		// The old node leaves the hierarchy now so no walk sees both nodes before the cleanup pass.
		if existing.Kind() == graph.KindNode {
			arena.RemoveFromGraph(old)
		}
		sm.Cleanup(old)
	}
	if existing == nil || kindChanged {
		h = arena.Insert(produced)
		b.SetHandle(h)
	} else {
		arena.Touch()
	}

	sm.mu.Lock()
	sm.nodes[h] = obj
	if produced.Type() == graph.TypeResourceLoader {
		sm.loaders[h] = struct{}{}
	}
	sm.mu.Unlock()

	var retry object.DirtyFlag
	if sp, ok := obj.(object.Spatial); ok {
		retry = sm.updateSpatial(sp, h, produced, dirty)
	}
	b.ClearDirty(dirty &^ object.DirtyBounds)
	if retry != 0 {
		b.MarkDirty(retry)
	}

	if h != old {
		b.NotifyDependents()
		if kindChanged {
			for _, c := range b.Children() {
				c.Base().MarkDirty(object.DirtyParent)
			}
		}
	}
}

// updateSpatial places the node in the hierarchy and returns the dirty bits to retry next cycle.
func (sm *sceneManager) updateSpatial(obj object.Spatial, h graph.Handle, produced graph.Object, dirty object.DirtyFlag) object.DirtyFlag {
	arena := sm.arena()
	gs, ok := produced.(graph.Spatial)
	if !ok {
		return 0
	}
	gn := gs.SpatialNode()

	var retry object.DirtyFlag
	if object.Object(obj) != object.Object(sm.root) && (dirty&object.DirtyParent != 0 || !gn.Parent.IsValid()) {
		if !sm.reparent(obj, h, arena) {
			retry |= object.DirtyParent
		}
	}

	gn.InstanceRoot = h
	if ir, ok := obj.(object.InstanceRooted); ok {
		if r := ir.InstanceRoot(); r != nil {
			if rh := r.Base().Handle(); arena.Contains(rh) {
				gn.InstanceRoot = rh
			}
		}
	}

	if m, ok := obj.(*object.Model); ok && m.HasDirty(object.DirtyBounds) {
		sm.mu.Lock()
		sm.boundsModels = append(sm.boundsModels, m)
		sm.mu.Unlock()
	}
	return retry
}

// reparent places h under the backend node of its front-end parent, producing that node on demand.
// Objects without a parent go under the scene root. It returns false when a parent exists but could
// not be produced and the root was used instead.
func (sm *sceneManager) reparent(obj object.Spatial, h graph.Handle, arena *graph.Arena) bool {
	parent := obj.Base().Parent()
	placed := true
	var ph graph.Handle
	if parent != nil {
		ph = sm.ensureNode(parent, arena)
		if !arena.Contains(ph) {
			parent, placed = nil, false
		}
	}
	if parent == nil {
		ph = sm.ensureNode(sm.root, arena)
		parent = sm.root
	}
	if !arena.AddChild(ph, h) {
		common.Logger().Warn("scene_manager: failed to attach node", "node", h, "parent", ph)
		return placed
	}
	orderChildren(parent, graph.SpatialOf(arena, ph))
	return placed
}

func (sm *sceneManager) ensureNode(obj object.Object, arena *graph.Arena) graph.Handle {
	if h := obj.Base().Handle(); arena.Contains(h) {
		return h
	}
	sm.UpdateDirtyNode(obj)
	return obj.Base().Handle()
}

// orderChildren keeps backend children in front-end declaration order. Children the front-end parent
// does not list, such as orphans adopted by the scene root, keep their order after the listed ones.
func orderChildren(parent object.Spatial, pn *graph.Node) {
	if pn == nil || len(pn.Children) < 2 {
		return
	}
	rank := make(map[graph.Handle]int)
	for i, c := range parent.Base().Children() {
		rank[c.Base().Handle()] = i
	}
	sort.SliceStable(pn.Children, func(i, j int) bool {
		ri, iok := rank[pn.Children[i]]
		rj, jok := rank[pn.Children[j]]
		if iok && jok {
			return ri < rj
		}
		return iok && !jok
	})
}

func (sm *sceneManager) UpdateBoundingBoxes(bm *buffer_manager.BufferManager) {
	sm.mu.Lock()
	models := sm.boundsModels
	sm.boundsModels = nil
	sm.mu.Unlock()

	arena := sm.arena()
	if arena == nil || bm == nil {
		return
	}
	seen := make(map[*object.Model]struct{}, len(models))
	for _, m := range models {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		if m.Manager() != object.Manager(sm) || m.Destroyed() {
			continue
		}
		h := m.Handle()
		lo, hi, ok := bm.ModelBounds(arena, h)
		if !ok {
			continue
		}
		if gm, ok := graph.Lookup[*graph.Model](arena, h); ok {
			gm.Bounds = common.AABB{Min: lo, Max: hi}
		}
		m.SetBounds(lo, hi)
		m.ClearDirty(object.DirtyBounds)
	}
}

func (sm *sceneManager) CleanupNodes() {
	sm.mu.Lock()
	rc := sm.rc
	if rc == nil {
		// Handles are only meaningful in the arena they were produced into.
		sm.mu.Unlock()
		return
	}
	list := sm.cleanupList
	sm.cleanupList = nil
	sm.cleanupSet = make(map[graph.Handle]struct{})
	sink := sm.releaseSink
	sm.mu.Unlock()

	if len(list) == 0 {
		return
	}
	rc.CheckThread("scene_manager.CleanupNodes")
	arena := rc.Arena()

	for _, h := range list {
		obj, ok := arena.Get(h)
		if !ok {
			continue
		}
		if obj.Kind() == graph.KindNode {
			arena.RemoveFromGraph(h)
		}
		sm.mu.Lock()
		delete(sm.nodes, h)
		delete(sm.loaders, h)
		sm.mu.Unlock()

		if !obj.Type().HasGraphicsResources() {
			arena.Free(h)
			continue
		}
		if sink != nil {
			arena.Retire(h)
			sink(h)
			continue
		}
		arena.Free(h)
		releaseResidency(rc.BufferManager(), obj.Type(), h)
	}
}

func releaseResidency(bm *buffer_manager.BufferManager, t graph.Type, h graph.Handle) {
	switch t {
	case graph.TypeImage:
		bm.ReleaseImage(h)
	case graph.TypeGeometry:
		bm.ReleaseMesh(h)
	}
}

func (sm *sceneManager) ResourceLoaders() []graph.Handle {
	arena := sm.arena()
	if arena == nil {
		return nil
	}
	sm.mu.Lock()
	loaders := make([]graph.Handle, 0, len(sm.loaders))
	for h := range sm.loaders {
		loaders = append(loaders, h)
	}
	sm.mu.Unlock()
	sort.Slice(loaders, func(i, j int) bool { return loaders[i].Index < loaders[j].Index })

	var out []graph.Handle
	seen := make(map[graph.Handle]struct{})
	add := func(h graph.Handle) {
		if _, ok := seen[h]; ok || !arena.Contains(h) {
			return
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	for _, lh := range loaders {
		rl, ok := graph.Lookup[*graph.ResourceLoader](arena, lh)
		if !ok {
			sm.mu.Lock()
			delete(sm.loaders, lh)
			sm.mu.Unlock()
			continue
		}
		for _, r := range rl.Resources {
			if mat, ok := graph.Lookup[*graph.Material](arena, r); ok {
				add(mat.BaseColorMap)
				continue
			}
			add(r)
		}
	}
	return out
}

func (sm *sceneManager) Close() {
	sm.mu.Lock()
	if sm.closed {
		sm.mu.Unlock()
		return
	}
	var owned []object.Object
	for _, obj := range sm.nodes {
		owned = append(owned, obj)
	}
	for cat := range sm.queues {
		for _, e := range sm.queues[cat] {
			owned = append(owned, e.obj)
		}
		sm.queues[cat] = nil
	}
	sm.boundsModels = nil
	sm.mu.Unlock()

	for _, obj := range owned {
		if obj.Base().Manager() == object.Manager(sm) {
			obj.Base().Detach()
		}
	}
	sm.root.Detach()
	sm.CleanupNodes()

	sm.mu.Lock()
	sm.closed = true
	sm.mu.Unlock()
}
