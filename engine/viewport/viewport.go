// Package viewport shows one scene in a window. A viewport owns the scene's manager, its
// environment and camera, and the renderer recording the scene, and selects how the rendered
// scene reaches the window surface.
package viewport

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/buffer_manager"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/object"
	"github.com/Carmen-Shannon/oxy-scene/engine/picking"
	"github.com/Carmen-Shannon/oxy-scene/engine/render_context"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene_manager"
	"github.com/Carmen-Shannon/oxy-scene/engine/window_attachment"
	"github.com/go-gl/mathgl/mgl32"
)

// RenderMode selects how a viewport reaches the window surface. Exactly one mode is active.
type RenderMode int

const (
	// RenderModeOffscreen renders into a texture that is composited like any 2D item.
	RenderModeOffscreen RenderMode = iota
	// RenderModeUnderlay renders into the surface pass before the host content.
	RenderModeUnderlay
	// RenderModeOverlay renders into the surface pass after the host content.
	RenderModeOverlay
	// RenderModeInline renders into the surface pass in item order, without a texture.
	RenderModeInline
)

func (m RenderMode) String() string {
	switch m {
	case RenderModeOffscreen:
		return "offscreen"
	case RenderModeUnderlay:
		return "underlay"
	case RenderModeOverlay:
		return "overlay"
	case RenderModeInline:
		return "inline"
	}
	return "unknown"
}

// PointerCallback receives pointer events that hit scene content other than a subscene.
type PointerCallback func(ev common.PointerEvent, hit picking.Result) bool

// Viewport is a rectangle of a window showing one scene.
type Viewport interface {
	// Name returns the viewport's name, used as the label of its composited item.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Active reports whether the viewport takes part in frames.
	//
	// Returns:
	//   - bool: true if active
	Active() bool

	// SetActive includes or excludes the viewport from frames without releasing anything.
	//
	// Parameters:
	//   - active: the new state
	SetActive(active bool)

	// Window returns the handle of the window the viewport renders into.
	//
	// Returns:
	//   - common.WindowHandle: the window
	Window() common.WindowHandle

	// SceneManager returns the manager of the viewport's own scene.
	//
	// Returns:
	//   - scene_manager.SceneManager: the scene manager
	SceneManager() scene_manager.SceneManager

	// ImportScene returns the manager of the imported scene.
	//
	// Returns:
	//   - scene_manager.SceneManager: the import scene, or nil
	ImportScene() scene_manager.SceneManager

	// Environment returns the render settings of the viewport.
	//
	// Returns:
	//   - *object.SceneEnvironment: the environment
	Environment() *object.SceneEnvironment

	// Camera returns the explicit camera.
	//
	// Returns:
	//   - *object.Camera: the camera, or nil when the first camera of the scene is used
	Camera() *object.Camera

	// SetCamera sets the explicit camera and adds it to the viewport's scene when it has no owner yet.
	//
	// Parameters:
	//   - cam: the camera, or nil to use the first camera found in the scene
	SetCamera(cam *object.Camera)

	// Renderer returns the renderer of the current mode.
	//
	// Returns:
	//   - renderer.SceneRenderer: the renderer, or nil before the first synchronization
	Renderer() renderer.SceneRenderer

	// RenderMode returns the active render mode.
	//
	// Returns:
	//   - RenderMode: the mode
	RenderMode() RenderMode

	// SetRenderMode switches the render mode. The renderer of the old mode is released together
	// with its offscreen targets and a new one is created at the next synchronization.
	//
	// Parameters:
	//   - mode: the new mode
	SetRenderMode(mode RenderMode)

	// Geometry returns the viewport rectangle in logical window pixels and the device pixel ratio.
	//
	// Returns:
	//   - common.Rect: the rectangle
	//   - float32: the device pixel ratio
	Geometry() (common.Rect, float32)

	// SetGeometry places the viewport in the window.
	//
	// Parameters:
	//   - rect: the rectangle in logical window pixels
	//   - dpr: the device pixel ratio, values <= 0 mean 1
	SetGeometry(rect common.Rect, dpr float32)

	// Synchronize runs the window attachment's synchronization for every scene of the window,
	// then copies the environment, scene roots, camera and resource loaders into the renderer.
	//
	// Parameters:
	//   - rc: the window's render context
	//
	// Returns:
	//   - bool: false when the viewport cannot render, because it is closed or rc is nil
	Synchronize(rc render_context.RenderContext) bool

	// RenderFrame records a frame holding only this viewport and the host content.
	//
	// Parameters:
	//   - f: the host frame
	RenderFrame(f Frame)

	// Texture returns the composited texture of the offscreen mode.
	//
	// Returns:
	//   - rhi.Texture: the texture, or nil in the direct modes or before the first frame
	Texture() rhi.Texture

	// NeedsFrame reports whether the scene or the renderer asked for another frame.
	//
	// Returns:
	//   - bool: true if a frame should be scheduled
	NeedsFrame() bool

	// Pick returns the nearest hit under a point in viewport coordinates.
	//
	// Parameters:
	//   - x, y: the point in logical viewport pixels
	//
	// Returns:
	//   - picking.Result: the hit
	//   - bool: false when nothing is hit or the viewport cannot pick
	Pick(x, y float32) (picking.Result, bool)

	// PickAll returns every hit under a point, nearest first.
	//
	// Parameters:
	//   - x, y: the point in logical viewport pixels
	//
	// Returns:
	//   - []picking.Result: the hits
	PickAll(x, y float32) []picking.Result

	// PickSubset is PickAll restricted to the given objects.
	//
	// Parameters:
	//   - x, y: the point in logical viewport pixels
	//   - objects: the candidate objects
	//
	// Returns:
	//   - []picking.Result: the hits
	PickSubset(x, y float32, objects []object.Object) []picking.Result

	// HandlePointer delivers a window pointer event. The event is mapped into the viewport, the
	// scene is picked, and a hit on a subscene forwards the event to that subscene's receiver in
	// subscene pixel coordinates. Other hits go to the pointer callback.
	//
	// Parameters:
	//   - ev: the event in logical window pixels
	//
	// Returns:
	//   - bool: true if the event was accepted
	HandlePointer(ev common.PointerEvent) bool

	// Close releases the renderer and the scene and detaches from the window. The import scene is
	// left to its owner.
	Close()

	beforePass(cb rhi.CommandBuffer)
	record(cb rhi.CommandBuffer, stage stage, surface common.Size)
}

type viewport struct {
	mu *sync.Mutex

	name     string
	active   bool
	window   common.WindowHandle
	registry *window_attachment.Registry

	sm       scene_manager.SceneManager
	importSM scene_manager.SceneManager
	env      *object.SceneEnvironment
	cam      *object.Camera

	rc          render_context.RenderContext
	renderer    renderer.SceneRenderer
	rendererOps []renderer.SceneRendererBuilderOption
	mode        RenderMode

	rect common.Rect
	dpr  float32

	// prepared is set when a direct mode prepared the current frame.
	prepared bool

	pointer PointerCallback
	// onUpdate is fixed at construction.
	onUpdate func()
	dirty    atomic.Bool
	closed   bool
}

var _ Viewport = &viewport{}

// NewViewport creates a viewport in window and attaches its scene to the window's attachment.
//
// Parameters:
//   - registry: the attachment registry of the process
//   - window: the window the viewport renders into
//   - options: optional ViewportBuilderOption functions
//
// Returns:
//   - Viewport: the new viewport
func NewViewport(registry *window_attachment.Registry, window common.WindowHandle, options ...ViewportBuilderOption) Viewport {
	if registry == nil {
		panic("viewport: NewViewport requires a registry")
	}
	v := &viewport{
		mu:       &sync.Mutex{},
		name:     "viewport",
		active:   true,
		window:   window,
		registry: registry,
		dpr:      1,
	}
	for _, opt := range options {
		opt(v)
	}
	if v.sm == nil {
		v.sm = scene_manager.NewSceneManager()
	}
	v.sm.SetUpdateRequestCallback(v.requestUpdate)
	if v.env == nil {
		v.env = object.NewSceneEnvironment()
	}
	v.env.SetChangedCallback(v.requestUpdate)
	if v.cam != nil {
		v.sm.Attach(v.cam)
	}

	registry.Attach(window, v.sm)
	if v.importSM != nil {
		registry.Attach(window, v.importSM)
	}
	v.dirty.Store(true)
	return v
}

// requestUpdate may run while v.mu is held, from the scene manager during Synchronize.
func (v *viewport) requestUpdate() {
	v.dirty.Store(true)
	if v.onUpdate != nil {
		v.onUpdate()
	}
}

func (v *viewport) Name() string {
	return v.name
}

func (v *viewport) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active && !v.closed
}

func (v *viewport) SetActive(active bool) {
	v.mu.Lock()
	v.active = active
	v.mu.Unlock()
	v.requestUpdate()
}

func (v *viewport) Window() common.WindowHandle {
	return v.window
}

func (v *viewport) SceneManager() scene_manager.SceneManager {
	return v.sm
}

func (v *viewport) ImportScene() scene_manager.SceneManager {
	return v.importSM
}

func (v *viewport) Environment() *object.SceneEnvironment {
	return v.env
}

func (v *viewport) Camera() *object.Camera {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cam
}

func (v *viewport) SetCamera(cam *object.Camera) {
	v.mu.Lock()
	v.cam = cam
	v.mu.Unlock()
	if cam != nil {
		v.sm.Attach(cam)
	}
	v.requestUpdate()
}

func (v *viewport) Renderer() renderer.SceneRenderer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renderer
}

func (v *viewport) RenderMode() RenderMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

func (v *viewport) SetRenderMode(mode RenderMode) {
	v.mu.Lock()
	if mode == v.mode {
		v.mu.Unlock()
		return
	}
	old := v.mode
	v.mode = mode
	v.teardown()
	v.mu.Unlock()
	common.Logger().Debug("Viewport render mode changed", "viewport", v.name, "from", old, "to", mode)
	v.requestUpdate()
}

// teardown releases the renderer of the current mode. The caller holds v.mu.
func (v *viewport) teardown() {
	if v.renderer != nil {
		v.renderer.Release()
		v.renderer = nil
	}
	v.prepared = false
}

func (v *viewport) Geometry() (common.Rect, float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rect, v.dpr
}

func (v *viewport) SetGeometry(rect common.Rect, dpr float32) {
	if dpr <= 0 {
		dpr = 1
	}
	v.mu.Lock()
	v.rect, v.dpr = rect, dpr
	v.mu.Unlock()
	v.requestUpdate()
}

func (v *viewport) logicalSize() common.Size {
	return common.Size{Width: int(v.rect.Width), Height: int(v.rect.Height)}
}

// deviceRect is the viewport rectangle in device pixels.
func (v *viewport) deviceRect() common.Rect {
	size := v.logicalSize().Scaled(v.dpr)
	return common.Rect{X: v.rect.X * v.dpr, Y: v.rect.Y * v.dpr, Width: float32(size.Width), Height: float32(size.Height)}
}

func (v *viewport) Synchronize(rc render_context.RenderContext) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || rc == nil {
		return false
	}
	if v.renderer != nil && v.rc != rc {
		v.teardown()
	}
	if v.renderer == nil {
		v.renderer = renderer.NewSceneRenderer(rc, v.rendererOps...)
	}
	v.rc = rc
	v.dirty.Store(false)

	for _, res := range v.env.Resources() {
		v.sm.Attach(res)
	}

	loaders := make(map[graph.Handle]struct{})
	if wa, ok := v.registry.Lookup(v.window); ok {
		wa.Synchronize(rc, loaders)
	}

	settings := renderer.LayerSettings{
		Environment:     v.env,
		SceneRoot:       v.sm.SceneRoot().Handle(),
		ResourceLoaders: loaders,
	}
	if v.importSM != nil {
		settings.ImportRoot = v.importSM.SceneRoot().Handle()
	}
	if v.cam != nil {
		settings.Camera = v.cam.Handle()
	}
	v.renderer.Synchronize(settings, v.logicalSize(), v.dpr, v.mode == RenderModeOffscreen)
	return true
}

func (v *viewport) RenderFrame(f Frame) {
	Compose(f, v)
}

// beforePass renders the offscreen texture, or prepares the draws of a direct mode, before the
// surface pass opens.
func (v *viewport) beforePass(cb rhi.CommandBuffer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prepared = false
	if v.closed || !v.active || v.renderer == nil {
		return
	}
	if v.mode == RenderModeOffscreen {
		v.renderer.RenderToTexture(cb)
		return
	}
	v.prepared = v.renderer.Prepare(v.deviceRect())
}

func (v *viewport) record(cb rhi.CommandBuffer, st stage, surface common.Size) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || !v.active || v.renderer == nil || st != stageOf(v.mode) {
		return
	}
	if v.mode == RenderModeOffscreen {
		v.composite(cb, surface)
		return
	}
	if v.prepared {
		v.renderer.Render(cb)
		v.prepared = false
	}
}

// composite draws the offscreen texture as a rectangle covering the viewport.
func (v *viewport) composite(cb rhi.CommandBuffer, surface common.Size) {
	tex := v.renderer.Texture()
	if tex == nil || surface.Empty() {
		return
	}
	mesh, err := v.rc.BufferManager().RenderMesh(buffer_manager.MeshRectangle)
	if err != nil {
		common.WarnOnce("viewport.composite", "Failed to upload the composite rectangle", "error", err)
		return
	}
	r := v.deviceRect()
	world := mgl32.Translate3D(r.X+r.Width/2, r.Y+r.Height/2, 0).
		Mul4(mgl32.Scale3D(r.Width/100, -r.Height/100, 1))
	cb.Draw(rhi.DrawItem{
		Label:          v.name,
		Mesh:           mesh,
		Instances:      []mgl32.Mat4{world},
		ViewProjection: mgl32.Ortho(0, float32(surface.Width), float32(surface.Height), 0, -1, 1),
		Color:          common.Color{R: 1, G: 1, B: 1, A: 1},
		Texture:        tex,
		CullMode:       rhi.CullNone,
		Blend:          true,
	})
}

func (v *viewport) Texture() rhi.Texture {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mode != RenderModeOffscreen || v.renderer == nil {
		return nil
	}
	return v.renderer.Texture()
}

func (v *viewport) NeedsFrame() bool {
	if v.dirty.Load() {
		return true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.renderer != nil && v.renderer.RequestsFrames()
}

func (v *viewport) pickRenderer() renderer.SceneRenderer {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	return v.renderer
}

func (v *viewport) Pick(x, y float32) (picking.Result, bool) {
	r := v.pickRenderer()
	if r == nil {
		return picking.Result{}, false
	}
	return r.Pick(x, y)
}

func (v *viewport) PickAll(x, y float32) []picking.Result {
	r := v.pickRenderer()
	if r == nil {
		return nil
	}
	return r.PickAll(x, y)
}

func (v *viewport) PickSubset(x, y float32, objects []object.Object) []picking.Result {
	r := v.pickRenderer()
	if r == nil {
		return nil
	}
	handles := make([]graph.Handle, 0, len(objects))
	for _, obj := range objects {
		if obj == nil {
			continue
		}
		if h := obj.Base().Handle(); h.IsValid() {
			handles = append(handles, h)
		}
	}
	if len(handles) == 0 {
		return nil
	}
	return r.PickSubset(x, y, handles)
}

func (v *viewport) HandlePointer(ev common.PointerEvent) bool {
	v.mu.Lock()
	rect := v.rect
	active := v.active && !v.closed
	cb := v.pointer
	v.mu.Unlock()
	if !active || !rect.Contains(ev.X, ev.Y) {
		return false
	}

	hit, ok := v.Pick(ev.X-rect.X, ev.Y-rect.Y)
	if !ok {
		return false
	}
	if hit.Subscene.IsValid() {
		if it, ok := v.lookUp(hit.Subscene).(*object.Item2D); ok {
			if recv := it.Receiver(); recv != nil {
				return recv.HandlePointer(ev.At(hit.SubscenePosition.X(), hit.SubscenePosition.Y()))
			}
		}
	}
	if cb != nil {
		return cb(ev, hit)
	}
	return false
}

// lookUp finds the front end of h in the viewport's scene or the import scene.
func (v *viewport) lookUp(h graph.Handle) object.Object {
	if obj := v.sm.LookUpNode(h); obj != nil {
		return obj
	}
	if v.importSM != nil {
		return v.importSM.LookUpNode(h)
	}
	return nil
}

func (v *viewport) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.teardown()
	v.mu.Unlock()

	v.env.SetChangedCallback(nil)
	v.sm.SetUpdateRequestCallback(nil)
	v.sm.Close()
	v.registry.Detach(v.window, v.sm)
}
