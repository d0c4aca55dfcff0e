// Package renderer drives one viewport's layer through a frame: it synchronizes the layer settings,
// prepares the draw list and records the main pass, the effect chain, the antialiasing passes and
// the supersampling resolve.
package renderer

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/object"
	"github.com/Carmen-Shannon/oxy-scene/engine/picking"
	"github.com/Carmen-Shannon/oxy-scene/engine/render_context"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/go-gl/mathgl/mgl32"
)

// LayerSettings are the inputs of one synchronization.
type LayerSettings struct {
	// Environment supplies the declarative render settings, or nil to keep the current ones.
	Environment *object.SceneEnvironment
	// SceneRoot and ImportRoot are parented under the layer. Either may be the zero Handle.
	SceneRoot  graph.Handle
	ImportRoot graph.Handle
	// Camera overrides camera discovery when valid.
	Camera graph.Handle
	// ResourceLoaders are made resident during prepare.
	ResourceLoaders map[graph.Handle]struct{}
}

// Timings are the durations of the last frame's phases.
type Timings struct {
	Sync    time.Duration
	Prepare time.Duration
	Render  time.Duration
}

// SceneRenderer owns one viewport's layer and records its frames.
//
// Synchronize, Prepare, Render, RenderToTexture and the pick methods must not run concurrently
// with the scene managers producing into the same arena.
type SceneRenderer interface {
	// Layer returns the backend layer the renderer owns.
	//
	// Returns:
	//   - graph.Handle: the layer handle
	Layer() graph.Handle

	// Synchronize copies the declarative settings into the layer, applies the antialiasing
	// transition rules and parents the scene roots under the layer. The offscreen chain is
	// rebuilt on the next RenderToTexture only if the size, the AA settings or the
	// post-processing state changed.
	//
	// Parameters:
	//   - settings: the environment, roots and camera
	//   - size: the viewport size in logical pixels
	//   - dpr: the device pixel ratio
	//   - useTexture: true when the viewport renders offscreen
	Synchronize(settings LayerSettings, size common.Size, dpr float32, useTexture bool)

	// SurfaceSize returns the synchronized size in device pixels.
	//
	// Returns:
	//   - common.Size: the surface size
	SurfaceSize() common.Size

	// Prepare resolves the camera, applies the AA state and builds the draw list for a viewport.
	// A missing device, an empty viewport or a layer without camera skips the frame.
	//
	// Parameters:
	//   - viewport: the target rectangle in device pixels
	//
	// Returns:
	//   - bool: true if the frame is ready to render
	Prepare(viewport common.Rect) bool

	// Render records the prepared draws into the pass open on cb. Without a successful Prepare
	// it does nothing.
	//
	// Parameters:
	//   - cb: the frame's command buffer
	Render(cb rhi.CommandBuffer)

	// RenderToTexture prepares and renders the layer into the offscreen chain, runs the effect
	// chain and the AA passes, and resolves supersampling.
	//
	// Parameters:
	//   - cb: the frame's command buffer
	//
	// Returns:
	//   - rhi.Texture: the final texture, or nil when nothing could be rendered
	RenderToTexture(cb rhi.CommandBuffer) rhi.Texture

	// Texture returns the final texture of the offscreen chain.
	//
	// Returns:
	//   - rhi.Texture: the texture, or nil before the first offscreen frame
	Texture() rhi.Texture

	// RequestsFrames reports whether the last frame left work for following frames: progressive
	// AA that has not converged, active temporal AA, or pending extra frames.
	//
	// Returns:
	//   - bool: true if another frame should be scheduled
	RequestsFrames() bool

	// Pick returns the nearest hit under a point in logical viewport coordinates.
	//
	// Parameters:
	//   - x, y: the point
	//
	// Returns:
	//   - picking.Result: the hit
	//   - bool: false without a camera, outside the viewport or when nothing is hit
	Pick(x, y float32) (picking.Result, bool)

	// PickAll returns every hit under a point, nearest first.
	//
	// Parameters:
	//   - x, y: the point in logical viewport coordinates
	//
	// Returns:
	//   - []picking.Result: the hits
	PickAll(x, y float32) []picking.Result

	// PickSubset is PickAll restricted to the given objects.
	//
	// Parameters:
	//   - x, y: the point in logical viewport coordinates
	//   - objects: the candidate models and items
	//
	// Returns:
	//   - []picking.Result: the hits
	PickSubset(x, y float32, objects []graph.Handle) []picking.Result

	// PickRay returns the nearest hit along a world-space ray.
	//
	// Parameters:
	//   - ray: the ray
	//
	// Returns:
	//   - picking.Result: the hit
	//   - bool: false when nothing is hit
	PickRay(ray picking.Ray) (picking.Result, bool)

	// AddExtension registers a render extension run at the prepare and render stages of every frame.
	//
	// Parameters:
	//   - h: the extension handle
	AddExtension(h graph.Handle)

	// Timings returns the phase durations of the last synchronization and frame.
	//
	// Returns:
	//   - Timings: the durations
	Timings() Timings

	// Release frees the offscreen chain, removes the layer from the arena and stops the workers of
	// a picker the renderer created itself.
	Release()
}

// layerSnapshot is the comparable part of a layer's settings.
type layerSnapshot struct {
	aaMode       graph.AntialiasingMode
	aaQuality    graph.AntialiasingQuality
	temporal     bool
	temporalStr  float32
	ssaa         float32
	background   graph.BackgroundMode
	clearColor   common.Color
	ao           graph.AOSettings
	lightProbe   graph.LightProbeSettings
	tonemap      graph.TonemapMode
	fog          graph.FogSettings
	lightmapper  graph.LightmapperSettings
	debug        graph.DebugSettings
	scissor      common.Rect
	depthTest    bool
	depthPrepass bool
	firstEffect  graph.Handle
	effectCount  int
	camera       graph.Handle
}

func snapshot(l *graph.Layer, a *graph.Arena) layerSnapshot {
	return layerSnapshot{
		aaMode:       l.AntialiasingMode,
		aaQuality:    l.AntialiasingQuality,
		temporal:     l.TemporalAAEnabled,
		temporalStr:  l.TemporalAAStrength,
		ssaa:         l.SSAAMultiplier,
		background:   l.Background,
		clearColor:   l.ClearColor,
		ao:           l.AO,
		lightProbe:   l.LightProbe,
		tonemap:      l.Tonemap,
		fog:          l.Fog,
		lightmapper:  l.Lightmapper,
		debug:        l.Debug,
		scissor:      l.Scissor,
		depthTest:    l.DepthTestEnabled,
		depthPrepass: l.DepthPrepassEnabled,
		firstEffect:  l.FirstEffect,
		effectCount:  len(l.Effects(a)),
		camera:       l.ExplicitCamera,
	}
}

type sceneRenderer struct {
	mu *sync.Mutex

	rc          render_context.RenderContext
	layerH      graph.Handle
	picker      picking.Picker
	ownPicker   bool
	pickWorkers int
	tonemapper  Tonemapper
	dumpTimes   bool

	logicalSize common.Size
	surfaceSize common.Size
	useTexture  bool
	postProcess bool

	chain      *textureChain
	sizeDirty  bool
	aaDirty    bool
	layerDirty bool

	extraFrames int
	wantsFrames bool

	prepared   bool
	proj       camera.Projection
	list       renderList
	passes     []rhi.EffectPassDesc
	extensions []graph.Handle
	timings    Timings
}

var _ SceneRenderer = &sceneRenderer{}

// NewSceneRenderer creates a renderer and inserts its layer into the context's arena.
//
// Parameters:
//   - rc: the window's render context
//   - options: functional options to configure the renderer
//
// Returns:
//   - SceneRenderer: the new renderer
func NewSceneRenderer(rc render_context.RenderContext, options ...SceneRendererBuilderOption) SceneRenderer {
	if rc == nil {
		panic("renderer: NewSceneRenderer requires a render context")
	}
	r := &sceneRenderer{
		mu:          &sync.Mutex{},
		rc:          rc,
		pickWorkers: 4,
		tonemapper:  Reinhard,
		dumpTimes:   config.DumpRenderTimesFromEnv(),
		layerDirty:  true,
	}
	for _, option := range options {
		option(r)
	}
	if r.picker == nil {
		r.picker = picking.NewPicker(rc.BufferManager(), picking.WithWorkerCount(r.pickWorkers))
		r.ownPicker = true
	}
	r.layerH = rc.Arena().Insert(graph.NewLayer())
	return r
}

func (r *sceneRenderer) Layer() graph.Handle {
	return r.layerH
}

func (r *sceneRenderer) SurfaceSize() common.Size {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surfaceSize
}

func (r *sceneRenderer) layer() (*graph.Layer, bool) {
	return graph.Lookup[*graph.Layer](r.rc.Arena(), r.layerH)
}

func (r *sceneRenderer) Synchronize(settings LayerSettings, size common.Size, dpr float32, useTexture bool) {
	start := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	arena := r.rc.Arena()
	layer, ok := r.layer()
	if !ok {
		return
	}
	if dpr <= 0 {
		dpr = 1
	}
	r.logicalSize = size
	if surface := size.Scaled(dpr); surface != r.surfaceSize {
		r.surfaceSize = surface
		r.sizeDirty = true
		r.layerDirty = true
	}

	before := snapshot(layer, arena)
	if settings.Environment != nil {
		settings.Environment.Apply(layer, arena)
	}
	if layer.SSAAMultiplier <= 1 {
		layer.SSAAMultiplier = SSAAMultiplier(layer.AntialiasingQuality)
	}
	layer.ExplicitCamera = settings.Camera
	layer.ResourceLoaders = settings.ResourceLoaders
	if layer.ResourceLoaders == nil {
		layer.ResourceLoaders = make(map[graph.Handle]struct{})
	}
	after := snapshot(layer, arena)

	aaDirty := before.aaMode != after.aaMode || before.aaQuality != after.aaQuality || before.ssaa != after.ssaa
	temporalDirty := before.temporal != after.temporal
	if aaDirty {
		r.aaDirty = true
	}
	if (aaDirty || temporalDirty) && layer.TemporalAAEnabled {
		r.extraFrames = MaxTemporalAALevels
	}
	if before != after {
		r.layerDirty = true
	}

	postProcess := layer.HasEffects(arena) || layer.AntialiasingMode == graph.AntialiasingProgressive || layer.TemporalAAEnabled
	if postProcess != r.postProcess {
		r.postProcess = postProcess
		r.sizeDirty = true
	}

	r.swapRoot(arena, &layer.SceneRoot, settings.SceneRoot)
	r.swapRoot(arena, &layer.ImportRoot, settings.ImportRoot)

	if r.useTexture && !useTexture && r.chain != nil {
		r.chain.release()
		r.chain = nil
	}
	r.useTexture = useTexture
	r.timings.Sync = time.Since(start)
}

// swapRoot replaces the layer child stored in slot with root.
func (r *sceneRenderer) swapRoot(arena *graph.Arena, slot *graph.Handle, root graph.Handle) {
	if *slot == root {
		if root.IsValid() {
			arena.AddChild(r.layerH, root)
		}
		return
	}
	if slot.IsValid() {
		arena.RemoveChild(r.layerH, *slot)
	}
	if root.IsValid() && !arena.AddChild(r.layerH, root) {
		root = graph.Handle{}
	}
	*slot = root
	r.layerDirty = true
}

func (r *sceneRenderer) Prepare(viewport common.Rect) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prepare(viewport, false)
}

// resolveCamera returns the explicit camera when it is live, otherwise the first visible camera.
func (r *sceneRenderer) resolveCamera(arena *graph.Arena, layer *graph.Layer) (graph.Handle, *graph.Camera, []graph.Handle) {
	found, lights := discover(arena, r.layerH)
	h := found
	if layer.ExplicitCamera.IsValid() {
		if _, ok := graph.Lookup[*graph.Camera](arena, layer.ExplicitCamera); ok {
			h = layer.ExplicitCamera
			arena.CalculateGlobalTransforms(h)
		}
	}
	cam, ok := graph.Lookup[*graph.Camera](arena, h)
	if !ok {
		return graph.Handle{}, nil, lights
	}
	return h, cam, lights
}

func (r *sceneRenderer) prepare(viewport common.Rect, offscreen bool) bool {
	start := time.Now()
	r.prepared = false
	if r.rc.Device() == nil || viewport.Empty() {
		return false
	}
	arena := r.rc.Arena()
	layer, ok := r.layer()
	if !ok {
		return false
	}
	arena.CalculateGlobalTransforms(r.layerH)
	camH, cam, lights := r.resolveCamera(arena, layer)
	layer.Lights = lights
	rd := &layer.RenderData
	rd.Camera = camH
	if cam == nil {
		return false
	}
	proj, ok := camera.Compute(cam, cam.Global, viewport)
	if !ok {
		return false
	}

	animating := r.layerDirty || arena.Revision() != rd.LastRevision
	if animating {
		rd.ProgAAPassIndex = 0
	}
	rd.ProgressiveAAActive = offscreen && layer.AntialiasingMode == graph.AntialiasingProgressive && !animating
	rd.TemporalAAActive = offscreen && layer.TemporalAAEnabled && !rd.ProgressiveAAActive && layer.AntialiasingMode != graph.AntialiasingMSAA

	size := common.Size{Width: int(viewport.Width), Height: int(viewport.Height)}
	var jitter mgl32.Vec2
	if rd.ProgressiveAAActive {
		jitter = ProgressiveJitter(rd.ProgAAPassIndex, layer.AntialiasingQuality, size)
	}
	if rd.TemporalAAActive {
		jitter = TemporalJitter(rd.TempAAPassIndex, layer.TemporalAAStrength, size)
	}
	rd.Jitter = jitter
	proj = proj.WithJitter(jitter.X(), jitter.Y())

	tm := tonemapperFor(layer.Tonemap, r.tonemapper)
	r.passes = r.preparePasses(arena, layer, offscreen, tm)

	b := &listBuilder{
		arena:   arena,
		layer:   layer,
		buffers: r.rc.BufferManager(),
		library: r.rc.Library(),
		proj:    proj,
		cull:    cam.FrustumCulling,
	}
	if len(r.passes) == 0 {
		b.tonemap = tm
	}
	r.list = b.build(r.layerH)
	r.loadResources(arena, layer)
	r.runExtensions(arena, graph.StagePrepare)

	rd.LastRevision = arena.Revision()
	r.layerDirty = false
	r.proj = proj
	r.prepared = true
	r.timings.Prepare = time.Since(start)
	return true
}

// preparePasses flattens the effect chain into passes and appends the tonemap pass. Direct
// rendering has no intermediate texture, so it runs no effects.
func (r *sceneRenderer) preparePasses(arena *graph.Arena, layer *graph.Layer, offscreen bool, tm Tonemapper) []rhi.EffectPassDesc {
	if !offscreen {
		return nil
	}
	var passes []rhi.EffectPassDesc
	for _, eff := range layer.Effects(arena) {
		passes = append(passes, material.PrepareEffect(r.rc.Library(), eff)...)
	}
	if len(passes) > 0 && tm != nil {
		passes = append(passes, tonemapPass(tm))
	}
	return passes
}

// loadResources makes the layer's resource loaders and light probe resident.
func (r *sceneRenderer) loadResources(arena *graph.Arena, layer *graph.Layer) {
	bm := r.rc.BufferManager()
	for h := range layer.ResourceLoaders {
		obj, ok := arena.Get(h)
		if !ok {
			continue
		}
		var err error
		switch obj.(type) {
		case *graph.Image:
			_, err = bm.LoadRenderImage(arena, h)
		case *graph.Geometry:
			mesh, gerr := bm.LoadGeometry(arena, h)
			if err = gerr; err == nil && mesh.VertexCount() > 0 {
				_, err = bm.RenderMesh(mesh.Key)
			}
		}
		if err != nil {
			common.WarnOnce("renderer.resource."+h.String(), "Failed to make resource resident", "resource", h, "error", err)
		}
	}
	if probe := layer.LightProbe.Image; probe.IsValid() {
		if _, err := bm.LoadRenderImage(arena, probe); err != nil {
			common.WarnOnce("renderer.probe."+probe.String(), "Failed to load light probe", "image", probe, "error", err)
		}
	}
}

func (r *sceneRenderer) runExtensions(arena *graph.Arena, stage graph.ExtensionStage) {
	for _, h := range r.extensions {
		if ext, ok := graph.Lookup[*graph.Extension](arena, h); ok && ext.Run != nil {
			ext.Run(stage)
		}
	}
}

func (r *sceneRenderer) AddExtension(h graph.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extensions = append(r.extensions, h)
}

func (r *sceneRenderer) Render(cb rhi.CommandBuffer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.prepared || cb == nil {
		return
	}
	start := time.Now()
	r.render(cb)
	r.finishFrame(false)
	r.timings.Render = time.Since(start)
	r.dumpTimings()
}

func (r *sceneRenderer) render(cb rhi.CommandBuffer) {
	r.prepared = false
	for _, item := range r.list.Draws() {
		cb.Draw(item)
	}
	r.runExtensions(r.rc.Arena(), graph.StageRender)
}

// textureFormat prefers a floating point format when the content is post-processed.
func (r *sceneRenderer) textureFormat(d rhi.Device) rhi.Format {
	if r.postProcess && d.IsTextureFormatSupported(rhi.FormatRGBA16F) {
		return rhi.FormatRGBA16F
	}
	return rhi.FormatRGBA8
}

func (r *sceneRenderer) updateChain(d rhi.Device, layer *graph.Layer) error {
	if r.chain != nil && r.chain.device != d {
		r.chain.release()
		r.chain = nil
	}
	if r.chain == nil {
		r.chain = newTextureChain(d)
		r.sizeDirty = true
	}
	if !r.sizeDirty && !r.aaDirty {
		return nil
	}
	cfg := chainConfig{
		size:    r.surfaceSize,
		format:  r.textureFormat(d),
		samples: MSAASampleCount(d, layer.AntialiasingMode, layer.AntialiasingQuality),
	}
	if layer.AntialiasingMode == graph.AntialiasingSSAA {
		cfg.ssaa = layer.SSAAMultiplier
	}
	err := r.chain.update(cfg, r.aaDirty)
	r.sizeDirty, r.aaDirty = false, false
	if err != nil {
		r.chain.release()
		r.sizeDirty = true
	}
	return err
}

func (r *sceneRenderer) RenderToTexture(cb rhi.CommandBuffer) rhi.Texture {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.rc.Device()
	layer, ok := r.layer()
	if d == nil || cb == nil || !ok || r.surfaceSize.Empty() {
		return nil
	}
	if err := r.updateChain(d, layer); err != nil {
		common.Logger().Error("Failed to build offscreen targets", "layer", r.layerH, "error", err)
		return nil
	}
	c := r.chain
	frame := c.cfg.frameSize()
	if !r.prepare(common.Rect{Width: float32(frame.Width), Height: float32(frame.Height)}, true) {
		return c.texture
	}

	start := time.Now()
	cb.BeginPass(c.target, r.clearColor(layer), 1)
	r.render(cb)
	cb.EndPass()
	result := c.target.Color()

	if len(r.passes) > 0 {
		if err := c.ensureEffectTargets(); err != nil {
			common.WarnOnce("renderer.effects", "Failed to create effect targets, skipping effects", "error", err)
		} else {
			for i, pass := range r.passes {
				dst := c.effectTargets[i%2]
				cb.RunEffectPass(dst, result, pass)
				result = dst.Color()
			}
		}
	}

	result = r.accumulate(cb, layer, result)

	if c.cfg.ssaa > 0 {
		cb.Downsample(c.textureTarget, result)
	} else if result != c.texture {
		cb.CopyTexture(c.texture, result)
	}

	r.finishFrame(true)
	r.timings.Render = time.Since(start)
	r.dumpTimings()
	return c.texture
}

// accumulate blends the frame into the AA history. The first frame after a restart seeds the
// history without blending.
func (r *sceneRenderer) accumulate(cb rhi.CommandBuffer, layer *graph.Layer, frame rhi.Texture) rhi.Texture {
	rd := &layer.RenderData
	if !rd.ProgressiveAAActive && !rd.TemporalAAActive {
		return frame
	}
	c := r.chain
	if err := c.ensureAccumulator(); err != nil {
		common.WarnOnce("renderer.accumulator", "Failed to create the AA accumulator, skipping AA blend", "error", err)
		return frame
	}
	quality := min(int(layer.AntialiasingQuality), MaxAALevels)

	result := frame
	switch {
	case rd.ProgressiveAAActive && rd.ProgAAPassIndex >= quality && c.accumValid:
		return c.accum
	case !c.accumValid || (rd.ProgressiveAAActive && rd.ProgAAPassIndex == 0):
	default:
		factors := TemporalBlendFactors
		if rd.ProgressiveAAActive {
			factors = BlendFactors[rd.ProgAAPassIndex-1]
		}
		cb.Blend(c.blendTarget, frame, c.accum, factors)
		result = c.blend
	}
	cb.CopyTexture(c.accum, result)
	c.accumValid = true

	if rd.ProgressiveAAActive && rd.ProgAAPassIndex < quality {
		rd.ProgAAPassIndex++
	}
	if rd.TemporalAAActive {
		rd.TempAAPassIndex++
	}
	return result
}

func (r *sceneRenderer) clearColor(layer *graph.Layer) common.Color {
	if layer.Background != graph.BackgroundColor {
		return common.Transparent
	}
	tm := tonemapperFor(layer.Tonemap, r.tonemapper)
	if len(r.passes) > 0 || tm == nil {
		return layer.ClearColor
	}
	return tm(layer.ClearColor)
}

// finishFrame decides whether the renderer wants another frame and consumes one extra frame.
func (r *sceneRenderer) finishFrame(offscreen bool) {
	layer, ok := r.layer()
	if !ok {
		r.wantsFrames = false
		return
	}
	rd := layer.RenderData
	progressive := offscreen && layer.AntialiasingMode == graph.AntialiasingProgressive &&
		rd.ProgAAPassIndex < min(int(layer.AntialiasingQuality), MaxAALevels)
	r.wantsFrames = progressive || rd.TemporalAAActive || r.extraFrames > 0
	if r.extraFrames > 0 {
		r.extraFrames--
	}
}

func (r *sceneRenderer) dumpTimings() {
	if !r.dumpTimes {
		return
	}
	common.Logger().Info("render times",
		"layer", r.layerH,
		"sync", r.timings.Sync,
		"prepare", r.timings.Prepare,
		"render", r.timings.Render,
	)
}

func (r *sceneRenderer) Texture() rhi.Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chain == nil {
		return nil
	}
	return r.chain.texture
}

func (r *sceneRenderer) RequestsFrames() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wantsFrames
}

func (r *sceneRenderer) Timings() Timings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timings
}

// pickRay builds the ray through a logical viewport point with an unjittered projection.
func (r *sceneRenderer) pickRay(x, y float32) (picking.Ray, bool) {
	arena := r.rc.Arena()
	layer, ok := r.layer()
	if !ok {
		return picking.Ray{}, false
	}
	viewport := common.Rect{Width: float32(r.logicalSize.Width), Height: float32(r.logicalSize.Height)}
	arena.CalculateGlobalTransforms(r.layerH)
	_, cam, _ := r.resolveCamera(arena, layer)
	if cam == nil {
		return picking.ViewportRay(nil, x, y, viewport)
	}
	proj, ok := camera.Compute(cam, cam.Global, viewport)
	if !ok {
		return picking.Ray{}, false
	}
	return picking.ViewportRay(&proj, x, y, viewport)
}

func (r *sceneRenderer) Pick(x, y float32) (picking.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ray, ok := r.pickRay(x, y)
	if !ok {
		return picking.Result{}, false
	}
	return r.picker.Pick(ray, r.rc.Arena(), r.layerH)
}

func (r *sceneRenderer) PickAll(x, y float32) []picking.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	ray, ok := r.pickRay(x, y)
	if !ok {
		return nil
	}
	return r.picker.PickAll(ray, r.rc.Arena(), r.layerH)
}

func (r *sceneRenderer) PickSubset(x, y float32, objects []graph.Handle) []picking.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	ray, ok := r.pickRay(x, y)
	if !ok {
		return nil
	}
	return r.picker.PickSubset(ray, r.rc.Arena(), r.layerH, objects)
}

func (r *sceneRenderer) PickRay(ray picking.Ray) (picking.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rc.Arena().CalculateGlobalTransforms(r.layerH)
	return r.picker.Pick(ray, r.rc.Arena(), r.layerH)
}

func (r *sceneRenderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chain != nil {
		r.chain.release()
		r.chain = nil
	}
	arena := r.rc.Arena()
	if layer, ok := r.layer(); ok {
		layer.ResetEffects(arena)
		for _, h := range []graph.Handle{layer.SceneRoot, layer.ImportRoot} {
			if h.IsValid() {
				arena.RemoveChild(r.layerH, h)
			}
		}
	}
	arena.Free(r.layerH)
	r.prepared = false
	r.wantsFrames = false
	if r.ownPicker {
		r.picker.Close()
	}
}
