package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/lightmapper"
	"github.com/Carmen-Shannon/oxy-scene/engine/object"
	"github.com/Carmen-Shannon/oxy-scene/engine/profiler"
	"github.com/Carmen-Shannon/oxy-scene/engine/render_context"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi/rhitest"
	"github.com/Carmen-Shannon/oxy-scene/engine/viewport"
	"github.com/Carmen-Shannon/oxy-scene/engine/window"
	"github.com/Carmen-Shannon/oxy-scene/engine/window_attachment"
)

// ErrNoViewport is returned when a z-index has no viewport.
var ErrNoViewport = errors.New("engine: no viewport at z-index")

// idleWait bounds how long the render loop sleeps when no viewport needs a frame.
const idleWait = 100 * time.Millisecond

// headlessHandle keys the attachment of an engine without a window.
const headlessHandle common.WindowHandle = 1 << 63

// engine implements the Engine interface.
// Coordinates engine, render, and window threads.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates
	pointerChannel  chan common.PointerEvent
	resizeChannel   chan common.Size
	bakeChannel     chan bakeRequest
	wakeChannel     chan struct{}

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window       window.Window
	windowHandle common.WindowHandle
	rc           render_context.RenderContext
	registry     *window_attachment.Registry

	settings     config.Config
	settingsFile string
	cancelWatch  context.CancelFunc

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)
	contentFunc    func(cb rhi.CommandBuffer)
	clearColor     common.Color

	viewports map[int]viewport.Viewport
	surface   common.Size
	dpr       float32
	dirty     atomic.Bool

	baker lightmapper.Lightmapper

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

type bakeRequest struct {
	z        int
	progress func(lightmapper.Progress)
	done     chan bakeResult
}

type bakeResult struct {
	res lightmapper.Result
	err error
}

// Engine is the main entry point for the engine.
// It drives the tick loop, the render loop and the window, and composes its viewports into the
// window surface in z-index order.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance, or nil for a headless engine
	Window() window.Window

	// Handle returns the key of the engine's window attachment.
	//
	// Returns:
	//   - common.WindowHandle: the window handle
	Handle() common.WindowHandle

	// RenderContext returns the render state shared by the engine's viewports.
	//
	// Returns:
	//   - render_context.RenderContext: the render context
	RenderContext() render_context.RenderContext

	// Registry returns the window attachment registry.
	//
	// Returns:
	//   - *window_attachment.Registry: the registry
	Registry() *window_attachment.Registry

	// Settings returns the current renderer settings.
	//
	// Returns:
	//   - config.Config: the settings
	Settings() config.Config

	// ApplySettings replaces the renderer settings and applies them to every viewport.
	//
	// Parameters:
	//   - cfg: the new settings
	//
	// Returns:
	//   - error: an error wrapping config.ErrInvalidSetting, leaving the current settings in place
	ApplySettings(cfg config.Config) error

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for scene changes driven by game logic and animation.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each rendered frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetContentCallback registers the host content recorded into the surface pass between the
	// underlay and the other viewports.
	//
	// Parameters:
	//   - fn: records into the open surface pass, or nil
	SetContentCallback(fn func(cb rhi.CommandBuffer))

	// SetClearColor sets the surface clear color.
	//
	// Parameters:
	//   - c: the clear color
	SetClearColor(c common.Color)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// NewViewport creates a viewport on the engine's window and registers it at z. The viewport
	// covers the whole window unless a geometry option is given, and its environment starts from
	// the engine settings unless an environment option is given.
	//
	// Parameters:
	//   - z: the z-index determining compose order (lower composes first)
	//   - options: viewport options
	//
	// Returns:
	//   - viewport.Viewport: the new viewport
	NewViewport(z int, options ...viewport.ViewportBuilderOption) viewport.Viewport

	// AddViewport registers a viewport at the given z-index, replacing any viewport there.
	//
	// Parameters:
	//   - z: the z-index determining compose order (lower composes first)
	//   - v: the viewport
	AddViewport(z int, v viewport.Viewport)

	// RemoveViewport unregisters and closes the viewport at z.
	//
	// Parameters:
	//   - z: the z-index of the viewport to remove
	RemoveViewport(z int)

	// Viewport retrieves the viewport registered at z.
	//
	// Parameters:
	//   - z: the z-index
	//
	// Returns:
	//   - viewport.Viewport: the viewport, or nil if not found
	Viewport(z int) viewport.Viewport

	// Viewports returns a copy of all registered viewports keyed by z-index.
	//
	// Returns:
	//   - map[int]viewport.Viewport: a copy of the viewports map
	Viewports() map[int]viewport.Viewport

	// BakeLightmaps bakes the lighting of the viewport at z with its environment's lightmapper
	// settings. While the engine runs, the bake happens on the render goroutine between frames and
	// blocks rendering until it ends.
	//
	// Parameters:
	//   - z: the viewport's z-index
	//   - progress: called after each model, may be nil
	//
	// Returns:
	//   - lightmapper.Result: the bake summary
	//   - error: ErrNoViewport, lightmapper.ErrBakeCancelled or a bake error
	BakeLightmaps(z int, progress func(lightmapper.Progress)) (lightmapper.Result, error)

	// CancelBake stops a running bake. Safe from any goroutine.
	CancelBake()

	// Run starts the main engine loop (blocks until the window closes or Quit is called).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// Without a render context option, the device is created from the window surface, or a recording
// device is used when the settings force software rendering or no window is given.
//
// Parameters:
//   - options: functional options for engine configuration (window, settings, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		pointerChannel:  make(chan common.PointerEvent, 64),
		resizeChannel:   make(chan common.Size, 1),
		bakeChannel:     make(chan bakeRequest),
		wakeChannel:     make(chan struct{}, 1),
		quitChannel:     make(chan struct{}),
		registry:        window_attachment.NewRegistry(),
		settings:        config.DefaultConfig(),
		viewports:       make(map[int]viewport.Viewport),
		engineTickRate:  time.Second / 60,
		surface:         common.Size{Width: 1280, Height: 720},
		dpr:             1,
		clearColor:      common.Color{A: 1},
	}

	for _, opt := range options {
		opt(e)
	}

	if e.settingsFile != "" {
		cfg, err := config.Load(e.settingsFile)
		if err != nil {
			common.Logger().Error("Failed to load settings, using defaults", "path", e.settingsFile, "error", err)
		} else {
			e.settings = cfg
		}
	}
	e.profiler = profiler.NewProfiler(
		profiler.WithInterval(profileInterval(e.settings)),
		profiler.WithRenderTimings(e.settings.Debug.DumpRenderTimes),
	)
	if e.settings.Debug.ProfileSeconds > 0 {
		e.profilingEnabled = true
	}

	e.windowHandle = headlessHandle
	if e.window != nil {
		e.windowHandle = e.window.Handle()
		e.surface = common.Size{Width: e.window.Width(), Height: e.window.Height()}
		e.dpr = e.window.DevicePixelRatio()
		e.window.SetResizeCallback(func(width, height int) {
			e.sendResize(common.Size{Width: width, Height: height})
		})
		// The window is closed on the main thread once the engine quits.
		e.window.SetUpdateCallback(func() {
			select {
			case <-e.quitChannel:
				e.window.Close()
			default:
			}
		})
		e.window.SetPointerCallback(func(ev common.PointerEvent) {
			select {
			case e.pointerChannel <- ev:
			default:
				common.WarnOnce("engine.pointer", "Pointer events are arriving faster than frames, dropping")
			}
		})
	}
	if e.rc == nil {
		e.rc = render_context.NewRenderContext(e.newDevice())
	}
	if d := e.rc.Device(); d != nil {
		if mode, err := e.settings.PresentMode(); err == nil {
			d.SetPresentMode(mode)
		}
		d.ConfigureSurface(e.surface)
	}
	e.baker = lightmapper.NewLightmapper(e.rc.BufferManager())
	return e
}

// newDevice creates the graphics device. A failed GPU device leaves the engine without one; the
// viewports then skip their frames.
func (e *engine) newDevice() rhi.Device {
	if e.window == nil || e.settings.Render.ForceSoftware {
		return rhitest.NewDevice()
	}
	mode, _ := e.settings.PresentMode()
	d, err := rhi.NewWGPUDevice(e.window.SurfaceDescriptor(), rhi.WithPresentMode(mode))
	if err != nil {
		common.Logger().Error("Failed to create graphics device", "error", err)
		return nil
	}
	return d
}

func profileInterval(cfg config.Config) time.Duration {
	if cfg.Debug.ProfileSeconds <= 0 {
		return time.Second
	}
	return time.Duration(cfg.Debug.ProfileSeconds * float64(time.Second))
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Handle() common.WindowHandle {
	return e.windowHandle
}

func (e *engine) RenderContext() render_context.RenderContext {
	return e.rc
}

func (e *engine) Registry() *window_attachment.Registry {
	return e.registry
}

func (e *engine) Settings() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

func (e *engine) ApplySettings(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, quality, _ := cfg.Antialiasing()
	e.mu.Lock()
	e.settings = cfg
	vps := e.sortedViewports(false)
	e.mu.Unlock()

	for _, v := range vps {
		applyEnvironment(v.Environment(), cfg, mode, quality)
	}
	if d := e.rc.Device(); d != nil {
		present, _ := cfg.PresentMode()
		d.SetPresentMode(present)
	}
	e.sendResize(e.surfaceSize())
	common.Logger().Info("Settings applied", "aa_mode", cfg.Render.AAMode, "aa_quality", cfg.Render.AAQuality)
	return nil
}

func applyEnvironment(env *object.SceneEnvironment, cfg config.Config, mode graph.AntialiasingMode, quality graph.AntialiasingQuality) {
	env.SetAntialiasing(mode, quality)
	env.SetTemporalAA(cfg.Render.TemporalAA, cfg.Render.TemporalAAStrength)
	env.SetDebug(graph.DebugSettings{Wireframe: cfg.Debug.Wireframe})
}

func (e *engine) Run() {
	e.running.Store(true)
	e.watchSettings()
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
		e.window.Close()
	} else {
		<-e.quitChannel
	}
	e.wg.Wait()
	if e.cancelWatch != nil {
		e.cancelWatch()
	}
	e.shutdown()
}

// watchSettings reloads the settings file on change.
func (e *engine) watchSettings() {
	if e.settingsFile == "" {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	err := config.Watch(ctx, e.settingsFile, func(cfg config.Config, err error) {
		if err != nil {
			common.Logger().Warn("Failed to reload settings", "path", e.settingsFile, "error", err)
			return
		}
		if err := e.ApplySettings(cfg); err != nil {
			common.Logger().Warn("Rejected reloaded settings", "path", e.settingsFile, "error", err)
		}
	})
	if err != nil {
		cancel()
		common.Logger().Warn("Settings file will not be watched", "path", e.settingsFile, "error", err)
		return
	}
	e.cancelWatch = cancel
}

// shutdown closes every viewport and releases the device.
func (e *engine) shutdown() {
	e.mu.Lock()
	vps := e.sortedViewports(false)
	clear(e.viewports)
	e.mu.Unlock()
	for _, v := range vps {
		v.Close()
	}
	if wa, ok := e.registry.Lookup(e.windowHandle); ok {
		wa.ReleaseCachedResources(e.rc)
	}
	e.baker.Close()
	if d := e.rc.Device(); d != nil {
		e.rc.SetDevice(nil)
		d.Release()
	}
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		e.baker.Cancel()
		close(e.quitChannel)
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the render loop in its own goroutine, which becomes the render thread.
// Frames are only rendered while a viewport needs one; otherwise the loop waits for input,
// a resize, a bake or a wake-up from a viewport.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			common.Logger().Error("Render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	e.rc.BindThread()

	lastRender := time.Now()
	for {
		select {
		case <-e.quitChannel:
			return
		case req := <-e.bakeChannel:
			res, err := e.bake(req.z, req.progress)
			req.done <- bakeResult{res: res, err: err}
			continue
		default:
		}

		if !e.needsFrame() {
			select {
			case <-e.quitChannel:
				return
			case req := <-e.bakeChannel:
				res, err := e.bake(req.z, req.progress)
				req.done <- bakeResult{res: res, err: err}
			case <-e.wakeChannel:
			case size := <-e.resizeChannel:
				e.resize(size)
			case ev := <-e.pointerChannel:
				e.dispatchPointer(ev)
			case <-time.After(idleWait):
			}
			continue
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now
		e.renderFrame(dt)

		// Frame rate limiting
		if e.renderFrameLimit > 0 {
			elapsed := time.Since(lastRender)
			if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// needsFrame reports whether a frame is due: something changed or a viewport keeps animating.
func (e *engine) needsFrame() bool {
	if e.dirty.Load() || len(e.pointerChannel) > 0 || len(e.resizeChannel) > 0 {
		return true
	}
	e.mu.Lock()
	vps := e.sortedViewports(true)
	e.mu.Unlock()
	for _, v := range vps {
		if v.NeedsFrame() {
			return true
		}
	}
	return false
}

// renderFrame runs one frame: input, synchronization, composition, cleanup and profiling.
func (e *engine) renderFrame(dt float32) {
	e.dirty.Store(false)
	e.drainEvents()

	e.mu.Lock()
	vps := e.sortedViewports(true)
	clearColor, content := e.clearColor, e.contentFunc
	e.mu.Unlock()

	for _, v := range vps {
		v.Synchronize(e.rc)
	}

	if d := e.rc.Device(); d != nil {
		cb, err := d.BeginFrame()
		if err != nil {
			common.WarnOnce("engine.begin_frame", "Failed to begin frame", "error", err)
		} else {
			viewport.Compose(viewport.Frame{CB: cb, Surface: e.surfaceSize(), Clear: clearColor, Content: content}, vps...)
			if err := d.EndFrame(); err != nil {
				common.WarnOnce("engine.end_frame", "Failed to end frame", "error", err)
			}
		}
	}

	if wa, ok := e.registry.Lookup(e.windowHandle); ok {
		wa.ReleaseCachedResources(e.rc)
	}

	if e.renderCallback != nil {
		e.renderCallback(dt)
	}

	if e.profilingEnabled && e.profiler != nil {
		samples := make([]profiler.Sample, 0, len(vps))
		for _, v := range vps {
			if r := v.Renderer(); r != nil {
				samples = append(samples, profiler.Sample{Name: v.Name(), Timings: r.Timings()})
			}
		}
		e.profiler.Record(samples...)
		e.profiler.Tick()
	}
}

// drainEvents applies pending resizes and pointer events without blocking.
func (e *engine) drainEvents() {
	for {
		select {
		case size := <-e.resizeChannel:
			e.resize(size)
		case ev := <-e.pointerChannel:
			e.dispatchPointer(ev)
		default:
			return
		}
	}
}

// dispatchPointer offers an event to the viewports from the top down until one accepts it.
func (e *engine) dispatchPointer(ev common.PointerEvent) bool {
	e.mu.Lock()
	vps := e.sortedViewports(true)
	e.mu.Unlock()
	for _, v := range slices.Backward(vps) {
		if v.HandlePointer(ev) {
			return true
		}
	}
	return false
}

// resize reconfigures the surface and stretches every viewport that covered the old window.
func (e *engine) resize(size common.Size) {
	if size.Empty() {
		return
	}
	e.mu.Lock()
	old, oldDpr := e.surface, e.dpr
	e.surface = size
	if e.window != nil {
		e.dpr = e.window.DevicePixelRatio()
	}
	dpr := e.dpr
	vps := e.sortedViewports(false)
	e.mu.Unlock()

	if d := e.rc.Device(); d != nil {
		d.ConfigureSurface(size)
	}
	full := fullRect(old, oldDpr)
	for _, v := range vps {
		if rect, _ := v.Geometry(); rect == full || rect.Empty() {
			v.SetGeometry(fullRect(size, dpr), dpr)
		}
	}
	e.dirty.Store(true)
}

// fullRect is the whole window in logical pixels.
func fullRect(size common.Size, dpr float32) common.Rect {
	if dpr <= 0 {
		dpr = 1
	}
	return common.Rect{Width: float32(size.Width) / dpr, Height: float32(size.Height) / dpr}
}

func (e *engine) surfaceSize() common.Size {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surface
}

func (e *engine) sendResize(size common.Size) {
	select {
	case <-e.resizeChannel:
	default:
	}
	select {
	case e.resizeChannel <- size:
	default:
	}
	e.wake()
}

// wake interrupts an idle render loop. It never blocks.
func (e *engine) wake() {
	e.dirty.Store(true)
	select {
	case e.wakeChannel <- struct{}{}:
	default:
	}
}

// sortedViewports returns the viewports in ascending z-index order. The caller holds e.mu.
func (e *engine) sortedViewports(activeOnly bool) []viewport.Viewport {
	keys := make([]int, 0, len(e.viewports))
	for k := range e.viewports {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]viewport.Viewport, 0, len(keys))
	for _, k := range keys {
		if v := e.viewports[k]; !activeOnly || v.Active() {
			out = append(out, v)
		}
	}
	return out
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetContentCallback(fn func(cb rhi.CommandBuffer)) {
	e.mu.Lock()
	e.contentFunc = fn
	e.mu.Unlock()
	e.wake()
}

func (e *engine) SetClearColor(c common.Color) {
	e.mu.Lock()
	e.clearColor = c
	e.mu.Unlock()
	e.wake()
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}

func (e *engine) NewViewport(z int, options ...viewport.ViewportBuilderOption) viewport.Viewport {
	e.mu.Lock()
	size, dpr, cfg := e.surface, e.dpr, e.settings
	e.mu.Unlock()

	env := object.NewSceneEnvironment()
	mode, quality, _ := cfg.Antialiasing()
	applyEnvironment(env, cfg, mode, quality)

	opts := []viewport.ViewportBuilderOption{
		viewport.WithGeometry(fullRect(size, dpr), dpr),
		viewport.WithEnvironment(env),
		viewport.WithRendererOptions(
			renderer.WithPickWorkers(cfg.Picking.Workers),
			renderer.WithRenderTimes(cfg.Debug.DumpRenderTimes),
		),
	}
	opts = append(opts, options...)
	opts = append(opts, viewport.WithUpdateCallback(e.wake))
	v := viewport.NewViewport(e.registry, e.windowHandle, opts...)
	e.AddViewport(z, v)
	return v
}

func (e *engine) AddViewport(z int, v viewport.Viewport) {
	if v == nil {
		panic("engine: AddViewport requires a viewport")
	}
	e.mu.Lock()
	e.viewports[z] = v
	e.mu.Unlock()
	e.wake()
}

func (e *engine) RemoveViewport(z int) {
	e.mu.Lock()
	v, ok := e.viewports[z]
	delete(e.viewports, z)
	e.mu.Unlock()
	if ok {
		v.Close()
		e.wake()
	}
}

func (e *engine) Viewport(z int) viewport.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewports[z]
}

func (e *engine) Viewports() map[int]viewport.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[int]viewport.Viewport, len(e.viewports))
	for k, v := range e.viewports {
		cp[k] = v
	}
	return cp
}

func (e *engine) BakeLightmaps(z int, progress func(lightmapper.Progress)) (lightmapper.Result, error) {
	if !e.running.Load() {
		return e.bake(z, progress)
	}
	req := bakeRequest{z: z, progress: progress, done: make(chan bakeResult, 1)}
	select {
	case e.bakeChannel <- req:
	case <-e.quitChannel:
		return lightmapper.Result{}, lightmapper.ErrBakeCancelled
	}
	r := <-req.done
	return r.res, r.err
}

func (e *engine) CancelBake() {
	e.baker.Cancel()
}

// bake runs on the render goroutine so the arena holds still.
func (e *engine) bake(z int, progress func(lightmapper.Progress)) (lightmapper.Result, error) {
	v := e.Viewport(z)
	if v == nil {
		return lightmapper.Result{}, fmt.Errorf("%w: %d", ErrNoViewport, z)
	}
	if !v.Synchronize(e.rc) {
		return lightmapper.Result{}, fmt.Errorf("engine: viewport %q cannot be synchronized", v.Name())
	}
	layerH := v.Renderer().Layer()
	layer, ok := graph.Lookup[*graph.Layer](e.rc.Arena(), layerH)
	if !ok {
		return lightmapper.Result{}, fmt.Errorf("engine: viewport %q has no layer", v.Name())
	}
	res, err := e.baker.Bake(e.rc.Arena(), layerH, layer.Lightmapper, progress)
	e.wake()
	return res, err
}
