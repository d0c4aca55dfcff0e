package object

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
)

// SceneEnvironment holds the per-viewport render settings. The viewport copies it into its layer
// on every synchronization.
type SceneEnvironment struct {
	mu *sync.Mutex

	aaMode        graph.AntialiasingMode
	aaQuality     graph.AntialiasingQuality
	temporalAA    bool
	temporalAAStr float32
	ssaaMult      float32

	background graph.BackgroundMode
	clearColor common.Color

	ao          graph.AOSettings
	lightProbe  *Texture
	probeExpo   float32
	tonemap     graph.TonemapMode
	fog         graph.FogSettings
	lightmapper graph.LightmapperSettings
	debug       graph.DebugSettings
	scissor     common.Rect

	depthTest    bool
	depthPrepass bool

	effects []*Effect

	changed func()
}

// NewSceneEnvironment creates an environment with no antialiasing, a transparent background and depth testing on.
//
// Returns:
//   - *SceneEnvironment: the new environment
func NewSceneEnvironment(options ...EnvironmentBuilderOption) *SceneEnvironment {
	e := &SceneEnvironment{
		mu:            &sync.Mutex{},
		aaQuality:     graph.QualityHigh,
		temporalAAStr: 0.3,
		ssaaMult:      1,
		probeExpo:     1,
		depthTest:     true,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// SetChangedCallback registers fn to run after any setter. The viewport uses it to schedule a frame.
func (e *SceneEnvironment) SetChangedCallback(fn func()) {
	e.mu.Lock()
	e.changed = fn
	e.mu.Unlock()
}

func (e *SceneEnvironment) update(fn func()) {
	e.mu.Lock()
	fn()
	cb := e.changed
	e.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (e *SceneEnvironment) SetAntialiasing(mode graph.AntialiasingMode, quality graph.AntialiasingQuality) {
	e.update(func() { e.aaMode, e.aaQuality = mode, quality })
}

func (e *SceneEnvironment) Antialiasing() (graph.AntialiasingMode, graph.AntialiasingQuality) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aaMode, e.aaQuality
}

func (e *SceneEnvironment) SetTemporalAA(enabled bool, strength float32) {
	e.update(func() { e.temporalAA, e.temporalAAStr = enabled, strength })
}

func (e *SceneEnvironment) SetSSAAMultiplier(m float32) {
	e.update(func() { e.ssaaMult = m })
}

func (e *SceneEnvironment) SetBackground(mode graph.BackgroundMode, clear common.Color) {
	e.update(func() { e.background, e.clearColor = mode, clear })
}

func (e *SceneEnvironment) SetAO(ao graph.AOSettings) {
	e.update(func() { e.ao = ao })
}

// SetLightProbe sets the image used for image based lighting, or nil to disable it.
func (e *SceneEnvironment) SetLightProbe(t *Texture, exposure float32) {
	e.update(func() { e.lightProbe, e.probeExpo = t, exposure })
}

func (e *SceneEnvironment) SetTonemap(m graph.TonemapMode) {
	e.update(func() { e.tonemap = m })
}

func (e *SceneEnvironment) SetFog(f graph.FogSettings) {
	e.update(func() { e.fog = f })
}

func (e *SceneEnvironment) SetLightmapper(s graph.LightmapperSettings) {
	e.update(func() { e.lightmapper = s })
}

func (e *SceneEnvironment) SetDebug(d graph.DebugSettings) {
	e.update(func() { e.debug = d })
}

func (e *SceneEnvironment) SetScissor(r common.Rect) {
	e.update(func() { e.scissor = r })
}

func (e *SceneEnvironment) SetDepth(test, prepass bool) {
	e.update(func() { e.depthTest, e.depthPrepass = test, prepass })
}

// SetEffects replaces the post-processing chain. Effects run in the given order.
func (e *SceneEnvironment) SetEffects(effects ...*Effect) {
	e.update(func() { e.effects = append([]*Effect(nil), effects...) })
}

// Resources returns the objects the environment references, for attaching to a scene manager.
//
// Returns:
//   - []Object: the effects and the light probe texture
func (e *SceneEnvironment) Resources() []Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Object, 0, len(e.effects)+1)
	for _, eff := range e.effects {
		if eff != nil {
			out = append(out, eff)
		}
	}
	if e.lightProbe != nil {
		out = append(out, e.lightProbe)
	}
	return out
}

// Apply copies the settings into layer and rebuilds its effect chain from effects that already
// have live backend objects.
//
// Parameters:
//   - layer: the viewport's backend layer
//   - a: the arena holding the effects
func (e *SceneEnvironment) Apply(layer *graph.Layer, a *graph.Arena) {
	e.mu.Lock()
	defer e.mu.Unlock()

	layer.AntialiasingMode = e.aaMode
	layer.AntialiasingQuality = e.aaQuality
	layer.TemporalAAEnabled = e.temporalAA
	layer.TemporalAAStrength = e.temporalAAStr
	layer.SSAAMultiplier = e.ssaaMult
	layer.Background = e.background
	layer.ClearColor = e.clearColor
	layer.AO = e.ao
	layer.LightProbe.Image = graph.Handle{}
	if e.lightProbe != nil {
		layer.LightProbe.Image = e.lightProbe.Handle()
	}
	layer.LightProbe.Exposure = e.probeExpo
	layer.Tonemap = e.tonemap
	layer.Fog = e.fog
	layer.Lightmapper = e.lightmapper
	layer.Debug = e.debug
	layer.Scissor = e.scissor
	layer.DepthTestEnabled = e.depthTest
	layer.DepthPrepassEnabled = e.depthPrepass

	layer.ResetEffects(a)
	for i := len(e.effects) - 1; i >= 0; i-- {
		if e.effects[i] == nil {
			continue
		}
		layer.AddEffect(a, e.effects[i].Handle())
	}
}
