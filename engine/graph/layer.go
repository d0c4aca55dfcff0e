package graph

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
)

// AntialiasingMode selects the sampling strategy of a layer.
type AntialiasingMode uint8

const (
	AntialiasingNone AntialiasingMode = iota
	AntialiasingMSAA
	AntialiasingSSAA
	AntialiasingProgressive
)

func (m AntialiasingMode) String() string {
	switch m {
	case AntialiasingMSAA:
		return "MSAA"
	case AntialiasingSSAA:
		return "SSAA"
	case AntialiasingProgressive:
		return "ProgressiveAA"
	}
	return "NoAA"
}

// AntialiasingQuality is the requested quality level. Its value is the MSAA sample count
// and the number of frames progressive AA accumulates.
type AntialiasingQuality uint8

const (
	QualityMedium   AntialiasingQuality = 2
	QualityHigh     AntialiasingQuality = 4
	QualityVeryHigh AntialiasingQuality = 8
)

// BackgroundMode controls what the main pass clears to.
type BackgroundMode uint8

const (
	BackgroundTransparent BackgroundMode = iota
	BackgroundColor
	BackgroundSkyBox
)

// TonemapMode selects the final color mapping applied at the end of the effect chain.
type TonemapMode uint8

const (
	TonemapNone TonemapMode = iota
	TonemapLinear
	TonemapAces
	TonemapHejlDawson
	TonemapFilmic
)

// AOSettings are the screen-space ambient occlusion parameters.
type AOSettings struct {
	Strength   float32
	Distance   float32
	Softness   float32
	Bias       float32
	SampleRate int
	Dither     bool
}

// Enabled reports whether the occlusion pass has any visible effect.
func (s AOSettings) Enabled() bool {
	return s.Strength > 0 && s.Distance > 0
}

// LightProbeSettings configure image based lighting.
type LightProbeSettings struct {
	// Image is the probe image, or the zero Handle when no probe is set.
	Image       Handle
	Exposure    float32
	Horizon     float32
	Orientation mgl32.Vec3
}

// FogSettings configure distance fog.
type FogSettings struct {
	Enabled bool
	Color   common.Color
	Density float32
	Near    float32
	Far     float32
}

// LightmapperSettings configure the lightmap baker.
type LightmapperSettings struct {
	Samples   int
	Bounces   int
	Opacity   float32
	Source    string
	Denoise   bool
	BakedOnly bool
}

// DebugSettings are visualization toggles.
type DebugSettings struct {
	Wireframe  bool
	ShowBounds bool
}

// RenderData is the per-layer state owned by the renderer. Only the AA counters carry across frames.
type RenderData struct {
	// ProgAAPassIndex counts accumulated progressive AA frames. Zero means the next frame seeds the accumulator.
	ProgAAPassIndex int
	// TempAAPassIndex alternates the temporal AA jitter sign.
	TempAAPassIndex int
	// ProgressiveAAActive and TemporalAAActive are the modes in effect for the current frame.
	ProgressiveAAActive bool
	TemporalAAActive    bool
	// Jitter is the clip-space offset applied to the projection for the current frame.
	Jitter mgl32.Vec2
	// Camera is the camera resolved by the last prepare, or the zero Handle.
	Camera Handle
	// LastRevision is the arena revision seen by the last prepare.
	LastRevision uint64
}

// Layer is the backend root of one viewport's render graph.
type Layer struct {
	Node

	AntialiasingMode    AntialiasingMode
	AntialiasingQuality AntialiasingQuality
	TemporalAAEnabled   bool
	TemporalAAStrength  float32
	// SSAAMultiplier scales the main render target when SSAA is active.
	SSAAMultiplier float32

	Background BackgroundMode
	ClearColor common.Color

	AO          AOSettings
	LightProbe  LightProbeSettings
	Tonemap     TonemapMode
	Fog         FogSettings
	Lightmapper LightmapperSettings
	Debug       DebugSettings
	// Scissor limits rendering to a sub-rectangle of the viewport. An empty rect disables it.
	Scissor common.Rect

	DepthTestEnabled    bool
	DepthPrepassEnabled bool

	// FirstEffect heads the singly linked effect chain, in execution order.
	FirstEffect Handle
	// ExplicitCamera overrides camera discovery when valid.
	ExplicitCamera Handle
	// Lights are the lights found in the layer by the last prepare.
	Lights []Handle
	// ResourceLoaders holds resources that must be GPU-resident before drawing.
	ResourceLoaders map[Handle]struct{}

	// SceneRoot and ImportRoot are the roots of the viewport's own scene and of an imported scene.
	SceneRoot  Handle
	ImportRoot Handle

	RenderData RenderData
}

// NewLayer creates a layer with default settings: no AA, transparent background, depth test on.
func NewLayer() *Layer {
	l := &Layer{
		AntialiasingQuality: QualityHigh,
		TemporalAAStrength:  0.3,
		SSAAMultiplier:      1.0,
		DepthTestEnabled:    true,
		ResourceLoaders:     make(map[Handle]struct{}),
	}
	initNode(&l.Node, TypeLayer)
	return l
}

// AddEffect prepends h to the effect chain. Effects are added in reverse declared order
// so the finished chain runs in declared order.
//
// Parameters:
//   - a: the arena holding the effect
//   - h: the effect to prepend
//
// Returns:
//   - bool: false if h is not a live Effect
func (l *Layer) AddEffect(a *Arena, h Handle) bool {
	eff, ok := Lookup[*Effect](a, h)
	if !ok {
		return false
	}
	eff.NextEffect = l.FirstEffect
	l.FirstEffect = h
	return true
}

// ResetEffects unlinks the whole effect chain.
//
// Parameters:
//   - a: the arena holding the effects
func (l *Layer) ResetEffects(a *Arena) {
	cur := l.FirstEffect
	for cur.IsValid() {
		eff, ok := Lookup[*Effect](a, cur)
		if !ok {
			break
		}
		cur = eff.NextEffect
		eff.NextEffect = Handle{}
	}
	l.FirstEffect = Handle{}
}

// Effects returns the chain in execution order. A stale link ends the chain.
//
// Parameters:
//   - a: the arena holding the effects
//
// Returns:
//   - []*Effect: the live effects
func (l *Layer) Effects(a *Arena) []*Effect {
	var out []*Effect
	seen := make(map[Handle]struct{})
	for cur := l.FirstEffect; cur.IsValid(); {
		if _, dup := seen[cur]; dup {
			break
		}
		seen[cur] = struct{}{}
		eff, ok := Lookup[*Effect](a, cur)
		if !ok {
			break
		}
		out = append(out, eff)
		cur = eff.NextEffect
	}
	return out
}

// HasEffects reports whether any post-processing effect is attached.
func (l *Layer) HasEffects(a *Arena) bool {
	return len(l.Effects(a)) > 0
}
