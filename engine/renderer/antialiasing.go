package renderer

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxTemporalAALevels is the number of extra frames requested after temporal AA is switched on or
// the AA settings change while it is on.
const MaxTemporalAALevels = 2

// MaxAALevels is the highest progressive AA quality, and the length of the blend and jitter tables.
const MaxAALevels = 8

// BlendFactors are the (frame, accumulator) weights of progressive AA, indexed by accumulated
// frame count minus one.
var BlendFactors = [MaxAALevels][2]float32{
	{0.500000, 0.500000},
	{0.333333, 0.666667},
	{0.250000, 0.750000},
	{0.200000, 0.800000},
	{0.166667, 0.833333},
	{0.142857, 0.857143},
	{0.125000, 0.875000},
	{0.111111, 0.888889},
}

// TemporalBlendFactors weigh the frame against the history when temporal AA is active.
var TemporalBlendFactors = [2]float32{0.5, 0.5}

// progressiveOffsets are sub-pixel jitter offsets in pixels, one per accumulated frame.
var progressiveOffsets = [MaxAALevels]mgl32.Vec2{
	{-0.170840, -0.553840},
	{0.162960, -0.319340},
	{0.360260, -0.245840},
	{-0.561340, -0.149540},
	{0.249460, 0.453460},
	{-0.336340, 0.378260},
	{0.340000, 0.166260},
	{0.235760, 0.527760},
}

// SSAAMultiplier returns the supersampling scale for an AA quality.
//
// Parameters:
//   - q: the antialiasing quality
//
// Returns:
//   - float32: 1.2 for Medium, 1.5 for High and 2.0 otherwise
func SSAAMultiplier(q graph.AntialiasingQuality) float32 {
	switch q {
	case graph.QualityMedium:
		return 1.2
	case graph.QualityHigh:
		return 1.5
	}
	return 2.0
}

// MSAASampleCount returns the sample count of the main render target. Anything but MSAA mode
// renders single-sampled. An unsupported count degrades to the largest supported count below it,
// or to 1, with a one-time warning.
//
// Parameters:
//   - d: the device
//   - mode: the layer's AA mode
//   - quality: the layer's AA quality
//
// Returns:
//   - int: the sample count, at least 1 and never above the requested count
func MSAASampleCount(d rhi.Device, mode graph.AntialiasingMode, quality graph.AntialiasingQuality) int {
	if d == nil || mode != graph.AntialiasingMSAA {
		return 1
	}
	if !d.IsFeatureSupported(rhi.FeatureMultisampleRenderBuffer) {
		common.WarnOnce("renderer.msaa.unsupported", "Multisample renderbuffers are not supported, disabling MSAA")
		return 1
	}
	samples := max(1, int(quality))
	best := 1
	for _, c := range d.SupportedSampleCounts() {
		if c <= samples && c > best {
			best = c
		}
	}
	if best != samples {
		common.WarnOnce("renderer.msaa.degraded", "MSAA sample count is not supported, using a lower count",
			"requested", samples, "samples", best)
	}
	return best
}

// ProgressiveJitter returns the NDC offset of a progressive AA frame. The seeding frame and frames
// past the quality level are not jittered.
//
// Parameters:
//   - index: the number of frames accumulated so far
//   - quality: the layer's AA quality
//   - viewport: the size of the rendered image
//
// Returns:
//   - mgl32.Vec2: the offset to apply to the projection
func ProgressiveJitter(index int, quality graph.AntialiasingQuality, viewport common.Size) mgl32.Vec2 {
	if index <= 0 || index >= int(quality) || index > MaxAALevels || viewport.Empty() {
		return mgl32.Vec2{}
	}
	o := progressiveOffsets[index-1]
	return mgl32.Vec2{o.X() / (float32(viewport.Width) / 2), o.Y() / (float32(viewport.Height) / 2)}
}

// TemporalJitter returns the NDC offset of a temporal AA frame. The sign alternates every frame.
//
// Parameters:
//   - index: the temporal frame counter
//   - strength: the layer's temporal AA strength in pixels
//   - viewport: the size of the rendered image
//
// Returns:
//   - mgl32.Vec2: the offset to apply to the projection
func TemporalJitter(index int, strength float32, viewport common.Size) mgl32.Vec2 {
	if viewport.Empty() {
		return mgl32.Vec2{}
	}
	f := float32(1-2*(index%2)) * strength
	return mgl32.Vec2{f / (float32(viewport.Width) / 2), f / (float32(viewport.Height) / 2)}
}
