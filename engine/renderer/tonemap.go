package renderer

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/rhi"
	"github.com/Carmen-Shannon/oxy-scene/engine/shader"
)

// Tonemapper maps a linear color to display range. It runs once per frame: on the final effect
// output when effects exist, otherwise on every draw color.
type Tonemapper func(common.Color) common.Color

// Reinhard is the default tonemapper, c / (c + 1) per color channel. It matches the built-in
// tonemap shader.
func Reinhard(c common.Color) common.Color {
	return common.Color{R: c.R / (c.R + 1), G: c.G / (c.G + 1), B: c.B / (c.B + 1), A: c.A}
}

// tonemapperFor returns the tonemapper of a layer mode, or nil when the layer does not tonemap.
// Linear output passes colors through unchanged.
func tonemapperFor(mode graph.TonemapMode, tm Tonemapper) Tonemapper {
	if mode == graph.TonemapNone || mode == graph.TonemapLinear || tm == nil {
		return nil
	}
	return tm
}

// tonemapPass is the last pass of the effect chain.
func tonemapPass(tm Tonemapper) rhi.EffectPassDesc {
	return rhi.EffectPassDesc{ShaderKey: shader.BuiltinTonemap, Reference: tm}
}
