package renderer

import "github.com/Carmen-Shannon/oxy-scene/engine/picking"

// SceneRendererBuilderOption is a functional option for configuring a SceneRenderer.
type SceneRendererBuilderOption func(*sceneRenderer)

// WithPicker sets the picker used by the pick methods, typically to share one between viewports.
//
// Parameters:
//   - p: the picker
//
// Returns:
//   - SceneRendererBuilderOption: functional option to set the picker
func WithPicker(p picking.Picker) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.picker = p
	}
}

// WithPickWorkers sets the worker count of the renderer's own picker. It is ignored when
// WithPicker is also given.
//
// Parameters:
//   - n: the worker count
//
// Returns:
//   - SceneRendererBuilderOption: functional option to set the pick worker count
func WithPickWorkers(n int) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.pickWorkers = max(1, n)
	}
}

// WithTonemapper replaces the Reinhard tonemapper used by layers with a tonemap mode set.
//
// Parameters:
//   - tm: the tonemapper, or nil to disable tonemapping
//
// Returns:
//   - SceneRendererBuilderOption: functional option to set the tonemapper
func WithTonemapper(tm Tonemapper) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.tonemapper = tm
	}
}

// WithRenderTimes logs the phase durations of every frame.
//
// Parameters:
//   - enabled: true to log frame timings
//
// Returns:
//   - SceneRendererBuilderOption: functional option to toggle timing logs
func WithRenderTimes(enabled bool) SceneRendererBuilderOption {
	return func(r *sceneRenderer) {
		r.dumpTimes = enabled
	}
}
