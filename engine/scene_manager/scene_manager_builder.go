package scene_manager

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/render_context"
)

// SceneManagerBuilderOption is a function that configures a scene manager.
type SceneManagerBuilderOption func(*sceneManager)

// WithRenderContext sets the render context before the first synchronization.
//
// Parameters:
//   - rc: the render context
//
// Returns:
//   - SceneManagerBuilderOption: the option
func WithRenderContext(rc render_context.RenderContext) SceneManagerBuilderOption {
	return func(sm *sceneManager) {
		sm.rc = rc
	}
}

// WithUpdateRequestCallback sets the function called when the scene needs another frame.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - SceneManagerBuilderOption: the option
func WithUpdateRequestCallback(fn func()) SceneManagerBuilderOption {
	return func(sm *sceneManager) {
		sm.updateRequest = fn
	}
}

// WithReleaseSink sets the deferred release queue for backend objects holding device resources.
//
// Parameters:
//   - sink: the release queue
//
// Returns:
//   - SceneManagerBuilderOption: the option
func WithReleaseSink(sink func(graph.Handle)) SceneManagerBuilderOption {
	return func(sm *sceneManager) {
		sm.releaseSink = sink
	}
}
