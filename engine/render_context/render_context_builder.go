package render_context

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/buffer_manager"
	"github.com/Carmen-Shannon/oxy-scene/engine/graph"
	"github.com/Carmen-Shannon/oxy-scene/engine/shader"
)

// RenderContextBuilderOption is a function that configures a render context.
type RenderContextBuilderOption func(*renderContext)

// WithArena shares an existing arena instead of creating one.
//
// Parameters:
//   - a: the arena
//
// Returns:
//   - RenderContextBuilderOption: the option
func WithArena(a *graph.Arena) RenderContextBuilderOption {
	return func(rc *renderContext) {
		rc.arena = a
	}
}

// WithShaderLibrary shares an existing shader library, typically the one the device compiles from.
//
// Parameters:
//   - l: the shader library
//
// Returns:
//   - RenderContextBuilderOption: the option
func WithShaderLibrary(l *shader.Library) RenderContextBuilderOption {
	return func(rc *renderContext) {
		rc.library = l
	}
}

// WithBufferManager shares an existing buffer manager. Its device is replaced with the context's.
//
// Parameters:
//   - bm: the buffer manager
//
// Returns:
//   - RenderContextBuilderOption: the option
func WithBufferManager(bm *buffer_manager.BufferManager) RenderContextBuilderOption {
	return func(rc *renderContext) {
		rc.buffers = bm
	}
}
