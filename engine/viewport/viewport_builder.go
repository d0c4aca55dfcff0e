package viewport

import (
	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/object"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene_manager"
)

// ViewportBuilderOption is a function that configures a viewport.
type ViewportBuilderOption func(*viewport)

// WithName sets the viewport's name.
//
// Parameters:
//   - name: the name
//
// Returns:
//   - ViewportBuilderOption: the option
func WithName(name string) ViewportBuilderOption {
	return func(v *viewport) {
		v.name = name
	}
}

// WithSceneManager shows an existing scene instead of creating an empty one. The viewport closes it
// on Close.
//
// Parameters:
//   - sm: the scene manager
//
// Returns:
//   - ViewportBuilderOption: the option
func WithSceneManager(sm scene_manager.SceneManager) ViewportBuilderOption {
	return func(v *viewport) {
		v.sm = sm
	}
}

// WithImportScene shows a second scene next to the viewport's own.
//
// Parameters:
//   - sm: the imported scene
//
// Returns:
//   - ViewportBuilderOption: the option
func WithImportScene(sm scene_manager.SceneManager) ViewportBuilderOption {
	return func(v *viewport) {
		v.importSM = sm
	}
}

// WithEnvironment sets the render settings.
//
// Parameters:
//   - env: the environment
//
// Returns:
//   - ViewportBuilderOption: the option
func WithEnvironment(env *object.SceneEnvironment) ViewportBuilderOption {
	return func(v *viewport) {
		v.env = env
	}
}

// WithCamera sets the explicit camera.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - ViewportBuilderOption: the option
func WithCamera(cam *object.Camera) ViewportBuilderOption {
	return func(v *viewport) {
		v.cam = cam
	}
}

// WithRenderMode sets the initial render mode. The default is RenderModeOffscreen.
//
// Parameters:
//   - mode: the render mode
//
// Returns:
//   - ViewportBuilderOption: the option
func WithRenderMode(mode RenderMode) ViewportBuilderOption {
	return func(v *viewport) {
		v.mode = mode
	}
}

// WithGeometry sets the initial rectangle in logical window pixels and the device pixel ratio.
//
// Parameters:
//   - rect: the rectangle
//   - dpr: the device pixel ratio
//
// Returns:
//   - ViewportBuilderOption: the option
func WithGeometry(rect common.Rect, dpr float32) ViewportBuilderOption {
	return func(v *viewport) {
		v.rect = rect
		if dpr > 0 {
			v.dpr = dpr
		}
	}
}

// WithRendererOptions passes options to every renderer the viewport creates.
//
// Parameters:
//   - options: the renderer options
//
// Returns:
//   - ViewportBuilderOption: the option
func WithRendererOptions(options ...renderer.SceneRendererBuilderOption) ViewportBuilderOption {
	return func(v *viewport) {
		v.rendererOps = append(v.rendererOps, options...)
	}
}

// WithPointerCallback sets the function receiving pointer events that hit scene content.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ViewportBuilderOption: the option
func WithPointerCallback(fn PointerCallback) ViewportBuilderOption {
	return func(v *viewport) {
		v.pointer = fn
	}
}

// WithUpdateCallback sets the function called whenever the viewport needs another frame. It may
// run on any goroutine and must not call back into the viewport.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ViewportBuilderOption: the option
func WithUpdateCallback(fn func()) ViewportBuilderOption {
	return func(v *viewport) {
		v.onUpdate = fn
	}
}
