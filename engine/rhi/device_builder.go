package rhi

import "github.com/Carmen-Shannon/oxy-scene/engine/shader"

// DeviceBuilderOption is a function that configures a WebGPU device during construction.
type DeviceBuilderOption func(*wgpuDevice)

// WithForceFallbackAdapter requests the software adapter instead of a hardware GPU.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: a function that applies the adapter preference
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.forceFallback = force
	}
}

// WithPresentMode sets the initial present mode of the window surface.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - DeviceBuilderOption: a function that applies the present mode
func WithPresentMode(mode PresentMode) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.presentMode = toWGPUPresentMode(mode)
	}
}

// WithShaderLibrary makes the device compile shaders from lib instead of a private library.
// Share the window's library so custom material shaders registered by the renderer resolve here.
//
// Parameters:
//   - lib: the shader library
//
// Returns:
//   - DeviceBuilderOption: a function that applies the library
func WithShaderLibrary(lib *shader.Library) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		if lib != nil {
			d.library = lib
		}
	}
}

// WithSampleCounts overrides the MSAA sample counts reported to the renderer.
//
// Parameters:
//   - counts: the supported sample counts in ascending order
//
// Returns:
//   - DeviceBuilderOption: a function that applies the sample counts
func WithSampleCounts(counts ...int) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		if len(counts) > 0 {
			d.sampleCounts = append([]int(nil), counts...)
		}
	}
}
