package lightmapper

import "github.com/Carmen-Shannon/oxy-scene/engine/picking"

// LightmapperBuilderOption is a functional option for configuring a Lightmapper.
type LightmapperBuilderOption func(*lightmapper)

// WithWorkerCount sets the number of models baked at once.
//
// Parameters:
//   - n: the worker count, at least 1
//
// Returns:
//   - LightmapperBuilderOption: the option
func WithWorkerCount(n int) LightmapperBuilderOption {
	return func(l *lightmapper) {
		l.workers = n
	}
}

// WithWorkerPool runs bake jobs on an existing pool, such as a worker.DynamicWorkerPool. The pool
// must not be the one the shadow ray picker uses, and Close leaves it running.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - LightmapperBuilderOption: the option
func WithWorkerPool(pool picking.TaskRunner) LightmapperBuilderOption {
	return func(l *lightmapper) {
		l.pool = pool
	}
}

// WithPicker traces shadow rays with p. Close leaves it running.
//
// Parameters:
//   - p: the picker
//
// Returns:
//   - LightmapperBuilderOption: the option
func WithPicker(p picking.Picker) LightmapperBuilderOption {
	return func(l *lightmapper) {
		l.picker = p
	}
}

// WithShadowBias sets how far shadow rays start from the surface along its normal.
//
// Parameters:
//   - bias: the offset in scene units
//
// Returns:
//   - LightmapperBuilderOption: the option
func WithShadowBias(bias float32) LightmapperBuilderOption {
	return func(l *lightmapper) {
		l.bias = bias
	}
}
