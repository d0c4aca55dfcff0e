package picking

// PickerBuilderOption is a functional option for configuring a Picker.
type PickerBuilderOption func(*picker)

// WithWorkerCount sets the number of pool workers running triangle tests.
//
// Parameters:
//   - n: the worker count, at least 1
//
// Returns:
//   - PickerBuilderOption: functional option to set the worker count
func WithWorkerCount(n int) PickerBuilderOption {
	return func(p *picker) {
		p.workers = n
	}
}

// WithWorkerPool makes the picker share an existing pool, such as a worker.DynamicWorkerPool.
// The picker never stops it.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - PickerBuilderOption: functional option to set the pool
func WithWorkerPool(pool TaskRunner) PickerBuilderOption {
	return func(p *picker) {
		p.pool = pool
	}
}
