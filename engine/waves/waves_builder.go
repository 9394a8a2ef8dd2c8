package waves

// WavesBuilderOption configures a simulator at construction.
type WavesBuilderOption func(*waves)

// WithMaxSubsteps caps the number of fixed steps a single Update may run. When the accumulated
// time would need more, the excess whole steps are dropped and a warning is logged. Zero means
// no cap.
func WithMaxSubsteps(n int) WavesBuilderOption {
	return func(w *waves) {
		w.maxSubsteps = n
	}
}

// WithWorkers splits each step into row bands computed on a worker pool of n workers.
// Values below 2 keep the step on the calling goroutine.
func WithWorkers(n int) WavesBuilderOption {
	return func(w *waves) {
		w.workers = n
	}
}

// WithParallelRows sets the minimum interior row count before a step is split across workers.
func WithParallelRows(rows int) WavesBuilderOption {
	return func(w *waves) {
		w.parallelRows = rows
	}
}
