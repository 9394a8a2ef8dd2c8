package renderer

import "time"

// SimBackendBuilderOption configures a simulated device. The second argument is the command
// queue depth, which is only needed while building.
type SimBackendBuilderOption func(b *simBackend, depth *int)

// WithLatency sets how long the simulated device spends on each workload.
//
// Parameters:
//   - d: per-workload execution time (zero completes as fast as the goroutine runs)
//
// Returns:
//   - SimBackendBuilderOption: option function to apply
func WithLatency(d time.Duration) SimBackendBuilderOption {
	return func(b *simBackend, _ *int) {
		if d >= 0 {
			b.latency = d
		}
	}
}

// WithQueueDepth sets how many commands may be queued before Execute and Signal block.
func WithQueueDepth(n int) SimBackendBuilderOption {
	return func(_ *simBackend, depth *int) {
		if n > 0 {
			*depth = n
		}
	}
}
