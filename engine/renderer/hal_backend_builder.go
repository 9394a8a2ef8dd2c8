package renderer

import "time"

// HALBackendBuilderOption is a functional option for configuring a HALBackend.
type HALBackendBuilderOption func(*halBackend)

// WithHALRecorder sets the function that encodes each tick's command buffers. Without one,
// every submission is empty and only moves the timeline.
//
// Parameters:
//   - fn: the recorder
//
// Returns:
//   - HALBackendBuilderOption: option function to apply
func WithHALRecorder(fn HALRecorder) HALBackendBuilderOption {
	return func(b *halBackend) {
		b.recorder = fn
	}
}

// WithHALPollInterval sets how often Wait polls the queue for completed submissions.
func WithHALPollInterval(d time.Duration) HALBackendBuilderOption {
	return func(b *halBackend) {
		if d > 0 {
			b.poll = d
		}
	}
}
