package renderer

import "time"

type wgpuOptions struct {
	forceFallbackAdapter bool
	poll                 time.Duration
}

// WGPUBackendBuilderOption is a functional option applied to a WGPUBackend during construction.
type WGPUBackendBuilderOption func(*wgpuOptions)

// WithForceFallbackAdapter forces the use of a fallback (software) adapter.
//
// Parameters:
//   - force: true to request the fallback adapter
//
// Returns:
//   - WGPUBackendBuilderOption: a function that applies the option
func WithForceFallbackAdapter(force bool) WGPUBackendBuilderOption {
	return func(o *wgpuOptions) {
		o.forceFallbackAdapter = force
	}
}

// WithPollInterval sets how often Wait polls the device for completed work.
func WithPollInterval(d time.Duration) WGPUBackendBuilderOption {
	return func(o *wgpuOptions) {
		if d > 0 {
			o.poll = d
		}
	}
}
