package common

import "errors"

// Error classes shared by every engine package. Concrete errors wrap one of these so callers can
// classify a failure with errors.Is without knowing which package produced it.
// None of them are retryable.
var (
	// ErrConfiguration marks invalid construction parameters (grid sizes, time steps, capacities).
	// It is raised before the tick loop starts.
	ErrConfiguration = errors.New("configuration error")

	// ErrDeviceTimeout marks a completion wait that exceeded its bound. The session cannot continue.
	ErrDeviceTimeout = errors.New("device timeout")

	// ErrCapacity marks a fixed-size table that has no free entry left.
	ErrCapacity = errors.New("capacity exceeded")
)
