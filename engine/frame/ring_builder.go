package frame

import "time"

// RingBuilderOption is a functional option applied to a ring during construction via NewRing.
type RingBuilderOption func(*ring)

// WithSlotCount sets the number of frames in flight. It is fixed for the life of the ring.
//
// Parameters:
//   - n: the slot count (must be at least 2)
//
// Returns:
//   - RingBuilderOption: a function that applies the slot count to a ring
func WithSlotCount(n int) RingBuilderOption {
	return func(r *ring) {
		r.slotCount = n
	}
}

// WithWaitTimeout bounds each completion wait. Exceeding it is fatal.
//
// Parameters:
//   - d: the timeout (must be positive)
//
// Returns:
//   - RingBuilderOption: a function that applies the timeout to a ring
func WithWaitTimeout(d time.Duration) RingBuilderOption {
	return func(r *ring) {
		r.waitTimeout = d
	}
}

// WithCommandContexts supplies the factory that creates each slot's command recording context.
//
// Parameters:
//   - fn: called once per slot index during construction
//
// Returns:
//   - RingBuilderOption: a function that applies the factory to a ring
func WithCommandContexts(fn func(slot int) (CommandContext, error)) RingBuilderOption {
	return func(r *ring) {
		r.newCommandFn = fn
	}
}
