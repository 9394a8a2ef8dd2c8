package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
)

// ErrReleased is returned when a backend is used after Release.
var ErrReleased = errors.New("renderer: backend released")

// Backend is the device side of the frame ring. It executes recorded workloads in submission
// order, signals completion values on its timeline, and owns one command context per frame slot.
//
// Execute, Signal and Record are called from the tick goroutine. Completed and Wait may be called
// from any goroutine.
type Backend interface {
	frame.Queue
	frame.Timeline

	// NewCommandContext creates the command context owned by one frame slot.
	//
	// Parameters:
	//   - slot: the slot index
	//
	// Returns:
	//   - frame.CommandContext: the context, reset each time the slot is reclaimed
	//   - error: an error if device resources could not be created
	NewCommandContext(slot int) (frame.CommandContext, error)

	// Record uploads the slot's tables and encodes the tick's commands.
	//
	// Parameters:
	//   - slot: the current, writable frame slot
	//
	// Returns:
	//   - frame.Workload: the payload handed to Execute through FrameRing.Submit
	//   - error: an error if recording failed
	Record(slot *frame.Slot) (frame.Workload, error)

	// Present shows the most recently submitted frame. Headless backends only count presents.
	Present() error

	// Presents returns the number of successful Present calls.
	Presents() uint64

	// Release frees device resources. The ring must be drained first.
	Release()
}
