package frame

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-waves/common"
)

var (
	// ErrSlotNotCurrent is returned when a slot other than the one handed out by the latest
	// Advance is submitted.
	ErrSlotNotCurrent = errors.New("frame: slot is not the current frame slot")

	// ErrSlotNotWritable is returned when a slot is written outside the window between Advance
	// and Submit.
	ErrSlotNotWritable = errors.New("frame: slot is not writable")
)

// DeviceTimeoutError reports a completion wait that exceeded the ring's timeout. It is fatal:
// a timeline that stops advancing leaves submitted work referencing live buffers, so there is no
// recovery path.
type DeviceTimeoutError struct {
	// Slot is the slot index being reclaimed, or -1 when draining the ring.
	Slot int
	// Target is the completion value that was awaited.
	Target uint64
	// Completed is the timeline value observed when the wait gave up.
	Completed uint64
	// Timeout is the configured bound.
	Timeout time.Duration
	// Err is the error reported by the timeline, if any.
	Err error
}

func (e *DeviceTimeoutError) Error() string {
	msg := fmt.Sprintf("frame: timeline stalled at %d waiting for %d (slot %d, timeout %v)",
		e.Completed, e.Target, e.Slot, e.Timeout)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the error class and the underlying timeline error.
func (e *DeviceTimeoutError) Unwrap() []error {
	if e.Err != nil {
		return []error{common.ErrDeviceTimeout, e.Err}
	}
	return []error{common.ErrDeviceTimeout}
}
