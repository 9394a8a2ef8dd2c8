package frame

import (
	"sync"
	"time"
)

// Timeline is a monotonically increasing completion counter advanced by the device as it finishes
// submitted work.
type Timeline interface {
	// Completed returns the highest value the device has reached.
	Completed() uint64

	// Wait blocks until the timeline reaches value or timeout elapses.
	// A timeout <= 0 polls without blocking.
	//
	// Parameters:
	//   - value: the completion value to wait for
	//   - timeout: the maximum time to block
	//
	// Returns:
	//   - bool: true if the value was reached
	//   - error: a device error, if the backend reports one
	Wait(value uint64, timeout time.Duration) (bool, error)
}

// Queue accepts recorded workloads and completion signals, in submission order.
type Queue interface {
	// Execute hands a recorded workload to the device.
	Execute(workload Workload) error

	// Signal enqueues a timeline signal that fires once everything executed before it completes.
	Signal(value uint64) error
}

// CommandContext is the recording handle owned by a single slot. Reset is only called once the
// slot's previous submission has completed.
type CommandContext interface {
	Reset() error
}

// Workload is the backend-specific payload produced by recording a slot.
type Workload any

// SoftwareTimeline is a Timeline advanced from Go code. Waiters block on a broadcast channel
// that is replaced every time the value moves.
type SoftwareTimeline struct {
	mu        sync.Mutex
	completed uint64
	changed   chan struct{}
}

var _ Timeline = &SoftwareTimeline{}

// NewSoftwareTimeline creates a timeline at value 0.
//
// Returns:
//   - *SoftwareTimeline: the new timeline
func NewSoftwareTimeline() *SoftwareTimeline {
	return &SoftwareTimeline{changed: make(chan struct{})}
}

// Completed returns the current timeline value.
func (t *SoftwareTimeline) Completed() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Complete advances the timeline to value and wakes every waiter.
// Values at or below the current one are ignored.
//
// Parameters:
//   - value: the new completion value
func (t *SoftwareTimeline) Complete(value uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if value <= t.completed {
		return
	}
	t.completed = value
	close(t.changed)
	t.changed = make(chan struct{})
}

// Wait blocks until the timeline reaches value or timeout elapses.
func (t *SoftwareTimeline) Wait(value uint64, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		return t.Completed() >= value, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		t.mu.Lock()
		if t.completed >= value {
			t.mu.Unlock()
			return true, nil
		}
		changed := t.changed
		t.mu.Unlock()

		select {
		case <-changed:
		case <-timer.C:
			return t.Completed() >= value, nil
		}
	}
}
