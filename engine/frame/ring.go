package frame

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-waves/common"
)

const (
	// DefaultSlotCount is the default number of frames in flight (triple buffering).
	DefaultSlotCount = 3

	// DefaultWaitTimeout bounds a single completion wait before the device is declared hung.
	DefaultWaitTimeout = 5 * time.Second
)

// Stats counts ring activity since construction.
type Stats struct {
	// Advances is the number of completed Advance calls.
	Advances uint64
	// Stalls is the number of Advance calls that had to block on the timeline.
	Stalls uint64
	// WaitTime is the total time spent blocked on the timeline.
	WaitTime time.Duration
	// Submits is the number of completed Submit calls.
	Submits uint64
}

type ring struct {
	slots   []*Slot
	cursor  int
	current *Slot
	counter uint64

	queue    Queue
	timeline Timeline

	slotCount    int
	waitTimeout  time.Duration
	newCommandFn func(slot int) (CommandContext, error)

	stats Stats
}

// Ring sequences frame preparation over a fixed set of slots so the CPU never overwrites a table
// the device is still reading. The ring is driven from a single goroutine: Advance, write the
// returned slot, Submit it, repeat.
type Ring interface {
	// Advance moves the cursor to the next slot and returns it once it is safe to write.
	// If the slot's previous submission has not completed, Advance blocks until the timeline
	// reaches the slot's completion target. This is the only blocking point of a tick. A slot
	// handed out earlier and never submitted loses its write window.
	//
	// Returns:
	//   - *Slot: the slot exclusively writable for this tick
	//   - error: *DeviceTimeoutError if the wait exceeds the timeout, or a command context reset error
	Advance() (*Slot, error)

	// Submit hands the recorded workload to the queue, assigns the slot the next completion value
	// and enqueues a timeline signal for it.
	//
	// Parameters:
	//   - slot: the slot returned by the latest Advance
	//   - workload: the backend payload recorded from the slot
	//
	// Returns:
	//   - error: ErrSlotNotCurrent, or a queue error
	Submit(slot *Slot, workload Workload) error

	// Current returns the slot handed out by the latest Advance, or nil once it was submitted.
	Current() *Slot

	// Slot returns the slot at index i, or nil if out of range.
	//
	// Parameters:
	//   - i: the slot index
	//
	// Returns:
	//   - *Slot: the slot or nil
	Slot(i int) *Slot

	// SlotCount returns the number of slots. It never changes after construction.
	SlotCount() int

	// Counter returns the last completion value assigned by Submit.
	Counter() uint64

	// Stats returns a snapshot of the ring's counters.
	Stats() Stats

	// Drain blocks until every submitted workload has completed. Used before tearing down the
	// buffers the slots reference.
	//
	// Returns:
	//   - error: *DeviceTimeoutError if the wait exceeds the timeout
	Drain() error
}

var _ Ring = &ring{}

// NewRing allocates the slots and their tables. Slots live until the ring is discarded.
//
// Parameters:
//   - cfg: table sizes shared by every slot
//   - queue: the submission queue (must not be nil)
//   - timeline: the completion timeline (must not be nil)
//   - options: functional options (slot count, timeout, command contexts)
//
// Returns:
//   - Ring: the new ring
//   - error: a configuration error, or a command context creation error
func NewRing(cfg SlotConfig, queue Queue, timeline Timeline, options ...RingBuilderOption) (Ring, error) {
	if queue == nil {
		panic("frame: NewRing requires a non-nil Queue")
	}
	if timeline == nil {
		panic("frame: NewRing requires a non-nil Timeline")
	}

	r := &ring{
		queue:       queue,
		timeline:    timeline,
		slotCount:   DefaultSlotCount,
		waitTimeout: DefaultWaitTimeout,
	}
	for _, opt := range options {
		opt(r)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if r.slotCount < 2 {
		return nil, fmt.Errorf("frame: %w: slot count %d must be at least 2", common.ErrConfiguration, r.slotCount)
	}
	if r.waitTimeout <= 0 {
		return nil, fmt.Errorf("frame: %w: wait timeout %v must be positive", common.ErrConfiguration, r.waitTimeout)
	}

	r.slots = make([]*Slot, r.slotCount)
	for i := range r.slots {
		var cmds CommandContext
		if r.newCommandFn != nil {
			c, err := r.newCommandFn(i)
			if err != nil {
				return nil, fmt.Errorf("frame: create command context for slot %d: %w", i, err)
			}
			cmds = c
		}
		r.slots[i] = newSlot(i, cfg, cmds)
	}
	// The first Advance lands on slot 0.
	r.cursor = r.slotCount - 1

	common.Logger().Info("frame ring built",
		"slots", r.slotCount,
		"instances", cfg.Instances,
		"passes", cfg.Passes,
		"vertices", cfg.Vertices,
		"timeout", r.waitTimeout)
	return r, nil
}

func (r *ring) Advance() (*Slot, error) {
	if r.current != nil {
		common.Logger().Warn("frame: slot abandoned without submit", "slot", r.current.index)
		r.current.abandon()
		r.current = nil
	}
	r.cursor = (r.cursor + 1) % len(r.slots)
	slot := r.slots[r.cursor]

	if err := r.reclaim(slot); err != nil {
		return nil, err
	}
	if slot.commands != nil {
		if err := slot.commands.Reset(); err != nil {
			return nil, fmt.Errorf("frame: reset command context of slot %d: %w", slot.index, err)
		}
	}

	slot.acquire()
	r.current = slot
	r.stats.Advances++
	return slot, nil
}

func (r *ring) Submit(slot *Slot, workload Workload) error {
	if slot == nil || slot != r.current {
		return ErrSlotNotCurrent
	}
	if err := r.queue.Execute(workload); err != nil {
		return fmt.Errorf("frame: execute slot %d: %w", slot.index, err)
	}

	r.counter++
	slot.release(r.counter)
	r.current = nil
	r.stats.Submits++

	if err := r.queue.Signal(r.counter); err != nil {
		return fmt.Errorf("frame: signal %d for slot %d: %w", r.counter, slot.index, err)
	}
	return nil
}

func (r *ring) Current() *Slot {
	return r.current
}

func (r *ring) Slot(i int) *Slot {
	if i < 0 || i >= len(r.slots) {
		return nil
	}
	return r.slots[i]
}

func (r *ring) SlotCount() int {
	return len(r.slots)
}

func (r *ring) Counter() uint64 {
	return r.counter
}

func (r *ring) Stats() Stats {
	return r.stats
}

func (r *ring) Drain() error {
	if r.counter == 0 || r.timeline.Completed() >= r.counter {
		return nil
	}
	return r.wait(-1, r.counter)
}

// reclaim blocks until the slot's previous submission has completed. Never-submitted slots and
// slots whose target the timeline already passed return immediately.
func (r *ring) reclaim(slot *Slot) error {
	target := slot.completionTarget
	if target == 0 || r.timeline.Completed() >= target {
		return nil
	}
	r.stats.Stalls++
	common.Logger().Debug("frame ring stalled on timeline",
		"slot", slot.index,
		"target", target)
	return r.wait(slot.index, target)
}

// wait blocks on the timeline and converts a missed deadline into a DeviceTimeoutError.
func (r *ring) wait(slotIndex int, target uint64) error {
	start := time.Now()
	ok, err := r.timeline.Wait(target, r.waitTimeout)
	r.stats.WaitTime += time.Since(start)
	if err == nil && ok {
		return nil
	}
	timeoutErr := &DeviceTimeoutError{
		Slot:      slotIndex,
		Target:    target,
		Completed: r.timeline.Completed(),
		Timeout:   r.waitTimeout,
		Err:       err,
	}
	common.Logger().Error("frame ring wait failed", "err", timeoutErr)
	return timeoutErr
}
