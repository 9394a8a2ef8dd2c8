package renderer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
	"github.com/gogpu/wgpu/hal"
)

// HALDevice is the part of hal.Device the backend needs.
type HALDevice interface {
	FreeCommandBuffer(cmdBuffer hal.CommandBuffer)
	WaitIdle() error
}

// HALQueue is the part of hal.Queue the backend needs.
type HALQueue interface {
	Submit(commandBuffers []hal.CommandBuffer) (uint64, error)
	PollCompleted() uint64
}

var (
	_ HALDevice = hal.Device(nil)
	_ HALQueue  = hal.Queue(nil)
)

// HALRecorder encodes the command buffers for one tick from the slot's tables.
type HALRecorder func(slot *frame.Slot) ([]hal.CommandBuffer, error)

// HALWorkload carries the command buffers recorded for one slot.
type HALWorkload struct {
	Slot    int
	Buffers []hal.CommandBuffer
}

// halSubmission maps a timeline value to the queue's submission index for it.
type halSubmission struct {
	value uint64
	index uint64
}

type halBackend struct {
	mu *sync.Mutex

	device   HALDevice
	queue    HALQueue
	recorder HALRecorder
	poll     time.Duration

	// pending holds the buffers executed since the last signal; they are submitted together
	// when the next timeline value is signalled.
	pending []hal.CommandBuffer
	// inFlight lists submissions in signal order that the queue has not reported complete.
	inFlight []halSubmission

	signalled atomic.Uint64
	completed atomic.Uint64
	presents  atomic.Uint64
	released  atomic.Bool
}

// HALBackend drives the gogpu hardware abstraction layer. Signal submits the pending command
// buffers and remembers the submission index the queue returns for the timeline value; the
// timeline completes as the queue's completed index passes those submissions.
type HALBackend interface {
	Backend

	// InFlight returns how many signalled values the queue has not finished yet.
	InFlight() int
}

var _ HALBackend = &halBackend{}

// NewHALBackend wraps a device and queue opened by the caller. The caller keeps ownership of
// both and destroys them after Release.
//
// Parameters:
//   - device: the hal device (panics on nil)
//   - queue: the hal queue (panics on nil)
//   - options: functional options (command recorder, poll interval)
//
// Returns:
//   - HALBackend: the backend
func NewHALBackend(device HALDevice, queue HALQueue, options ...HALBackendBuilderOption) HALBackend {
	if device == nil {
		panic("renderer: NewHALBackend requires a non-nil device")
	}
	if queue == nil {
		panic("renderer: NewHALBackend requires a non-nil queue")
	}

	b := &halBackend{
		mu:     &sync.Mutex{},
		device: device,
		queue:  queue,
		poll:   500 * time.Microsecond,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *halBackend) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inFlight)
}

func (b *halBackend) Completed() uint64 {
	done := b.queue.PollCompleted()

	b.mu.Lock()
	n := 0
	for n < len(b.inFlight) && b.inFlight[n].index <= done {
		n++
	}
	if n > 0 {
		b.observe(b.inFlight[n-1].value)
		b.inFlight = append(b.inFlight[:0], b.inFlight[n:]...)
	}
	b.mu.Unlock()

	return b.completed.Load()
}

func (b *halBackend) Wait(value uint64, timeout time.Duration) (bool, error) {
	if b.completed.Load() >= value {
		return true, nil
	}
	deadline := time.Now().Add(timeout)
	for {
		if b.Completed() >= value {
			return true, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		// hal has no blocking wait on a submission index, so poll.
		time.Sleep(min(b.poll, remaining))
	}
}

// observe raises the cached completed value monotonically.
func (b *halBackend) observe(value uint64) {
	for {
		cur := b.completed.Load()
		if value <= cur || b.completed.CompareAndSwap(cur, value) {
			return
		}
	}
}

func (b *halBackend) NewCommandContext(slot int) (frame.CommandContext, error) {
	if b.released.Load() {
		return nil, ErrReleased
	}
	return &halCommandContext{slot: slot, device: b.device}, nil
}

func (b *halBackend) Record(slot *frame.Slot) (frame.Workload, error) {
	if b.released.Load() {
		return nil, ErrReleased
	}
	if !slot.Writable() {
		return nil, frame.ErrSlotNotWritable
	}
	w := &HALWorkload{Slot: slot.Index()}
	if b.recorder != nil {
		buffers, err := b.recorder(slot)
		if err != nil {
			return nil, fmt.Errorf("renderer: record slot %d: %w", slot.Index(), err)
		}
		w.Buffers = buffers
	}
	if ctx, ok := slot.Commands().(*halCommandContext); ok {
		ctx.inFlight = append(ctx.inFlight, w.Buffers...)
	}
	return w, nil
}

func (b *halBackend) Execute(workload frame.Workload) error {
	if b.released.Load() {
		return ErrReleased
	}
	w, ok := workload.(*HALWorkload)
	if !ok {
		return fmt.Errorf("renderer: hal backend cannot execute %T", workload)
	}
	b.mu.Lock()
	b.pending = append(b.pending, w.Buffers...)
	b.mu.Unlock()
	return nil
}

func (b *halBackend) Signal(value uint64) error {
	if b.released.Load() {
		return ErrReleased
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	index, err := b.queue.Submit(b.pending)
	if err != nil {
		return fmt.Errorf("renderer: submit for timeline value %d: %w", value, err)
	}
	b.pending = nil
	b.inFlight = append(b.inFlight, halSubmission{value: value, index: index})
	b.signalled.Store(value)
	return nil
}

func (b *halBackend) Present() error {
	if b.released.Load() {
		return ErrReleased
	}
	b.presents.Add(1)
	return nil
}

func (b *halBackend) Presents() uint64 {
	return b.presents.Load()
}

func (b *halBackend) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	if err := b.device.WaitIdle(); err != nil {
		common.Logger().Warn("renderer: hal device did not go idle", "error", err)
	}
	common.Logger().Info("renderer: hal backend released", "signalled", b.signalled.Load())
}

// halCommandContext holds the command buffers a slot submitted until the slot is reclaimed.
type halCommandContext struct {
	slot     int
	device   HALDevice
	inFlight []hal.CommandBuffer
	resets   int
}

// Reset returns the buffers of the slot's previous submission, which the device has finished
// with, to the device's command pool.
func (c *halCommandContext) Reset() error {
	for _, buf := range c.inFlight {
		if buf != nil {
			c.device.FreeCommandBuffer(buf)
		}
	}
	c.inFlight = c.inFlight[:0]
	c.resets++
	return nil
}
