package renderer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// mockHALDevice counts the buffers returned to its pool and the idle waits.
type mockHALDevice struct {
	freed     int
	idleWaits int
	idleErr   error
}

func (d *mockHALDevice) FreeCommandBuffer(hal.CommandBuffer) { d.freed++ }

func (d *mockHALDevice) WaitIdle() error {
	d.idleWaits++
	return d.idleErr
}

// mockHALQueue hands out submission indices and only completes them when the test says so.
type mockHALQueue struct {
	mu        sync.Mutex
	index     uint64
	done      uint64
	polls     int
	buffers   [][]hal.CommandBuffer
	submitErr error
}

func (q *mockHALQueue) Submit(buffers []hal.CommandBuffer) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.submitErr != nil {
		return 0, q.submitErr
	}
	q.index++
	q.buffers = append(q.buffers, buffers)
	return q.index, nil
}

func (q *mockHALQueue) PollCompleted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.polls++
	return q.done
}

func (q *mockHALQueue) complete(index uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done = index
}

// buffer is a stand-in command buffer.
type buffer struct{ hal.CommandBuffer }

func newHALRing(t *testing.T, b HALBackend) frame.Ring {
	t.Helper()
	ring, err := frame.NewRing(
		frame.SlotConfig{Instances: 1, Passes: 1},
		b, b,
		frame.WithSlotCount(2),
		frame.WithWaitTimeout(10*time.Millisecond),
		frame.WithCommandContexts(b.NewCommandContext),
	)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	return ring
}

// openNoopDevice opens the first adapter of the hal noop API.
func openNoopDevice(t *testing.T) hal.OpenDevice {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		t.Fatal("noop instance has no adapters")
	}
	dev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		dev.Device.Destroy()
		instance.Destroy()
	})
	return dev
}

func TestHALBackendTimeoutOnUnfinishedSubmission(t *testing.T) {
	queue := &mockHALQueue{}
	b := NewHALBackend(&mockHALDevice{}, queue)
	ring := newHALRing(t, b)

	for i := 0; i < 2; i++ {
		slot, err := ring.Advance()
		if err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
		w, err := b.Record(slot)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if err := ring.Submit(slot, w); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if len(queue.buffers) != 2 {
		t.Fatalf("queue submissions = %d, want 2", len(queue.buffers))
	}
	if got := b.InFlight(); got != 2 {
		t.Errorf("InFlight = %d, want 2", got)
	}
	if got := b.Completed(); got != 0 {
		t.Errorf("Completed before the queue finished anything = %d, want 0", got)
	}

	// Slot 0 is due again and its submission has not finished: Advance must fail.
	_, err := ring.Advance()
	var timeout *frame.DeviceTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("Advance error = %v, want *DeviceTimeoutError", err)
	}
	if timeout.Target != 1 {
		t.Errorf("Target = %d, want 1", timeout.Target)
	}
}

func TestHALBackendCompletedFollowsQueue(t *testing.T) {
	queue := &mockHALQueue{}
	b := NewHALBackend(&mockHALDevice{}, queue)

	// Submission indices need not match timeline values.
	queue.index = 40
	for v := uint64(1); v <= 3; v++ {
		if err := b.Signal(v); err != nil {
			t.Fatalf("Signal(%d): %v", v, err)
		}
	}
	if got := b.Completed(); got != 0 {
		t.Fatalf("Completed = %d, want 0", got)
	}
	queue.complete(42)
	if got := b.Completed(); got != 2 {
		t.Errorf("Completed after index 42 = %d, want 2", got)
	}
	if got := b.InFlight(); got != 1 {
		t.Errorf("InFlight = %d, want 1", got)
	}

	queue.mu.Lock()
	polls := queue.polls
	queue.mu.Unlock()
	if ok, err := b.Wait(1, time.Second); !ok || err != nil {
		t.Errorf("Wait(1) = %v, %v, want true, nil", ok, err)
	}
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if queue.polls != polls {
		t.Errorf("Wait on a known-complete value polled the queue")
	}
}

func TestHALBackendWaitPollsUntilDone(t *testing.T) {
	queue := &mockHALQueue{}
	b := NewHALBackend(&mockHALDevice{}, queue, WithHALPollInterval(time.Millisecond))
	b.Signal(1)

	go func() {
		time.Sleep(5 * time.Millisecond)
		queue.complete(1)
	}()
	ok, err := b.Wait(1, time.Second)
	if !ok || err != nil {
		t.Fatalf("Wait(1) = %v, %v, want true, nil", ok, err)
	}
	if ok, _ := b.Wait(2, 2*time.Millisecond); ok {
		t.Errorf("Wait(2) on an unsignalled value = true, want false")
	}
}

func TestHALBackendRecorderBuffersAreSubmittedAndFreed(t *testing.T) {
	device := &mockHALDevice{}
	queue := &mockHALQueue{}
	var recorded []int
	b := NewHALBackend(device, queue, WithHALRecorder(func(slot *frame.Slot) ([]hal.CommandBuffer, error) {
		recorded = append(recorded, slot.Index())
		return []hal.CommandBuffer{buffer{}, buffer{}}, nil
	}))
	ring := newHALRing(t, b)

	tick := func() {
		t.Helper()
		slot, err := ring.Advance()
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		w, err := b.Record(slot)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if err := ring.Submit(slot, w); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		queue.complete(queue.index)
	}

	tick()
	if len(recorded) != 1 || recorded[0] != 0 {
		t.Errorf("recorded slots = %v, want [0]", recorded)
	}
	if len(queue.buffers) != 1 || len(queue.buffers[0]) != 2 {
		t.Errorf("submitted buffers = %v, want one submission of two buffers", queue.buffers)
	}

	// The third tick reclaims slot 0 and returns its buffers to the pool.
	tick()
	tick()
	if device.freed != 2 {
		t.Errorf("freed buffers = %d, want 2", device.freed)
	}
}

func TestHALBackendErrors(t *testing.T) {
	t.Run("submit", func(t *testing.T) {
		queue := &mockHALQueue{submitErr: errors.New("queue full")}
		b := NewHALBackend(&mockHALDevice{}, queue)
		if err := b.Signal(1); err == nil {
			t.Errorf("Signal error = nil, want the queue error")
		}
		if got := b.InFlight(); got != 0 {
			t.Errorf("InFlight after failed submit = %d, want 0", got)
		}
	})
	t.Run("release waits for idle once", func(t *testing.T) {
		device := &mockHALDevice{idleErr: errors.New("device lost")}
		b := NewHALBackend(device, &mockHALQueue{})
		b.Release()
		b.Release()
		if device.idleWaits != 1 {
			t.Errorf("idle waits = %d, want 1", device.idleWaits)
		}
		if err := b.Signal(1); !errors.Is(err, ErrReleased) {
			t.Errorf("Signal after Release = %v, want ErrReleased", err)
		}
	})
}

func TestHALBackendOnNoopDevice(t *testing.T) {
	dev := openNoopDevice(t)
	b := NewHALBackend(dev.Device, dev.Queue)
	defer b.Release()
	ring := newHALRing(t, b)

	for i := 0; i < 6; i++ {
		slot, err := ring.Advance()
		if err != nil {
			t.Fatalf("tick %d: Advance: %v", i, err)
		}
		w, err := b.Record(slot)
		if err != nil {
			t.Fatalf("tick %d: Record: %v", i, err)
		}
		if err := ring.Submit(slot, w); err != nil {
			t.Fatalf("tick %d: Submit: %v", i, err)
		}
	}
	if err := ring.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if got := b.Completed(); got != 6 {
		t.Errorf("Completed = %d, want 6", got)
	}
	if got := b.InFlight(); got != 0 {
		t.Errorf("InFlight = %d, want 0", got)
	}
}
