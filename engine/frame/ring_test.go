package frame

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-waves/common"
)

// scriptedTimeline is a Timeline stub whose value only moves when a test says so, or when a
// wait is allowed to succeed.
type scriptedTimeline struct {
	completed uint64
	waitCalls []uint64
	failWaits bool
	waitErr   error
}

func (t *scriptedTimeline) Completed() uint64 { return t.completed }

func (t *scriptedTimeline) Wait(value uint64, _ time.Duration) (bool, error) {
	t.waitCalls = append(t.waitCalls, value)
	if t.failWaits || t.waitErr != nil {
		return false, t.waitErr
	}
	if value > t.completed {
		t.completed = value
	}
	return true, nil
}

// recordingQueue logs every call in order.
type recordingQueue struct {
	calls      []string
	signals    []uint64
	workloads  []Workload
	executeErr error
}

func (q *recordingQueue) Execute(w Workload) error {
	if q.executeErr != nil {
		return q.executeErr
	}
	q.calls = append(q.calls, "execute")
	q.workloads = append(q.workloads, w)
	return nil
}

func (q *recordingQueue) Signal(v uint64) error {
	q.calls = append(q.calls, "signal")
	q.signals = append(q.signals, v)
	return nil
}

type countingContext struct {
	resets int
}

func (c *countingContext) Reset() error {
	c.resets++
	return nil
}

func testConfig() SlotConfig {
	return SlotConfig{Instances: 4, Passes: 1, Vertices: 9}
}

func newTestRing(t *testing.T, tl Timeline, q Queue, opts ...RingBuilderOption) Ring {
	t.Helper()
	r, err := NewRing(testConfig(), q, tl, opts...)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	return r
}

func TestNewRingDefaults(t *testing.T) {
	r := newTestRing(t, &scriptedTimeline{}, &recordingQueue{})
	if r.SlotCount() != DefaultSlotCount {
		t.Errorf("SlotCount = %d, want %d", r.SlotCount(), DefaultSlotCount)
	}
	for i := 0; i < r.SlotCount(); i++ {
		s := r.Slot(i)
		if s.CompletionTarget() != 0 {
			t.Errorf("slot %d CompletionTarget = %d, want 0", i, s.CompletionTarget())
		}
		if s.InstanceCapacity() != 4 || s.PassCount() != 1 || s.VertexCount() != 9 {
			t.Errorf("slot %d sizes = (%d, %d, %d), want (4, 1, 9)",
				i, s.InstanceCapacity(), s.PassCount(), s.VertexCount())
		}
	}
	if r.Slot(-1) != nil || r.Slot(3) != nil {
		t.Error("Slot out of range should be nil")
	}
}

func TestNewRingRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  SlotConfig
		opts []RingBuilderOption
	}{
		{"single slot", testConfig(), []RingBuilderOption{WithSlotCount(1)}},
		{"zero instances", SlotConfig{Instances: 0, Passes: 1}, nil},
		{"three passes", SlotConfig{Instances: 1, Passes: 3}, nil},
		{"negative vertices", SlotConfig{Instances: 1, Passes: 1, Vertices: -1}, nil},
		{"zero timeout", testConfig(), []RingBuilderOption{WithWaitTimeout(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRing(tt.cfg, &recordingQueue{}, &scriptedTimeline{}, tt.opts...)
			if !errors.Is(err, common.ErrConfiguration) {
				t.Errorf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestAdvanceCyclesSlotsInOrder(t *testing.T) {
	tl := &scriptedTimeline{}
	q := &recordingQueue{}
	r := newTestRing(t, tl, q)

	want := []int{0, 1, 2, 0, 1, 2, 0}
	for tick, idx := range want {
		slot, err := r.Advance()
		if err != nil {
			t.Fatalf("tick %d: Advance: %v", tick, err)
		}
		if slot.Index() != idx {
			t.Errorf("tick %d: slot = %d, want %d", tick, slot.Index(), idx)
		}
		if err := r.Submit(slot, tick); err != nil {
			t.Fatalf("tick %d: Submit: %v", tick, err)
		}
		if slot.CompletionTarget() != uint64(tick+1) {
			t.Errorf("tick %d: CompletionTarget = %d, want %d", tick, slot.CompletionTarget(), tick+1)
		}
	}
	if r.Counter() != uint64(len(want)) {
		t.Errorf("Counter = %d, want %d", r.Counter(), len(want))
	}
}

func TestAdvanceWaitsOnlyWhenTargetUnmet(t *testing.T) {
	tl := &scriptedTimeline{}
	q := &recordingQueue{}
	r := newTestRing(t, tl, q)

	// Fill the ring: three submissions, none completed.
	for i := 0; i < 3; i++ {
		slot, err := r.Advance()
		if err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
		if err := r.Submit(slot, nil); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	if len(tl.waitCalls) != 0 {
		t.Fatalf("waits on never-submitted slots = %v, want none", tl.waitCalls)
	}

	// The device finished the first frame already: slot 0 is reusable without blocking.
	tl.completed = 1
	slot, err := r.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if len(tl.waitCalls) != 0 {
		t.Errorf("wait called with completed >= target: %v", tl.waitCalls)
	}
	if err := r.Submit(slot, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Slot 1 holds target 2 but the device is still at 1: Advance must wait for exactly 2.
	slot, err = r.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if len(tl.waitCalls) != 1 || tl.waitCalls[0] != 2 {
		t.Errorf("waitCalls = %v, want [2]", tl.waitCalls)
	}
	if slot.Index() != 1 {
		t.Errorf("slot = %d, want 1", slot.Index())
	}
	if got := r.Stats().Stalls; got != 1 {
		t.Errorf("Stalls = %d, want 1", got)
	}
}

func TestAdvanceNeverReturnsUnfinishedSlot(t *testing.T) {
	tl := &scriptedTimeline{}
	r := newTestRing(t, tl, &recordingQueue{}, WithSlotCount(2))

	for tick := 0; tick < 20; tick++ {
		slot, err := r.Advance()
		if err != nil {
			t.Fatalf("tick %d: Advance: %v", tick, err)
		}
		if target := slot.CompletionTarget(); target != 0 && tl.Completed() < target {
			t.Fatalf("tick %d: slot %d returned with target %d > completed %d",
				tick, slot.Index(), target, tl.Completed())
		}
		if err := r.Submit(slot, nil); err != nil {
			t.Fatalf("tick %d: Submit: %v", tick, err)
		}
		// The device trails the CPU by two frames, so every reuse from the third tick on blocks.
		if r.Counter() >= 2 {
			tl.completed = r.Counter() - 2
		}
	}
	if want := uint64(18); r.Stats().Stalls != want {
		t.Errorf("Stalls = %d, want %d", r.Stats().Stalls, want)
	}
}

func TestAdvanceTimeoutIsFatal(t *testing.T) {
	tl := &scriptedTimeline{}
	r := newTestRing(t, tl, &recordingQueue{}, WithSlotCount(2), WithWaitTimeout(10*time.Millisecond))
	for i := 0; i < 2; i++ {
		slot, err := r.Advance()
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if err := r.Submit(slot, nil); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	tl.failWaits = true
	_, err := r.Advance()
	if !errors.Is(err, common.ErrDeviceTimeout) {
		t.Fatalf("err = %v, want ErrDeviceTimeout", err)
	}
	var timeoutErr *DeviceTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("err = %T, want *DeviceTimeoutError", err)
	}
	if timeoutErr.Slot != 0 || timeoutErr.Target != 1 || timeoutErr.Completed != 0 {
		t.Errorf("timeout = %+v, want slot 0 target 1 completed 0", timeoutErr)
	}
	if timeoutErr.Timeout != 10*time.Millisecond {
		t.Errorf("Timeout = %v, want 10ms", timeoutErr.Timeout)
	}
	if len(tl.waitCalls) != 1 {
		t.Errorf("wait calls = %d, want 1 (no retry)", len(tl.waitCalls))
	}
}

func TestAdvanceTimelineErrorIsWrapped(t *testing.T) {
	deviceLost := errors.New("device lost")
	tl := &scriptedTimeline{}
	r := newTestRing(t, tl, &recordingQueue{}, WithSlotCount(2))
	for i := 0; i < 2; i++ {
		slot, _ := r.Advance()
		_ = r.Submit(slot, nil)
	}
	tl.waitErr = deviceLost
	_, err := r.Advance()
	if !errors.Is(err, deviceLost) || !errors.Is(err, common.ErrDeviceTimeout) {
		t.Errorf("err = %v, want both device lost and ErrDeviceTimeout", err)
	}
}

func TestSubmitOrdering(t *testing.T) {
	q := &recordingQueue{}
	r := newTestRing(t, &scriptedTimeline{}, q)

	slot, _ := r.Advance()
	if err := r.Submit(slot, "frame-0"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(q.calls) != 2 || q.calls[0] != "execute" || q.calls[1] != "signal" {
		t.Errorf("calls = %v, want [execute signal]", q.calls)
	}
	if q.signals[0] != 1 {
		t.Errorf("signal = %d, want 1", q.signals[0])
	}
	if q.workloads[0] != "frame-0" {
		t.Errorf("workload = %v, want frame-0", q.workloads[0])
	}
	if r.Current() != nil {
		t.Error("Current should be nil after Submit")
	}
	if slot.Writable() {
		t.Error("slot should not be writable after Submit")
	}
}

func TestSubmitRejectsForeignSlot(t *testing.T) {
	r := newTestRing(t, &scriptedTimeline{}, &recordingQueue{})
	slot, _ := r.Advance()

	if err := r.Submit(r.Slot(2), nil); !errors.Is(err, ErrSlotNotCurrent) {
		t.Errorf("foreign slot err = %v, want ErrSlotNotCurrent", err)
	}
	if err := r.Submit(nil, nil); !errors.Is(err, ErrSlotNotCurrent) {
		t.Errorf("nil slot err = %v, want ErrSlotNotCurrent", err)
	}
	if err := r.Submit(slot, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := r.Submit(slot, nil); !errors.Is(err, ErrSlotNotCurrent) {
		t.Errorf("double submit err = %v, want ErrSlotNotCurrent", err)
	}
}

func TestSubmitExecuteErrorKeepsSlotCurrent(t *testing.T) {
	q := &recordingQueue{executeErr: errors.New("queue full")}
	r := newTestRing(t, &scriptedTimeline{}, q)
	slot, _ := r.Advance()
	if err := r.Submit(slot, nil); err == nil {
		t.Fatal("Submit should fail")
	}
	if slot.CompletionTarget() != 0 || r.Counter() != 0 {
		t.Errorf("target = %d counter = %d, want 0 0", slot.CompletionTarget(), r.Counter())
	}
	if len(q.signals) != 0 {
		t.Errorf("signals = %v, want none", q.signals)
	}
}

func TestSlotWriteWindow(t *testing.T) {
	r := newTestRing(t, &scriptedTimeline{}, &recordingQueue{})
	slot := r.Slot(0)

	if err := slot.WriteTransform(0, GPUInstanceData{}); !errors.Is(err, ErrSlotNotWritable) {
		t.Errorf("write before Advance err = %v, want ErrSlotNotWritable", err)
	}
	if _, err := slot.VertexStaging(); !errors.Is(err, ErrSlotNotWritable) {
		t.Errorf("staging before Advance err = %v, want ErrSlotNotWritable", err)
	}

	slot, _ = r.Advance()
	rec := GPUInstanceData{MaterialIndex: 7}
	if err := slot.WriteTransform(3, rec); err != nil {
		t.Fatalf("WriteTransform: %v", err)
	}
	if err := slot.WriteTransform(4, rec); err == nil {
		t.Error("WriteTransform past capacity should fail")
	}
	if err := slot.WritePass(1, GPUPassConstants{}); err == nil {
		t.Error("WritePass past pass count should fail")
	}
	if got := slot.Transform(3).MaterialIndex; got != 7 {
		t.Errorf("Transform(3).MaterialIndex = %d, want 7", got)
	}
	if slot.TransformWrites(3) != 1 || slot.TickWrites() != 1 {
		t.Errorf("writes = (%d, %d), want (1, 1)", slot.TransformWrites(3), slot.TickWrites())
	}
	staging, err := slot.VertexStaging()
	if err != nil || len(staging) != 9 {
		t.Errorf("VertexStaging = (%d, %v), want (9, nil)", len(staging), err)
	}
	if len(slot.TransformBytes()) != 4*rec.Size() {
		t.Errorf("TransformBytes len = %d, want %d", len(slot.TransformBytes()), 4*rec.Size())
	}
}

func TestAdvanceClosesUnsubmittedSlot(t *testing.T) {
	q := &recordingQueue{}
	r := newTestRing(t, &scriptedTimeline{}, q)

	first, err := r.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	second, err := r.Advance()
	if err != nil {
		t.Fatalf("second Advance: %v", err)
	}

	if first.Writable() {
		t.Errorf("slot %d Writable after the ring moved on, want false", first.Index())
	}
	if err := first.WriteTransform(0, GPUInstanceData{}); !errors.Is(err, ErrSlotNotWritable) {
		t.Errorf("write to abandoned slot err = %v, want ErrSlotNotWritable", err)
	}
	if err := r.Submit(first, nil); !errors.Is(err, ErrSlotNotCurrent) {
		t.Errorf("Submit of abandoned slot err = %v, want ErrSlotNotCurrent", err)
	}
	if first.CompletionTarget() != 0 {
		t.Errorf("abandoned CompletionTarget = %d, want 0", first.CompletionTarget())
	}
	if !second.Writable() || r.Current() != second {
		t.Errorf("second slot Writable = %v, Current = %v, want the open second slot", second.Writable(), r.Current())
	}
	if len(q.calls) != 0 {
		t.Errorf("queue calls = %v, want none", q.calls)
	}
}

func TestAdvanceResetsCommandContextAfterCompletion(t *testing.T) {
	contexts := make([]*countingContext, 0, 2)
	tl := &scriptedTimeline{}
	r := newTestRing(t, tl, &recordingQueue{},
		WithSlotCount(2),
		WithCommandContexts(func(int) (CommandContext, error) {
			c := &countingContext{}
			contexts = append(contexts, c)
			return c, nil
		}))
	if len(contexts) != 2 {
		t.Fatalf("contexts = %d, want 2", len(contexts))
	}

	for i := 0; i < 4; i++ {
		slot, err := r.Advance()
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if slot.Commands() != contexts[slot.Index()] {
			t.Errorf("slot %d owns the wrong command context", slot.Index())
		}
		_ = r.Submit(slot, nil)
	}
	if contexts[0].resets != 2 || contexts[1].resets != 2 {
		t.Errorf("resets = (%d, %d), want (2, 2)", contexts[0].resets, contexts[1].resets)
	}
}

func TestDrain(t *testing.T) {
	tl := &scriptedTimeline{}
	r := newTestRing(t, tl, &recordingQueue{})
	if err := r.Drain(); err != nil {
		t.Fatalf("Drain on idle ring: %v", err)
	}
	if len(tl.waitCalls) != 0 {
		t.Errorf("idle Drain waited: %v", tl.waitCalls)
	}
	for i := 0; i < 2; i++ {
		slot, _ := r.Advance()
		_ = r.Submit(slot, nil)
	}
	if err := r.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(tl.waitCalls) != 1 || tl.waitCalls[0] != 2 {
		t.Errorf("waitCalls = %v, want [2]", tl.waitCalls)
	}

	slot, _ := r.Advance()
	_ = r.Submit(slot, nil)
	tl.failWaits = true
	var timeoutErr *DeviceTimeoutError
	if err := r.Drain(); !errors.As(err, &timeoutErr) || timeoutErr.Slot != -1 {
		t.Errorf("Drain err = %v, want DeviceTimeoutError for slot -1", err)
	}
}
