package renderer

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
)

func newSimRing(t *testing.T, b SimBackend, slots int) frame.Ring {
	t.Helper()
	ring, err := frame.NewRing(
		frame.SlotConfig{Instances: 2, Passes: 1, Vertices: 4},
		b, b,
		frame.WithSlotCount(slots),
		frame.WithWaitTimeout(2*time.Second),
		frame.WithCommandContexts(b.NewCommandContext),
	)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	return ring
}

func TestSimBackendCompletesInOrder(t *testing.T) {
	b := NewSimBackend(WithLatency(time.Millisecond))
	defer b.Release()
	ring := newSimRing(t, b, 3)

	for i := 0; i < 12; i++ {
		slot, err := ring.Advance()
		if err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
		if err := slot.WriteTransform(0, frame.GPUInstanceData{MaterialIndex: uint32(i)}); err != nil {
			t.Fatalf("WriteTransform: %v", err)
		}
		w, err := b.Record(slot)
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
		if err := ring.Submit(slot, w); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if err := ring.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if got := b.Completed(); got != 12 {
		t.Errorf("Completed = %d, want 12", got)
	}
	if got := b.Executed(); got != 12 {
		t.Errorf("Executed = %d, want 12", got)
	}
	if got := b.Violations(); got != 0 {
		t.Errorf("Violations = %d, want 0", got)
	}
	if stats := ring.Stats(); stats.Stalls == 0 {
		t.Errorf("Stalls = 0, want the CPU to outrun a 1ms device at least once")
	}
}

func TestSimBackendDetectsWritesAfterRecord(t *testing.T) {
	b := NewSimBackend(WithLatency(0))
	defer b.Release()
	ring := newSimRing(t, b, 2)

	slot, _ := ring.Advance()
	w, err := b.Record(slot)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	// The recorded workload no longer matches what the device will read.
	if err := slot.WriteTransform(1, frame.GPUInstanceData{MaterialIndex: 9}); err != nil {
		t.Fatalf("WriteTransform: %v", err)
	}
	if err := ring.Submit(slot, w); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := ring.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if got := b.Violations(); got != 1 {
		t.Errorf("Violations = %d, want 1", got)
	}
}

func TestSimBackendRejectsForeignWorkload(t *testing.T) {
	b := NewSimBackend()
	defer b.Release()
	if err := b.Execute("not a workload"); err == nil {
		t.Errorf("Execute(string) error = nil, want an error")
	}
}

func TestSimBackendRelease(t *testing.T) {
	b := NewSimBackend()
	b.Release()
	b.Release()

	if err := b.Signal(1); !errors.Is(err, ErrReleased) {
		t.Errorf("Signal after Release = %v, want ErrReleased", err)
	}
	if err := b.Present(); !errors.Is(err, ErrReleased) {
		t.Errorf("Present after Release = %v, want ErrReleased", err)
	}
	if _, err := b.NewCommandContext(0); !errors.Is(err, ErrReleased) {
		t.Errorf("NewCommandContext after Release = %v, want ErrReleased", err)
	}
}

func TestParseBackendType(t *testing.T) {
	tests := []struct {
		in      string
		want    BackendType
		wantErr bool
	}{
		{"", BackendTypeSim, false},
		{"sim", BackendTypeSim, false},
		{"WGPU", BackendTypeWGPU, false},
		{" hal ", BackendTypeHAL, false},
		{"vulkan", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseBackendType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseBackendType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBackendType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
