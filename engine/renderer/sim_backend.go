package renderer

import (
	"fmt"
	"hash/maphash"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
)

// SimWorkload is the payload recorded by SimBackend: a fingerprint of the slot's tables taken at
// record time. The simulated device re-reads the slot when it "executes" the workload; a changed
// fingerprint means the CPU wrote a slot the device was still consuming.
type SimWorkload struct {
	Slot        int
	Fingerprint uint64
}

type simCommand struct {
	workload *SimWorkload
	slot     *frame.Slot
	signal   uint64
}

type simBackend struct {
	*frame.SoftwareTimeline

	latency time.Duration
	seed    maphash.Seed

	// slots resolves a workload's slot index when the device executes it.
	mu       *sync.Mutex
	slots    map[int]*frame.Slot
	commands chan simCommand
	done     chan struct{}
	released atomic.Bool

	executed   atomic.Uint64
	violations atomic.Uint64
	presents   atomic.Uint64
}

// SimBackend is a headless device: a goroutine consumes submitted workloads in order, each
// taking a fixed latency, and completes the timeline value signalled after them. It lets the
// frame pipeline run, and be verified, without a GPU.
type SimBackend interface {
	Backend

	// Executed returns the number of workloads the simulated device has finished.
	Executed() uint64

	// Violations returns the number of workloads whose slot was modified while in flight.
	Violations() uint64
}

var _ SimBackend = &simBackend{}

// NewSimBackend starts the simulated device.
//
// Parameters:
//   - options: functional options (latency, queue depth)
//
// Returns:
//   - SimBackend: the running backend; call Release to stop it
func NewSimBackend(options ...SimBackendBuilderOption) SimBackend {
	b := &simBackend{
		SoftwareTimeline: frame.NewSoftwareTimeline(),
		latency:          2 * time.Millisecond,
		seed:             maphash.MakeSeed(),
		mu:               &sync.Mutex{},
		slots:            make(map[int]*frame.Slot),
		done:             make(chan struct{}),
	}
	depth := 64
	for _, option := range options {
		option(b, &depth)
	}
	b.commands = make(chan simCommand, depth)

	go b.run()
	common.Logger().Info("renderer: simulated device started", "latency", b.latency, "queue_depth", depth)
	return b
}

// run is the device loop. Workloads take latency each; signals complete the timeline in order.
func (b *simBackend) run() {
	defer close(b.done)
	for cmd := range b.commands {
		if cmd.workload == nil {
			b.Complete(cmd.signal)
			continue
		}
		if b.latency > 0 {
			time.Sleep(b.latency)
		}
		if got := b.fingerprint(cmd.slot); got != cmd.workload.Fingerprint {
			b.violations.Add(1)
			common.Logger().Error("renderer: slot modified while in flight", "slot", cmd.workload.Slot)
		}
		b.executed.Add(1)
	}
}

func (b *simBackend) fingerprint(slot *frame.Slot) uint64 {
	var h maphash.Hash
	h.SetSeed(b.seed)
	h.Write(slot.TransformBytes())
	h.Write(slot.PassBytes())
	h.Write(slot.VertexBytes())
	return h.Sum64()
}

func (b *simBackend) NewCommandContext(slot int) (frame.CommandContext, error) {
	if b.released.Load() {
		return nil, ErrReleased
	}
	return &simCommandContext{slot: slot}, nil
}

func (b *simBackend) Record(slot *frame.Slot) (frame.Workload, error) {
	if b.released.Load() {
		return nil, ErrReleased
	}
	if !slot.Writable() {
		return nil, frame.ErrSlotNotWritable
	}
	b.mu.Lock()
	b.slots[slot.Index()] = slot
	b.mu.Unlock()
	if ctx, ok := slot.Commands().(*simCommandContext); ok {
		ctx.recorded++
	}
	return &SimWorkload{Slot: slot.Index(), Fingerprint: b.fingerprint(slot)}, nil
}

func (b *simBackend) Execute(workload frame.Workload) error {
	if b.released.Load() {
		return ErrReleased
	}
	w, ok := workload.(*SimWorkload)
	if !ok {
		return fmt.Errorf("renderer: simulated device cannot execute %T", workload)
	}
	b.mu.Lock()
	slot := b.slots[w.Slot]
	b.mu.Unlock()
	if slot == nil {
		return fmt.Errorf("renderer: workload for unknown slot %d", w.Slot)
	}
	b.commands <- simCommand{workload: w, slot: slot}
	return nil
}

func (b *simBackend) Signal(value uint64) error {
	if b.released.Load() {
		return ErrReleased
	}
	b.commands <- simCommand{signal: value}
	return nil
}

func (b *simBackend) Present() error {
	if b.released.Load() {
		return ErrReleased
	}
	b.presents.Add(1)
	return nil
}

func (b *simBackend) Presents() uint64 {
	return b.presents.Load()
}

func (b *simBackend) Executed() uint64 {
	return b.executed.Load()
}

func (b *simBackend) Violations() uint64 {
	return b.violations.Load()
}

func (b *simBackend) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	close(b.commands)
	<-b.done
	common.Logger().Info("renderer: simulated device stopped",
		"executed", b.executed.Load(),
		"violations", b.violations.Load())
}

// simCommandContext counts resets and recordings for one slot.
type simCommandContext struct {
	slot     int
	resets   int
	recorded int
}

func (c *simCommandContext) Reset() error {
	c.resets++
	return nil
}
