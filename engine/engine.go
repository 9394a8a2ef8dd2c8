package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
	"github.com/Carmen-Shannon/oxy-waves/engine/profiler"
	"github.com/Carmen-Shannon/oxy-waves/engine/renderer"
	"github.com/Carmen-Shannon/oxy-waves/engine/scene"
)

// ErrRunning is returned by Run when the engine loop is already running.
var ErrRunning = errors.New("engine: already running")

// engine implements the Engine interface.
// Drives the frame ring from a single cooperative tick loop.
type engine struct {
	ring    frame.Ring
	pass    scene.Pass
	backend renderer.Backend

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates
	engineTickRate  time.Duration
	runDuration     time.Duration

	running     atomic.Bool
	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	profiler         *profiler.Profiler
	profilingEnabled atomic.Bool

	tickCallback func(deltaTime float32)
	ticks        atomic.Uint64
}

// Engine owns the tick loop of the frame pipeline. Each tick acquires the next frame slot
// (blocking only while the device still uses it), runs the scene update pass into it, records and
// submits the slot's workload, and presents.
type Engine interface {
	// Tick runs one full frame: Advance, tick callback, pass update, Record, Submit, Present.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous tick
	//
	// Returns:
	//   - error: the first failure; a *frame.DeviceTimeoutError is fatal
	Tick(deltaTime float32) error

	// Run ticks at the configured rate until ctx is cancelled, Quit is called, the run duration
	// elapses or a tick fails. The ring is drained before Run returns unless the device timed out.
	//
	// Parameters:
	//   - ctx: cancellation for the loop
	//
	// Returns:
	//   - error: the tick or drain failure, nil on a clean stop
	Run(ctx context.Context) error

	// Quit stops a running loop. Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// SetTickRate sets the tick rate in ticks per second (defaults to 60 if <= 0).
	// If the engine is running, the change takes effect immediately.
	//
	// Parameters:
	//   - fps: target ticks per second
	SetTickRate(fps float64)

	// SetTickCallback registers a function called each tick after the slot is acquired and
	// before the scene pass runs. Use it for game logic that changes entities.
	//
	// Parameters:
	//   - callback: function receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// Ticks returns the number of completed ticks.
	Ticks() uint64
}

var _ Engine = &engine{}

// NewEngine creates an Engine over an already built ring, pass and backend.
//
// Parameters:
//   - ring: the frame ring (panics on nil)
//   - pass: the scene update pass writing into the ring's current slot (panics on nil)
//   - backend: the device the ring submits to (panics on nil)
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(ring frame.Ring, pass scene.Pass, backend renderer.Backend, options ...EngineBuilderOption) Engine {
	if ring == nil {
		panic("engine: NewEngine requires a non-nil Ring")
	}
	if pass == nil {
		panic("engine: NewEngine requires a non-nil Pass")
	}
	if backend == nil {
		panic("engine: NewEngine requires a non-nil Backend")
	}

	e := &engine{
		ring:            ring,
		pass:            pass,
		backend:         backend,
		tickRateChannel: make(chan time.Duration, 1),
		engineTickRate:  time.Second / 60,
		quitChannel:     make(chan struct{}),
		profiler:        profiler.NewProfiler(time.Second),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *engine) Tick(deltaTime float32) error {
	slot, err := e.ring.Advance()
	if err != nil {
		return err
	}
	if e.tickCallback != nil {
		e.tickCallback(deltaTime)
	}
	if err := e.pass.Run(deltaTime); err != nil {
		return fmt.Errorf("engine: scene pass: %w", err)
	}
	workload, err := e.backend.Record(slot)
	if err != nil {
		return fmt.Errorf("engine: record slot %d: %w", slot.Index(), err)
	}
	if err := e.ring.Submit(slot, workload); err != nil {
		return err
	}
	if err := e.backend.Present(); err != nil {
		return fmt.Errorf("engine: present: %w", err)
	}

	e.ticks.Add(1)
	if e.profilingEnabled.Load() {
		e.profiler.Tick(e.ring.Stats())
	}
	return nil
}

func (e *engine) Run(ctx context.Context) (err error) {
	if !e.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer e.running.Store(false)

	common.Logger().Info("engine: started", "tick_rate", e.engineTickRate, "slots", e.ring.SlotCount())
	defer func() {
		// A timed-out device will not finish the rest of the ring either.
		if !errors.Is(err, common.ErrDeviceTimeout) {
			if drainErr := e.ring.Drain(); drainErr != nil {
				err = errors.Join(err, drainErr)
			}
		}
		common.Logger().Info("engine: stopped", "ticks", e.ticks.Load(), "error", err)
	}()
	// Recover from panics inside the tick to surface them as an error and still drain the ring.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: tick panicked: %v", r)
		}
	}()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if e.runDuration > 0 {
		timer := time.NewTimer(e.runDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	lastTick := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.quitChannel:
			return nil
		case <-deadline:
			return nil
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if err := e.Tick(dt); err != nil {
				common.Logger().Error("engine: tick failed", "tick", e.ticks.Load(), "error", err)
				return err
			}
		}
	}
}

// Quit signals the loop to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running.Load() {
		e.engineTickRate = newRate
		return
	}
	// Non-blocking send - if the channel is full, replace the pending value.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled.Store(true)
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled.Store(false)
}

func (e *engine) Ticks() uint64 {
	return e.ticks.Load()
}
