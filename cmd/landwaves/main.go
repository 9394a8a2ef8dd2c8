// Command landwaves runs the land-and-waves frame pipeline headless: a damped wave grid, a land
// grid and a box, updated every tick into a ring of frame slots and submitted to a device backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/Carmen-Shannon/oxy-waves/config"
	"github.com/Carmen-Shannon/oxy-waves/engine"
	"github.com/Carmen-Shannon/oxy-waves/engine/camera"
	"github.com/Carmen-Shannon/oxy-waves/engine/entity"
	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
	"github.com/Carmen-Shannon/oxy-waves/engine/renderer"
	"github.com/Carmen-Shannon/oxy-waves/engine/scene"
	"github.com/Carmen-Shannon/oxy-waves/engine/waves"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"
)

// Material table indices of the three render entities.
const (
	materialGrass uint32 = iota
	materialWater
	materialWireFence
)

func main() {
	configPath := flag.String("config", "landwaves.json", "path to the JSON settings file")
	verbose := flag.Bool("verbose", false, "log per-tick diagnostics")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, s config.Settings) error {
	// ── Waves ───────────────────────────────────────────────────────────
	waveOpts := []waves.WavesBuilderOption{}
	if s.Waves.MaxSubsteps > 0 {
		waveOpts = append(waveOpts, waves.WithMaxSubsteps(s.Waves.MaxSubsteps))
	}
	if s.Waves.Workers > 0 {
		waveOpts = append(waveOpts, waves.WithWorkers(s.Waves.Workers))
	}
	w, err := waves.NewWaves(s.Waves.Rows, s.Waves.Cols, s.Waves.SpatialStep, s.Waves.TimeStep,
		s.Waves.Speed, s.Waves.Damping, waveOpts...)
	if err != nil {
		return err
	}

	passes := 1
	if s.Engine.Reflection {
		passes = 2
	}
	slotCfg := frame.SlotConfig{Instances: 3, Passes: passes, Vertices: w.VertexCount()}

	// ── Backend ─────────────────────────────────────────────────────────
	backend, release, err := newBackend(s, slotCfg, w)
	if err != nil {
		return err
	}
	defer release()

	// ── Frame ring ──────────────────────────────────────────────────────
	ring, err := frame.NewRing(slotCfg, backend, backend,
		frame.WithSlotCount(s.Frames.Count),
		frame.WithWaitTimeout(s.WaitTimeout()),
		frame.WithCommandContexts(backend.NewCommandContext),
	)
	if err != nil {
		return err
	}

	// ── Entities ────────────────────────────────────────────────────────
	registry, err := entity.NewRegistry(slotCfg.Instances, ring.SlotCount())
	if err != nil {
		return err
	}
	if _, err := registry.Create(
		entity.WithTextureScale(5, 5),
		entity.WithMaterialIndex(materialWater),
		entity.WithTextureScroll(0.1, 0.02),
	); err != nil {
		return err
	}
	if _, err := registry.Create(
		entity.WithTextureScale(5, 5),
		entity.WithMaterialIndex(materialGrass),
	); err != nil {
		return err
	}
	if _, err := registry.Create(
		entity.WithPosition(3, 2, -9),
		entity.WithMaterialIndex(materialWireFence),
	); err != nil {
		return err
	}

	// ── Camera + pass ───────────────────────────────────────────────────
	cam := camera.NewCamera()
	passOpts := []scene.PassBuilderOption{}
	if s.Disturber.Enabled {
		passOpts = append(passOpts, scene.WithDisturber(s.Disturber.IntervalSec,
			s.Disturber.MinMagnitude, s.Disturber.MaxMagnitude, s.Disturber.Seed))
	}
	if s.Engine.Reflection {
		passOpts = append(passOpts, scene.WithReflection(0))
	}
	pass, err := scene.NewPass(ring, registry, w, cam, passOpts...)
	if err != nil {
		return err
	}

	// ── Engine ──────────────────────────────────────────────────────────
	eng := engine.NewEngine(ring, pass, backend,
		engine.WithTickRate(s.Engine.TickRate),
		engine.WithRunDuration(s.RunDuration()),
		engine.WithProfiling(s.Engine.Profiling, s.ProfileInterval()),
	)
	if err := eng.Run(ctx); err != nil {
		return err
	}

	stats := ring.Stats()
	common.Logger().Info("landwaves: done",
		"ticks", eng.Ticks(),
		"stalls", stats.Stalls,
		"wait", stats.WaitTime,
		"wave_steps", w.Steps(),
		"energy", w.Energy())
	if sim, ok := backend.(renderer.SimBackend); ok && sim.Violations() > 0 {
		return fmt.Errorf("landwaves: %d workloads saw their slot modified in flight", sim.Violations())
	}
	return nil
}

// newBackend opens the configured backend. The returned function releases the backend and
// anything opened for it.
func newBackend(s config.Settings, cfg frame.SlotConfig, w waves.Waves) (renderer.Backend, func(), error) {
	backendType, err := renderer.ParseBackendType(s.Backend.Name)
	if err != nil {
		return nil, nil, err
	}
	switch backendType {
	case renderer.BackendTypeSim:
		b := renderer.NewSimBackend(renderer.WithLatency(s.Latency()))
		return b, b.Release, nil
	case renderer.BackendTypeWGPU:
		b, err := renderer.NewWGPUBackend(cfg, s.Frames.Count)
		if err != nil {
			return nil, nil, err
		}
		if err := b.UploadIndices(w.Indices()); err != nil {
			b.Release()
			return nil, nil, err
		}
		return b, b.Release, nil
	case renderer.BackendTypeHAL:
		return newHALBackend()
	default:
		return nil, nil, fmt.Errorf("landwaves: unhandled backend %v", backendType)
	}
}

// newHALBackend opens the first adapter of the hal noop API, which completes every submission
// as soon as it is made.
func newHALBackend() (renderer.Backend, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("landwaves: create hal instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, errors.New("landwaves: no hal adapter")
	}
	common.Logger().Info("landwaves: hal adapter", "name", adapters[0].Info.Name, "driver", adapters[0].Info.Driver)

	dev, err := adapters[0].Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("landwaves: open hal device: %w", err)
	}
	b := renderer.NewHALBackend(dev.Device, dev.Queue)
	return b, func() {
		b.Release()
		dev.Device.Destroy()
		instance.Destroy()
	}, nil
}
