package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-waves/common"
	"github.com/Carmen-Shannon/oxy-waves/engine/renderer"
	"github.com/Carmen-Shannon/oxy-waves/engine/waves"
)

// Settings is the landwaves settings file.
type Settings struct {
	Frames    FrameSettings     `json:"frames"`
	Waves     WaveSettings      `json:"waves"`
	Disturber DisturberSettings `json:"disturber"`
	Engine    EngineSettings    `json:"engine"`
	Backend   BackendSettings   `json:"backend"`
}

type FrameSettings struct {
	Count         int `json:"count"`
	WaitTimeoutMs int `json:"waitTimeoutMs"`
}

type WaveSettings struct {
	Rows        int     `json:"rows"`
	Cols        int     `json:"cols"`
	SpatialStep float32 `json:"spatialStep"`
	TimeStep    float32 `json:"timeStep"`
	Speed       float32 `json:"speed"`
	Damping     float32 `json:"damping"`
	MaxSubsteps int     `json:"maxSubsteps"`
	Workers     int     `json:"workers"`
}

type DisturberSettings struct {
	Enabled      bool    `json:"enabled"`
	IntervalSec  float32 `json:"intervalSec"`
	MinMagnitude float32 `json:"minMagnitude"`
	MaxMagnitude float32 `json:"maxMagnitude"`
	Seed         uint64  `json:"seed"`
}

type EngineSettings struct {
	TickRate      float64 `json:"tickRate"`
	RunDurationMs int     `json:"runDurationMs"` // 0 runs until interrupted
	Reflection    bool    `json:"reflection"`
	Profiling     bool    `json:"profiling"`
	ProfileMs     int     `json:"profileMs"`
}

type BackendSettings struct {
	Name      string `json:"name"` // sim, wgpu or hal
	LatencyMs int    `json:"latencyMs"`
}

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{
		Frames: FrameSettings{
			Count:         3,
			WaitTimeoutMs: 5000,
		},
		Waves: WaveSettings{
			Rows:        160,
			Cols:        160,
			SpatialStep: 1.0,
			TimeStep:    0.03,
			Speed:       4.0,
			Damping:     0.2,
		},
		Disturber: DisturberSettings{
			Enabled:      true,
			IntervalSec:  0.25,
			MinMagnitude: 0.2,
			MaxMagnitude: 0.5,
			Seed:         1,
		},
		Engine: EngineSettings{
			TickRate:  60,
			ProfileMs: 1000,
		},
		Backend: BackendSettings{
			Name:      renderer.BackendTypeSim.String(),
			LatencyMs: 2,
		},
	}
}

// Load reads the settings file at path over the defaults. A missing file yields the defaults.
//
// Parameters:
//   - path: the JSON settings file
//
// Returns:
//   - Settings: the loaded and validated settings
//   - error: a read, parse or validation error
func Load(path string) (Settings, error) {
	s := Default()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			common.Logger().Info("config: no settings file, using defaults", "path", path)
			return s, nil
		}
		return s, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return s, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	common.Logger().Info("config: loaded", "path", path, "grid", fmt.Sprintf("%dx%d", s.Waves.Rows, s.Waves.Cols))
	return s, nil
}

// Validate checks the ranges the components would otherwise reject at construction time.
func (s Settings) Validate() error {
	if s.Frames.Count < 2 {
		return fmt.Errorf("config: %w: frames.count %d < 2", common.ErrConfiguration, s.Frames.Count)
	}
	if s.Frames.WaitTimeoutMs <= 0 {
		return fmt.Errorf("config: %w: frames.waitTimeoutMs must be positive", common.ErrConfiguration)
	}
	if s.Waves.Rows < waves.MinDimension || s.Waves.Cols < waves.MinDimension {
		return fmt.Errorf("config: %w: waves grid %dx%d below %d", common.ErrConfiguration,
			s.Waves.Rows, s.Waves.Cols, waves.MinDimension)
	}
	if s.Waves.SpatialStep <= 0 || s.Waves.TimeStep <= 0 || s.Waves.Speed <= 0 || s.Waves.Damping < 0 {
		return fmt.Errorf("config: %w: waves constants out of range", common.ErrConfiguration)
	}
	if s.Disturber.Enabled {
		d := s.Disturber
		if d.IntervalSec <= 0 || d.MinMagnitude > d.MaxMagnitude {
			return fmt.Errorf("config: %w: disturber interval %v, magnitude [%v, %v]", common.ErrConfiguration,
				d.IntervalSec, d.MinMagnitude, d.MaxMagnitude)
		}
	}
	if s.Engine.TickRate <= 0 {
		return fmt.Errorf("config: %w: engine.tickRate must be positive", common.ErrConfiguration)
	}
	if s.Engine.RunDurationMs < 0 {
		return fmt.Errorf("config: %w: engine.runDurationMs is negative", common.ErrConfiguration)
	}
	if _, err := renderer.ParseBackendType(s.Backend.Name); err != nil {
		return fmt.Errorf("config: backend.name: %w", err)
	}
	if s.Backend.LatencyMs < 0 {
		return fmt.Errorf("config: %w: backend.latencyMs is negative", common.ErrConfiguration)
	}
	return nil
}

func (s Settings) WaitTimeout() time.Duration {
	return time.Duration(s.Frames.WaitTimeoutMs) * time.Millisecond
}

func (s Settings) RunDuration() time.Duration {
	return time.Duration(s.Engine.RunDurationMs) * time.Millisecond
}

func (s Settings) Latency() time.Duration {
	return time.Duration(s.Backend.LatencyMs) * time.Millisecond
}

func (s Settings) ProfileInterval() time.Duration {
	return time.Duration(s.Engine.ProfileMs) * time.Millisecond
}
