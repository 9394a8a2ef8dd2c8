package main

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-waves/config"
	"github.com/Carmen-Shannon/oxy-waves/engine/frame"
	"github.com/Carmen-Shannon/oxy-waves/engine/renderer"
	"github.com/Carmen-Shannon/oxy-waves/engine/waves"
)

func smallSettings(backend string) config.Settings {
	s := config.Default()
	s.Waves.Rows, s.Waves.Cols = 16, 16
	s.Engine.RunDurationMs = 100
	s.Backend.Name = backend
	return s
}

func TestNewBackendByName(t *testing.T) {
	w, err := waves.NewWaves(16, 16, 1, 0.03, 4, 0.2)
	if err != nil {
		t.Fatalf("NewWaves: %v", err)
	}
	cfg := frame.SlotConfig{Instances: 3, Passes: 1, Vertices: w.VertexCount()}

	tests := []struct {
		name string
		want func(renderer.Backend) bool
	}{
		{"sim", func(b renderer.Backend) bool { _, ok := b.(renderer.SimBackend); return ok }},
		{"hal", func(b renderer.Backend) bool { _, ok := b.(renderer.HALBackend); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, release, err := newBackend(smallSettings(tt.name), cfg, w)
			if err != nil {
				t.Fatalf("newBackend(%q): %v", tt.name, err)
			}
			defer release()
			if !tt.want(b) {
				t.Errorf("newBackend(%q) = %T", tt.name, b)
			}
		})
	}

	if _, _, err := newBackend(smallSettings("vulkan"), cfg, w); err == nil {
		t.Errorf("newBackend(\"vulkan\") error = nil, want an error")
	}
}

func TestRunOnHALBackend(t *testing.T) {
	if err := run(context.Background(), smallSettings("hal")); err != nil {
		t.Fatalf("run: %v", err)
	}
}
