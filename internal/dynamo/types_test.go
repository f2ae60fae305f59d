package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.CellSize < 2*cfg.Radius {
		t.Error("default cell size smaller than diameter")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"zero cell", func(c *Config) { c.CellSize = 0 }, ErrInvalidCellSize},
		{"negative cell", func(c *Config) { c.CellSize = -1 }, ErrInvalidCellSize},
		{"nan cell", func(c *Config) { c.CellSize = math.NaN() }, ErrInvalidCellSize},
		{"cell below diameter", func(c *Config) { c.CellSize = c.Radius }, ErrCellTooSmall},
		{"zero workers", func(c *Config) { c.WorkerCount = 0 }, ErrZeroWorkers},
		{"zero sub-steps", func(c *Config) { c.SubSteps = 0 }, ErrZeroSubSteps},
		{"zero radius", func(c *Config) { c.Radius = 0 }, ErrInvalidRadius},
		{"tiny domain", func(c *Config) { c.DomainWidth = 1 }, ErrInvalidDomain},
		{"unknown boundary", func(c *Config) { c.Boundary = "sticky" }, ErrUnknownBoundary},
		{"huge grid", func(c *Config) { c.DomainWidth, c.DomainHeight = 1e6, 1e6 }, ErrTooManyCells},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfigValidate_Ranges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Restitution = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for restitution > 1")
	}

	cfg = DefaultConfig()
	cfg.MaxVelocity = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero max velocity")
	}
}

func TestClampLength(t *testing.T) {
	tests := []struct {
		in   Vec
		max  float64
		want float64
	}{
		{Vec{X: 3, Y: 4}, 10, 5},
		{Vec{X: 3, Y: 4}, 1.5, 1.5},
		{Vec{}, 1, 0},
	}

	for _, tt := range tests {
		got := ClampLength(tt.in, tt.max)
		if l := math.Hypot(got.X, got.Y); math.Abs(l-tt.want) > 1e-12 {
			t.Errorf("ClampLength(%v, %v) length = %v, want %v", tt.in, tt.max, l, tt.want)
		}
	}
}

func TestFinite(t *testing.T) {
	tests := []struct {
		name string
		v    Vec
		want bool
	}{
		{"zero", Vec{}, true},
		{"normal", Vec{X: 1, Y: -2}, true},
		{"nan x", Vec{X: math.NaN()}, false},
		{"inf y", Vec{Y: math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Finite(tt.v); got != tt.want {
				t.Errorf("Finite(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestSimError(t *testing.T) {
	err := &SimError{Frame: 12, Time: 0.2, Wrapped: ErrInvalidState}
	expected := "frame 12 (t=0.2000): dynamo: invalid state (NaN or Inf detected)"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Error("SimError should unwrap to ErrInvalidState")
	}
}
