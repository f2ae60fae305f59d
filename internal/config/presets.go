package config

import (
	"sort"
)

func columns(n int, x0, dx, y float64, count int, jitter float64) []SpawnConfig {
	out := make([]SpawnConfig, n)
	for i := range out {
		out[i] = SpawnConfig{X: x0 + dx*float64(i), Y: y, Count: count, Jitter: jitter}
	}
	return out
}

func preset(mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	mutate(cfg)
	return cfg
}

var Presets = map[string]*Config{
	"sandbox": preset(func(c *Config) {
		c.Spawns = []SpawnConfig{{X: 100, Y: 50, Count: 50}}
	}),
	"rain": preset(func(c *Config) {
		c.Run.Frames = 900
		c.Run.Seed = 7
		c.Engine.SpawnVX = 0
		c.Engine.SpawnVY = 1
		c.Spawns = columns(20, 40, 38, 20, 25, 6)
	}),
	"dense": preset(func(c *Config) {
		c.Engine.SpawnSpacing = 4.5
		c.Spawns = columns(40, 200, 10, 20, 60, 0)
	}),
	"bouncy": preset(func(c *Config) {
		c.Engine.Boundary = "elastic"
		c.Engine.Restitution = 0.8
		c.Engine.Drag = 0
		c.Spawns = columns(5, 150, 120, 30, 30, 0)
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
