package config

import (
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ballpit/internal/dynamo"
)

const (
	DefaultFrames = 600
	DefaultFPS    = 60.0
)

type Config struct {
	Engine EngineConfig  `yaml:"engine"`
	Run    RunConfig     `yaml:"run"`
	Spawns []SpawnConfig `yaml:"spawns"`
}

// EngineConfig mirrors dynamo.Config with flat, file-friendly fields.
type EngineConfig struct {
	Radius       float64 `yaml:"radius"`
	GravityX     float64 `yaml:"gravity_x"`
	GravityY     float64 `yaml:"gravity_y"`
	SubSteps     int     `yaml:"sub_steps"`
	Workers      int     `yaml:"workers"`
	CellSize     float64 `yaml:"cell_size"`
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	MaxVelocity  float64 `yaml:"max_velocity"`
	Drag         float64 `yaml:"drag"`
	Boundary     string  `yaml:"boundary"`
	Restitution  float64 `yaml:"restitution"`
	SpawnSpacing float64 `yaml:"spawn_spacing"`
	SpawnVX      float64 `yaml:"spawn_vx"`
	SpawnVY      float64 `yaml:"spawn_vy"`
}

type RunConfig struct {
	Frames int     `yaml:"frames"`
	FPS    float64 `yaml:"fps"`
	Seed   int64   `yaml:"seed"`
}

// SpawnConfig is one column of particles dropped before the first frame.
// Jitter shifts the column origin by up to that many units on X, drawn from
// the run seed.
type SpawnConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Count  int     `yaml:"count"`
	Jitter float64 `yaml:"jitter,omitempty"`
}

func DefaultConfig() *Config {
	d := dynamo.DefaultConfig()
	return &Config{
		Engine: EngineConfig{
			Radius:       d.Radius,
			GravityX:     d.Gravity.X,
			GravityY:     d.Gravity.Y,
			SubSteps:     d.SubSteps,
			Workers:      d.WorkerCount,
			CellSize:     d.CellSize,
			Width:        d.DomainWidth,
			Height:       d.DomainHeight,
			MaxVelocity:  d.MaxVelocity,
			Drag:         d.Drag,
			Boundary:     d.Boundary,
			Restitution:  d.Restitution,
			SpawnSpacing: d.SpawnSpacing,
			SpawnVX:      d.SpawnVelocity.X,
			SpawnVY:      d.SpawnVelocity.Y,
		},
		Run: RunConfig{
			Frames: DefaultFrames,
			FPS:    DefaultFPS,
		},
	}
}

// Load reads a YAML file over the defaults, so a file only needs the keys it
// changes.
func Load(path string) (*Config, error) {
	return Overlay(path, DefaultConfig())
}

// Overlay reads a YAML file over a copy of base. A spawns list in the file
// replaces base's.
func Overlay(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Dynamo converts the file form into the engine's configuration. Zero workers
// means one per CPU. The result is not validated here; sim.New does that.
func (c *Config) Dynamo() dynamo.Config {
	e := c.Engine
	if e.Workers == 0 {
		e.Workers = runtime.NumCPU()
	}
	return dynamo.Config{
		Radius:        e.Radius,
		Gravity:       dynamo.Vec{X: e.GravityX, Y: e.GravityY},
		SubSteps:      e.SubSteps,
		WorkerCount:   e.Workers,
		CellSize:      e.CellSize,
		DomainWidth:   e.Width,
		DomainHeight:  e.Height,
		MaxVelocity:   e.MaxVelocity,
		Drag:          e.Drag,
		Boundary:      e.Boundary,
		Restitution:   e.Restitution,
		SpawnSpacing:  e.SpawnSpacing,
		SpawnVelocity: dynamo.Vec{X: e.SpawnVX, Y: e.SpawnVY},
	}
}

// FrameDt is the fixed frame duration implied by Run.FPS.
func (c *Config) FrameDt() float64 {
	if c.Run.FPS <= 0 {
		return 1 / DefaultFPS
	}
	return 1 / c.Run.FPS
}

type Spawner interface {
	Spawn(pos dynamo.Vec, count int) int
}

// ApplySpawns feeds every spawn group to s in file order and returns the
// number of particles added.
func (c *Config) ApplySpawns(s Spawner) int {
	rng := rand.New(rand.NewPCG(uint64(c.Run.Seed), 0))
	total := 0
	for _, sp := range c.Spawns {
		if sp.Count <= 0 {
			continue
		}
		x := sp.X
		if sp.Jitter > 0 {
			x += (rng.Float64()*2 - 1) * sp.Jitter
		}
		s.Spawn(dynamo.Vec{X: x, Y: sp.Y}, sp.Count)
		total += sp.Count
	}
	return total
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Spawns = append([]SpawnConfig(nil), c.Spawns...)
	return &out
}
