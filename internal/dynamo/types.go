package dynamo

import (
	"fmt"
	"math"
	"runtime"

	"gonum.org/v1/gonum/spatial/r2"
)

// Vec is a 2D vector. Positions use screen orientation: +Y points down.
type Vec = r2.Vec

// Finite reports whether both components are neither NaN nor Inf.
func Finite(v Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}

// ClampLength scales v down so its length does not exceed max.
func ClampLength(v Vec, max float64) Vec {
	l := r2.Norm(v)
	if l <= max || l == 0 {
		return v
	}
	return r2.Scale(max/l, v)
}

// Boundary constraint variants.
const (
	BoundaryOverdamped = "overdamped"
	BoundaryElastic    = "elastic"
)

// Config holds engine construction parameters.
type Config struct {
	Radius       float64
	Gravity      Vec
	SubSteps     int
	WorkerCount  int
	CellSize     float64
	DomainWidth  float64
	DomainHeight float64

	// MaxVelocity caps the implicit velocity, measured as displacement per sub-step.
	MaxVelocity float64
	Drag        float64
	Boundary    string
	Restitution float64

	SpawnSpacing  float64
	SpawnVelocity Vec
}

func DefaultConfig() Config {
	const radius = 2.0
	return Config{
		Radius:        radius,
		Gravity:       Vec{X: 0, Y: 300},
		SubSteps:      8,
		WorkerCount:   runtime.NumCPU(),
		CellSize:      radius * 5,
		DomainWidth:   800,
		DomainHeight:  600,
		MaxVelocity:   1.5,
		Drag:          0.01,
		Boundary:      BoundaryOverdamped,
		Restitution:   0.5,
		SpawnSpacing:  radius * 5,
		SpawnVelocity: Vec{X: 3, Y: 0.5},
	}
}

// MaxCells bounds the broad-phase grid, border included.
const MaxCells = 1 << 20

// GridCells is the bucket count a grid over the domain needs, including the
// one-cell border on every side.
func (c Config) GridCells() float64 {
	cols := math.Ceil(c.DomainWidth/c.CellSize) + 2
	rows := math.Ceil(c.DomainHeight/c.CellSize) + 2
	return cols * rows
}

// Validate rejects configurations the engine cannot run. It is called at
// construction so nothing is deferred to the frame loop.
func (c Config) Validate() error {
	if !(c.Radius > 0) || math.IsInf(c.Radius, 0) {
		return fmt.Errorf("radius %v: %w", c.Radius, ErrInvalidRadius)
	}
	if !(c.CellSize > 0) || math.IsInf(c.CellSize, 0) {
		return fmt.Errorf("cell size %v: %w", c.CellSize, ErrInvalidCellSize)
	}
	if c.CellSize < 2*c.Radius {
		return fmt.Errorf("cell size %v < %v: %w", c.CellSize, 2*c.Radius, ErrCellTooSmall)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count %d: %w", c.WorkerCount, ErrZeroWorkers)
	}
	if c.SubSteps < 1 {
		return fmt.Errorf("sub-steps %d: %w", c.SubSteps, ErrZeroSubSteps)
	}
	if !(c.DomainWidth > 2*c.Radius) || !(c.DomainHeight > 2*c.Radius) ||
		math.IsInf(c.DomainWidth, 0) || math.IsInf(c.DomainHeight, 0) {
		return fmt.Errorf("domain %vx%v: %w", c.DomainWidth, c.DomainHeight, ErrInvalidDomain)
	}
	if n := c.GridCells(); n > MaxCells {
		return fmt.Errorf("%.0f cells for %vx%v at cell size %v: %w",
			n, c.DomainWidth, c.DomainHeight, c.CellSize, ErrTooManyCells)
	}
	switch c.Boundary {
	case BoundaryOverdamped, BoundaryElastic:
	default:
		return fmt.Errorf("%q: %w", c.Boundary, ErrUnknownBoundary)
	}
	if c.MaxVelocity <= 0 {
		return fmt.Errorf("max velocity must be positive, got %f", c.MaxVelocity)
	}
	if c.Restitution < 0 || c.Restitution > 1 {
		return fmt.Errorf("restitution must be in [0, 1], got %f", c.Restitution)
	}
	if !Finite(c.Gravity) || !Finite(c.SpawnVelocity) {
		return fmt.Errorf("gravity and spawn velocity must be finite")
	}
	return nil
}

// Frame is a read-only view of engine state handed to metrics and observers
// at the end of a frame. The slices are only valid during the callback.
type Frame struct {
	Index    int
	Time     float64
	SubDt    float64
	Current  []Vec
	Previous []Vec
}

// IsValid reports whether every current position is finite.
func (f Frame) IsValid() bool {
	for _, p := range f.Current {
		if !Finite(p) {
			return false
		}
	}
	return true
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnFrame(f Frame)
}
