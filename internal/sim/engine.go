// Package sim runs the per-frame particle pipeline and exposes the engine's
// external API.
package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/integrators"
	"github.com/san-kum/ballpit/internal/metrics"
	"github.com/san-kum/ballpit/internal/particles"
	"github.com/san-kum/ballpit/internal/physics"
	"github.com/san-kum/ballpit/internal/spatial"
)

// world is the state guarded by the engine's Shared resource.
type world struct {
	store *particles.Store
	grid  *spatial.Grid
	frame int
	time  float64
}

// FrameStats summarises the sub-steps of one frame.
type FrameStats struct {
	Corrections int
	Degenerate  int
	Clamped     int
	Dropped     int
	Guarded     int
}

// Engine owns the particles and advances them one rendered frame at a time.
// Step holds exclusive access to the state for the whole frame, so readers
// such as a renderer never see a half-finished sub-step.
type Engine struct {
	cfg        dynamo.Config
	state      *Shared[world]
	integrator *integrators.Verlet
	constraint physics.Constraint
	solver     *physics.Solver
	pool       *BufferPool
	logger     *slog.Logger
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	last       FrameStats
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetric(m dynamo.Metric) Option {
	return func(e *Engine) { e.AddMetric(m) }
}

func WithObserver(o dynamo.Observer) Option {
	return func(e *Engine) { e.AddObserver(o) }
}

// New validates cfg and builds an empty engine.
func New(cfg dynamo.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	constraint, err := physics.NewConstraint(cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg: cfg,
		state: NewShared(world{
			store: particles.New(256),
			grid:  spatial.New(cfg.DomainWidth, cfg.DomainHeight, cfg.CellSize),
		}),
		integrator: integrators.NewVerlet(cfg),
		constraint: constraint,
		solver:     physics.NewSolver(cfg.Radius, cfg.WorkerCount),
		pool:       NewBufferPool(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// AddMetric and AddObserver must be called before the engine is stepped
// concurrently with other goroutines. Both are invoked at the end of every
// frame with exclusive access held, so they must not call back into the
// engine.
func (e *Engine) AddMetric(m dynamo.Metric)     { e.metrics = append(e.metrics, m) }
func (e *Engine) AddObserver(o dynamo.Observer) { e.observers = append(e.observers, o) }

func (e *Engine) Config() dynamo.Config { return e.cfg }

// Spawn appends count particles starting at pos, each one SpawnSpacing
// further along +Y, all moving with SpawnVelocity. It returns the id of the
// first new particle.
func (e *Engine) Spawn(pos dynamo.Vec, count int) int {
	var first, total int
	e.state.Write(func(w *world) {
		first = w.store.Len()
		for i := 0; i < count; i++ {
			p := r2.Add(pos, dynamo.Vec{Y: e.cfg.SpawnSpacing * float64(i)})
			w.store.Append(p, e.cfg.SpawnVelocity)
		}
		total = w.store.Len()
	})
	if count > 0 {
		e.logger.Debug("spawned particles", "first", first, "count", count, "total", total)
	}
	return first
}

// Step advances the simulation by one rendered frame of frameDt seconds,
// split into SubSteps equal sub-steps.
func (e *Engine) Step(frameDt float64) {
	e.state.Write(func(w *world) {
		e.step(w, frameDt)
	})
}

// Positions returns a copy of the current particle positions, ordered by id.
func (e *Engine) Positions() []dynamo.Vec {
	var out []dynamo.Vec
	e.state.Read(func(w world) {
		out = w.store.Snapshot()
	})
	return out
}

func (e *Engine) ParticleCount() int {
	var n int
	e.state.Read(func(w world) {
		n = w.store.Len()
	})
	return n
}

// Frame returns the number of frames stepped so far.
func (e *Engine) Frame() int {
	var n int
	e.state.Read(func(w world) {
		n = w.frame
	})
	return n
}

// LastStats returns counters for the most recent frame.
func (e *Engine) LastStats() FrameStats {
	var s FrameStats
	e.state.Read(func(world) {
		s = e.last
	})
	return s
}

func (e *Engine) step(w *world, frameDt float64) dynamo.Frame {
	subDt := frameDt / float64(e.cfg.SubSteps)
	var st FrameStats

	for i := 0; i < e.cfg.SubSteps; i++ {
		st.Guarded += e.integrator.Advance(w.store, subDt)
		st.Clamped += e.constraint.Clamp(w.store, e.cfg.DomainWidth, e.cfg.DomainHeight)
		st.Dropped += w.grid.Build(w.store.Current())

		next := e.solver.Resolve(w.grid, w.store.Current(), e.pool.Get(w.store.Len()))
		e.pool.Put(w.store.Swap(next))

		ss := e.solver.Stats()
		st.Corrections += ss.Corrections
		st.Degenerate += ss.Degenerate
	}

	w.frame++
	if frameDt > 0 {
		w.time += frameDt
	}
	e.last = st

	if st.Guarded > 0 || st.Dropped > 0 {
		e.logger.Warn("numeric guard triggered",
			"frame", w.frame, "non_finite_velocity", st.Guarded, "unbucketed", st.Dropped)
	}
	if st.Degenerate > 0 {
		e.logger.Debug("coincident particles separated along x",
			"frame", w.frame, "pairs", st.Degenerate/2, "solver", e.solver.Stats())
	}

	f := dynamo.Frame{
		Index:    w.frame,
		Time:     w.time,
		SubDt:    subDt,
		Current:  w.store.Current(),
		Previous: w.store.Prev(),
	}
	for _, m := range e.metrics {
		m.Observe(f)
	}
	for _, o := range e.observers {
		o.OnFrame(f)
	}
	return f
}

// RunConfig drives a headless run.
type RunConfig struct {
	Frames        int
	FrameDt       float64
	ValidateState bool
}

// Sample is the per-frame record of a headless run.
type Sample struct {
	Frame       int
	Time        float64
	Particles   int
	Corrections int
	Degenerate  int
	Clamped     int
	Kinetic     float64
	StepTime    time.Duration
}

type Result struct {
	Samples   []Sample
	Metrics   map[string]float64
	FramesRun int
	Elapsed   time.Duration
}

// Run steps the engine Frames times, checking ctx between frames. A frame
// whose positions are not finite stops the run when ValidateState is set:
// the partial result is returned together with a *dynamo.SimError wrapping
// dynamo.ErrInvalidState.
func (e *Engine) Run(ctx context.Context, rc RunConfig) (*Result, error) {
	if rc.Frames <= 0 {
		return nil, fmt.Errorf("frames must be positive, got %d", rc.Frames)
	}
	if !(rc.FrameDt > 0) {
		return nil, fmt.Errorf("frame dt must be positive, got %f", rc.FrameDt)
	}

	result := &Result{
		Samples: make([]Sample, 0, rc.Frames),
		Metrics: make(map[string]float64),
	}
	for _, m := range e.metrics {
		m.Reset()
	}

	start := time.Now()
	for i := 0; i < rc.Frames; i++ {
		select {
		case <-ctx.Done():
			result.Elapsed = time.Since(start)
			return result, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		frameStart := time.Now()
		var sample Sample
		var invalid error
		e.state.Write(func(w *world) {
			f := e.step(w, rc.FrameDt)
			sample = Sample{
				Frame:       f.Index,
				Time:        f.Time,
				Particles:   len(f.Current),
				Corrections: e.last.Corrections,
				Degenerate:  e.last.Degenerate,
				Clamped:     e.last.Clamped,
				Kinetic:     metrics.MeanKinetic(f),
			}
			if rc.ValidateState && !f.IsValid() {
				invalid = &dynamo.SimError{Frame: f.Index, Time: f.Time, Wrapped: dynamo.ErrInvalidState}
			}
		})
		sample.StepTime = time.Since(frameStart)
		result.Samples = append(result.Samples, sample)
		result.FramesRun++

		if invalid != nil {
			e.logger.Error("run stopped", "error", invalid)
			result.Elapsed = time.Since(start)
			e.collect(result)
			return result, invalid
		}
	}
	result.Elapsed = time.Since(start)
	e.collect(result)

	return result, nil
}

func (e *Engine) collect(r *Result) {
	for _, m := range e.metrics {
		r.Metrics[m.Name()] = m.Value()
	}
}
