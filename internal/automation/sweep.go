// Package automation runs batches of engines over a range of one parameter.
package automation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/san-kum/ballpit/internal/config"
	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/metrics"
	"github.com/san-kum/ballpit/internal/sim"
)

var setters = map[string]func(*dynamo.Config, float64){
	"radius":       setRadius,
	"restitution":  func(c *dynamo.Config, v float64) { c.Restitution = v },
	"drag":         func(c *dynamo.Config, v float64) { c.Drag = v },
	"gravity_y":    func(c *dynamo.Config, v float64) { c.Gravity.Y = v },
	"max_velocity": func(c *dynamo.Config, v float64) { c.MaxVelocity = v },
	"substeps":     func(c *dynamo.Config, v float64) { c.SubSteps = int(math.Round(v)) },
	"workers":      func(c *dynamo.Config, v float64) { c.WorkerCount = int(math.Round(v)) },
}

// setRadius keeps the cell-to-radius ratio of the base config so that larger
// particles still fit a cell.
func setRadius(c *dynamo.Config, v float64) {
	if c.Radius > 0 {
		c.CellSize *= v / c.Radius
	}
	c.Radius = v
}

// SweepParams lists the parameter names RunSweep accepts.
func SweepParams() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParameterSweep varies one engine parameter linearly from Min to Max over
// Steps runs. Every run starts from Base, including its spawns.
type ParameterSweep struct {
	Base   *config.Config
	Param  string
	Min    float64
	Max    float64
	Steps  int
	Frames int
}

type SweepResult struct {
	ParamValue float64
	FramesRun  int
	Particles  int
	Elapsed    time.Duration
	Metrics    map[string]float64
}

// Values returns the parameter value of each run.
func (s ParameterSweep) Values() []float64 {
	if s.Steps <= 1 {
		return []float64{s.Min}
	}
	step := (s.Max - s.Min) / float64(s.Steps-1)
	out := make([]float64, s.Steps)
	for i := range out {
		out[i] = s.Min + float64(i)*step
	}
	return out
}

// RunSweep executes all runs of the sweep concurrently and returns them in
// parameter order.
func RunSweep(ctx context.Context, sweep ParameterSweep) ([]SweepResult, error) {
	set, ok := setters[sweep.Param]
	if !ok {
		return nil, fmt.Errorf("unknown sweep parameter %q (available: %v)", sweep.Param, SweepParams())
	}
	if sweep.Base == nil {
		sweep.Base = config.DefaultConfig()
	}
	frames := sweep.Frames
	if frames <= 0 {
		frames = sweep.Base.Run.Frames
	}

	values := sweep.Values()
	configs := make([]dynamo.Config, len(values))
	for i, v := range values {
		cfg := sweep.Base.Dynamo()
		set(&cfg, v)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		configs[i] = cfg
	}

	particles := make([]int, 0, len(configs))
	ens := sim.NewEnsemble(configs, func(e *sim.Engine) {
		for _, m := range metrics.Defaults(e.Config()) {
			e.AddMetric(m)
		}
		sweep.Base.ApplySpawns(e)
		particles = append(particles, e.ParticleCount())
	})

	runs, err := ens.Run(ctx, sim.RunConfig{Frames: frames, FrameDt: sweep.Base.FrameDt(), ValidateState: true})
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(runs))
	for i, r := range runs {
		results[i] = SweepResult{
			ParamValue: values[i],
			FramesRun:  r.FramesRun,
			Particles:  particles[i],
			Elapsed:    r.Elapsed,
			Metrics:    r.Metrics,
		}
	}
	return results, nil
}
