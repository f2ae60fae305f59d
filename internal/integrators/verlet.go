package integrators

import (
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/particles"
)

// minChunk is the smallest particle range worth a goroutine.
const minChunk = 2048

// Verlet advances particles with position Verlet: the velocity is implicit in
// current minus previous position and never stored.
type Verlet struct {
	Gravity     dynamo.Vec
	MaxVelocity float64
	Drag        float64
	Workers     int
}

func NewVerlet(cfg dynamo.Config) *Verlet {
	return &Verlet{
		Gravity:     cfg.Gravity,
		MaxVelocity: cfg.MaxVelocity,
		Drag:        cfg.Drag,
		Workers:     cfg.WorkerCount,
	}
}

// Advance moves every particle forward by dt. A non-positive or non-finite dt
// (stalled frame clock) leaves the store untouched. The velocity magnitude is
// capped at MaxVelocity so repeated contact corrections cannot pump energy
// into the system. It returns how many particles had a non-finite velocity,
// which is reset to zero.
func (v *Verlet) Advance(s *particles.Store, dt float64) int {
	if !(dt > 0) || !dynamo.Finite(dynamo.Vec{X: dt}) {
		return 0
	}

	cur, prev := s.Current(), s.Prev()
	dt2 := dt * dt
	var guarded atomic.Int64

	dynamo.ParallelFor(len(cur), minChunk, v.Workers, func(start, end int) {
		n := 0
		for i := start; i < end; i++ {
			vel := r2.Sub(cur[i], prev[i])
			if !dynamo.Finite(vel) {
				vel = dynamo.Vec{}
				n++
			}
			vel = dynamo.ClampLength(vel, v.MaxVelocity)

			acc := r2.Sub(v.Gravity, r2.Scale(v.Drag, vel))
			prev[i] = cur[i]
			cur[i] = r2.Add(cur[i], r2.Add(vel, r2.Scale(dt2, acc)))
		}
		if n > 0 {
			guarded.Add(int64(n))
		}
	})

	return int(guarded.Load())
}
