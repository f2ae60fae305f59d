package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/particles"
)

// Constraint keeps particles inside a width x height domain.
type Constraint interface {
	// Clamp returns the number of coordinates it had to correct.
	Clamp(s *particles.Store, width, height float64) int
}

// NewConstraint builds the boundary variant named by cfg.Boundary.
func NewConstraint(cfg dynamo.Config) (Constraint, error) {
	switch cfg.Boundary {
	case dynamo.BoundaryOverdamped:
		return &Overdamped{Radius: cfg.Radius}, nil
	case dynamo.BoundaryElastic:
		return &Elastic{Radius: cfg.Radius, Restitution: cfg.Restitution}, nil
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Boundary, dynamo.ErrUnknownBoundary)
	}
}

// clampAxis pins x into [lo, hi]. Non-finite values go to lo.
func clampAxis(x, lo, hi float64) (float64, bool) {
	switch {
	case math.IsNaN(x) || math.IsInf(x, 0):
		return lo, true
	case x < lo:
		return lo, true
	case x > hi:
		return hi, true
	}
	return x, false
}

// Overdamped corrects positions only. The previous position is left alone, so
// the Verlet velocity into the wall is mostly absorbed on the next step.
type Overdamped struct {
	Radius float64
}

func (o *Overdamped) Clamp(s *particles.Store, width, height float64) int {
	cur := s.Current()
	r := o.Radius
	n := 0
	for i := range cur {
		var hitX, hitY bool
		cur[i].X, hitX = clampAxis(cur[i].X, r, width-r)
		cur[i].Y, hitY = clampAxis(cur[i].Y, r, height-r)
		if hitX {
			n++
		}
		if hitY {
			n++
		}
	}
	return n
}

// Elastic clamps like Overdamped and additionally reflects the velocity
// component on the violated axis, scaled by Restitution. The velocity is
// rewritten through the previous position.
type Elastic struct {
	Radius      float64
	Restitution float64
}

func (e *Elastic) Clamp(s *particles.Store, width, height float64) int {
	cur, prev := s.Current(), s.Prev()
	r := e.Radius
	n := 0
	for i := range cur {
		vx := cur[i].X - prev[i].X
		vy := cur[i].Y - prev[i].Y

		var hit bool
		if cur[i].X, hit = clampAxis(cur[i].X, r, width-r); hit {
			prev[i].X = cur[i].X + e.reflect(vx)
			n++
		}
		if cur[i].Y, hit = clampAxis(cur[i].Y, r, height-r); hit {
			prev[i].Y = cur[i].Y + e.reflect(vy)
			n++
		}
	}
	return n
}

// reflect returns the offset prev-cur that yields velocity -Restitution*v.
func (e *Elastic) reflect(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return e.Restitution * v
}
