package metrics

import (
	"github.com/san-kum/ballpit/internal/dynamo"
)

// Containment reports the lowest fraction of particles found inside the
// domain (inset by radius, with tolerance) over observed frames.
type Containment struct {
	name          string
	radius        float64
	width, height float64
	tolerance     float64
	worst         float64
}

func NewContainment(cfg dynamo.Config) *Containment {
	return &Containment{
		name:      "containment",
		radius:    cfg.Radius,
		width:     cfg.DomainWidth,
		height:    cfg.DomainHeight,
		tolerance: 1e-9,
		worst:     1,
	}
}

func (c *Containment) Name() string { return c.name }

func (c *Containment) Observe(f dynamo.Frame) {
	if len(f.Current) == 0 {
		return
	}
	lo := c.radius - c.tolerance
	inside := 0
	for _, p := range f.Current {
		if p.X >= lo && p.Y >= lo && p.X <= c.width-lo && p.Y <= c.height-lo {
			inside++
		}
	}
	if frac := float64(inside) / float64(len(f.Current)); frac < c.worst {
		c.worst = frac
	}
}

func (c *Containment) Value() float64 { return c.worst }

func (c *Containment) Reset() {
	c.worst = 1
}

// Stability is 1 while every observed frame held only finite positions and
// drops to the fraction of clean frames once one did not.
type Stability struct {
	name       string
	violations int
	samples    int
}

func NewStability() *Stability {
	return &Stability{name: "stability"}
}

func (s *Stability) Name() string { return s.name }

func (s *Stability) Observe(f dynamo.Frame) {
	s.samples++
	if !f.IsValid() {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Defaults returns the standard metric set for a configuration.
func Defaults(cfg dynamo.Config) []dynamo.Metric {
	return []dynamo.Metric{
		NewKineticEnergy(),
		NewOverlap(cfg),
		NewContainment(cfg),
		NewStability(),
	}
}
