package metrics

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/spatial"
)

// MaxOverlap returns the deepest penetration 2r-d over all particle pairs
// found through g. g is rebuilt from positions.
func MaxOverlap(positions []dynamo.Vec, radius float64, g *spatial.Grid) float64 {
	g.Build(positions)
	minDist := 2 * radius
	worst := 0.0

	for col := 1; col < g.Columns()-1; col++ {
		for row := 1; row < g.Rows()-1; row++ {
			cell := g.Query(col, row)
			for dc := -1; dc <= 1; dc++ {
				for dr := -1; dr <= 1; dr++ {
					for _, a := range cell {
						for _, b := range g.Query(col+dc, row+dr) {
							if a >= b {
								continue
							}
							d := r2.Norm(r2.Sub(positions[a], positions[b]))
							if o := minDist - d; o > worst {
								worst = o
							}
						}
					}
				}
			}
		}
	}
	return worst
}

// Overlap tracks the worst penetration seen across observed frames.
type Overlap struct {
	name   string
	radius float64
	grid   *spatial.Grid
	worst  float64
	last   float64
}

func NewOverlap(cfg dynamo.Config) *Overlap {
	return &Overlap{
		name:   "max_overlap",
		radius: cfg.Radius,
		grid:   spatial.New(cfg.DomainWidth, cfg.DomainHeight, cfg.CellSize),
	}
}

func (o *Overlap) Name() string { return o.name }

func (o *Overlap) Observe(f dynamo.Frame) {
	o.last = MaxOverlap(f.Current, o.radius, o.grid)
	if o.last > o.worst {
		o.worst = o.last
	}
}

func (o *Overlap) Value() float64 { return o.worst }
func (o *Overlap) Last() float64  { return o.last }

func (o *Overlap) Reset() {
	o.worst = 0
	o.last = 0
}
