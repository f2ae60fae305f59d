package physics

import (
	"log/slog"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/spatial"
)

// Correction is a displacement to add to A and subtract from B.
type Correction struct {
	A, B  int
	Delta dynamo.Vec
}

// Stats describes the last Resolve call.
type Stats struct {
	Workers     int
	Corrections int
	Degenerate  int
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("workers", s.Workers),
		slog.Int("corrections", s.Corrections),
		slog.Int("degenerate", s.Degenerate),
	)
}

// batch is one worker's output for a sub-step.
type batch struct {
	worker      int
	corrections []Correction
	degenerate  int
}

// Solver detects and resolves overlapping particle pairs. Detection is spread
// over a fixed number of goroutines, each owning a contiguous range of grid
// columns. Workers only read the grid and positions; every write happens in a
// single serial reduction once all workers are done.
//
// A Solver is not safe for concurrent use.
type Solver struct {
	radius  float64
	workers int
	scratch [][]Correction
	stats   Stats
}

func NewSolver(radius float64, workers int) *Solver {
	if workers < 1 {
		workers = 1
	}
	return &Solver{radius: radius, workers: workers}
}

func (s *Solver) Stats() Stats { return s.stats }

// Resolve computes one relaxation pass over all contacts found through g and
// returns the corrected positions in dst (grown as needed). positions is not
// modified. Residual overlap is left for the next sub-step.
func (s *Solver) Resolve(g *spatial.Grid, positions, dst []dynamo.Vec) []dynamo.Vec {
	workers := s.workers
	if workers > g.Columns() {
		workers = g.Columns()
	}
	ranges := dynamo.ColumnRanges(workers, g.Columns())
	for len(s.scratch) < len(ranges) {
		s.scratch = append(s.scratch, make([]Correction, 0, 64))
	}

	out := make(chan batch, len(ranges))
	var wg sync.WaitGroup
	for w, cr := range ranges {
		wg.Add(1)
		go func(w int, cr dynamo.ColumnRange, buf []Correction) {
			defer wg.Done()
			buf, degenerate := s.scan(g, positions, cr, buf)
			out <- batch{worker: w, corrections: buf, degenerate: degenerate}
		}(w, cr, s.scratch[w][:0])
	}
	go func() {
		wg.Wait()
		close(out)
	}()

	stats := Stats{Workers: len(ranges)}
	for b := range out {
		s.scratch[b.worker] = b.corrections
		stats.Corrections += len(b.corrections)
		stats.Degenerate += b.degenerate
	}
	s.stats = stats

	// Reduce in worker order so a fixed worker count is reproducible.
	dst = append(dst[:0], positions...)
	for _, cs := range s.scratch[:len(ranges)] {
		for _, c := range cs {
			dst[c.A] = r2.Add(dst[c.A], c.Delta)
			dst[c.B] = r2.Sub(dst[c.B], c.Delta)
		}
	}
	return dst
}

// scan visits every ordered pair (a, b) with a in a cell of cr and b in its
// 3x3 neighbourhood. Each unordered contact is seen twice, once from each
// side, so each visit moves both particles by a quarter of the overlap.
func (s *Solver) scan(g *spatial.Grid, pos []dynamo.Vec, cr dynamo.ColumnRange, buf []Correction) ([]Correction, int) {
	minDist := 2 * s.radius
	rows := g.Rows()
	degenerate := 0

	for col := cr.Start; col < cr.End; col++ {
		for row := 1; row < rows-1; row++ {
			cell := g.Query(col, row)
			if len(cell) == 0 {
				continue
			}
			for dc := -1; dc <= 1; dc++ {
				for dr := -1; dr <= 1; dr++ {
					neighbors := g.Query(col+dc, row+dr)
					for _, a := range cell {
						pa := pos[a]
						for _, b := range neighbors {
							if a == b {
								continue
							}
							d := r2.Sub(pa, pos[b])
							dist := r2.Norm(d)
							if !(dist < minDist) {
								continue
							}
							mag := (minDist - dist) * 0.25

							var delta dynamo.Vec
							if dist == 0 {
								// Coincident centres: push along X, signed by id
								// order so both visits add up.
								degenerate++
								if a < b {
									delta = dynamo.Vec{X: mag}
								} else {
									delta = dynamo.Vec{X: -mag}
								}
							} else {
								delta = r2.Scale(mag/dist, d)
							}
							buf = append(buf, Correction{A: a, B: b, Delta: delta})
						}
					}
				}
			}
		}
	}
	return buf, degenerate
}
