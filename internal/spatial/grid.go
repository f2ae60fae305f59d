// Package spatial provides the broad-phase bucket grid used by the collision
// solver.
package spatial

import (
	"math"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// Grid buckets particle ids by cell. It is sized ceil(size/cellSize)+2 per
// axis, leaving a one-cell dead border so that a 3x3 neighbourhood scan of
// any interior cell never leaves the allocation.
//
// Cells are stored column-major (cells[col*rows+row]) so a contiguous column
// range handed to one worker is contiguous in memory.
type Grid struct {
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]int
}

// New creates a grid covering a width x height domain. cellSize must be at
// least one particle diameter for the 3x3 scan to find every contact.
// Callers bound the bucket count with dynamo.Config.Validate.
func New(width, height, cellSize float64) *Grid {
	cols := int(math.Ceil(width/cellSize)) + 2
	rows := int(math.Ceil(height/cellSize)) + 2

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 4)
	}

	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
	}
}

func (g *Grid) Columns() int      { return g.cols }
func (g *Grid) Rows() int         { return g.rows }
func (g *Grid) CellSize() float64 { return g.cellSize }

// Clear empties every bucket, keeping capacity.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// CellOf returns the bucket for a position: floor(p/cellSize)+1 per axis.
// ok is false when the position is non-finite or lands outside the grid.
func (g *Grid) CellOf(p dynamo.Vec) (col, row int, ok bool) {
	if !dynamo.Finite(p) {
		return 0, 0, false
	}
	fc := math.Floor(p.X*g.invCellSize) + 1
	fr := math.Floor(p.Y*g.invCellSize) + 1
	if fc < 0 || fr < 0 || fc >= float64(g.cols) || fr >= float64(g.rows) {
		return 0, 0, false
	}
	return int(fc), int(fr), true
}

// Build clears the grid and buckets every position by id. Positions outside
// the grid are left out rather than indexed out of range. It returns the
// number of positions dropped.
func (g *Grid) Build(positions []dynamo.Vec) int {
	g.Clear()
	dropped := 0
	for id, p := range positions {
		col, row, ok := g.CellOf(p)
		if !ok {
			dropped++
			continue
		}
		idx := col*g.rows + row
		g.cells[idx] = append(g.cells[idx], id)
	}
	return dropped
}

// Query returns the ids bucketed in (col, row). The slice is owned by the
// grid and must not be modified. Out-of-range cells yield nil.
func (g *Grid) Query(col, row int) []int {
	if col < 0 || row < 0 || col >= g.cols || row >= g.rows {
		return nil
	}
	return g.cells[col*g.rows+row]
}

// Count returns the number of ids currently bucketed.
func (g *Grid) Count() int {
	n := 0
	for _, c := range g.cells {
		n += len(c)
	}
	return n
}
