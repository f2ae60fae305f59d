// Package particles holds the index-stable particle state: a current and a
// previous position per particle, with the implicit Verlet velocity being
// their difference.
package particles

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// Store keeps two index-aligned position slices. A particle's id is its index
// and never changes; particles are only ever appended.
type Store struct {
	current  []dynamo.Vec
	previous []dynamo.Vec
}

func New(capacity int) *Store {
	return &Store{
		current:  make([]dynamo.Vec, 0, capacity),
		previous: make([]dynamo.Vec, 0, capacity),
	}
}

// Append adds a particle at pos moving with velocityHint per sub-step and
// returns its id.
func (s *Store) Append(pos, velocityHint dynamo.Vec) int {
	id := len(s.current)
	s.current = append(s.current, pos)
	s.previous = append(s.previous, r2.Sub(pos, velocityHint))
	return id
}

func (s *Store) Len() int { return len(s.current) }

func (s *Store) Position(id int) dynamo.Vec       { return s.current[id] }
func (s *Store) SetPosition(id int, p dynamo.Vec) { s.current[id] = p }
func (s *Store) Previous(id int) dynamo.Vec       { return s.previous[id] }
func (s *Store) SetPrevious(id int, p dynamo.Vec) { s.previous[id] = p }
func (s *Store) Velocity(id int) dynamo.Vec       { return r2.Sub(s.current[id], s.previous[id]) }

// Current returns the backing slice of current positions. Only the owner of
// the store may hold it across calls.
func (s *Store) Current() []dynamo.Vec { return s.current }

// Prev returns the backing slice of previous positions.
func (s *Store) Prev() []dynamo.Vec { return s.previous }

// Swap installs next as the current positions and returns the retired slice.
// next must have exactly Len() elements.
func (s *Store) Swap(next []dynamo.Vec) []dynamo.Vec {
	if len(next) != len(s.current) {
		panic("particles: swap length mismatch")
	}
	old := s.current
	s.current = next
	return old
}

// Snapshot returns an independent copy of the current positions.
func (s *Store) Snapshot() []dynamo.Vec {
	out := make([]dynamo.Vec, len(s.current))
	copy(out, s.current)
	return out
}
