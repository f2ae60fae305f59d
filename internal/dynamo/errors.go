package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for engine construction and runs.
var (
	// ErrInvalidCellSize indicates a non-positive or non-finite broad-phase cell size.
	ErrInvalidCellSize = errors.New("dynamo: cell size must be positive")

	// ErrCellTooSmall indicates a cell size below one particle diameter.
	ErrCellTooSmall = errors.New("dynamo: cell size smaller than particle diameter")

	// ErrZeroWorkers indicates a collision solver without workers.
	ErrZeroWorkers = errors.New("dynamo: worker count must be at least 1")

	// ErrZeroSubSteps indicates a frame without integration sub-steps.
	ErrZeroSubSteps = errors.New("dynamo: sub-step count must be at least 1")

	// ErrInvalidRadius indicates a non-positive particle radius.
	ErrInvalidRadius = errors.New("dynamo: particle radius must be positive")

	// ErrInvalidDomain indicates a domain that cannot hold a single particle.
	ErrInvalidDomain = errors.New("dynamo: domain must be larger than one particle")

	// ErrTooManyCells indicates a domain and cell size whose grid exceeds MaxCells.
	ErrTooManyCells = errors.New("dynamo: broad-phase grid too large")

	// ErrUnknownBoundary indicates an unsupported boundary constraint name.
	ErrUnknownBoundary = errors.New("dynamo: unknown boundary constraint")

	// ErrInvalidState indicates positions containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrContextCanceled indicates the run was interrupted.
	ErrContextCanceled = errors.New("dynamo: run canceled by context")
)

// SimError wraps an error with frame context.
type SimError struct {
	Frame   int
	Time    float64
	Wrapped error
}

func (e *SimError) Error() string {
	return fmt.Sprintf("frame %d (t=%.4f): %v", e.Frame, e.Time, e.Wrapped)
}

func (e *SimError) Unwrap() error {
	return e.Wrapped
}
