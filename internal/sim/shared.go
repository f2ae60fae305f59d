package sim

import "sync"

// Shared guards a value with a many-readers-or-one-writer discipline. Read
// callbacks may run concurrently with each other but never with a Write.
// Callbacks must not retain the value or call back into the same Shared.
type Shared[T any] struct {
	mu sync.RWMutex
	v  T
}

func NewShared[T any](v T) *Shared[T] {
	return &Shared[T]{v: v}
}

func (s *Shared[T]) Read(fn func(T)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.v)
}

func (s *Shared[T]) Write(fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.v)
}
