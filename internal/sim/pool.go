package sim

import (
	"sync"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// BufferPool recycles position slices between sub-steps. The reducer needs a
// fresh copy of all positions every sub-step; the slice it replaces comes
// back here.
type BufferPool struct {
	pool sync.Pool
}

func NewBufferPool() *BufferPool {
	return &BufferPool{}
}

// Get returns an empty slice with capacity for at least n positions.
func (p *BufferPool) Get(n int) []dynamo.Vec {
	if v := p.pool.Get(); v != nil {
		s := v.([]dynamo.Vec)
		if cap(s) >= n {
			return s[:0]
		}
	}
	return make([]dynamo.Vec, 0, n)
}

func (p *BufferPool) Put(s []dynamo.Vec) {
	if cap(s) == 0 {
		return
	}
	p.pool.Put(s[:0])
}
