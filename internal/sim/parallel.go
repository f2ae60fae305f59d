package sim

import (
	"context"
	"sync"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// Ensemble runs one independent engine per config concurrently. Setup is
// called on each fresh engine before its run, typically to spawn particles
// and attach metrics.
type Ensemble struct {
	configs []dynamo.Config
	setup   func(*Engine)
	opts    []Option
}

func NewEnsemble(configs []dynamo.Config, setup func(*Engine), opts ...Option) *Ensemble {
	return &Ensemble{configs: configs, setup: setup, opts: opts}
}

// Run returns results in config order. Config validation errors are reported
// before any engine starts.
func (e *Ensemble) Run(ctx context.Context, rc RunConfig) ([]*Result, error) {
	engines := make([]*Engine, len(e.configs))
	for i, cfg := range e.configs {
		eng, err := New(cfg, e.opts...)
		if err != nil {
			return nil, err
		}
		if e.setup != nil {
			e.setup(eng)
		}
		engines[i] = eng
	}

	results := make([]*Result, len(engines))
	errs := make([]error, len(engines))

	var wg sync.WaitGroup
	for i, eng := range engines {
		wg.Add(1)
		go func(idx int, eng *Engine) {
			defer wg.Done()
			results[idx], errs[idx] = eng.Run(ctx, rc)
		}(i, eng)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
