// Package dynamo provides core primitives shared by the particle engine.
//
// The package defines the vocabulary every other package speaks:
//
//   - [Vec]: 2D vector used for positions, velocities and corrections
//   - [Config]: engine construction parameters, validated up front
//   - [ColumnRange]: half-open grid column span handed to a solver worker
//   - [Metric] and [Observer]: per-frame hooks used by the orchestrator
//
// # Example
//
//	cfg := dynamo.DefaultConfig()
//	cfg.WorkerCount = 4
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	eng, _ := sim.New(cfg)
//	eng.Spawn(dynamo.Vec{X: 100, Y: 100}, 10)
//	eng.Step(1.0 / 60)
//
// # Thread Safety
//
// Values in this package are plain data. Concurrency rules live in the
// sim package, which owns the authoritative particle state.
package dynamo
