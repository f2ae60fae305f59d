// Package physics holds the two per-sub-step corrections applied after
// integration: wall constraints and pairwise collision resolution.
//
//   - [Overdamped]: clamps positions into the domain and lets the wall
//     absorb the incoming velocity
//   - [Elastic]: clamps and reflects the velocity, scaled by a restitution
//     factor
//   - [Solver]: finds overlapping pairs through a [spatial.Grid] and pushes
//     them apart
//
// # Parallel Resolution
//
// [Solver.Resolve] splits the grid into column ranges, one per worker. Each
// worker reads the shared position snapshot and emits correction records;
// nothing is written until every worker has finished. The records are then
// applied serially in worker order:
//
//	g.Build(positions)
//	next := solver.Resolve(g, positions, buf)
package physics
