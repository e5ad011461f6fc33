// Package core provides the batched primitives shared by the hydrodynamics
// engine, the task state machines and the reference driver.
//
// Every per-environment quantity is stored structure-of-arrays style: a
// [*mat.Dense] with one row per environment, or a plain slice of length N.
// The package defines:
//
//   - [EnvIDs]: the subset of environment rows an operation may touch
//   - [State], [Dynamics], [Integrator]: single-environment ODE primitives
//   - [Policy]: batched action source
//   - [ParallelFor]: row-partitioned parallel loops
//   - rotation and heading helpers for (w, x, y, z) quaternions
//
// # Index-partitioned writes
//
// Operations that take an [EnvIDs] argument must leave every row not named
// in it bit-identical. Batched computations split rows into disjoint ranges
// with [ParallelFor]; a worker never reads a row owned by another worker.
//
// # Thread Safety
//
// Types in this package are NOT thread-safe. There is exactly one writer per
// simulation step.
package core
