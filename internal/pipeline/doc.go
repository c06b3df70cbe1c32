// Package pipeline composes per-page task chains and drives batch runs.
//
// The Builder assembles one composite task per page: it walks the stage
// registry from the requested last stage down to the first, wiring each
// stage's task to the one built before it, and wraps the chain in a load
// task that decodes the source image. Executing the composite task runs
// the stages in increasing order.
//
// The Runner iterates the project's pages, builds and executes each
// composite task, and aggregates the outcome. Per-page failures are
// recorded and the batch continues; only a malformed project stops a run
// before it starts. Cancellation is cooperative and is checked between
// pages and between stages.
//
// Design decision: We keep single-chain composition (Builder) separate
// from batch driving (Runner) because:
//  1. It keeps the Builder focused on one page's chain
//  2. It allows different batch strategies (sequential, worker pool)
//  3. It provides cleaner separation of concerns
package pipeline
