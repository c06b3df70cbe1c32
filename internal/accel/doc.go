// Package accel provides advisory acceleration hints for stage processing.
//
// Acceleration is best-effort by contract: a provider reports which
// optimizations the current machine supports (vectorized math, a
// memory-saving processing mode), and stages are free to ignore the hints.
// If detection fails the pipeline logs a warning once and continues with
// plain implementations; acceleration unavailability is never a page or
// batch failure.
package accel
