// Package model defines the core data structures used throughout pagetailor.
//
// This package contains the following main types:
//   - PageID: Identifies one logical page of a scanned document
//   - Rotation: Orthogonal page rotation in 90 degree steps
//   - RunResult: The aggregate outcome of one batch run
//   - FileNameGenerator: Collision-free output file naming
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (stage, pipeline, project, report) need these
// types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON and YAML for report
// output and project persistence.
package model
