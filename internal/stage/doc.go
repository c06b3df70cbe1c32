// Package stage defines the six processing stages a scanned page moves
// through and the contracts that connect them.
//
// The stage order is fixed and is an invariant of the whole system:
// fix_orientation, page_split, deskew, select_content, page_layout, output.
// The Registry exposes the stages by stable integer index so callers can
// express "run through stage N"; truncating the tail of the pipeline is the
// only supported form of partial run.
//
// Each stage holds a Store mapping PageID to that stage's settings. Stores
// are written in bulk by the override engine before a run, and by a stage's
// own task as a processing side effect (the deskew stage caches its
// auto-detected angle). A stage produces one Task per page; tasks chain to
// the downstream stage's task and communicate through a shared Artifact
// that accumulates the page image and detected geometry, in the same way a
// scan report accumulates findings across pipeline steps.
package stage
