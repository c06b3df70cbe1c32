// Package preview provides a bounded, shared cache of rendered page
// thumbnails.
//
// Stages share a single Cache by reference: the page-split stage renders a
// preview of the detected split, the output stage renders the final page,
// and both benefit from reusing thumbnails that another stage already paid
// for. The cache is capped at a fixed number of entries and evicts the
// least-recently-used one when full, so a long batch over thousands of
// pages keeps a flat memory profile.
//
// The cache is safe for concurrent use; page-level parallelism in the batch
// runner means two pages can render previews at staggered sizes at once.
package preview
