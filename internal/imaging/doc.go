// Package imaging loads source scan images for the processing pipeline.
//
// This package provides:
//   - Probe: cheap existence/decodability check used at task-construction time
//   - Load: full decode of JPEG, PNG, and TIFF scans
//   - Orientation: EXIF orientation detection for automatic rotation
//
// Design decision: Stage implementations never touch the filesystem for
// source images directly; they receive a decoded image through the task
// chain. Centralizing decoding here keeps format support (and its
// dependencies) in one place.
package imaging
