// Package project persists a processing session as a YAML document: the
// ordered page list, the per-stage settings, the output directory, and the
// filename disambiguation state. Loading a saved project and saving it
// again without changes reproduces an equivalent document.
package project
