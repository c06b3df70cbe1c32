package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Disambiguator assigns stable numeric labels to source images whose base
// names collide. Two scans named chapter1/001.tif and chapter2/001.tif must
// not overwrite each other in the flat output directory, so the second one
// receives label 1 and is written as 001_1.png.
//
// Labels are assigned on first sight and never change afterwards, and the
// full assignment is persisted inside the project document so that resuming
// a project keeps output names stable across runs.
type Disambiguator struct {
	mu sync.Mutex

	// labels maps the full source path to its assigned label.
	labels map[string]int

	// next maps a base file name to the next free label for it.
	next map[string]int
}

// NewDisambiguator creates an empty Disambiguator.
func NewDisambiguator() *Disambiguator {
	return &Disambiguator{
		labels: make(map[string]int),
		next:   make(map[string]int),
	}
}

// Label returns the label for the given source path, assigning the next
// free one on first sight. Label 0 means the base name needs no suffix.
func (d *Disambiguator) Label(path string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if label, ok := d.labels[path]; ok {
		return label
	}
	base := filepath.Base(path)
	label := d.next[base]
	d.next[base] = label + 1
	d.labels[path] = label
	return label
}

// Snapshot returns a copy of the path-to-label assignment for persistence.
func (d *Disambiguator) Snapshot() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]int, len(d.labels))
	for path, label := range d.labels {
		out[path] = label
	}
	return out
}

// Restore replaces the current assignment with a previously persisted one.
// The per-base-name counters are rebuilt so new paths keep getting labels
// above the restored ones.
func (d *Disambiguator) Restore(labels map[string]int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.labels = make(map[string]int, len(labels))
	d.next = make(map[string]int)
	for path, label := range labels {
		d.labels[path] = label
		base := filepath.Base(path)
		if label >= d.next[base] {
			d.next[base] = label + 1
		}
	}
}

// FileNameGenerator produces output file paths for processed pages.
// It combines the source base name, the disambiguation label, and the
// sub-page position into a collision-free name inside the output directory.
type FileNameGenerator struct {
	disambiguator *Disambiguator
	outputDir     string
}

// NewFileNameGenerator creates a generator writing into outputDir.
func NewFileNameGenerator(disambiguator *Disambiguator, outputDir string) *FileNameGenerator {
	return &FileNameGenerator{
		disambiguator: disambiguator,
		outputDir:     outputDir,
	}
}

// OutputDir returns the directory output files are written into.
func (g *FileNameGenerator) OutputDir() string {
	return g.outputDir
}

// FilePathFor returns the output path for the given page, always with a
// .png extension. Examples: 001.png, 001_1.png (label 1), 002_L.png
// (left sub-page of a two-page scan).
func (g *FileNameGenerator) FilePathFor(page PageID) string {
	base := filepath.Base(page.Image)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	if label := g.disambiguator.Label(page.Image); label > 0 {
		name += fmt.Sprintf("_%d", label)
	}

	switch page.SubPage {
	case SubPageLeft:
		name += "_L"
	case SubPageRight:
		name += "_R"
	}

	return filepath.Join(g.outputDir, name+".png")
}
