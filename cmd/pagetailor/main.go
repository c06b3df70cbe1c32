// Package main provides the entry point for the pagetailor CLI.
//
// pagetailor is a batch post-processing tool for scanned document images.
// It runs each page through a fixed pipeline of stages (orientation fix,
// page splitting, deskew, content selection, page layout, output) and
// writes the cleaned-up result images to an output directory.
//
// Usage:
//
//	pagetailor run scan001.png scan002.png --output-dir out/
//	pagetailor run --project book.ptp
//
// See --help for all available options.
package main

// main is the entry point for pagetailor.
func main() {
	Execute()
}
