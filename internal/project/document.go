package project

import (
	"fmt"

	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/stage"
)

// Version is the current project document format revision.
const Version = 1

// Page is one entry in the document's ordered page list.
type Page struct {
	// Image is the source image path.
	Image string `yaml:"image"`

	// SubPage is "left" or "right" for split two-page scans, empty or
	// "single" otherwise.
	SubPage string `yaml:"sub_page,omitempty"`
}

// Entry binds one page to one stage's settings value.
type Entry[T any] struct {
	// Image is the source image path.
	Image string `yaml:"image"`

	// SubPage mirrors Page.SubPage.
	SubPage string `yaml:"sub_page,omitempty"`

	// Settings is the stage-specific configuration for the page.
	Settings T `yaml:"settings"`
}

// StageSettings holds every stage's per-page settings, one list per stage
// in pipeline order.
type StageSettings struct {
	FixOrientation []Entry[stage.OrientationSettings] `yaml:"fix_orientation,omitempty"`
	PageSplit      []Entry[stage.SplitSettings]       `yaml:"page_split,omitempty"`
	Deskew         []Entry[stage.DeskewSettings]      `yaml:"deskew,omitempty"`
	SelectContent  []Entry[stage.ContentSettings]     `yaml:"select_content,omitempty"`
	PageLayout     []Entry[stage.LayoutSettings]      `yaml:"page_layout,omitempty"`
	Output         []Entry[stage.OutputSettings]      `yaml:"output,omitempty"`
}

// Document is the on-disk form of a processing session.
type Document struct {
	// Version is the document format revision.
	Version int `yaml:"version"`

	// OutputDir is where the output stage writes processed pages.
	// Required: a document without it is rejected at load time.
	OutputDir string `yaml:"output_dir"`

	// Pages is the ordered page list processed by a run.
	Pages []Page `yaml:"pages"`

	// Labels is the filename disambiguation state: source path to label.
	Labels map[string]int `yaml:"labels,omitempty"`

	// Stages holds the per-page settings of every stage.
	Stages StageSettings `yaml:"stages"`
}

// Validate checks the structural requirements a loaded document must meet.
func (d *Document) Validate() error {
	if d.Version > Version {
		return fmt.Errorf("%w: %d (this build reads up to %d)", ErrUnsupportedVersion, d.Version, Version)
	}
	if d.OutputDir == "" {
		return ErrMissingOutputDir
	}
	for i, p := range d.Pages {
		if p.Image == "" {
			return fmt.Errorf("%w: page %d has no image path", ErrMalformedProject, i)
		}
		if _, err := model.ParseSubPage(p.SubPage); err != nil {
			return fmt.Errorf("%w: page %d: %v", ErrMalformedProject, i, err)
		}
	}
	return nil
}

// PageIDs returns the document's page list as typed identifiers.
// Validate must have accepted the document first.
func (d *Document) PageIDs() ([]model.PageID, error) {
	pages := make([]model.PageID, 0, len(d.Pages))
	for i, p := range d.Pages {
		sub, err := model.ParseSubPage(p.SubPage)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrMalformedProject, i, err)
		}
		pages = append(pages, model.PageID{Image: p.Image, SubPage: sub})
	}
	return pages, nil
}
