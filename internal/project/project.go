package project

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/stage"
)

// Load reads and validates a project document.
// A missing file yields ErrProjectNotFound; any structural problem yields
// an error matching ErrMalformedProject, ErrMissingOutputDir, or
// ErrUnsupportedVersion via errors.Is.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided project path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, path)
		}
		return nil, fmt.Errorf("read project file: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProject, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Save writes the document to path, creating parent directories as needed.
func Save(path string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode project file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create project directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write project file: %w", err)
	}
	return nil
}

// Capture snapshots the current session into a document: the page list in
// document order, every stage's settings, and the disambiguation labels.
func Capture(registry *stage.Registry, pages []model.PageID, disambiguator *model.Disambiguator, outputDir string) *Document {
	doc := &Document{
		Version:   Version,
		OutputDir: outputDir,
		Labels:    disambiguator.Snapshot(),
	}
	if len(doc.Labels) == 0 {
		doc.Labels = nil
	}

	for _, page := range pages {
		doc.Pages = append(doc.Pages, Page{
			Image:   page.Image,
			SubPage: subPageField(page.SubPage),
		})
	}

	doc.Stages = StageSettings{
		FixOrientation: entries(registry.FixOrientation().Settings().Snapshot()),
		PageSplit:      entries(registry.PageSplit().Settings().Snapshot()),
		Deskew:         entries(registry.Deskew().Settings().Snapshot()),
		SelectContent:  entries(registry.SelectContent().Settings().Snapshot()),
		PageLayout:     entries(registry.PageLayout().Settings().Snapshot()),
		Output:         entries(registry.Output().Settings().Snapshot()),
	}
	return doc
}

// Apply restores the document's settings into the stage stores and the
// disambiguator, and returns the typed page list.
func (d *Document) Apply(registry *stage.Registry, disambiguator *model.Disambiguator) ([]model.PageID, error) {
	pages, err := d.PageIDs()
	if err != nil {
		return nil, err
	}

	fo, err := settingsMap(d.Stages.FixOrientation)
	if err != nil {
		return nil, err
	}
	ps, err := settingsMap(d.Stages.PageSplit)
	if err != nil {
		return nil, err
	}
	dk, err := settingsMap(d.Stages.Deskew)
	if err != nil {
		return nil, err
	}
	sc, err := settingsMap(d.Stages.SelectContent)
	if err != nil {
		return nil, err
	}
	pl, err := settingsMap(d.Stages.PageLayout)
	if err != nil {
		return nil, err
	}
	out, err := settingsMap(d.Stages.Output)
	if err != nil {
		return nil, err
	}

	registry.FixOrientation().Settings().Restore(fo)
	registry.PageSplit().Settings().Restore(ps)
	registry.Deskew().Settings().Restore(dk)
	registry.SelectContent().Settings().Restore(sc)
	registry.PageLayout().Settings().Restore(pl)
	registry.Output().Settings().Restore(out)

	disambiguator.Restore(d.Labels)
	return pages, nil
}

// entries converts a settings store snapshot into a sorted entry list so
// saving the same session twice produces byte-identical documents.
func entries[T any](snapshot map[model.PageID]T) []Entry[T] {
	if len(snapshot) == 0 {
		return nil
	}

	out := make([]Entry[T], 0, len(snapshot))
	for page, settings := range snapshot {
		out = append(out, Entry[T]{
			Image:    page.Image,
			SubPage:  subPageField(page.SubPage),
			Settings: settings,
		})
	}
	slices.SortFunc(out, func(a, b Entry[T]) int {
		if c := cmp.Compare(a.Image, b.Image); c != 0 {
			return c
		}
		return cmp.Compare(a.SubPage, b.SubPage)
	})
	return out
}

// settingsMap converts an entry list back into a store mapping.
func settingsMap[T any](list []Entry[T]) (map[model.PageID]T, error) {
	out := make(map[model.PageID]T, len(list))
	for _, e := range list {
		sub, err := model.ParseSubPage(e.SubPage)
		if err != nil {
			return nil, fmt.Errorf("%w: settings entry for %s: %v", ErrMalformedProject, e.Image, err)
		}
		out[model.PageID{Image: e.Image, SubPage: sub}] = e.Settings
	}
	return out, nil
}

// subPageField renders a sub-page for the document, leaving the common
// single case implicit.
func subPageField(s model.SubPage) string {
	if s == model.SubPageSingle {
		return ""
	}
	return s.String()
}
