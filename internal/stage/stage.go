package stage

import (
	"fmt"
	"log/slog"

	"github.com/pagetailor/pagetailor/internal/imaging"
	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/preview"
)

// ID is the stable integer position of a stage in the pipeline.
// The order is fixed at compile time and never changes at runtime;
// "run through stage N" semantics rely on these indices.
type ID int

const (
	// FixOrientationID corrects 90 degree scan orientation.
	FixOrientationID ID = iota

	// PageSplitID splits two-page scans into logical pages.
	PageSplitID

	// DeskewID corrects small skew angles.
	DeskewID

	// SelectContentID finds the content box on the page.
	SelectContentID

	// PageLayoutID applies physical margins around the content.
	PageLayoutID

	// OutputID renders and writes the final page image.
	OutputID

	// Count is the number of stages in the pipeline.
	Count int = iota
)

// stageNames maps IDs to their canonical names, used in logs, project
// files, and the --end-filter CLI flag.
var stageNames = [Count]string{
	"fix_orientation",
	"page_split",
	"deskew",
	"select_content",
	"page_layout",
	"output",
}

// String returns the canonical stage name.
func (id ID) String() string {
	if id < 0 || int(id) >= Count {
		return fmt.Sprintf("stage(%d)", int(id))
	}
	return stageNames[id]
}

// Stage is one named pipeline position. The set of implementations is
// closed: exactly the six stages above, constructed only by NewRegistry.
type Stage interface {
	// ID returns the stage's fixed position.
	ID() ID

	// Name returns the canonical stage name.
	Name() string

	// CreateTask builds this stage's task for the page, wiring next as
	// its downstream dependency (nil for the last stage of the run).
	// batch suppresses interactive behavior; debug requests debug
	// artifacts and reaches at most the first constructed stage.
	CreateTask(page model.PageID, next Task, batch, debug bool) (Task, error)
}

// Deps bundles the collaborators shared by all stages.
type Deps struct {
	// Loader reads source images from disk.
	Loader *imaging.Loader

	// Previews is the shared bounded thumbnail cache.
	Previews *preview.Cache

	// Names generates output file paths for the output stage.
	Names *model.FileNameGenerator

	// Logger receives structured per-stage log output.
	Logger *slog.Logger
}

// Registry is the fixed, ordered list of stages. The order is established
// in NewRegistry and never reordered afterwards.
type Registry struct {
	fixOrientation *FixOrientation
	pageSplit      *PageSplit
	deskew         *Deskew
	selectContent  *SelectContent
	pageLayout     *PageLayout
	output         *Output

	ordered [Count]Stage
}

// NewRegistry constructs the six stages with fresh settings stores.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Loader == nil {
		deps.Loader = imaging.NewLoader()
	}
	if deps.Previews == nil {
		deps.Previews = preview.NewCache(preview.DefaultCapacity)
	}

	r := &Registry{
		fixOrientation: newFixOrientation(deps),
		pageSplit:      newPageSplit(deps),
		deskew:         newDeskew(deps),
		selectContent:  newSelectContent(deps),
		pageLayout:     newPageLayout(deps),
		output:         newOutput(deps),
	}
	r.ordered = [Count]Stage{
		r.fixOrientation,
		r.pageSplit,
		r.deskew,
		r.selectContent,
		r.pageLayout,
		r.output,
	}
	return r
}

// StageAt returns the stage at the given index.
func (r *Registry) StageAt(index int) (Stage, error) {
	if index < 0 || index >= Count {
		return nil, fmt.Errorf("stage index %d out of range [0, %d)", index, Count)
	}
	return r.ordered[index], nil
}

// IndexOf returns the index of the named stage.
func (r *Registry) IndexOf(name string) (int, error) {
	for i, n := range stageNames {
		if n == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// StageCount returns the number of stages.
func (r *Registry) StageCount() int {
	return Count
}

// LastIndex returns the index of the final stage.
func (r *Registry) LastIndex() int {
	return Count - 1
}

// Typed accessors used by the override engine and project persistence to
// reach each stage's settings store.

// FixOrientation returns the orientation stage.
func (r *Registry) FixOrientation() *FixOrientation { return r.fixOrientation }

// PageSplit returns the page splitting stage.
func (r *Registry) PageSplit() *PageSplit { return r.pageSplit }

// Deskew returns the deskew stage.
func (r *Registry) Deskew() *Deskew { return r.deskew }

// SelectContent returns the content selection stage.
func (r *Registry) SelectContent() *SelectContent { return r.selectContent }

// PageLayout returns the page layout stage.
func (r *Registry) PageLayout() *PageLayout { return r.pageLayout }

// Output returns the output stage.
func (r *Registry) Output() *Output { return r.output }
