package stage

import (
	"context"

	"github.com/pagetailor/pagetailor/internal/model"
)

// DefaultMarginMM is the margin applied when a page has no layout settings.
const DefaultMarginMM = 10.0

// LayoutSettings holds the page layout stage's per-page configuration.
type LayoutSettings struct {
	// Margins are the physical margins around the content box.
	Margins model.MarginsF `yaml:"margins"`
}

// PageLayout is the fifth stage: it decides the physical margins placed
// around the content box when the output stage composes the final page.
type PageLayout struct {
	settings *Store[LayoutSettings]
	deps     Deps
}

func newPageLayout(deps Deps) *PageLayout {
	return &PageLayout{
		settings: NewStore[LayoutSettings](),
		deps:     deps,
	}
}

// ID returns the stage's pipeline position.
func (s *PageLayout) ID() ID { return PageLayoutID }

// Name returns the canonical stage name.
func (s *PageLayout) Name() string { return PageLayoutID.String() }

// Settings returns the stage's per-page settings store.
func (s *PageLayout) Settings() *Store[LayoutSettings] { return s.settings }

// CreateTask builds the layout task for the page.
func (s *PageLayout) CreateTask(page model.PageID, next Task, batch, debug bool) (Task, error) {
	return &pageLayoutTask{stage: s, page: page, next: next, debug: debug}, nil
}

type pageLayoutTask struct {
	stage *PageLayout
	page  model.PageID
	next  Task
	debug bool
}

// Process records the margins on the artifact.
func (t *pageLayoutTask) Process(ctx context.Context, art *Artifact) error {
	margins := model.UniformMargins(DefaultMarginMM)
	if settings, ok := t.stage.settings.Get(t.page); ok {
		margins = settings.Margins
	}

	art.Margins = margins
	art.StagesRun = append(art.StagesRun, t.stage.Name())

	if t.debug {
		t.stage.deps.Logger.Debug("layout chosen",
			"image", t.page.Image,
			"top", margins.Top, "bottom", margins.Bottom,
			"left", margins.Left, "right", margins.Right,
		)
	}

	return forward(ctx, t.next, art)
}
