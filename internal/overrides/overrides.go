package overrides

import (
	"log/slog"

	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/stage"
)

// Set is an immutable bundle of optional settings. A nil field means "do
// not override"; a non-nil field overwrites that setting for every page.
//
// Design decision: pointer fields instead of a presence bitmap. The zero
// value is a valid empty Set, flag parsing can fill fields independently,
// and "was this given at all" stays distinguishable from a zero value like
// a 0.0 deskew angle.
type Set struct {
	// Orientation forces an orthogonal rotation on every page.
	Orientation *model.Rotation

	// Layout forces the page splitting behavior.
	Layout *stage.LayoutType

	// DeskewAngle forces a manual skew correction in degrees. Setting it
	// implies manual deskew mode.
	DeskewAngle *float64

	// DeskewAuto requests automatic skew detection. Pages that already
	// carry a deskew entry, manual or previously detected, keep it.
	DeskewAuto *bool

	// ContentBox forces a manual content box in image pixels. Setting it
	// implies manual content detection.
	ContentBox *model.RectF

	// ContentSizeMM sets the physical target size of the content box
	// without changing the detection mode.
	ContentSizeMM *model.SizeF

	// Margins forces the physical page margins.
	Margins *model.MarginsF

	// OutputDPI forces the output rendering resolution.
	OutputDPI *int

	// ColorMode forces the output rendering mode.
	ColorMode *stage.ColorMode

	// SplitOutput requests separate text and picture layers. Only
	// meaningful while the effective color mode is mixed; inert otherwise.
	SplitOutput *bool

	// PictureShape controls picture zone outlines. Only meaningful while
	// the effective color mode is mixed; inert otherwise.
	PictureShape *stage.PictureShape

	// WhiteMargins selects pure white margins over the page tone.
	WhiteMargins *bool

	// NormalizeIllumination toggles luminance flattening.
	NormalizeIllumination *bool

	// ThresholdAdjustment biases binarization.
	ThresholdAdjustment *int

	// Despeckle sets the speck removal level.
	Despeckle *stage.DespeckleLevel

	// Dewarping sets the curvature correction mode.
	Dewarping *stage.DewarpingMode

	// DepthPerception tunes dewarping strength.
	DepthPerception *float64
}

// IsZero reports whether no option is present.
func (s *Set) IsZero() bool {
	return s.Orientation == nil &&
		s.Layout == nil &&
		s.DeskewAngle == nil &&
		s.DeskewAuto == nil &&
		s.ContentBox == nil &&
		s.ContentSizeMM == nil &&
		s.Margins == nil &&
		s.OutputDPI == nil &&
		s.ColorMode == nil &&
		s.SplitOutput == nil &&
		s.PictureShape == nil &&
		s.WhiteMargins == nil &&
		s.NormalizeIllumination == nil &&
		s.ThresholdAdjustment == nil &&
		s.Despeckle == nil &&
		s.Dewarping == nil &&
		s.DepthPerception == nil
}

// Engine writes a Set into the per-stage settings stores. All writes happen
// before the first task is built, so no locking is needed beyond what the
// stores themselves provide.
type Engine struct {
	registry *stage.Registry
	logger   *slog.Logger
}

// NewEngine creates an Engine over the given stage registry.
func NewEngine(registry *stage.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{registry: registry, logger: logger}
}

// Apply writes every present option to the matching stage's settings store
// for every page, in pipeline stage order. Applying the same Set twice
// yields identical store contents: every write is an absolute value, never
// an increment or a toggle.
func (e *Engine) Apply(set Set, pages []model.PageID) {
	if set.IsZero() {
		return
	}

	for _, page := range pages {
		e.applyOrientation(set, page)
		e.applyPageSplit(set, page)
		e.applyDeskew(set, page)
		e.applySelectContent(set, page)
		e.applyPageLayout(set, page)
		e.applyOutput(set, page)
	}

	e.logger.Debug("overrides applied", "pages", len(pages))
}

func (e *Engine) applyOrientation(set Set, page model.PageID) {
	if set.Orientation == nil {
		return
	}
	e.registry.FixOrientation().Settings().Set(page, stage.OrientationSettings{
		Rotation: *set.Orientation,
	})
}

func (e *Engine) applyPageSplit(set Set, page model.PageID) {
	if set.Layout == nil {
		return
	}
	e.registry.PageSplit().Settings().Set(page, stage.SplitSettings{
		Layout: *set.Layout,
	})
}

// applyDeskew resolves the angle/auto pair. A manual angle always wins.
// Auto mode only seeds pages without an entry: a page whose angle was
// already detected in an earlier run, or set manually in the project file,
// keeps it rather than being re-detected.
func (e *Engine) applyDeskew(set Set, page model.PageID) {
	store := e.registry.Deskew().Settings()

	if set.DeskewAngle != nil {
		store.Set(page, stage.DeskewSettings{
			Mode:  stage.DeskewManual,
			Angle: *set.DeskewAngle,
		})
		return
	}
	if set.DeskewAuto != nil && *set.DeskewAuto {
		if _, ok := store.Get(page); !ok {
			store.Set(page, stage.DeskewSettings{Mode: stage.DeskewAuto})
		}
	}
}

func (e *Engine) applySelectContent(set Set, page model.PageID) {
	if set.ContentBox == nil && set.ContentSizeMM == nil {
		return
	}

	store := e.registry.SelectContent().Settings()
	settings, _ := store.Get(page)

	if set.ContentBox != nil {
		settings.Mode = stage.DetectManual
		settings.Box = *set.ContentBox
	}
	if set.ContentSizeMM != nil {
		settings.SizeMM = *set.ContentSizeMM
	}
	store.Set(page, settings)
}

func (e *Engine) applyPageLayout(set Set, page model.PageID) {
	if set.Margins == nil {
		return
	}
	e.registry.PageLayout().Settings().Set(page, stage.LayoutSettings{
		Margins: *set.Margins,
	})
}

// applyOutput merges the output options into the page's existing settings,
// starting from the defaults when the page has none. The splitting
// sub-options only take effect when the effective color mode, the override
// if present or the existing setting otherwise, is mixed; under any other
// mode they are inert, never an error.
func (e *Engine) applyOutput(set Set, page model.PageID) {
	if set.OutputDPI == nil && set.ColorMode == nil && set.SplitOutput == nil &&
		set.PictureShape == nil && set.WhiteMargins == nil &&
		set.NormalizeIllumination == nil && set.ThresholdAdjustment == nil &&
		set.Despeckle == nil && set.Dewarping == nil && set.DepthPerception == nil {
		return
	}

	store := e.registry.Output().Settings()
	settings, ok := store.Get(page)
	if !ok {
		settings = stage.DefaultOutputSettings()
	}

	if set.OutputDPI != nil {
		settings.Dpi = model.UniformDpi(*set.OutputDPI)
	}
	if set.ColorMode != nil {
		settings.ColorMode = *set.ColorMode
	}
	if set.WhiteMargins != nil {
		settings.WhiteMargins = *set.WhiteMargins
	}
	if set.NormalizeIllumination != nil {
		settings.NormalizeIllumination = *set.NormalizeIllumination
	}
	if set.ThresholdAdjustment != nil {
		settings.ThresholdAdjustment = *set.ThresholdAdjustment
	}
	if set.Despeckle != nil {
		settings.Despeckle = *set.Despeckle
	}
	if set.Dewarping != nil {
		settings.Dewarping.Mode = *set.Dewarping
	}
	if set.DepthPerception != nil {
		settings.Dewarping.DepthPerception = *set.DepthPerception
	}

	if settings.ColorMode == stage.ColorModeMixed {
		if set.SplitOutput != nil {
			settings.Splitting.SplitOutput = *set.SplitOutput
		}
		if set.PictureShape != nil {
			settings.Splitting.PictureShape = *set.PictureShape
		}
	}

	store.Set(page, settings)
}
