package stage

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/pagetailor/pagetailor/internal/model"
)

// DetectionMode selects between automatic content detection and a manual box.
type DetectionMode int

const (
	// DetectAuto finds the content box by scanning for non-background pixels.
	DetectAuto DetectionMode = iota

	// DetectManual uses a user-supplied box.
	DetectManual
)

// String returns the project-file representation of the mode.
func (m DetectionMode) String() string {
	if m == DetectManual {
		return "manual"
	}
	return "auto"
}

// ParseDetectionMode converts a project-file value to a DetectionMode.
func ParseDetectionMode(s string) (DetectionMode, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return DetectAuto, nil
	case "manual":
		return DetectManual, nil
	default:
		return DetectAuto, fmt.Errorf("unknown detection mode %q (want auto or manual)", s)
	}
}

// ContentSettings holds the content selection stage's per-page configuration.
type ContentSettings struct {
	// Mode selects automatic detection or the fixed Box.
	Mode DetectionMode `yaml:"mode"`

	// Box is the manual content box in image pixels, used in manual mode.
	Box model.RectF `yaml:"box"`

	// SizeMM is an optional physical target size for the content box.
	SizeMM model.SizeF `yaml:"size_mm,omitempty"`
}

// contentThreshold is the luminance (0-255) above which a pixel counts as
// paper background during automatic detection.
const contentThreshold = 225

// SelectContent is the fourth stage: it finds the rectangle of actual page
// content so later stages can cut away scanner bed borders and shadows.
type SelectContent struct {
	settings *Store[ContentSettings]
	deps     Deps
}

func newSelectContent(deps Deps) *SelectContent {
	return &SelectContent{
		settings: NewStore[ContentSettings](),
		deps:     deps,
	}
}

// ID returns the stage's pipeline position.
func (s *SelectContent) ID() ID { return SelectContentID }

// Name returns the canonical stage name.
func (s *SelectContent) Name() string { return SelectContentID.String() }

// Settings returns the stage's per-page settings store.
func (s *SelectContent) Settings() *Store[ContentSettings] { return s.settings }

// CreateTask builds the content selection task for the page.
func (s *SelectContent) CreateTask(page model.PageID, next Task, batch, debug bool) (Task, error) {
	return &selectContentTask{stage: s, page: page, next: next, debug: debug}, nil
}

type selectContentTask struct {
	stage *SelectContent
	page  model.PageID
	next  Task
	debug bool
}

// Process records the content box on the artifact.
func (t *selectContentTask) Process(ctx context.Context, art *Artifact) error {
	settings, ok := t.stage.settings.Get(t.page)

	var box model.RectF
	if ok && settings.Mode == DetectManual && !settings.Box.IsEmpty() {
		box = settings.Box
	} else {
		box = detectContent(art.Image)
	}

	// An empty detection (blank page) falls back to the whole image so
	// downstream stages always have a box to work with.
	if box.IsEmpty() {
		bounds := art.Image.Bounds()
		box = model.RectF{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}
	}

	art.ContentBox = box
	art.StagesRun = append(art.StagesRun, t.stage.Name())

	if t.debug {
		t.stage.deps.Logger.Debug("content selected",
			"image", t.page.Image,
			"box", fmt.Sprintf("%.0fx%.0f+%.0f+%.0f", box.Width, box.Height, box.X, box.Y),
		)
	}

	return forward(ctx, t.next, art)
}

// detectContent finds the bounding box of non-background pixels.
func detectContent(img image.Image) model.RectF {
	bounds := img.Bounds()
	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if c.Y >= contentThreshold {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < minX || maxY < minY {
		return model.RectF{}
	}
	return model.RectF{
		X:      float64(minX - bounds.Min.X),
		Y:      float64(minY - bounds.Min.Y),
		Width:  float64(maxX - minX + 1),
		Height: float64(maxY - minY + 1),
	}
}
