package stage

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/preview"
)

// LayoutType describes how many logical pages a scanned image contains.
type LayoutType int

const (
	// LayoutAuto detects the layout from the image's aspect ratio.
	LayoutAuto LayoutType = iota

	// LayoutSingle treats the whole image as one page.
	LayoutSingle

	// LayoutTwoPages treats the image as an opened book spread.
	LayoutTwoPages
)

// String returns the CLI/project-file representation of the layout type.
func (l LayoutType) String() string {
	switch l {
	case LayoutAuto:
		return "auto"
	case LayoutSingle:
		return "single"
	case LayoutTwoPages:
		return "two-pages"
	default:
		return fmt.Sprintf("LayoutType(%d)", int(l))
	}
}

// ParseLayoutType converts a CLI or project-file value to a LayoutType.
func ParseLayoutType(s string) (LayoutType, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return LayoutAuto, nil
	case "single":
		return LayoutSingle, nil
	case "two-pages", "two_pages":
		return LayoutTwoPages, nil
	default:
		return LayoutAuto, fmt.Errorf("unknown layout type %q (want auto, single, or two-pages)", s)
	}
}

// SplitSettings holds the page-split stage's per-page configuration.
type SplitSettings struct {
	// Layout selects the splitting behavior.
	Layout LayoutType `yaml:"layout"`
}

// twoPageAspect is the width/height ratio above which an auto-detected
// scan is assumed to contain two pages. Portrait pages are well below 1;
// an open A-series book spread lands around 1.4.
const twoPageAspect = 1.25

// PageSplit is the second stage: it cuts two-page scans in half so each
// logical page continues down the pipeline on its own.
type PageSplit struct {
	settings *Store[SplitSettings]
	deps     Deps
}

func newPageSplit(deps Deps) *PageSplit {
	return &PageSplit{
		settings: NewStore[SplitSettings](),
		deps:     deps,
	}
}

// ID returns the stage's pipeline position.
func (s *PageSplit) ID() ID { return PageSplitID }

// Name returns the canonical stage name.
func (s *PageSplit) Name() string { return PageSplitID.String() }

// Settings returns the stage's per-page settings store.
func (s *PageSplit) Settings() *Store[SplitSettings] { return s.settings }

// CreateTask builds the split task for the page.
func (s *PageSplit) CreateTask(page model.PageID, next Task, batch, debug bool) (Task, error) {
	return &pageSplitTask{stage: s, page: page, next: next, debug: debug}, nil
}

type pageSplitTask struct {
	stage *PageSplit
	page  model.PageID
	next  Task
	debug bool
}

// Process crops the working image to this logical page's half when the
// layout calls for it, and records a preview of the result.
func (t *pageSplitTask) Process(ctx context.Context, art *Artifact) error {
	layout := LayoutAuto
	if settings, ok := t.stage.settings.Get(t.page); ok {
		layout = settings.Layout
	}

	if layout == LayoutAuto {
		bounds := art.Image.Bounds()
		if bounds.Dy() > 0 && float64(bounds.Dx())/float64(bounds.Dy()) >= twoPageAspect {
			layout = LayoutTwoPages
		} else {
			layout = LayoutSingle
		}
	}

	if layout == LayoutTwoPages && t.page.SubPage != model.SubPageSingle {
		art.Image = cropHalf(art.Image, t.page.SubPage)
	}
	art.StagesRun = append(art.StagesRun, t.stage.Name())

	// The split result is what users most often want to eyeball, so a
	// thumbnail goes into the shared cache here.
	preview.Render(t.stage.deps.Previews, t.page, art.Image, 200, 200)

	if t.debug {
		t.stage.deps.Logger.Debug("page split",
			"image", t.page.Image,
			"layout", layout.String(),
			"sub_page", t.page.SubPage.String(),
		)
	}

	return forward(ctx, t.next, art)
}

// cropHalf returns the left or right half of img.
func cropHalf(img image.Image, sub model.SubPage) image.Image {
	bounds := img.Bounds()
	mid := bounds.Min.X + bounds.Dx()/2

	var region image.Rectangle
	if sub == model.SubPageLeft {
		region = image.Rect(bounds.Min.X, bounds.Min.Y, mid, bounds.Max.Y)
	} else {
		region = image.Rect(mid, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(region)
	}

	dst := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	for y := 0; y < region.Dy(); y++ {
		for x := 0; x < region.Dx(); x++ {
			dst.Set(x, y, img.At(region.Min.X+x, region.Min.Y+y))
		}
	}
	return dst
}
