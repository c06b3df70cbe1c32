package stage

import (
	"context"
	"image"

	"github.com/pagetailor/pagetailor/internal/imaging"
	"github.com/pagetailor/pagetailor/internal/model"
)

// OrientationSettings holds the orientation stage's per-page configuration.
type OrientationSettings struct {
	// Rotation is the orthogonal rotation to apply.
	Rotation model.Rotation `yaml:"rotation"`
}

// FixOrientation is the first stage: it turns pages scanned sideways or
// upside down into upright orientation. Pages without an explicit setting
// fall back to the source image's EXIF orientation, which cameras and some
// scanners record.
type FixOrientation struct {
	settings *Store[OrientationSettings]
	deps     Deps
}

func newFixOrientation(deps Deps) *FixOrientation {
	return &FixOrientation{
		settings: NewStore[OrientationSettings](),
		deps:     deps,
	}
}

// ID returns the stage's pipeline position.
func (s *FixOrientation) ID() ID { return FixOrientationID }

// Name returns the canonical stage name.
func (s *FixOrientation) Name() string { return FixOrientationID.String() }

// Settings returns the stage's per-page settings store.
func (s *FixOrientation) Settings() *Store[OrientationSettings] { return s.settings }

// CreateTask builds the orientation task for the page.
func (s *FixOrientation) CreateTask(page model.PageID, next Task, batch, debug bool) (Task, error) {
	return &fixOrientationTask{stage: s, page: page, next: next, debug: debug}, nil
}

type fixOrientationTask struct {
	stage *FixOrientation
	page  model.PageID
	next  Task
	debug bool
}

// Process applies the configured or EXIF-derived rotation to the page.
func (t *fixOrientationTask) Process(ctx context.Context, art *Artifact) error {
	rotation := model.RotationNone
	if settings, ok := t.stage.settings.Get(t.page); ok {
		rotation = settings.Rotation
	} else {
		rotation = imaging.Orientation(t.page.Image)
	}

	if rotation != model.RotationNone {
		art.Image = rotateOrthogonal(art.Image, rotation)
	}
	art.Rotation = rotation
	art.StagesRun = append(art.StagesRun, t.stage.Name())

	if t.debug {
		t.stage.deps.Logger.Debug("orientation applied",
			"image", t.page.Image,
			"rotation", rotation.String(),
		)
	}

	return forward(ctx, t.next, art)
}

// rotateOrthogonal rotates img by a multiple of 90 degrees clockwise.
func rotateOrthogonal(img image.Image, r model.Rotation) image.Image {
	if r == model.RotationNone {
		return img
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	var dst *image.RGBA
	switch r {
	case model.Rotation90CW, model.Rotation270CW:
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	default:
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			switch r {
			case model.Rotation90CW:
				dst.Set(h-1-y, x, c)
			case model.Rotation180:
				dst.Set(w-1-x, h-1-y, c)
			case model.Rotation270CW:
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}
