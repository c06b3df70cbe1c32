package stage

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/pagetailor/pagetailor/internal/accel"
	"github.com/pagetailor/pagetailor/internal/model"
)

// DeskewMode selects between automatic angle detection and a fixed angle.
type DeskewMode int

const (
	// DeskewAuto estimates the skew angle from the page content.
	DeskewAuto DeskewMode = iota

	// DeskewManual applies a user-supplied angle.
	DeskewManual
)

// String returns the project-file representation of the mode.
func (m DeskewMode) String() string {
	if m == DeskewManual {
		return "manual"
	}
	return "auto"
}

// ParseDeskewMode converts a project-file value to a DeskewMode.
func ParseDeskewMode(s string) (DeskewMode, error) {
	switch strings.ToLower(s) {
	case "auto", "":
		return DeskewAuto, nil
	case "manual":
		return DeskewManual, nil
	default:
		return DeskewAuto, fmt.Errorf("unknown deskew mode %q (want auto or manual)", s)
	}
}

// DeskewSettings holds the deskew stage's per-page configuration.
// In auto mode the detected angle is written back to the store after
// processing so a later run (or a saved project) reuses it instead of
// re-estimating.
type DeskewSettings struct {
	// Mode selects automatic detection or the fixed Angle.
	Mode DeskewMode `yaml:"mode"`

	// Angle is the skew correction in degrees, counter-clockwise positive.
	Angle float64 `yaml:"angle"`

	// Detected is true once Angle came from automatic detection.
	Detected bool `yaml:"detected,omitempty"`
}

// maxAutoSkew bounds the automatic estimation sweep. Flatbed scans are
// rarely off by more than a couple of degrees; a larger misalignment is a
// feed problem the orientation stage should have caught.
const maxAutoSkew = 2.5

// Deskew is the third stage: it removes the small rotation introduced by
// imperfect page placement on the scanner glass.
type Deskew struct {
	settings *Store[DeskewSettings]
	deps     Deps
}

func newDeskew(deps Deps) *Deskew {
	return &Deskew{
		settings: NewStore[DeskewSettings](),
		deps:     deps,
	}
}

// ID returns the stage's pipeline position.
func (s *Deskew) ID() ID { return DeskewID }

// Name returns the canonical stage name.
func (s *Deskew) Name() string { return DeskewID.String() }

// Settings returns the stage's per-page settings store.
func (s *Deskew) Settings() *Store[DeskewSettings] { return s.settings }

// CreateTask builds the deskew task for the page.
func (s *Deskew) CreateTask(page model.PageID, next Task, batch, debug bool) (Task, error) {
	return &deskewTask{stage: s, page: page, next: next, debug: debug}, nil
}

type deskewTask struct {
	stage *Deskew
	page  model.PageID
	next  Task
	debug bool
}

// Process determines the skew angle, rotates the image by it, and caches
// an auto-detected angle back into the settings store.
func (t *deskewTask) Process(ctx context.Context, art *Artifact) error {
	settings, ok := t.stage.settings.Get(t.page)

	angle := settings.Angle
	switch {
	case ok && settings.Mode == DeskewManual:
		// Fixed angle, nothing to detect.
	case ok && settings.Detected:
		// Previously detected angle, reuse it.
	default:
		angle = estimateSkew(art.Image, art.Accel)
		t.stage.settings.Set(t.page, DeskewSettings{
			Mode:     DeskewAuto,
			Angle:    angle,
			Detected: true,
		})
	}

	if angle != 0 {
		art.Image = rotateByAngle(art.Image, angle)
	}
	art.SkewAngle = angle
	art.StagesRun = append(art.StagesRun, t.stage.Name())

	if t.debug {
		t.stage.deps.Logger.Debug("deskew applied",
			"image", t.page.Image,
			"angle", angle,
		)
	}

	return forward(ctx, t.next, art)
}

// estimateSkew sweeps candidate angles and picks the one that maximizes
// the variance of horizontal projection profiles: text lines produce sharp
// light/dark row alternation when they are exactly horizontal.
func estimateSkew(img image.Image, hints accel.Ops) float64 {
	gray := toGraySmall(img, estimationSide(hints))
	bounds := gray.Bounds()
	if bounds.Dx() < 8 || bounds.Dy() < 8 {
		return 0
	}

	// Candidates are ordered by increasing magnitude so that ties (blank
	// or uniform pages) resolve to the smallest correction.
	candidates := []float64{0}
	for angle := 0.25; angle <= maxAutoSkew+1e-9; angle += 0.25 {
		candidates = append(candidates, angle, -angle)
	}

	best, bestScore := 0.0, -1.0
	for _, angle := range candidates {
		score := projectionVariance(gray, angle)
		if score > bestScore {
			bestScore = score
			best = angle
		}
	}
	// Snap near-zero estimates; a 0.25 degree correction on a clean scan
	// costs more in resampling blur than it fixes.
	if math.Abs(best) < 0.3 {
		return 0
	}
	return best
}

// estimationSide returns the downscale bound for skew estimation. The
// memory-saving hint halves the working image; at these sizes the sweep
// still resolves quarter-degree steps.
func estimationSide(hints accel.Ops) int {
	if hints.LowMemory {
		return 200
	}
	return 400
}

// projectionVariance computes the variance of row sums when rows are read
// along the given angle.
func projectionVariance(gray *image.Gray, angleDeg float64) float64 {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tan := math.Tan(angleDeg * math.Pi / 180)

	sums := make([]float64, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			yy := y + int(float64(x)*tan)
			if yy < 0 || yy >= h {
				continue
			}
			sums[y] += float64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+yy).Y)
		}
	}

	var mean float64
	for _, s := range sums {
		mean += s
	}
	mean /= float64(len(sums))

	var variance float64
	for _, s := range sums {
		d := s - mean
		variance += d * d
	}
	return variance / float64(len(sums))
}

// toGraySmall converts img to grayscale, downscaling so the longest side
// is at most maxSide. Estimation does not need full resolution.
func toGraySmall(img image.Image, maxSide int) *image.Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	step := 1
	for w/step > maxSide || h/step > maxSide {
		step++
	}

	dst := image.NewGray(image.Rect(0, 0, w/step, h/step))
	for y := 0; y < h/step; y++ {
		for x := 0; x < w/step; x++ {
			c := color.GrayModel.Convert(img.At(bounds.Min.X+x*step, bounds.Min.Y+y*step))
			dst.SetGray(x, y, c.(color.Gray))
		}
	}
	return dst
}

// rotateByAngle rotates img by angleDeg (counter-clockwise positive) around
// its center using inverse nearest-neighbor mapping. Pixels falling outside
// the source are filled white, matching paper background.
func rotateByAngle(img image.Image, angleDeg float64) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	rad := -angleDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	cx, cy := float64(w)/2, float64(h)/2

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			sx := int(cx + dx*cos - dy*sin)
			sy := int(cy + dx*sin + dy*cos)
			if sx < 0 || sx >= w || sy < 0 || sy >= h {
				dst.SetRGBA(x, y, white)
				continue
			}
			dst.Set(x, y, img.At(bounds.Min.X+sx, bounds.Min.Y+sy))
		}
	}
	return dst
}
