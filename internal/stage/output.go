package stage

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"strings"

	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/preview"
)

// ColorMode selects how the output stage renders the final page.
type ColorMode int

const (
	// ColorModeBlackAndWhite binarizes the page.
	ColorModeBlackAndWhite ColorMode = iota

	// ColorModeColorGrayscale keeps continuous tones.
	ColorModeColorGrayscale

	// ColorModeMixed binarizes text while keeping picture zones in tone;
	// splitting sub-options are only meaningful in this mode.
	ColorModeMixed
)

// String returns the CLI/project-file representation of the color mode.
func (m ColorMode) String() string {
	switch m {
	case ColorModeBlackAndWhite:
		return "black_and_white"
	case ColorModeColorGrayscale:
		return "color_grayscale"
	case ColorModeMixed:
		return "mixed"
	default:
		return fmt.Sprintf("ColorMode(%d)", int(m))
	}
}

// ParseColorMode converts a CLI or project-file value to a ColorMode.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(s) {
	case "black_and_white", "bw":
		return ColorModeBlackAndWhite, nil
	case "color_grayscale", "color":
		return ColorModeColorGrayscale, nil
	case "mixed":
		return ColorModeMixed, nil
	default:
		return ColorModeBlackAndWhite, fmt.Errorf("unknown color mode %q (want black_and_white, color_grayscale, or mixed)", s)
	}
}

// PictureShape controls how picture zones are outlined in mixed mode.
type PictureShape int

const (
	// PictureShapeFree keeps detected picture outlines as-is.
	PictureShapeFree PictureShape = iota

	// PictureShapeRectangular expands picture zones to their bounding box.
	PictureShapeRectangular
)

// String returns the CLI/project-file representation of the shape.
func (p PictureShape) String() string {
	if p == PictureShapeRectangular {
		return "rectangular"
	}
	return "free"
}

// ParsePictureShape converts a CLI or project-file value to a PictureShape.
func ParsePictureShape(s string) (PictureShape, error) {
	switch strings.ToLower(s) {
	case "free", "":
		return PictureShapeFree, nil
	case "rectangular":
		return PictureShapeRectangular, nil
	default:
		return PictureShapeFree, fmt.Errorf("unknown picture shape %q (want free or rectangular)", s)
	}
}

// DespeckleLevel controls isolated-speck removal on binarized output.
type DespeckleLevel int

const (
	// DespeckleOff disables despeckling.
	DespeckleOff DespeckleLevel = iota

	// DespeckleCautious removes only fully isolated single pixels.
	DespeckleCautious

	// DespeckleNormal removes specks with at most one dark neighbor.
	DespeckleNormal

	// DespeckleAggressive removes specks with at most two dark neighbors.
	DespeckleAggressive
)

// String returns the CLI/project-file representation of the level.
func (d DespeckleLevel) String() string {
	switch d {
	case DespeckleOff:
		return "off"
	case DespeckleCautious:
		return "cautious"
	case DespeckleNormal:
		return "normal"
	case DespeckleAggressive:
		return "aggressive"
	default:
		return fmt.Sprintf("DespeckleLevel(%d)", int(d))
	}
}

// ParseDespeckleLevel converts a CLI or project-file value to a level.
func ParseDespeckleLevel(s string) (DespeckleLevel, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return DespeckleOff, nil
	case "cautious":
		return DespeckleCautious, nil
	case "normal":
		return DespeckleNormal, nil
	case "aggressive":
		return DespeckleAggressive, nil
	default:
		return DespeckleOff, fmt.Errorf("unknown despeckle level %q (want off, cautious, normal, or aggressive)", s)
	}
}

// DewarpingMode controls page curvature correction.
type DewarpingMode int

const (
	// DewarpingOff disables dewarping.
	DewarpingOff DewarpingMode = iota

	// DewarpingAuto estimates the distortion grid automatically.
	DewarpingAuto

	// DewarpingManual uses a user-adjusted grid.
	DewarpingManual
)

// String returns the CLI/project-file representation of the mode.
func (d DewarpingMode) String() string {
	switch d {
	case DewarpingAuto:
		return "auto"
	case DewarpingManual:
		return "manual"
	default:
		return "off"
	}
}

// ParseDewarpingMode converts a CLI or project-file value to a mode.
func ParseDewarpingMode(s string) (DewarpingMode, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return DewarpingOff, nil
	case "auto":
		return DewarpingAuto, nil
	case "manual":
		return DewarpingManual, nil
	default:
		return DewarpingOff, fmt.Errorf("unknown dewarping mode %q (want off, auto, or manual)", s)
	}
}

// SplittingOptions are the mixed-mode sub-options for separating text and
// picture layers. They stay inert unless the color mode is mixed.
type SplittingOptions struct {
	// SplitOutput writes text and picture layers as separate files.
	SplitOutput bool `yaml:"split_output"`

	// PictureShape controls picture zone outlines.
	PictureShape PictureShape `yaml:"picture_shape"`
}

// DewarpingOptions bundle the dewarping mode and its tuning value.
type DewarpingOptions struct {
	// Mode selects off, automatic, or manual dewarping.
	Mode DewarpingMode `yaml:"mode"`

	// DepthPerception tunes how strongly page curvature is modeled.
	// The useful range is 1.0 to 3.0; 2.0 is the neutral default.
	DepthPerception float64 `yaml:"depth_perception"`
}

// DefaultOutputDPI is the rendering resolution used when no override or
// project setting supplies one.
const DefaultOutputDPI = 600

// OutputSettings holds the output stage's per-page configuration.
type OutputSettings struct {
	// Dpi is the output rendering resolution.
	Dpi model.Dpi `yaml:"dpi"`

	// ColorMode selects the rendering mode.
	ColorMode ColorMode `yaml:"color_mode"`

	// Splitting are the mixed-mode sub-options.
	Splitting SplittingOptions `yaml:"splitting"`

	// WhiteMargins renders margins in pure white instead of the page's
	// background tone.
	WhiteMargins bool `yaml:"white_margins"`

	// NormalizeIllumination flattens uneven scanner lighting.
	NormalizeIllumination bool `yaml:"normalize_illumination"`

	// ThresholdAdjustment biases binarization; negative is thinner text.
	ThresholdAdjustment int `yaml:"threshold_adjustment"`

	// Despeckle is the speck removal level for binarized output.
	Despeckle DespeckleLevel `yaml:"despeckle"`

	// Dewarping bundles curvature correction options.
	Dewarping DewarpingOptions `yaml:"dewarping"`
}

// DefaultOutputSettings returns the settings used for pages without an
// entry in the store.
func DefaultOutputSettings() OutputSettings {
	return OutputSettings{
		Dpi:          model.UniformDpi(DefaultOutputDPI),
		ColorMode:    ColorModeBlackAndWhite,
		WhiteMargins: true,
		Dewarping:    DewarpingOptions{Mode: DewarpingOff, DepthPerception: 2.0},
	}
}

// Output is the sixth and final stage: it composes the content box and
// margins into the final page image and writes it to the output directory.
type Output struct {
	settings *Store[OutputSettings]
	deps     Deps
}

func newOutput(deps Deps) *Output {
	return &Output{
		settings: NewStore[OutputSettings](),
		deps:     deps,
	}
}

// ID returns the stage's pipeline position.
func (s *Output) ID() ID { return OutputID }

// Name returns the canonical stage name.
func (s *Output) Name() string { return OutputID.String() }

// Settings returns the stage's per-page settings store.
func (s *Output) Settings() *Store[OutputSettings] { return s.settings }

// CreateTask builds the output task for the page. Creating the output
// directory happens here so an unwritable destination fails the page at
// construction time instead of after five stages of work.
func (s *Output) CreateTask(page model.PageID, next Task, batch, debug bool) (Task, error) {
	if s.deps.Names == nil {
		return nil, fmt.Errorf("output stage: no file name generator configured")
	}
	if err := os.MkdirAll(s.deps.Names.OutputDir(), 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &outputTask{stage: s, page: page, next: next, debug: debug}, nil
}

type outputTask struct {
	stage *Output
	page  model.PageID
	next  Task
	debug bool
}

// Process renders the final page and writes it to disk.
func (t *outputTask) Process(ctx context.Context, art *Artifact) error {
	settings, ok := t.stage.settings.Get(t.page)
	if !ok {
		settings = DefaultOutputSettings()
	}
	if settings.Dpi.IsZero() {
		settings.Dpi = model.UniformDpi(DefaultOutputDPI)
	}

	page := composePage(art, settings)

	path := t.stage.deps.Names.FilePathFor(t.page)
	if err := writePNG(path, page); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}

	art.OutputPath = path
	art.StagesRun = append(art.StagesRun, t.stage.Name())

	preview.Render(t.stage.deps.Previews, t.page, page, 200, 200)

	if t.debug {
		t.stage.deps.Logger.Debug("output written",
			"image", t.page.Image,
			"output", path,
			"color_mode", settings.ColorMode.String(),
		)
	}

	return forward(ctx, t.next, art)
}

// composePage crops the content box, adds margins at the output DPI, and
// applies the configured tone handling.
func composePage(art *Artifact, settings OutputSettings) image.Image {
	content := cropRect(art.Image, art.ContentBox)

	if settings.NormalizeIllumination {
		content = normalizeIllumination(content)
	}

	switch settings.ColorMode {
	case ColorModeBlackAndWhite:
		content = binarize(content, settings.ThresholdAdjustment)
		if settings.Despeckle != DespeckleOff {
			content = despeckle(content.(*image.Gray), settings.Despeckle)
		}
	case ColorModeColorGrayscale:
		content = toGrayscale(content)
	case ColorModeMixed:
		// Mixed mode keeps tones; the splitting options feed downstream
		// tooling that separates text and picture layers.
	}

	// Margins in millimeters become pixels at the output resolution.
	left := mmToPx(art.Margins.Left, settings.Dpi.Horizontal)
	right := mmToPx(art.Margins.Right, settings.Dpi.Horizontal)
	top := mmToPx(art.Margins.Top, settings.Dpi.Vertical)
	bottom := mmToPx(art.Margins.Bottom, settings.Dpi.Vertical)

	cb := content.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, cb.Dx()+left+right, cb.Dy()+top+bottom))

	bg := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if !settings.WhiteMargins {
		bg = averageColor(content)
	}
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(left, top, left+cb.Dx(), top+cb.Dy()), content, cb.Min, draw.Src)

	return canvas
}

// mmToPx converts millimeters to pixels at the given resolution.
func mmToPx(mm float64, dpi int) int {
	px := mm / 25.4 * float64(dpi)
	if px < 0 {
		return 0
	}
	return int(px + 0.5)
}

// cropRect extracts the given box from img. An empty box returns the
// whole image.
func cropRect(img image.Image, box model.RectF) image.Image {
	if box.IsEmpty() {
		return img
	}

	bounds := img.Bounds()
	region := image.Rect(
		bounds.Min.X+int(box.X),
		bounds.Min.Y+int(box.Y),
		bounds.Min.X+int(box.X+box.Width),
		bounds.Min.Y+int(box.Y+box.Height),
	).Intersect(bounds)
	if region.Empty() {
		return img
	}

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(region)
	}

	dst := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(dst, dst.Bounds(), img, region.Min, draw.Src)
	return dst
}

// binarize converts img to pure black and white. adjustment biases the
// threshold: positive makes more pixels black.
func binarize(img image.Image, adjustment int) image.Image {
	threshold := 128 + adjustment
	if threshold < 1 {
		threshold = 1
	}
	if threshold > 254 {
		threshold = 254
	}

	bounds := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if int(c.Y) < threshold {
				dst.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: 0})
			} else {
				dst.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}

// despeckle removes isolated dark pixels from a binarized image. The level
// sets how many dark neighbors a pixel may have and still be a speck.
func despeckle(img *image.Gray, level DespeckleLevel) image.Image {
	maxNeighbors := 0
	switch level {
	case DespeckleNormal:
		maxNeighbors = 1
	case DespeckleAggressive:
		maxNeighbors = 2
	}

	bounds := img.Bounds()
	dst := image.NewGray(bounds)
	copy(dst.Pix, img.Pix)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.GrayAt(x, y).Y != 0 {
				continue
			}
			neighbors := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
						continue
					}
					if img.GrayAt(nx, ny).Y == 0 {
						neighbors++
					}
				}
			}
			if neighbors <= maxNeighbors {
				dst.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}

// toGrayscale converts img to 8-bit grayscale.
func toGrayscale(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x-bounds.Min.X, y-bounds.Min.Y, img.At(x, y))
		}
	}
	return dst
}

// normalizeIllumination applies a linear luminance stretch so the darkest
// pixel maps to 0 and the lightest to 255. This flattens mild vignetting
// without modeling the illumination surface.
func normalizeIllumination(img image.Image) image.Image {
	bounds := img.Bounds()
	minY, maxY := 255, 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if int(c.Y) < minY {
				minY = int(c.Y)
			}
			if int(c.Y) > maxY {
				maxY = int(c.Y)
			}
		}
	}
	if maxY <= minY {
		return img
	}

	scale := 255.0 / float64(maxY-minY)
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			v := float64(int(c.Y)-minY) * scale
			dst.SetGray(x-bounds.Min.X, y-bounds.Min.Y, color.Gray{Y: uint8(v)})
		}
	}
	return dst
}

// averageColor returns the mean color of img, used for non-white margins.
func averageColor(img image.Image) color.RGBA {
	bounds := img.Bounds()
	var r, g, b, n uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			r += uint64(cr >> 8)
			g += uint64(cg >> 8)
			b += uint64(cb >> 8)
			n++
		}
	}
	if n == 0 {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: 255}
}

// writePNG writes img to path.
func writePNG(path string, img image.Image) error {
	f, err := os.Create(path) //nolint:gosec // Path is derived from the user's output directory
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
