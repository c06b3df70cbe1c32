package imaging

import (
	"errors"
	"fmt"
	"image"
	"os"

	// Register the decoders for the formats scanners actually produce.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
)

// ErrUnsupportedFormat is returned when an image decodes to a format we
// do not handle. In practice this only happens for exotic TIFF variants.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Info describes a source image without decoding its pixels.
type Info struct {
	// Width and Height are the pixel dimensions.
	Width  int
	Height int

	// Format is the detected format name ("jpeg", "png", "tiff").
	Format string
}

// Loader reads source scan images from disk.
// The zero value is usable; the struct exists so callers can depend on an
// injected value in tests.
type Loader struct{}

// NewLoader creates a Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Probe verifies that the image at path exists and is decodable, without
// reading the full pixel data. It is called at task-construction time so a
// missing or corrupt file fails the page before any stage runs.
func (l *Loader) Probe(path string) (Info, error) {
	f, err := os.Open(path) //nolint:gosec // Paths come from the user's own project
	if err != nil {
		return Info{}, fmt.Errorf("open source image: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, fmt.Errorf("decode image header %s: %w", path, err)
	}

	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Load decodes the full image at path.
func (l *Loader) Load(path string) (image.Image, Info, error) {
	f, err := os.Open(path) //nolint:gosec // Paths come from the user's own project
	if err != nil {
		return nil, Info{}, fmt.Errorf("open source image: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, Info{}, fmt.Errorf("decode image %s: %w", path, err)
	}

	bounds := img.Bounds()
	info := Info{Width: bounds.Dx(), Height: bounds.Dy(), Format: format}
	return img, info, nil
}
