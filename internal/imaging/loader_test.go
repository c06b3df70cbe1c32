package imaging

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pagetailor/pagetailor/internal/model"
)

// writeTestPNG writes a small PNG into dir and returns its path.
func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create test image: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return path
}

// TestLoaderProbe tests header-only probing.
func TestLoaderProbe(t *testing.T) {
	t.Parallel()

	t.Run("probes dimensions without full decode", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := writeTestPNG(t, dir, "page.png", 40, 60)

		info, err := NewLoader().Probe(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Width != 40 || info.Height != 60 {
			t.Errorf("dimensions = %dx%d, want 40x60", info.Width, info.Height)
		}
		if info.Format != "png" {
			t.Errorf("format = %q, want png", info.Format)
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		t.Parallel()

		_, err := NewLoader().Probe(filepath.Join(t.TempDir(), "absent.png"))
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("non-image file fails", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "garbage.png")
		if err := os.WriteFile(path, []byte("not an image"), 0600); err != nil {
			t.Fatalf("write test file: %v", err)
		}

		if _, err := NewLoader().Probe(path); err == nil {
			t.Fatal("expected error for undecodable file")
		}
	})
}

// TestLoaderLoad tests full decoding.
func TestLoaderLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTestPNG(t, dir, "page.png", 10, 20)

	img, info, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 20 {
		t.Errorf("bounds = %v, want 10x20", img.Bounds())
	}
	if info.Width != 10 || info.Height != 20 {
		t.Errorf("info = %dx%d, want 10x20", info.Width, info.Height)
	}
}

// TestOrientation tests that EXIF-less images yield no rotation.
func TestOrientation(t *testing.T) {
	t.Parallel()

	t.Run("png has no exif", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := writeTestPNG(t, dir, "page.png", 8, 8)

		if got := Orientation(path); got != model.RotationNone {
			t.Errorf("Orientation = %v, want RotationNone", got)
		}
	})

	t.Run("missing file yields no rotation", func(t *testing.T) {
		t.Parallel()

		if got := Orientation("/nonexistent/file.jpg"); got != model.RotationNone {
			t.Errorf("Orientation = %v, want RotationNone", got)
		}
	})
}
