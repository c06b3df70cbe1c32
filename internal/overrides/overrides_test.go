package overrides

import (
	"reflect"
	"testing"

	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/stage"
)

func ptr[T any](v T) *T { return &v }

func testPages() []model.PageID {
	return []model.PageID{
		model.NewPageID("a.png"),
		model.NewPageID("b.png"),
		model.NewPageID("c.png"),
	}
}

// TestSetIsZero tests empty-set detection.
func TestSetIsZero(t *testing.T) {
	t.Parallel()

	if !(&Set{}).IsZero() {
		t.Error("IsZero() = false for the zero Set, want true")
	}
	if (&Set{OutputDPI: ptr(300)}).IsZero() {
		t.Error("IsZero() = true with an option present, want false")
	}
}

// TestEngineApply tests bulk application of overrides across pages.
func TestEngineApply(t *testing.T) {
	t.Parallel()

	t.Run("present options reach every page", func(t *testing.T) {
		t.Parallel()

		r := stage.NewRegistry(stage.Deps{})
		pages := testPages()
		NewEngine(r, nil).Apply(Set{
			Orientation: ptr(model.Rotation180),
			Layout:      ptr(stage.LayoutSingle),
			Margins:     ptr(model.UniformMargins(15)),
		}, pages)

		for _, page := range pages {
			o, ok := r.FixOrientation().Settings().Get(page)
			if !ok || o.Rotation != model.Rotation180 {
				t.Errorf("%v: orientation = %+v (ok=%v), want 180", page, o, ok)
			}
			s, ok := r.PageSplit().Settings().Get(page)
			if !ok || s.Layout != stage.LayoutSingle {
				t.Errorf("%v: layout = %+v (ok=%v), want single", page, s, ok)
			}
			l, ok := r.PageLayout().Settings().Get(page)
			if !ok || l.Margins != model.UniformMargins(15) {
				t.Errorf("%v: margins = %+v (ok=%v)", page, l, ok)
			}
		}
	})

	t.Run("unset options leave existing settings untouched", func(t *testing.T) {
		t.Parallel()

		r := stage.NewRegistry(stage.Deps{})
		pages := testPages()
		r.FixOrientation().Settings().Set(pages[0], stage.OrientationSettings{Rotation: model.Rotation90CW})

		NewEngine(r, nil).Apply(Set{Margins: ptr(model.UniformMargins(5))}, pages)

		o, ok := r.FixOrientation().Settings().Get(pages[0])
		if !ok || o.Rotation != model.Rotation90CW {
			t.Errorf("orientation = %+v (ok=%v), want the pre-existing 90cw", o, ok)
		}
		if _, ok := r.FixOrientation().Settings().Get(pages[1]); ok {
			t.Error("page without prior setting gained an orientation entry")
		}
	})

	t.Run("applying twice is idempotent", func(t *testing.T) {
		t.Parallel()

		r := stage.NewRegistry(stage.Deps{})
		pages := testPages()
		set := Set{
			Orientation: ptr(model.Rotation90CW),
			DeskewAuto:  ptr(true),
			OutputDPI:   ptr(300),
			ColorMode:   ptr(stage.ColorModeMixed),
			SplitOutput: ptr(true),
		}
		engine := NewEngine(r, nil)

		engine.Apply(set, pages)
		first := r.Output().Settings().Snapshot()
		firstDeskew := r.Deskew().Settings().Snapshot()

		engine.Apply(set, pages)
		if !reflect.DeepEqual(first, r.Output().Settings().Snapshot()) {
			t.Error("output settings changed on second application")
		}
		if !reflect.DeepEqual(firstDeskew, r.Deskew().Settings().Snapshot()) {
			t.Error("deskew settings changed on second application")
		}
	})
}

// TestEngineDeskew tests the angle/auto resolution rules.
func TestEngineDeskew(t *testing.T) {
	t.Parallel()

	t.Run("manual angle wins over auto", func(t *testing.T) {
		t.Parallel()

		r := stage.NewRegistry(stage.Deps{})
		pages := testPages()
		NewEngine(r, nil).Apply(Set{
			DeskewAngle: ptr(1.5),
			DeskewAuto:  ptr(true),
		}, pages)

		d, ok := r.Deskew().Settings().Get(pages[0])
		if !ok || d.Mode != stage.DeskewManual || d.Angle != 1.5 {
			t.Errorf("deskew = %+v (ok=%v), want manual 1.5", d, ok)
		}
	})

	t.Run("auto seeds only pages without an entry", func(t *testing.T) {
		t.Parallel()

		r := stage.NewRegistry(stage.Deps{})
		pages := testPages()
		existing := stage.DeskewSettings{Mode: stage.DeskewManual, Angle: -0.75}
		r.Deskew().Settings().Set(pages[1], existing)

		NewEngine(r, nil).Apply(Set{DeskewAuto: ptr(true)}, pages)

		if d, _ := r.Deskew().Settings().Get(pages[0]); d.Mode != stage.DeskewAuto {
			t.Errorf("pages[0] deskew = %+v, want auto", d)
		}
		if d, _ := r.Deskew().Settings().Get(pages[1]); d != existing {
			t.Errorf("pages[1] deskew = %+v, want the existing manual entry kept", d)
		}
	})
}

// TestEngineContent tests the content box and size options.
func TestEngineContent(t *testing.T) {
	t.Parallel()

	t.Run("box implies manual detection", func(t *testing.T) {
		t.Parallel()

		r := stage.NewRegistry(stage.Deps{})
		pages := testPages()
		box := model.RectF{X: 10, Y: 10, Width: 100, Height: 150}
		NewEngine(r, nil).Apply(Set{ContentBox: &box}, pages)

		c, ok := r.SelectContent().Settings().Get(pages[0])
		if !ok || c.Mode != stage.DetectManual || c.Box != box {
			t.Errorf("content = %+v (ok=%v), want manual %v", c, ok, box)
		}
	})

	t.Run("size alone keeps automatic detection", func(t *testing.T) {
		t.Parallel()

		r := stage.NewRegistry(stage.Deps{})
		pages := testPages()
		size := model.SizeF{Width: 210, Height: 297}
		NewEngine(r, nil).Apply(Set{ContentSizeMM: &size}, pages)

		c, ok := r.SelectContent().Settings().Get(pages[0])
		if !ok || c.Mode != stage.DetectAuto || c.SizeMM != size {
			t.Errorf("content = %+v (ok=%v), want auto with size %v", c, ok, size)
		}
	})
}

// TestEngineOutput tests output option merging and mixed-mode gating.
func TestEngineOutput(t *testing.T) {
	t.Parallel()

	t.Run("options merge into defaults", func(t *testing.T) {
		t.Parallel()

		r := stage.NewRegistry(stage.Deps{})
		pages := testPages()
		NewEngine(r, nil).Apply(Set{
			OutputDPI:           ptr(300),
			ThresholdAdjustment: ptr(-10),
			Despeckle:           ptr(stage.DespeckleNormal),
		}, pages)

		o, ok := r.Output().Settings().Get(pages[0])
		if !ok {
			t.Fatal("no output settings written")
		}
		if o.Dpi != model.UniformDpi(300) {
			t.Errorf("Dpi = %v, want 300", o.Dpi)
		}
		if o.ThresholdAdjustment != -10 {
			t.Errorf("ThresholdAdjustment = %d, want -10", o.ThresholdAdjustment)
		}
		if o.Despeckle != stage.DespeckleNormal {
			t.Errorf("Despeckle = %v, want normal", o.Despeckle)
		}
		if !o.WhiteMargins {
			t.Error("WhiteMargins lost its default")
		}
	})

	t.Run("splitting options apply under mixed mode", func(t *testing.T) {
		t.Parallel()

		r := stage.NewRegistry(stage.Deps{})
		pages := testPages()
		NewEngine(r, nil).Apply(Set{
			ColorMode:    ptr(stage.ColorModeMixed),
			PictureShape: ptr(stage.PictureShapeRectangular),
		}, pages)

		o, _ := r.Output().Settings().Get(pages[0])
		if o.ColorMode != stage.ColorModeMixed {
			t.Errorf("ColorMode = %v, want mixed", o.ColorMode)
		}
		if o.Splitting.PictureShape != stage.PictureShapeRectangular {
			t.Errorf("PictureShape = %v, want rectangular", o.Splitting.PictureShape)
		}
		if o.Splitting.SplitOutput {
			t.Error("SplitOutput = true, want the default false when unset")
		}
	})

	t.Run("splitting options are inert outside mixed mode", func(t *testing.T) {
		t.Parallel()

		r := stage.NewRegistry(stage.Deps{})
		pages := testPages()
		NewEngine(r, nil).Apply(Set{
			ColorMode:   ptr(stage.ColorModeBlackAndWhite),
			SplitOutput: ptr(true),
		}, pages)

		o, _ := r.Output().Settings().Get(pages[0])
		if o.Splitting.SplitOutput {
			t.Error("SplitOutput applied under black_and_white mode, want inert")
		}
	})
}
