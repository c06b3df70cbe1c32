package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pagetailor/pagetailor/internal/accel"
	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/stage"
)

// writeTestPage writes a white PNG page with a dark text block to dir and
// returns its path.
func writeTestPage(t *testing.T, dir, name string) string {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 120, 160))
	for y := 0; y < 160; y++ {
		for x := 0; x < 120; x++ {
			if x >= 20 && x < 100 && y >= 30 && y < 130 {
				img.SetGray(x, y, color.Gray{Y: 20})
			} else {
				img.SetGray(x, y, color.Gray{Y: 250})
			}
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	return path
}

// newTestRegistry builds a registry whose output stage writes into a
// temporary directory.
func newTestRegistry(t *testing.T) *stage.Registry {
	t.Helper()

	names := model.NewFileNameGenerator(model.NewDisambiguator(), filepath.Join(t.TempDir(), "out"))
	return stage.NewRegistry(stage.Deps{Names: names})
}

// TestBuilderBuild tests composite task construction.
func TestBuilderBuild(t *testing.T) {
	t.Parallel()

	t.Run("negative last index yields no task", func(t *testing.T) {
		t.Parallel()

		b := NewBuilder(newTestRegistry(t))
		task, err := b.Build(model.NewPageID("a.png"), -1)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if task != nil {
			t.Error("task = non-nil, want nil for negative index")
		}
	})

	t.Run("out of range index fails construction", func(t *testing.T) {
		t.Parallel()

		r := newTestRegistry(t)
		b := NewBuilder(r)
		_, err := b.Build(model.NewPageID("a.png"), r.StageCount())
		if err == nil {
			t.Fatal("Build: expected error for out-of-range index")
		}
		var cerr *ConstructionError
		if !errors.As(err, &cerr) {
			t.Fatalf("error type = %T, want *ConstructionError", err)
		}
		if cerr.Stage != "" {
			t.Errorf("Stage = %q, want empty for pre-stage failure", cerr.Stage)
		}
	})

	t.Run("missing source image fails construction", func(t *testing.T) {
		t.Parallel()

		r := newTestRegistry(t)
		b := NewBuilder(r)
		page := model.NewPageID(filepath.Join(t.TempDir(), "gone.png"))
		_, err := b.Build(page, r.LastIndex())
		if err == nil {
			t.Fatal("Build: expected error for missing image")
		}
		var cerr *ConstructionError
		if !errors.As(err, &cerr) {
			t.Fatalf("error type = %T, want *ConstructionError", err)
		}
		if cerr.Page != page {
			t.Errorf("Page = %v, want %v", cerr.Page, page)
		}
	})

	t.Run("full chain runs every stage in order", func(t *testing.T) {
		t.Parallel()

		r := newTestRegistry(t)
		b := NewBuilder(r)
		page := model.NewPageID(writeTestPage(t, t.TempDir(), "scan.png"))

		task, err := b.Build(page, r.LastIndex())
		if err != nil {
			t.Fatalf("Build: %v", err)
		}

		art := &Artifact{}
		if err := task.Process(context.Background(), art); err != nil {
			t.Fatalf("Process: %v", err)
		}

		want := []string{"fix_orientation", "page_split", "deskew", "select_content", "page_layout", "output"}
		if len(art.StagesRun) != len(want) {
			t.Fatalf("StagesRun = %v, want %v", art.StagesRun, want)
		}
		for i, name := range want {
			if art.StagesRun[i] != name {
				t.Errorf("StagesRun[%d] = %q, want %q", i, art.StagesRun[i], name)
			}
		}
		if art.OutputPath == "" {
			t.Fatal("OutputPath is empty after output stage")
		}
		if _, err := os.Stat(art.OutputPath); err != nil {
			t.Errorf("output file: %v", err)
		}
	})

	t.Run("partial chain stops at the requested stage", func(t *testing.T) {
		t.Parallel()

		r := newTestRegistry(t)
		b := NewBuilder(r)
		page := model.NewPageID(writeTestPage(t, t.TempDir(), "scan.png"))

		task, err := b.Build(page, int(stage.DeskewID))
		if err != nil {
			t.Fatalf("Build: %v", err)
		}

		art := &Artifact{}
		if err := task.Process(context.Background(), art); err != nil {
			t.Fatalf("Process: %v", err)
		}

		if got := len(art.StagesRun); got != 3 {
			t.Errorf("stages run = %d (%v), want 3", got, art.StagesRun)
		}
		if art.OutputPath != "" {
			t.Errorf("OutputPath = %q, want empty before output stage", art.OutputPath)
		}
	})

	t.Run("cancelled context stops the chain", func(t *testing.T) {
		t.Parallel()

		r := newTestRegistry(t)
		b := NewBuilder(r)
		page := model.NewPageID(writeTestPage(t, t.TempDir(), "scan.png"))

		task, err := b.Build(page, r.LastIndex())
		if err != nil {
			t.Fatalf("Build: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		art := &Artifact{}
		if err := task.Process(ctx, art); !errors.Is(err, context.Canceled) {
			t.Errorf("Process error = %v, want context.Canceled", err)
		}
		if len(art.StagesRun) != 0 {
			t.Errorf("StagesRun = %v, want none after early cancellation", art.StagesRun)
		}
	})
}

// TestBuilderDebug tests the interaction of batch mode and the debug flag.
func TestBuilderDebug(t *testing.T) {
	t.Parallel()

	// buildAndRun processes one page through the full chain with a
	// debug-level logger and returns everything it logged.
	buildAndRun := func(t *testing.T, opts ...BuilderOption) string {
		t.Helper()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		dir := t.TempDir()
		names := model.NewFileNameGenerator(model.NewDisambiguator(), filepath.Join(dir, "out"))
		registry := stage.NewRegistry(stage.Deps{Names: names, Logger: logger})

		page := model.NewPageID(writeTestPage(t, dir, "scan.png"))
		b := NewBuilder(registry, opts...)
		task, err := b.Build(page, registry.LastIndex())
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if err := task.Process(context.Background(), &Artifact{}); err != nil {
			t.Fatalf("Process: %v", err)
		}
		return buf.String()
	}

	t.Run("batch mode ignores the debug request", func(t *testing.T) {
		t.Parallel()

		logs := buildAndRun(t, WithDebug(true))
		if strings.Contains(logs, "output written") {
			t.Errorf("debug artifacts generated in batch mode:\n%s", logs)
		}
	})

	t.Run("non-batch debug reaches the last requested stage only", func(t *testing.T) {
		t.Parallel()

		logs := buildAndRun(t, WithBatch(false), WithDebug(true))
		if !strings.Contains(logs, "output written") {
			t.Errorf("expected debug artifacts from the output stage, got:\n%s", logs)
		}
		if strings.Contains(logs, "deskew applied") {
			t.Errorf("debug artifacts leaked past the first constructed stage:\n%s", logs)
		}
	})
}

// fixedProvider returns a fixed Ops value or error.
type fixedProvider struct {
	ops accel.Ops
	err error
}

func (p fixedProvider) Ops() (accel.Ops, error) { return p.ops, p.err }

// TestBuilderAcceleration tests acceleration hint plumbing.
func TestBuilderAcceleration(t *testing.T) {
	t.Parallel()

	t.Run("available hints reach the artifact", func(t *testing.T) {
		t.Parallel()

		r := newTestRegistry(t)
		b := NewBuilder(r, WithAcceleration(fixedProvider{ops: accel.Ops{Vectorized: true}}))
		page := model.NewPageID(writeTestPage(t, t.TempDir(), "scan.png"))

		task, err := b.Build(page, int(stage.FixOrientationID))
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		art := &Artifact{}
		if err := task.Process(context.Background(), art); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if !art.Accel.Vectorized {
			t.Error("Accel.Vectorized = false, want true")
		}
	})

	t.Run("unavailable provider falls back to zero hints", func(t *testing.T) {
		t.Parallel()

		r := newTestRegistry(t)
		b := NewBuilder(r, WithAcceleration(fixedProvider{err: accel.ErrUnavailable}))
		page := model.NewPageID(writeTestPage(t, t.TempDir(), "scan.png"))

		task, err := b.Build(page, int(stage.FixOrientationID))
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		art := &Artifact{}
		if err := task.Process(context.Background(), art); err != nil {
			t.Fatalf("Process: %v", err)
		}
		if art.Accel != (accel.Ops{}) {
			t.Errorf("Accel = %+v, want zero value", art.Accel)
		}
	})
}
