package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pagetailor/pagetailor/internal/accel"
	"github.com/pagetailor/pagetailor/internal/imaging"
	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/stage"
)

// Builder assembles one composite task per page, covering the stages from
// index 0 through a requested last index. The builder exclusively owns the
// chain until it hands the root task to the Runner for execution.
type Builder struct {
	registry *stage.Registry

	// loader probes and decodes source images for the load wrapper task.
	loader *imaging.Loader

	// ops carries the advisory acceleration hints attached to each chain.
	ops accel.Ops

	// batch suppresses interactive stage behavior; always true for runs
	// driven by the CLI.
	batch bool

	// debug requests debug artifacts from the first constructed stage.
	// Batch mode forces it off.
	debug bool

	logger *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLoader sets the image loader used by the load wrapper task.
func WithLoader(loader *imaging.Loader) BuilderOption {
	return func(b *Builder) {
		b.loader = loader
	}
}

// WithAcceleration resolves acceleration hints from the provider.
// Unavailability is advisory: it is logged as a warning once, here, and
// every chain silently falls back to plain processing.
func WithAcceleration(provider accel.Provider) BuilderOption {
	return func(b *Builder) {
		ops, err := provider.Ops()
		if err != nil {
			b.logger.Warn("acceleration unavailable, continuing without it", "error", err)
			b.ops = accel.Ops{}
			return
		}
		b.ops = ops
	}
}

// WithBatch toggles batch mode, which suppresses interactive stage
// behavior and forces debug off. On by default; turn it off to let a
// single-page build honor WithDebug.
func WithBatch(batch bool) BuilderOption {
	return func(b *Builder) {
		b.batch = batch
	}
}

// WithDebug requests debug artifacts from the last requested stage.
// Batch mode ignores it; see WithBatch.
func WithDebug(debug bool) BuilderOption {
	return func(b *Builder) {
		b.debug = debug
	}
}

// WithBuilderLogger sets a custom logger for the builder.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a Builder over the given stage registry.
func NewBuilder(registry *stage.Registry, opts ...BuilderOption) *Builder {
	b := &Builder{
		registry: registry,
		loader:   imaging.NewLoader(),
		batch:    true,
		logger:   slog.Default(),
	}

	// The logger must be in place before options run; WithAcceleration
	// logs through it.
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Build assembles the composite task for the page, covering stages
// [0, lastIndex]. A lastIndex below the first stage returns (nil, nil):
// the page is a no-op and is reported as skipped, not failed.
//
// The chain is wired back to front: each stage's task receives the task
// built before it as its downstream dependency. The debug flag reaches at
// most the first stage constructed and is forced false afterwards, so only
// one stage per run generates debug artifacts.
func (b *Builder) Build(page model.PageID, lastIndex int) (stage.Task, error) {
	if lastIndex < 0 {
		return nil, nil
	}
	if lastIndex > b.registry.LastIndex() {
		return nil, &ConstructionError{
			Page: page,
			Err:  fmt.Errorf("last stage index %d out of range [0, %d)", lastIndex, b.registry.StageCount()),
		}
	}

	debug := b.debug
	if b.batch {
		debug = false
	}

	var task stage.Task
	for i := lastIndex; i >= 0; i-- {
		s, err := b.registry.StageAt(i)
		if err != nil {
			return nil, &ConstructionError{Page: page, Err: err}
		}
		task, err = s.CreateTask(page, task, b.batch, debug)
		if err != nil {
			return nil, &ConstructionError{Page: page, Stage: s.Name(), Err: err}
		}
		debug = false
	}

	// Probing at construction time turns a missing or corrupt source
	// image into a ConstructionError before any stage work happens.
	if _, err := b.loader.Probe(page.Image); err != nil {
		return nil, &ConstructionError{Page: page, Err: err}
	}

	return &loadTask{
		page:   page,
		loader: b.loader,
		ops:    b.ops,
		next:   task,
	}, nil
}

// loadTask is the root of every composite chain: it decodes the source
// image, seeds the artifact with it and the acceleration hints, and hands
// off to the first stage.
type loadTask struct {
	page   model.PageID
	loader *imaging.Loader
	ops    accel.Ops
	next   stage.Task
}

// Process implements stage.Task.
func (t *loadTask) Process(ctx context.Context, art *Artifact) error {
	img, _, err := t.loader.Load(t.page.Image)
	if err != nil {
		return err
	}

	art.Page = t.page
	art.Image = img
	art.Accel = t.ops

	if t.next == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return t.next.Process(ctx, art)
}

// Artifact aliases the stage package's artifact so Runner callers only
// import pipeline.
type Artifact = stage.Artifact
