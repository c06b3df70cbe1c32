package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pagetailor/pagetailor/internal/model"
	"github.com/pagetailor/pagetailor/internal/stage"
)

// DefaultConcurrency is the number of pages processed at once. Sequential
// processing keeps memory bounded on large batches; callers opt in to
// parallelism explicitly.
const DefaultConcurrency = 1

// ProgressEvent describes one finished page, whatever its outcome.
type ProgressEvent struct {
	// Index is the zero-based position of the page in the batch.
	Index int
	// Total is the number of pages in the batch.
	Total int
	// Page identifies the page that finished.
	Page model.PageID
	// Err is nil when the page completed, non-nil when it failed,
	// and nil for skipped pages as well; see Skipped.
	Err error
	// Skipped reports that the page produced no work at all.
	Skipped bool
}

// ProgressFunc receives a ProgressEvent after each page settles.
type ProgressFunc func(ProgressEvent)

// Runner drives a batch of pages through composite tasks built by a
// Builder. Each page is independent: a failure is recorded and the run
// moves on, so one bad scan never sinks the batch.
type Runner struct {
	builder   *Builder
	registry  *stage.Registry
	lastIndex int
	workers   int
	progress  ProgressFunc
	logger    *slog.Logger

	mu    sync.Mutex
	state model.RunState
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLastStage limits the run to stages [0, index]. Defaults to the full
// pipeline. A negative index makes every page a skip.
func WithLastStage(index int) RunnerOption {
	return func(r *Runner) {
		r.lastIndex = index
	}
}

// WithConcurrency sets how many pages are processed at once. Values below
// one fall back to sequential processing.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n < 1 {
			n = 1
		}
		r.workers = n
	}
}

// WithProgress registers a callback invoked after each page settles.
// The callback may be invoked from multiple goroutines when concurrency
// is above one.
func WithProgress(fn ProgressFunc) RunnerOption {
	return func(r *Runner) {
		r.progress = fn
	}
}

// WithRunnerLogger sets a custom logger for the runner.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner over the builder's stage registry.
func NewRunner(builder *Builder, opts ...RunnerOption) *Runner {
	r := &Runner{
		builder:   builder,
		registry:  builder.registry,
		lastIndex: builder.registry.LastIndex(),
		workers:   DefaultConcurrency,
		logger:    slog.Default(),
		state:     model.RunNotStarted,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State reports the runner's current lifecycle state.
func (r *Runner) State() model.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) setState(s model.RunState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// pageOutcome is the settled result of one page.
type pageOutcome struct {
	skipped bool
	err     error
	pageErr *model.PageError
}

// Run processes every page in order, building and executing one composite
// task per page. Failures are recorded in the result and never abort the
// batch; cancellation marks the remaining pages skipped and the run
// aborted. The returned result is always non-nil.
func (r *Runner) Run(ctx context.Context, pages []model.PageID) *model.RunResult {
	start := time.Now()
	r.setState(model.RunRunning)

	result := &model.RunResult{
		StartedAt: start,
		State:     model.RunRunning,
	}

	outcomes := make([]*pageOutcome, len(pages))
	if r.workers <= 1 {
		r.runSequential(ctx, pages, outcomes)
	} else {
		r.runParallel(ctx, pages, outcomes)
	}

	for _, out := range outcomes {
		switch {
		case out == nil:
			// Never settled: the run was cancelled before this page.
			result.Skipped++
		case out.pageErr != nil:
			result.Failed++
			result.PageErrors = append(result.PageErrors, *out.pageErr)
		case out.skipped:
			result.Skipped++
		default:
			result.Processed++
		}
	}

	result.Elapsed = time.Since(start)
	if ctx.Err() != nil {
		result.State = model.RunAborted
	} else {
		result.State = model.RunCompleted
	}
	r.setState(result.State)

	r.logger.Info("batch finished",
		"processed", result.Processed,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"elapsed", result.Elapsed,
	)
	return result
}

func (r *Runner) runSequential(ctx context.Context, pages []model.PageID, outcomes []*pageOutcome) {
	for i, page := range pages {
		if ctx.Err() != nil {
			return
		}
		outcomes[i] = r.processPage(ctx, page)
		r.report(i, len(pages), page, outcomes[i])
	}
}

func (r *Runner) runParallel(ctx context.Context, pages []model.PageID, outcomes []*pageOutcome) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, page := range pages {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			outcomes[i] = r.processPage(gctx, page)
			r.report(i, len(pages), page, outcomes[i])
			return nil
		})
	}

	// Workers never return errors; Wait only synchronizes.
	_ = g.Wait()
}

// processPage builds and executes the composite task for one page. Every
// failure path yields a settled outcome; cancellation mid-page is recorded
// as a failure on the interrupted stage.
func (r *Runner) processPage(ctx context.Context, page model.PageID) *pageOutcome {
	task, err := r.builder.Build(page, r.lastIndex)
	if err != nil {
		r.logger.Error("task construction failed", "image", page.Image, "error", err)
		return &pageOutcome{err: err, pageErr: r.toPageError(page, err, nil)}
	}
	if task == nil {
		return &pageOutcome{skipped: true}
	}

	art := &Artifact{Page: page}
	if err := task.Process(ctx, art); err != nil {
		perr := &ProcessingError{Page: page, Stage: r.failedStage(art), Err: err}
		r.logger.Error("page processing failed",
			"image", page.Image,
			"stage", perr.Stage,
			"error", err,
		)
		return &pageOutcome{err: perr, pageErr: r.toPageError(page, perr, art)}
	}
	return &pageOutcome{}
}

// toPageError converts a build or processing failure into the serializable
// record kept on the run result.
func (r *Runner) toPageError(page model.PageID, err error, art *Artifact) *model.PageError {
	pe := &model.PageError{
		Page:    page,
		Image:   page.Image,
		SubPage: page.SubPage.String(),
		Message: err.Error(),
	}
	var cerr *ConstructionError
	if errors.As(err, &cerr) {
		pe.Construction = true
		pe.Stage = cerr.Stage
		return pe
	}
	var perr *ProcessingError
	if errors.As(err, &perr) {
		pe.Stage = perr.Stage
		pe.Message = perr.Err.Error()
		return pe
	}
	if art != nil {
		pe.Stage = r.failedStage(art)
	}
	return pe
}

// failedStage names the stage that did not complete. Stages append their
// names to the artifact in execution order, so the first stage missing
// from that trail is the one that failed. An artifact without an image
// never made it past loading, so no stage is named.
func (r *Runner) failedStage(art *Artifact) string {
	if art == nil || art.Image == nil {
		return ""
	}
	idx := len(art.StagesRun)
	if idx > r.lastIndex {
		return ""
	}
	s, err := r.registry.StageAt(idx)
	if err != nil {
		return ""
	}
	return s.Name()
}

func (r *Runner) report(index, total int, page model.PageID, out *pageOutcome) {
	if r.progress == nil {
		return
	}
	r.progress(ProgressEvent{
		Index:   index,
		Total:   total,
		Page:    page,
		Err:     out.err,
		Skipped: out.skipped,
	})
}
