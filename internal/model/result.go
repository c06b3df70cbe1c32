package model

import "time"

// RunState tracks the lifecycle of a batch run.
type RunState int

const (
	// RunNotStarted means Run has not been called yet.
	RunNotStarted RunState = iota

	// RunRunning means pages are currently being processed.
	RunRunning

	// RunCompleted means every page was attempted.
	RunCompleted

	// RunAborted means the run was cancelled before all pages were attempted.
	RunAborted
)

// String returns a human-readable representation of the run state.
func (s RunState) String() string {
	switch s {
	case RunNotStarted:
		return "not started"
	case RunRunning:
		return "running"
	case RunCompleted:
		return "completed"
	case RunAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// PageError records the failure of a single page without aborting the batch.
//
// Design decision: we store the rendered message rather than the error value
// itself so the struct serializes cleanly to JSON for reports and the run
// history database. Callers that need to branch on the failure class use
// the Construction flag; everything else is presentation.
type PageError struct {
	// Page identifies the failed page.
	Page PageID `json:"-" yaml:"-"`

	// Image is the page's source image path, kept for serialization.
	Image string `json:"image" yaml:"image"`

	// SubPage is the page's sub-page ("single", "left", "right").
	SubPage string `json:"sub_page,omitempty" yaml:"sub_page,omitempty"`

	// Stage names the stage that failed, empty if the failure happened
	// before any stage ran (for example while loading the source image).
	Stage string `json:"stage,omitempty" yaml:"stage,omitempty"`

	// Construction is true when the page's task chain could not even be
	// built, as opposed to failing during execution.
	Construction bool `json:"construction" yaml:"construction"`

	// Message is the rendered cause of the failure.
	Message string `json:"message" yaml:"message"`
}

// RunResult is the aggregate outcome of one batch run.
// It is returned by the batch runner and consumed by the CLI, the report
// writers, and the run history database.
type RunResult struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`

	// Processed is the number of pages that completed every stage.
	Processed int `json:"processed"`

	// Failed is the number of pages that failed construction or execution.
	Failed int `json:"failed"`

	// Skipped is the number of pages never attempted, either because the
	// run was cancelled or because the requested stage range was empty.
	Skipped int `json:"skipped"`

	// PageErrors holds one entry per failed page, in document order.
	PageErrors []PageError `json:"page_errors,omitempty"`

	// State is the terminal state of the run.
	State RunState `json:"state"`
}

// Incomplete reports whether any page failed or was skipped.
// The caller decides whether incompleteness is a hard error; the batch
// runner itself always returns the result normally.
func (r *RunResult) Incomplete() bool {
	return r.Failed > 0 || r.Skipped > 0 || r.State == RunAborted
}

// Total returns the number of pages the run accounted for.
func (r *RunResult) Total() int {
	return r.Processed + r.Failed + r.Skipped
}
