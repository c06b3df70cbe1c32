package pipeline

import (
	"fmt"

	"github.com/pagetailor/pagetailor/internal/model"
)

// ConstructionError reports that a page's task chain could not be built,
// for example because the source image is missing. It is non-fatal to the
// batch and is recorded per page.
type ConstructionError struct {
	// Page is the page whose chain failed to build.
	Page model.PageID

	// Stage names the stage whose constructor failed; empty when the
	// failure happened in the load wrapper before any stage.
	Stage string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("building tasks for %s: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("building %s task for %s: %v", e.Stage, e.Page, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ConstructionError) Unwrap() error { return e.Err }

// ProcessingError reports that a page's chain executed but a stage failed,
// for example because the output file could not be written. It is
// non-fatal to the batch and is recorded per page.
type ProcessingError struct {
	// Page is the page that failed.
	Page model.PageID

	// Stage names the last stage that started before the failure.
	Stage string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("processing %s: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("processing %s at stage %s: %v", e.Page, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProcessingError) Unwrap() error { return e.Err }
