package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoInput is returned when neither source images nor a project file
	// is specified. Without input there is nothing to process.
	ErrNoInput = errors.New("no input specified: provide image paths or use --project")

	// ErrNoOutputDir is returned when images are given without an output
	// directory. A project file carries its own output directory; a plain
	// image list does not.
	ErrNoOutputDir = errors.New("no output directory: use --output-dir or load a project")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	// Zero workers would mean no page is ever processed.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidPreviewCapacity is returned when the preview cache capacity
	// is not positive. An unbounded or empty cache is never what the user
	// wants.
	ErrInvalidPreviewCapacity = errors.New("invalid preview capacity: must be positive")
)
