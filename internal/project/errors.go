package project

import "errors"

// Project load errors.
//
// Design decision: We use package-level sentinel errors rather than creating
// new error instances at each failure site. Load failures are fatal and
// user-visible, and the CLI branches on the cause with errors.Is() to decide
// what to print, so the class of failure must survive wrapping.
var (
	// ErrProjectNotFound is returned when the project file does not exist.
	ErrProjectNotFound = errors.New("project file not found")

	// ErrMalformedProject is returned when the project file exists but its
	// structure cannot be parsed.
	ErrMalformedProject = errors.New("malformed project file")

	// ErrMissingOutputDir is returned when the project document carries no
	// output directory. Without it no output stage task can be built, so
	// the whole run is rejected up front.
	ErrMissingOutputDir = errors.New("project file has no output directory")

	// ErrUnsupportedVersion is returned when the project document was
	// written by a newer, incompatible format revision.
	ErrUnsupportedVersion = errors.New("unsupported project file version")
)
