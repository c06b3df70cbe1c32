package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/pagetailor/pagetailor/internal/preview"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pagetailor"

	// DefaultWorkers is the number of pages processed at once. Sequential
	// processing keeps peak memory to roughly one decoded scan; users with
	// RAM to spare raise it via the --workers flag.
	DefaultWorkers = 1

	// DefaultRecentRuns is how many history entries the history command
	// shows when no limit is given.
	DefaultRecentRuns = 10
)

// Config holds all run options for pagetailor.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The number of options is manageable, and nesting would
// add complexity without significant benefit.
type Config struct {
	// Images is the list of source image paths to process, in document
	// order. Additive with ProjectFile: pages restored from the project
	// come first, then one page per image listed here.
	Images []string

	// ProjectFile is the path to a saved project document to resume.
	ProjectFile string

	// OutputDir is where processed pages are written. Required when
	// processing a plain image list; a project file carries its own.
	OutputDir string

	// EndFilter is the name of the last stage to run ("deskew", "output",
	// ...). Empty means the full pipeline.
	EndFilter string

	// Workers is the number of pages processed concurrently.
	Workers int

	// PreviewCapacity bounds the shared thumbnail cache.
	PreviewCapacity int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// SaveProject, when set, writes the session back to this path after
	// the run so it can be resumed later.
	SaveProject string

	// ConfigFilePath is the path to the defaults file.
	// If empty, the tool searches for .pagetailor in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// Defaults holds the defaults file contents, if one was found.
	Defaults *File

	// DBDir is the directory for the run history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveHistory indicates whether finished runs are recorded in the
	// history database.
	SaveHistory bool
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because several defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Workers:         DefaultWorkers,
		PreviewCapacity: preview.DefaultCapacity,
		DBDir:           XDGDataDir(),
		SaveHistory:     true,
	}
}

// XDGDataDir returns the XDG data directory for pagetailor.
// On Linux: ~/.local/share/pagetailor
// On macOS: ~/Library/Application Support/pagetailor
// On Windows: %LOCALAPPDATA%\pagetailor
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pagetailor.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for pagetailor.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any processing begins.
//
// We chose to return the first error found rather than collecting all
// errors because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Images) == 0 && c.ProjectFile == "" {
		return ErrNoInput
	}

	// A project document carries its own output directory; a plain image
	// list needs one from the flags or the defaults file.
	if c.ProjectFile == "" && c.OutputDir == "" {
		return ErrNoOutputDir
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.PreviewCapacity <= 0 {
		return ErrInvalidPreviewCapacity
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
