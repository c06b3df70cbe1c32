package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pagetailor/pagetailor/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because it works in all terminals and pipes cleanly to
// files or other tools.
type SimpleWriter struct {
	baseWriter

	// showErrors controls whether the per-page failure list is printed.
	showErrors bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowErrors controls whether per-page failures are listed.
func WithShowErrors(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showErrors = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showErrors: true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run result in human-readable format.
func (w *SimpleWriter) Write(result *model.RunResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	w.writeCounts(&sb, result)
	if w.showErrors {
		w.writeErrors(&sb, result)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run summary header.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.RunResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("                   BATCH RUN SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Started:  %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Elapsed:  %s\n", result.Elapsed.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Status:   %s", result.State))
	if result.Incomplete() {
		sb.WriteString(" (incomplete)")
	}
	sb.WriteString("\n\n")
}

// writeCounts writes the page outcome counts.
func (w *SimpleWriter) writeCounts(sb *strings.Builder, result *model.RunResult) {
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  PROCESSED: %d\n", result.Processed))
	sb.WriteString(fmt.Sprintf("  FAILED:    %d\n", result.Failed))
	sb.WriteString(fmt.Sprintf("  SKIPPED:   %d\n", result.Skipped))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  TOTAL:     %d pages\n", result.Total()))
	sb.WriteString("\n")
}

// writeErrors writes the per-page failure list.
func (w *SimpleWriter) writeErrors(sb *strings.Builder, result *model.RunResult) {
	if len(result.PageErrors) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n")
	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 60))
	sb.WriteString("\n\n")

	for _, pe := range result.PageErrors {
		sb.WriteString(fmt.Sprintf("  * %s\n", pe.Image))
		if pe.SubPage != "" && pe.SubPage != "single" {
			sb.WriteString(fmt.Sprintf("    Sub-page: %s\n", pe.SubPage))
		}
		if pe.Stage != "" {
			sb.WriteString(fmt.Sprintf("    Stage: %s\n", pe.Stage))
		}
		if pe.Construction {
			sb.WriteString("    Phase: task construction\n")
		}
		sb.WriteString(fmt.Sprintf("    Cause: %s\n", pe.Message))
	}
	sb.WriteString("\n")
}
