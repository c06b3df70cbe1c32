package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/pagetailor/pagetailor/internal/model"
)

// MarkdownWriter outputs run results in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run result in Markdown format.
func (w *MarkdownWriter) Write(result *model.RunResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeCounts(md, result)
	w.writeFailures(md, result)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.RunResult) {
	md.H1("Batch Run Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", result.Elapsed.String()},
			{"Status", w.statusText(result)},
		},
	})
	md.PlainText("")
}

// statusText returns the status cell text based on the run state.
func (w *MarkdownWriter) statusText(result *model.RunResult) string {
	switch {
	case result.State == model.RunAborted:
		return "⚠️ Aborted (partial results)"
	case result.Failed > 0:
		return "❌ Completed with failures"
	default:
		return "✅ Complete"
	}
}

// writeCounts writes the page outcome table and chart.
func (w *MarkdownWriter) writeCounts(md *markdown.Markdown, result *model.RunResult) {
	md.H2("Pages")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"✅ Processed", strconv.Itoa(result.Processed)},
			{"❌ Failed", strconv.Itoa(result.Failed)},
			{"⏭️ Skipped", strconv.Itoa(result.Skipped)},
			{"**Total**", "**" + strconv.Itoa(result.Total()) + "**"},
		},
	})
	md.PlainText("")

	if result.Total() > 0 {
		w.writePieChart(md, result)
	}

	w.writeAlert(md, result)
}

// writePieChart writes a mermaid pie chart of the page outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, result *model.RunResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Outcomes"),
		piechart.WithShowData(true),
	)

	if result.Processed > 0 {
		chart.LabelAndIntValue("Processed", uint64(result.Processed))
	}
	if result.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(result.Failed))
	}
	if result.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(result.Skipped))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.RunResult) {
	switch {
	case result.State == model.RunAborted:
		md.Warningf("The run was cancelled; %d page(s) were never attempted.", result.Skipped)
	case result.Failed > 0:
		md.Cautionf("%d page(s) failed and need attention before the output set is complete.", result.Failed)
	default:
		md.Tip("All pages processed successfully.")
	}
	md.PlainText("")
}

// writeFailures writes the per-page failure table.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, result *model.RunResult) {
	md.H2("Failures")
	md.PlainText("")

	if len(result.PageErrors) == 0 {
		md.PlainText("No page failures.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(result.PageErrors))
	for i, pe := range result.PageErrors {
		stage := pe.Stage
		if stage == "" {
			stage = "-"
		}
		phase := "execution"
		if pe.Construction {
			phase = "construction"
		}
		rows[i] = []string{
			"`" + pe.Image + "`",
			stage,
			phase,
			truncateString(pe.Message, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Image", "Stage", "Phase", "Cause"},
		Rows:   rows,
	})
	md.PlainText("")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
