package log

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// pathKeys contains attribute keys whose values are filesystem paths that
// should be shortened to their base name in normal (non-verbose) output.
var pathKeys = map[string]bool{
	"image":   true,
	"page":    true,
	"path":    true,
	"project": true,
	"output":  true,
	"report":  true,
}

// PathHandler wraps an slog.Handler and shortens filesystem-path attribute
// values to their base name. Full paths are preserved in verbose mode so
// debugging sessions still see exactly which file was touched.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Components receive a plain *slog.Logger and stay unaware of it
type PathHandler struct {
	// handler is the underlying slog handler that receives the records.
	handler slog.Handler

	// full disables shortening, keeping complete paths in output.
	full bool
}

// NewPathHandler wraps an existing handler with path shortening.
// If full is true, paths are passed through unchanged.
func NewPathHandler(handler slog.Handler, full bool) *PathHandler {
	return &PathHandler{handler: handler, full: full}
}

// Enabled reports whether the underlying handler is enabled at the level.
func (h *PathHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle shortens the record's path attributes and passes it on.
func (h *PathHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.full {
		return h.handler.Handle(ctx, r)
	}

	shortened := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		shortened.AddAttrs(h.shortenAttr(a))
		return true
	})

	return h.handler.Handle(ctx, shortened)
}

// WithAttrs returns a new handler with the given attributes added.
// Path attributes are shortened before being added.
func (h *PathHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.full {
		return &PathHandler{handler: h.handler.WithAttrs(attrs), full: true}
	}
	shortened := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		shortened[i] = h.shortenAttr(a)
	}
	return &PathHandler{handler: h.handler.WithAttrs(shortened)}
}

// WithGroup returns a new handler with the given group name.
func (h *PathHandler) WithGroup(name string) slog.Handler {
	return &PathHandler{handler: h.handler.WithGroup(name), full: h.full}
}

// shortenAttr shortens a single attribute, recursively handling groups.
func (h *PathHandler) shortenAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		shortened := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			shortened[i] = h.shortenAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(shortened...)}
	}

	if !pathKeys[strings.ToLower(a.Key)] {
		return a
	}
	if a.Value.Kind() != slog.KindString {
		return a
	}

	value := a.Value.String()
	// Leave non-path values (no separator) alone.
	if !strings.ContainsRune(value, filepath.Separator) {
		return a
	}
	return slog.String(a.Key, filepath.Base(value))
}

// NewLogger creates a *slog.Logger writing human-readable output to w.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug and keeps full paths;
//     otherwise level Warn with shortened paths
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	return slog.New(NewPathHandler(textHandler, verbose))
}

// NewJSONLogger creates a *slog.Logger that outputs JSON format.
// Useful when batch runs feed a log aggregator; paths are kept complete
// because machines, unlike terminals, prefer the full value.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	return slog.New(NewPathHandler(jsonHandler, true))
}
