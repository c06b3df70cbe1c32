package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestPathHandler_ShortensPathAttributes tests base-name shortening.
func TestPathHandler_ShortensPathAttributes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		key       string
		value     string
		wantShort bool
	}{
		{
			name:      "image path is shortened",
			key:       "image",
			value:     "/home/user/scans/book/0001.tif",
			wantShort: true,
		},
		{
			name:      "project path is shortened",
			key:       "project",
			value:     "/home/user/book.pagetailor",
			wantShort: true,
		},
		{
			name:      "Image key (uppercase) is shortened",
			key:       "Image",
			value:     "/scans/0001.tif",
			wantShort: true,
		},
		{
			name:      "stage attribute is untouched",
			key:       "stage",
			value:     "deskew",
			wantShort: false,
		},
		{
			name:      "bare file name is untouched",
			key:       "image",
			value:     "0001.tif",
			wantShort: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			handler := NewPathHandler(slog.NewTextHandler(&buf, nil), false)
			logger := slog.New(handler)

			logger.Info("test", tt.key, tt.value)

			output := buf.String()
			if tt.wantShort {
				if strings.Contains(output, tt.value) {
					t.Errorf("output still contains full path: %s", output)
				}
				if !strings.Contains(output, "0001.tif") && !strings.Contains(output, "book.pagetailor") {
					t.Errorf("output lacks the base name: %s", output)
				}
			} else {
				if !strings.Contains(output, tt.value) {
					t.Errorf("output should contain %q unchanged: %s", tt.value, output)
				}
			}
		})
	}
}

// TestPathHandler_FullMode tests that verbose mode keeps full paths.
func TestPathHandler_FullMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := NewPathHandler(slog.NewTextHandler(&buf, nil), true)
	logger := slog.New(handler)

	logger.Info("test", "image", "/home/user/scans/0001.tif")

	if !strings.Contains(buf.String(), "/home/user/scans/0001.tif") {
		t.Errorf("full mode should keep the complete path: %s", buf.String())
	}
}

// TestPathHandler_WithAttrs tests shortening of pre-bound attributes.
func TestPathHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := NewPathHandler(slog.NewTextHandler(&buf, nil), false)
	logger := slog.New(handler).With("project", "/deep/dir/book.pagetailor")

	logger.Info("test")

	output := buf.String()
	if strings.Contains(output, "/deep/dir/") {
		t.Errorf("bound attribute was not shortened: %s", output)
	}
	if !strings.Contains(output, "book.pagetailor") {
		t.Errorf("bound attribute base name missing: %s", output)
	}
}

// TestPathHandler_Groups tests recursion into attribute groups.
func TestPathHandler_Groups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := NewPathHandler(slog.NewTextHandler(&buf, nil), false)
	logger := slog.New(handler)

	logger.Info("test", slog.Group("page",
		slog.String("image", "/scans/book/0002.tif"),
		slog.String("stage", "output"),
	))

	output := buf.String()
	if strings.Contains(output, "/scans/book/") {
		t.Errorf("grouped path attribute was not shortened: %s", output)
	}
	if !strings.Contains(output, "stage=output") {
		t.Errorf("non-path group member changed: %s", output)
	}
}

// TestNewLogger tests level selection.
func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("default level suppresses info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, false)
		logger.Info("should not appear")
		if buf.Len() != 0 {
			t.Errorf("info logged at default level: %s", buf.String())
		}
	})

	t.Run("verbose enables debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, true)
		logger.Debug("should appear")
		if buf.Len() == 0 {
			t.Error("debug suppressed in verbose mode")
		}
	})
}
