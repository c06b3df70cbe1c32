package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pagetailor/pagetailor/internal/history"
	"github.com/pagetailor/pagetailor/internal/model"
)

// seedRuns records the given results in a fresh history database in dir.
func seedRuns(t *testing.T, dir string, results []*model.RunResult) {
	t.Helper()

	db, err := history.Open(dir, history.DefaultOptions())
	if err != nil {
		t.Fatalf("open history database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close history database: %v", err)
		}
	})

	for i, result := range results {
		if _, err := db.SaveRun(context.Background(), result, "/tmp/out"); err != nil {
			t.Fatalf("save run %d: %v", i, err)
		}
	}
}

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history" {
			t.Errorf("expected use 'history', got %q", cmd.Use)
		}
	})

	t.Run("has limit flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("limit")
		if flag == nil {
			t.Fatal("expected limit flag")
		}
		if flag.Shorthand != "n" {
			t.Errorf("expected shorthand 'n', got %q", flag.Shorthand)
		}
	})

	t.Run("has id and db-dir flags", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("id") == nil {
			t.Error("expected id flag")
		}
		if cmd.Flags().Lookup("db-dir") == nil {
			t.Error("expected db-dir flag")
		}
	})
}

// TestRunHistory tests the history command execution.
func TestRunHistory(t *testing.T) {
	testResult := func(day int, failed int) *model.RunResult {
		result := &model.RunResult{
			StartedAt: time.Date(2026, 8, day, 10, 0, 0, 0, time.UTC),
			Elapsed:   42 * time.Second,
			Processed: 5,
			Failed:    failed,
			State:     model.RunCompleted,
		}
		for i := 0; i < failed; i++ {
			result.PageErrors = append(result.PageErrors, model.PageError{
				Image:   "/scans/broken.png",
				Stage:   "deskew",
				Message: "skew angle out of range",
			})
		}
		return result
	}

	t.Run("fails when no database exists", func(t *testing.T) {
		t.Parallel()

		cmd := NewHistoryCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--db-dir", t.TempDir()})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error when no history database exists")
		}
	})

	t.Run("lists recorded runs", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		seedRuns(t, dir, []*model.RunResult{testResult(1, 0), testResult(2, 0)})

		var stdout bytes.Buffer
		cmd := NewHistoryCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--db-dir", dir})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := stdout.String()
		if !strings.Contains(output, "STARTED") {
			t.Errorf("expected table header, got %q", output)
		}
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 3 {
			t.Errorf("expected header plus 2 rows, got %d lines", len(lines))
		}
		// Newest run first.
		if !strings.Contains(lines[1], "2026-08-02") {
			t.Errorf("expected newest run first, got %q", lines[1])
		}
	})

	t.Run("limits the listing", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		seedRuns(t, dir, []*model.RunResult{testResult(1, 0), testResult(2, 0), testResult(3, 0)})

		var stdout bytes.Buffer
		cmd := NewHistoryCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--db-dir", dir, "-n", "1"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		if len(lines) != 2 {
			t.Errorf("expected header plus 1 row, got %d lines", len(lines))
		}
	})

	t.Run("shows a single run in detail", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		seedRuns(t, dir, []*model.RunResult{testResult(1, 1)})

		var stdout bytes.Buffer
		cmd := NewHistoryCmd()
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--db-dir", dir, "--id", "1"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := stdout.String()
		if !strings.Contains(output, "Run 1") {
			t.Errorf("expected run header, got %q", output)
		}
		if !strings.Contains(output, "broken.png") || !strings.Contains(output, "skew angle out of range") {
			t.Errorf("expected failure detail, got %q", output)
		}
	})

	t.Run("fails for an unknown run id", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		seedRuns(t, dir, []*model.RunResult{testResult(1, 0)})

		cmd := NewHistoryCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--db-dir", dir, "--id", "999"})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error for unknown run id")
		}
	})
}
