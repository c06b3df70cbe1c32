package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagetailor/pagetailor/internal/config"
	"github.com/pagetailor/pagetailor/internal/history"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent batch runs",
		Long: `List recent batch runs recorded in the run history database.

Use --id to show one run in detail, including its page failures.`,
		RunE: runHistory,
	}

	cmd.Flags().IntP("limit", "n", config.DefaultRecentRuns, "Maximum number of runs to list")
	cmd.Flags().Int64("id", 0, "Show a single run in detail")
	cmd.Flags().String("db-dir", "", "Directory holding the run history database (default: XDG data dir)")

	return cmd
}

// runHistory executes the history command.
func runHistory(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("failed to get limit flag: %w", err)
	}
	runID, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return fmt.Errorf("failed to get id flag: %w", err)
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return fmt.Errorf("failed to get db-dir flag: %w", err)
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Listing must not create an empty database.
	db, err := history.Open(dbDir, history.Options{CreateIfNotExists: false})
	if err != nil {
		return fmt.Errorf("no run history yet: %w", err)
	}
	defer db.Close() //nolint:errcheck // Best effort close

	if runID != 0 {
		return showRun(cmd, db, runID)
	}
	return listRuns(cmd, db, limit)
}

// listRuns prints a table of the most recent runs, newest first.
func listRuns(cmd *cobra.Command, db *history.RunDB, limit int) error {
	records, err := db.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tELAPSED\tOK\tFAILED\tSKIPPED\tSTATE\tOUTPUT")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Elapsed.Round(time.Second),
			r.Processed,
			r.Failed,
			r.Skipped,
			r.State,
			r.OutputDir,
		)
	}
	return w.Flush()
}

// showRun prints one run in detail, including per-page failures.
func showRun(cmd *cobra.Command, db *history.RunDB, id int64) error {
	record, err := db.GetRun(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to load run %d: %w", id, err)
	}
	if record == nil {
		return fmt.Errorf("run %d not found", id)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %d\n", record.ID)
	fmt.Fprintf(out, "  Started:   %s\n", record.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Elapsed:   %s\n", record.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "  State:     %s\n", record.State)
	fmt.Fprintf(out, "  Output:    %s\n", record.OutputDir)
	fmt.Fprintf(out, "  Pages:     %d processed, %d failed, %d skipped\n",
		record.Processed, record.Failed, record.Skipped)

	if len(record.PageErrors) == 0 {
		return nil
	}
	fmt.Fprintln(out, "  Failures:")
	for _, pe := range record.PageErrors {
		fmt.Fprintf(out, "    %s", pe.Image)
		if pe.SubPage != "" {
			fmt.Fprintf(out, " (%s)", pe.SubPage)
		}
		if pe.Stage != "" {
			fmt.Fprintf(out, " at %s", pe.Stage)
		}
		fmt.Fprintf(out, ": %s\n", pe.Message)
	}
	return nil
}
