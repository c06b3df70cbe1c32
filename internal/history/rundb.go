package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pagetailor/pagetailor/internal/model"
)

// dbFileName is the database file created inside the data directory.
const dbFileName = "pagetailor.db"

// RunDB provides SQLite-based storage for batch run history.
//
// Design decision: We use a single database file in the user's data
// directory rather than one per project. Runs across projects stay
// queryable together, and backup is a single file copy.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB inside dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error
// is returned instead of silently creating an empty history.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("run history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// Path returns the path of the database file.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- One row per batch run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		processed INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		state TEXT NOT NULL,
		output_dir TEXT,
		page_errors TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is one stored batch run.
type RunRecord struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// StartedAt is when the run began.
	StartedAt time.Time

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration

	// Processed, Failed, and Skipped are the page counts of the run.
	Processed int
	Failed    int
	Skipped   int

	// State is the terminal run state ("completed" or "aborted").
	State string

	// OutputDir is where the run wrote its pages.
	OutputDir string

	// PageErrors holds the per-page failures, if any.
	PageErrors []model.PageError
}

// SaveRun stores one finished run and returns its database ID.
func (rdb *RunDB) SaveRun(ctx context.Context, result *model.RunResult, outputDir string) (int64, error) {
	var errorsJSON []byte
	if len(result.PageErrors) > 0 {
		var err error
		errorsJSON, err = json.Marshal(result.PageErrors)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize page errors: %w", err)
		}
	}

	query := `
	INSERT INTO runs (started_at, elapsed_ms, processed, failed, skipped, state, output_dir, page_errors)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := rdb.db.ExecContext(ctx, query,
		result.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		result.Elapsed.Milliseconds(),
		result.Processed,
		result.Failed,
		result.Skipped,
		result.State.String(),
		outputDir,
		string(errorsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	return res.LastInsertId()
}

// RecentRuns returns the most recent runs, newest first.
func (rdb *RunDB) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit < 1 {
		limit = 10
	}

	query := `
	SELECT id, started_at, elapsed_ms, processed, failed, skipped, state, output_dir, page_errors
	FROM runs
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`

	rows, err := rdb.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetRun retrieves one run by its database ID, or nil when it doesn't exist.
func (rdb *RunDB) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	query := `
	SELECT id, started_at, elapsed_ms, processed, failed, skipped, state, output_dir, page_errors
	FROM runs
	WHERE id = ?
	`

	rows, err := rdb.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	record, err := scanRun(rows)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// scanRun reads one runs row.
func scanRun(rows *sql.Rows) (RunRecord, error) {
	var record RunRecord
	var startedAt string
	var elapsedMS int64
	var errorsJSON sql.NullString

	if err := rows.Scan(
		&record.ID,
		&startedAt,
		&elapsedMS,
		&record.Processed,
		&record.Failed,
		&record.Skipped,
		&record.State,
		&record.OutputDir,
		&errorsJSON,
	); err != nil {
		return RunRecord{}, fmt.Errorf("failed to scan run: %w", err)
	}

	record.StartedAt = parseTimestamp(startedAt)
	record.Elapsed = time.Duration(elapsedMS) * time.Millisecond

	if errorsJSON.Valid && errorsJSON.String != "" {
		if err := json.Unmarshal([]byte(errorsJSON.String), &record.PageErrors); err != nil {
			return RunRecord{}, fmt.Errorf("failed to parse page errors: %w", err)
		}
	}

	return record, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending on
// configuration. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
