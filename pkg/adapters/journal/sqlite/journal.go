package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/aescanero/autocal/pkg/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS passes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT    NOT NULL,
	node        TEXT    NOT NULL,
	status      TEXT    NOT NULL,
	outcome     TEXT    NOT NULL,
	data_path   TEXT    NOT NULL DEFAULT '',
	error       TEXT    NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passes_run ON passes(run_id);
`

// Journal implements ports.Journal on a SQLite database
type Journal struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the journal at path. ":memory:" keeps it in memory.
func Open(path string, logger *zap.Logger) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	logger.Info("journal opened", zap.String("path", path))
	return &Journal{db: db, logger: logger}, nil
}

// Record appends one entry
func (j *Journal) Record(ctx context.Context, entry ports.JournalEntry) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO passes (run_id, node, status, outcome, data_path, error, started_at, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Node, entry.Status, entry.Outcome, entry.DataPath, entry.Error,
		entry.StartedAt.UnixNano(), int64(entry.Duration))
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}
	return nil
}

// List returns the latest entries, newest first
func (j *Journal) List(ctx context.Context, limit int) ([]ports.JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, node, status, outcome, data_path, error, started_at, duration_ns
		 FROM passes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	return scan(rows)
}

// ListRun returns the entries of one run in recording order
func (j *Journal) ListRun(ctx context.Context, runID string) ([]ports.JournalEntry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, node, status, outcome, data_path, error, started_at, duration_ns
		 FROM passes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	return scan(rows)
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

func scan(rows *sql.Rows) ([]ports.JournalEntry, error) {
	defer rows.Close()

	var out []ports.JournalEntry
	for rows.Next() {
		var e ports.JournalEntry
		var started, duration int64
		if err := rows.Scan(&e.RunID, &e.Node, &e.Status, &e.Outcome, &e.DataPath, &e.Error, &started, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.StartedAt = time.Unix(0, started).UTC()
		e.Duration = time.Duration(duration)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return out, nil
}
