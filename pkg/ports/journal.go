package ports

import (
	"context"
	"time"
)

// JournalEntry is one pass of the supervisor over a node.
type JournalEntry struct {
	RunID     string        `json:"run_id"`
	Node      string        `json:"node"`
	Status    string        `json:"status"`
	Outcome   string        `json:"outcome"`
	DataPath  string        `json:"data_path,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Journal keeps a history of calibration passes.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
	List(ctx context.Context, limit int) ([]JournalEntry, error)
	ListRun(ctx context.Context, runID string) ([]JournalEntry, error)
	Close() error
}
