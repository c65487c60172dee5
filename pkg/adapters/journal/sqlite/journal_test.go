package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/pkg/ports"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	j, err := Open(filepath.Join(t.TempDir(), "journal", "journal.db"), zap.NewNop())
	require.NoError(t, err)
	defer j.Close()

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []ports.JournalEntry{
		{RunID: "r1", Node: "resonator_spectroscopy", Status: "out_of_spec", Outcome: "calibrated", DataPath: "/d/1", StartedAt: start, Duration: time.Second},
		{RunID: "r1", Node: "qubit_01_spectroscopy", Status: "in_spec", Outcome: "in_spec", StartedAt: start.Add(time.Second)},
		{RunID: "r2", Node: "T1", Status: "out_of_spec", Outcome: "failed", Error: "timeout", StartedAt: start.Add(time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, j.Record(ctx, e))
	}

	run, err := j.ListRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, entries[:2], run)

	latest, err := j.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "T1", latest[0].Node)
	assert.Equal(t, "timeout", latest[0].Error)

	none, err := j.ListRun(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryJournal(t *testing.T) {
	ctx := context.Background()
	j, err := Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Record(ctx, ports.JournalEntry{RunID: "r", Node: "tof", Status: "undefined", Outcome: "failed", StartedAt: time.Unix(0, 0).UTC()}))
	all, err := j.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
