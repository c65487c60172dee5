package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/application/supervisor"
	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/internal/graph"
	metrics "github.com/aescanero/autocal/pkg/adapters/metrics/prometheus"
)

// blockingCalibrator returns when release is closed or ctx is done.
type blockingCalibrator struct {
	mu      sync.Mutex
	release chan struct{}
	err     error
	runs    []string
}

func newBlockingCalibrator() *blockingCalibrator {
	return &blockingCalibrator{release: make(chan struct{})}
}

func (c *blockingCalibrator) CalibrateSystem(ctx context.Context, runID string, run *config.Run) (*supervisor.Report, error) {
	c.mu.Lock()
	c.runs = append(c.runs, runID)
	c.mu.Unlock()

	report := &supervisor.Report{RunID: runID, Target: run.Target}
	select {
	case <-c.release:
		return report, c.err
	case <-ctx.Done():
		return report, ctx.Err()
	}
}

func testDevice() *config.Device {
	return &config.Device{VNA: config.VNA{
		Resonator: map[string]float64{"q06": 6.83e9, "q07": 7.09e9},
		Qubit01:   map[string]float64{"q06": 4.64e9, "q07": 5.06e9},
	}}
}

func newTestManager(cal Calibrator, timeout time.Duration) *Manager {
	return NewManager(cal, NewValidator(graph.Default(), testDevice()),
		metrics.NewCollector(prometheus.NewRegistry()), zap.NewNop(), timeout)
}

func testRun() *config.Run {
	return &config.Run{Target: graph.NodeRabiOscillations, Qubits: []string{"q06", "q07"}}
}

func wait(t *testing.T, m *Manager, id string) *RunState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := m.Wait(ctx, id)
	require.NoError(t, err)
	return state
}

func TestSubmitCompletes(t *testing.T) {
	cal := newBlockingCalibrator()
	m := newTestManager(cal, time.Minute)

	id, err := m.Submit(testRun())
	require.NoError(t, err)

	_, err = m.Submit(testRun())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(cal.release)
	state := wait(t, m, id)
	assert.Equal(t, RunStatusCompleted, state.Status)
	require.NotNil(t, state.Report)
	assert.Equal(t, id, state.Report.RunID)
	assert.NotNil(t, state.CompletedAt)

	second, err := m.Submit(testRun())
	require.NoError(t, err)
	wait(t, m, second)
	assert.Len(t, m.List(), 2)
	assert.Equal(t, second, m.List()[0].ID)
}

func TestCancelRun(t *testing.T) {
	m := newTestManager(newBlockingCalibrator(), time.Minute)

	id, err := m.Submit(testRun())
	require.NoError(t, err)
	require.NoError(t, m.Cancel(id))

	state := wait(t, m, id)
	assert.Equal(t, RunStatusCancelled, state.Status)
	assert.Error(t, m.Cancel(id))
	assert.ErrorIs(t, m.Cancel("missing"), ErrRunNotFound)
}

func TestRunTimeout(t *testing.T) {
	m := newTestManager(newBlockingCalibrator(), 20*time.Millisecond)

	id, err := m.Submit(testRun())
	require.NoError(t, err)
	state := wait(t, m, id)
	assert.Equal(t, RunStatusFailed, state.Status)
	assert.Contains(t, state.Error, "run timeout")
}

func TestFailedRun(t *testing.T) {
	cal := newBlockingCalibrator()
	cal.err = errors.New("analysis failed")
	close(cal.release)
	m := newTestManager(cal, time.Minute)

	id, err := m.Submit(testRun())
	require.NoError(t, err)
	state := wait(t, m, id)
	assert.Equal(t, RunStatusFailed, state.Status)
	assert.Equal(t, "analysis failed", state.Error)
}

func TestSubmitValidates(t *testing.T) {
	m := newTestManager(newBlockingCalibrator(), time.Minute)

	cases := map[string]*config.Run{
		"nil run":         nil,
		"unknown target":  {Target: "nope", Qubits: []string{"q06"}},
		"no qubits":       {Target: graph.NodeRabiOscillations},
		"no seed":         {Target: graph.NodeRabiOscillations, Qubits: []string{"q99"}},
		"coupler no seed": {Target: graph.NodeCouplerSpectroscopy, Qubits: []string{"q06"}, Couplers: []string{"q06_q99"}},
		"override node": {
			Target: graph.NodeRabiOscillations, Qubits: []string{"q06"},
			UserSamplespace: map[string]map[string]map[string][]float64{"nope": {}},
		},
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Submit(run)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, m.List())
}

func TestShutdownCancelsRuns(t *testing.T) {
	m := newTestManager(newBlockingCalibrator(), time.Minute)
	id, err := m.Submit(testRun())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	state, err := m.Get(id)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCancelled, state.Status)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
