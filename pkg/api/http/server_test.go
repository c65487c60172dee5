package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/application/orchestrator"
	"github.com/aescanero/autocal/internal/application/supervisor"
	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/internal/graph"
	"github.com/aescanero/autocal/pkg/adapters/journal/sqlite"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/ports"
)

type fakeRuns struct {
	submitted []*config.Run
	submitErr error
	states    map[string]*orchestrator.RunState
	cancelled []string
}

func (f *fakeRuns) Submit(run *config.Run) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, run)
	id := fmt.Sprintf("run-%d", len(f.submitted))
	f.states[id] = &orchestrator.RunState{ID: id, Target: run.Target, Status: orchestrator.RunStatusRunning}
	return id, nil
}

func (f *fakeRuns) Get(id string) (*orchestrator.RunState, error) {
	s, ok := f.states[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", orchestrator.ErrRunNotFound, id)
	}
	return s, nil
}

func (f *fakeRuns) List() []orchestrator.RunState {
	var out []orchestrator.RunState
	for _, s := range f.states {
		out = append(out, *s)
	}
	return out
}

func (f *fakeRuns) Cancel(id string) error {
	s, err := f.Get(id)
	if err != nil {
		return err
	}
	if s.Status.Terminal() {
		return fmt.Errorf("run already in terminal state: %s", s.Status)
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

type fakeInspector struct {
	g *graph.Graph
}

func (f fakeInspector) Order(target string) ([]string, error) {
	return f.g.FilteredTopologicalOrder(target)
}

func (f fakeInspector) NodeStatus(_ context.Context, name string, run *config.Run) (supervisor.NodeStatus, error) {
	if !f.g.Has(name) {
		return supervisor.NodeStatus{}, fmt.Errorf("%w: %s", graph.ErrUnknownNode, name)
	}
	st := supervisor.NodeStatus{Node: name, Status: domain.DataOutOfSpec, Entities: map[string]domain.CalibrationStatus{}}
	for _, q := range run.Qubits {
		st.Entities[q] = domain.StatusNotCalibrated
	}
	return st, nil
}

func newTestServer(t *testing.T) (*Server, *fakeRuns, ports.Journal) {
	t.Helper()
	journal, err := sqlite.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	runs := &fakeRuns{states: map[string]*orchestrator.RunState{}}
	s := NewServer(&Config{
		Addr:      ":0",
		Runs:      runs,
		Inspector: fakeInspector{g: graph.Default()},
		Journal:   journal,
		Gatherer:  prometheus.NewRegistry(),
		Logger:    zap.NewNop(),
	})
	return s, runs, journal
}

func do(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := do(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/metrics", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(s, http.MethodOptions, "/api/v1/runs", nil).Code)
}

func TestSubmitRun(t *testing.T) {
	s, runs, _ := newTestServer(t)

	w := do(s, http.MethodPost, "/api/v1/runs", map[string]interface{}{
		"target_node":     graph.NodeRabiOscillations,
		"qubits":          []string{"q06"},
		"node_dictionary": map[string]float64{"loop_repetitions": 3},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "run-1", decode(t, w)["run_id"])
	require.Len(t, runs.submitted, 1)
	assert.Equal(t, 3.0, runs.submitted[0].NodeDictionary["loop_repetitions"])

	w = do(s, http.MethodPost, "/api/v1/runs", map[string]interface{}{"qubits": []string{"q06"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	runs.submitErr = fmt.Errorf("%w: run-1", orchestrator.ErrRunInProgress)
	w = do(s, http.MethodPost, "/api/v1/runs", map[string]interface{}{
		"target_node": graph.NodeRabiOscillations, "qubits": []string{"q06"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	runs.submitErr = fmt.Errorf("validation failed: bad qubit")
	w = do(s, http.MethodPost, "/api/v1/runs", map[string]interface{}{
		"target_node": graph.NodeRabiOscillations, "qubits": []string{"q_6"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRunQueriesAndCancel(t *testing.T) {
	s, runs, _ := newTestServer(t)
	runs.states["done"] = &orchestrator.RunState{ID: "done", Status: orchestrator.RunStatusCompleted}
	runs.states["live"] = &orchestrator.RunState{ID: "live", Status: orchestrator.RunStatusRunning}

	w := do(s, http.MethodGet, "/api/v1/runs/live", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "running", decode(t, w)["status"])

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/v1/runs/missing", nil).Code)
	assert.EqualValues(t, 2, decode(t, do(s, http.MethodGet, "/api/v1/runs", nil))["total"])

	assert.Equal(t, http.StatusAccepted, do(s, http.MethodPost, "/api/v1/runs/live/cancel", nil).Code)
	assert.Equal(t, []string{"live"}, runs.cancelled)
	assert.Equal(t, http.StatusConflict, do(s, http.MethodPost, "/api/v1/runs/done/cancel", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodPost, "/api/v1/runs/missing/cancel", nil).Code)
}

func TestJournalEndpoints(t *testing.T) {
	s, _, journal := newTestServer(t)
	ctx := context.Background()
	for i, n := range []string{graph.NodeResonatorSpectroscopy, graph.NodeQubit01Spectroscopy} {
		require.NoError(t, journal.Record(ctx, ports.JournalEntry{
			RunID:     "r1",
			Node:      n,
			Status:    string(domain.DataOutOfSpec),
			Outcome:   string(supervisor.OutcomeCalibrated),
			StartedAt: time.Unix(int64(1000+i), 0),
			Duration:  time.Second,
		}))
	}

	body := decode(t, do(s, http.MethodGet, "/api/v1/runs/r1/journal", nil))
	assert.EqualValues(t, 2, body["total"])

	body = decode(t, do(s, http.MethodGet, "/api/v1/journal?limit=1", nil))
	assert.EqualValues(t, 1, body["total"])

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/v1/journal?limit=zero", nil).Code)
}

func TestOrderAndNodeStatus(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := do(s, http.MethodGet, "/api/v1/order/"+graph.NodeRabiOscillations, nil)
	require.Equal(t, http.StatusOK, w.Code)
	order := decode(t, w)["order"].([]interface{})
	assert.Equal(t, graph.NodeRabiOscillations, order[len(order)-1])

	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/v1/order/nope", nil).Code)

	w = do(s, http.MethodGet, "/api/v1/nodes/"+graph.NodeRabiOscillations+"/status?qubits=q06,q07", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status supervisor.NodeStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, domain.DataOutOfSpec, status.Status)
	assert.Len(t, status.Entities, 2)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/v1/nodes/"+graph.NodeRabiOscillations+"/status", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/v1/nodes/nope/status?qubits=q06", nil).Code)
}
