package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/application/supervisor"
	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/pkg/ports"
)

var (
	// ErrRunInProgress is returned when a run is submitted while another
	// one still drives the hardware.
	ErrRunInProgress = errors.New("calibration run in progress")
	// ErrRunNotFound is returned for unknown run IDs.
	ErrRunNotFound = errors.New("run not found")
)

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	RunStatusSubmitted RunStatus = "submitted"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Terminal reports whether the run has finished
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// Calibrator calibrates a system for one run
type Calibrator interface {
	CalibrateSystem(ctx context.Context, runID string, run *config.Run) (*supervisor.Report, error)
}

// RunState is a snapshot of a run
type RunState struct {
	ID          string             `json:"id"`
	Target      string             `json:"target"`
	Qubits      []string           `json:"qubits"`
	Couplers    []string           `json:"couplers,omitempty"`
	Status      RunStatus          `json:"status"`
	Error       string             `json:"error,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Report      *supervisor.Report `json:"report,omitempty"`
}

// execution holds state for a single run
type execution struct {
	mu         sync.RWMutex
	state      RunState
	cancelFunc context.CancelFunc
	done       chan struct{}
}

func (e *execution) snapshot() RunState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Manager coordinates calibration runs
type Manager struct {
	calibrator Calibrator
	validator  *Validator
	metrics    ports.MetricsCollector
	logger     *zap.Logger

	// Track runs by ID
	executions sync.Map // map[string]*execution

	mu      sync.Mutex
	current string

	runTimeout time.Duration
	wg         sync.WaitGroup
}

// NewManager creates a new run manager
func NewManager(
	calibrator Calibrator,
	validator *Validator,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	runTimeout time.Duration,
) *Manager {
	return &Manager{
		calibrator: calibrator,
		validator:  validator,
		metrics:    metrics,
		logger:     logger,
		runTimeout: runTimeout,
	}
}

// Submit validates run and starts it in the background. It returns the
// run ID.
func (m *Manager) Submit(run *config.Run) (string, error) {
	if err := m.validator.Validate(run); err != nil {
		m.logger.Error("run validation failed", zap.Error(err))
		return "", fmt.Errorf("validation failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != "" {
		return "", fmt.Errorf("%w: %s", ErrRunInProgress, m.current)
	}

	runID := uuid.New().String()
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.runTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), m.runTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	exec := &execution{
		state: RunState{
			ID:          runID,
			Target:      run.Target,
			Qubits:      run.Qubits,
			Couplers:    run.Couplers,
			Status:      RunStatusSubmitted,
			SubmittedAt: time.Now(),
		},
		cancelFunc: cancel,
		done:       make(chan struct{}),
	}
	m.executions.Store(runID, exec)
	m.current = runID
	m.metrics.SetActiveRuns(1)

	m.logger.Info("run submitted",
		zap.String("run_id", runID),
		zap.String("target", run.Target),
		zap.Strings("qubits", run.Qubits))

	m.wg.Add(1)
	go m.execute(ctx, exec, run)

	return runID, nil
}

// execute drives one run to a terminal state
func (m *Manager) execute(ctx context.Context, exec *execution, run *config.Run) {
	defer m.wg.Done()
	defer close(exec.done)
	defer exec.cancelFunc()

	exec.mu.Lock()
	exec.state.Status = RunStatusRunning
	runID := exec.state.ID
	exec.mu.Unlock()

	report, err := m.calibrator.CalibrateSystem(ctx, runID, run)

	now := time.Now()
	exec.mu.Lock()
	exec.state.Report = report
	exec.state.CompletedAt = &now
	switch {
	case err == nil:
		exec.state.Status = RunStatusCompleted
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		exec.state.Status = RunStatusFailed
		exec.state.Error = fmt.Sprintf("run timeout after %s: %v", m.runTimeout, err)
	case errors.Is(err, context.Canceled):
		exec.state.Status = RunStatusCancelled
		exec.state.Error = err.Error()
	default:
		exec.state.Status = RunStatusFailed
		exec.state.Error = err.Error()
	}
	status := exec.state.Status
	exec.mu.Unlock()

	m.mu.Lock()
	if m.current == runID {
		m.current = ""
	}
	m.mu.Unlock()
	m.metrics.SetActiveRuns(0)

	if status == RunStatusCompleted {
		m.logger.Info("run completed", zap.String("run_id", runID))
	} else {
		m.logger.Warn("run finished without success",
			zap.String("run_id", runID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// Get retrieves the current state of a run
func (m *Manager) Get(runID string) (*RunState, error) {
	val, ok := m.executions.Load(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	state := val.(*execution).snapshot()
	return &state, nil
}

// List returns every known run, newest first
func (m *Manager) List() []RunState {
	var runs []RunState
	m.executions.Range(func(_, value interface{}) bool {
		runs = append(runs, value.(*execution).snapshot())
		return true
	})
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].SubmittedAt.After(runs[j].SubmittedAt)
	})
	return runs
}

// Cancel cancels a running calibration
func (m *Manager) Cancel(runID string) error {
	val, ok := m.executions.Load(runID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	exec := val.(*execution)
	exec.mu.RLock()
	status := exec.state.Status
	exec.mu.RUnlock()
	if status.Terminal() {
		return fmt.Errorf("run already in terminal state: %s", status)
	}

	exec.cancelFunc()
	m.logger.Info("run cancellation requested", zap.String("run_id", runID))
	return nil
}

// Wait blocks until the run has finished or ctx is done
func (m *Manager) Wait(ctx context.Context, runID string) (*RunState, error) {
	val, ok := m.executions.Load(runID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	exec := val.(*execution)
	select {
	case <-exec.done:
		state := exec.snapshot()
		return &state, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown cancels active runs and waits for them to stop
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down run manager")

	m.executions.Range(func(_, value interface{}) bool {
		value.(*execution).cancelFunc()
		return true
	})

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.logger.Info("run manager shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop runs: %w", ctx.Err())
	}
}
