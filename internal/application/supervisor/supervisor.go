package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/internal/graph"
	"github.com/aescanero/autocal/internal/node"
	"github.com/aescanero/autocal/pkg/analysis"
	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/ports"
)

// Measurer produces the configured dataset of a node.
type Measurer interface {
	Measure(ctx context.Context, spec *node.Spec) (*dataset.Dataset, error)
}

// Options tunes a Supervisor.
type Options struct {
	// DataDir is the root of the measurement directories.
	DataDir string
	// Policy decides whether an analysis result is written back. Nil
	// accepts every complete result.
	Policy analysis.Policy
}

// Supervisor walks the calibration graph
type Supervisor struct {
	graph    *graph.Graph
	factory  *node.Factory
	measurer Measurer
	store    ports.ParameterStore
	device   *config.Device
	eventBus ports.EventBus
	metrics  ports.MetricsCollector
	journal  ports.Journal
	logger   *zap.Logger

	dataDir string
	policy  analysis.Policy
	now     func() time.Time
}

// NewSupervisor creates a supervisor
func NewSupervisor(
	g *graph.Graph,
	factory *node.Factory,
	measurer Measurer,
	store ports.ParameterStore,
	device *config.Device,
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	journal ports.Journal,
	logger *zap.Logger,
	opts Options,
) *Supervisor {
	policy := opts.Policy
	if policy == nil {
		policy = analysis.AcceptAll()
	}
	return &Supervisor{
		graph:    g,
		factory:  factory,
		measurer: measurer,
		store:    store,
		device:   device,
		eventBus: eventBus,
		metrics:  metrics,
		journal:  journal,
		logger:   logger,
		dataDir:  opts.DataDir,
		policy:   policy,
		now:      time.Now,
	}
}

// Order returns the nodes a calibration of target walks through.
func (s *Supervisor) Order(target string) ([]string, error) {
	return s.graph.FilteredTopologicalOrder(target)
}

// CalibrateSystem calibrates every node leading to the run target. The
// returned report covers the nodes visited before any failure.
func (s *Supervisor) CalibrateSystem(ctx context.Context, runID string, run *config.Run) (*Report, error) {
	if runID == "" {
		runID = uuid.New().String()
	}
	report := &Report{RunID: runID, Target: run.Target, StartedAt: s.now()}

	order, err := s.Order(run.Target)
	if err != nil {
		return report, fmt.Errorf("failed to resolve calibration order: %w", err)
	}
	report.Order = order

	s.logger.Info("calibration run started",
		zap.String("run_id", runID),
		zap.String("target", run.Target),
		zap.Strings("order", order))
	s.publish(ctx, ports.EventRunStarted, runID, "", map[string]interface{}{
		"target": run.Target,
		"order":  order,
		"qubits": run.Qubits,
	})

	if err := s.initialize(ctx, run, order); err != nil {
		return s.finish(ctx, report, err)
	}

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return s.finish(ctx, report, fmt.Errorf("calibration run interrupted before %s: %w", name, err))
		}
		result, err := s.CalibrateNode(ctx, runID, name, run)
		report.Nodes = append(report.Nodes, result)
		if err != nil {
			return s.finish(ctx, report, err)
		}
	}
	return s.finish(ctx, report, nil)
}

func (s *Supervisor) finish(ctx context.Context, report *Report, err error) (*Report, error) {
	report.CompletedAt = s.now()
	data := map[string]interface{}{
		"target":   report.Target,
		"nodes":    len(report.Nodes),
		"duration": report.CompletedAt.Sub(report.StartedAt).String(),
	}

	switch {
	case err == nil:
		s.logger.Info("calibration run completed",
			zap.String("run_id", report.RunID),
			zap.Duration("duration", report.CompletedAt.Sub(report.StartedAt)))
		s.publish(ctx, ports.EventRunCompleted, report.RunID, "", data)
	case errors.Is(err, context.Canceled):
		s.logger.Warn("calibration run cancelled", zap.String("run_id", report.RunID), zap.Error(err))
		s.publish(context.WithoutCancel(ctx), ports.EventRunCancelled, report.RunID, "", data)
	default:
		s.logger.Error("calibration run failed", zap.String("run_id", report.RunID), zap.Error(err))
		data["error"] = err.Error()
		s.publish(context.WithoutCancel(ctx), ports.EventRunFailed, report.RunID, "", data)
	}
	return report, err
}

// initialize writes the device initials and makes sure every node of the
// order has a status for each element of the run.
func (s *Supervisor) initialize(ctx context.Context, run *config.Run, order []string) error {
	for _, e := range runEntities(run) {
		initials := s.initialValues(e)
		for _, field := range sortedFields(initials) {
			if err := s.store.SetField(ctx, e, field, domain.Some(initials[field])); err != nil {
				return fmt.Errorf("failed to write initial %s of %s: %w", field, e, err)
			}
		}
		for _, name := range order {
			if err := s.store.PopulateStatusIfAbsent(ctx, e, name); err != nil {
				return fmt.Errorf("failed to populate status of %s for %s: %w", e, name, err)
			}
		}
	}
	return nil
}

func (s *Supervisor) initialValues(e domain.Entity) map[string]float64 {
	if e.Kind == domain.EntityCoupler {
		return s.device.Initials.CouplerValues(e.Name)
	}
	return s.device.Initials.QubitValues(e.Name)
}

// createNode instantiates name for the run scope with its overrides.
func (s *Supervisor) createNode(ctx context.Context, name string, run *config.Run) (*node.Spec, error) {
	if !s.graph.Has(name) {
		return nil, fmt.Errorf("%w: %s", graph.ErrUnknownNode, name)
	}
	spec, err := s.factory.Create(ctx, name, node.Scope{
		Qubits:   run.Qubits,
		Couplers: run.Couplers,
		Options:  run.NodeDictionary,
	})
	if err != nil {
		return nil, err
	}
	if overrides, ok := run.UserSamplespace[name]; ok {
		if err := spec.ApplyOverrides(overrides); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

// populate writes the defaults of the node fields that do not exist yet.
// Values from the device qoi table win over unset.
func (s *Supervisor) populate(ctx context.Context, spec *node.Spec) error {
	qoi := s.device.QOI[spec.Name]
	for _, e := range spec.Entities() {
		fields := spec.Fields(e)
		if len(fields) == 0 {
			continue
		}
		defaults := qoi.QubitValues(e.Name)
		if e.Kind == domain.EntityCoupler {
			defaults = qoi.CouplerValues(e.Name)
		}
		values := make(map[string]domain.Value, len(fields))
		for _, f := range fields {
			values[f] = domain.None()
			if v, ok := defaults[f]; ok {
				values[f] = domain.Some(v)
			}
		}
		if err := s.store.PopulateIfAbsent(ctx, e, values); err != nil {
			return fmt.Errorf("failed to populate %s defaults of %s: %w", spec.Name, e, err)
		}
	}
	for _, e := range spec.StatusEntities() {
		if err := s.store.PopulateStatusIfAbsent(ctx, e, spec.Name); err != nil {
			return fmt.Errorf("failed to populate status of %s for %s: %w", e, spec.Name, err)
		}
	}
	return nil
}

// inspect aggregates the calibration status of the tracked entities.
func (s *Supervisor) inspect(ctx context.Context, spec *node.Spec) (NodeStatus, error) {
	status := NodeStatus{Node: spec.Name, Entities: make(map[string]domain.CalibrationStatus)}
	var statuses []domain.CalibrationStatus
	for _, e := range spec.StatusEntities() {
		st, err := s.store.GetStatus(ctx, e, spec.Name)
		if errors.Is(err, ports.ErrStatusMissing) {
			st = domain.StatusNotCalibrated
		} else if err != nil {
			return status, fmt.Errorf("failed to read status of %s for %s: %w", e, spec.Name, err)
		}
		status.Entities[e.Name] = st
		statuses = append(statuses, st)
	}
	status.Status = domain.AggregateStatus(statuses)
	return status, nil
}

// InspectNode populates the defaults of name and returns its status.
func (s *Supervisor) InspectNode(ctx context.Context, name string, run *config.Run) (NodeStatus, error) {
	spec, err := s.createNode(ctx, name, run)
	if err != nil {
		return NodeStatus{Node: name}, err
	}
	if err := s.populate(ctx, spec); err != nil {
		return NodeStatus{Node: name}, err
	}
	status, err := s.inspect(ctx, spec)
	if err != nil {
		return status, err
	}
	s.metrics.RecordNodeInspected(string(status.Status))
	return status, nil
}

// NodeStatus returns the status of name without writing to the store.
func (s *Supervisor) NodeStatus(ctx context.Context, name string, run *config.Run) (NodeStatus, error) {
	spec, err := s.createNode(ctx, name, run)
	if err != nil {
		return NodeStatus{Node: name}, err
	}
	return s.inspect(ctx, spec)
}

// CalibrateNode makes one pass over name: an in spec node is skipped, an
// out of spec node is measured, analysed and persisted.
func (s *Supervisor) CalibrateNode(ctx context.Context, runID, name string, run *config.Run) (NodeResult, error) {
	started := s.now()
	result := NodeResult{Node: name, Status: domain.DataUndefined, StartedAt: started}

	result, err := s.calibrateNode(ctx, runID, name, run, result)
	result.Duration = s.now().Sub(started)
	if err != nil {
		if result.Outcome == "" {
			result.Outcome = OutcomeFailed
		}
		result.Error = err.Error()
		s.logger.Error("node calibration failed",
			zap.String("run_id", runID),
			zap.String("node", name),
			zap.String("outcome", string(result.Outcome)),
			zap.Error(err))
		s.publish(context.WithoutCancel(ctx), ports.EventNodeFailed, runID, name, map[string]interface{}{
			"outcome": string(result.Outcome),
			"error":   err.Error(),
		})
	}
	if result.Outcome != OutcomeInSpec {
		s.metrics.RecordNodeCalibrated(name, string(result.Outcome), result.Duration)
	}
	s.record(ctx, runID, result)
	return result, err
}

func (s *Supervisor) calibrateNode(ctx context.Context, runID, name string, run *config.Run, result NodeResult) (NodeResult, error) {
	spec, err := s.createNode(ctx, name, run)
	if err != nil {
		return result, err
	}
	if err := s.populate(ctx, spec); err != nil {
		return result, err
	}

	status, err := s.inspect(ctx, spec)
	if err != nil {
		return result, err
	}
	result.Status = status.Status
	s.metrics.RecordNodeInspected(string(status.Status))
	s.publish(ctx, ports.EventNodeInspected, runID, name, map[string]interface{}{
		"status":   string(status.Status),
		"entities": status.Entities,
	})

	if status.Status == domain.DataInSpec {
		s.logger.Info("node in spec", zap.String("run_id", runID), zap.String("node", name))
		result.Outcome = OutcomeInSpec
		return result, nil
	}

	s.logger.Info("calibrating node",
		zap.String("run_id", runID),
		zap.String("node", name),
		zap.Strings("qubits", spec.Qubits),
		zap.Strings("couplers", spec.Couplers))
	s.publish(ctx, ports.EventNodeCalibrating, runID, name, nil)

	if err := s.writeStatics(ctx, spec); err != nil {
		return result, err
	}
	if spec.Backup {
		if err := s.backup(ctx, spec); err != nil {
			return result, err
		}
	}

	ds, err := s.measurer.Measure(ctx, spec)
	if err != nil {
		return result, fmt.Errorf("failed to measure %s: %w", name, err)
	}
	ds.Attrs["run_id"] = runID

	dir := dataset.NewDataPath(s.dataDir, name, s.now(), uuid.New())
	if _, err := dataset.Save(dir, ds); err != nil {
		return result, err
	}
	result.DataPath = dir

	values, err := s.analyse(ctx, spec, ds, dir)
	result.Values = values
	if err != nil {
		if errors.Is(err, analysis.ErrRejected) {
			result.Outcome = OutcomeRejected
		}
		return result, err
	}

	result.Outcome = OutcomeCalibrated
	s.logger.Info("node calibrated",
		zap.String("run_id", runID),
		zap.String("node", name),
		zap.String("data_path", dir))
	s.publish(ctx, ports.EventNodeCalibrated, runID, name, map[string]interface{}{
		"data_path": dir,
		"values":    values,
	})
	return result, nil
}

// writeStatics writes the node specific device parameters.
func (s *Supervisor) writeStatics(ctx context.Context, spec *node.Spec) error {
	statics, ok := s.device.Nodes[spec.Name]
	if !ok {
		return nil
	}
	for _, e := range spec.Entities() {
		values := statics.QubitValues(e.Name)
		if e.Kind == domain.EntityCoupler {
			values = statics.CouplerValues(e.Name)
		}
		for _, field := range sortedFields(values) {
			if err := s.store.SetField(ctx, e, field, domain.Some(values[field])); err != nil {
				return fmt.Errorf("failed to write %s static %s of %s: %w", spec.Name, field, e, err)
			}
		}
	}
	return nil
}

// backup copies each existing target field to its backup and invalidates
// the live value.
func (s *Supervisor) backup(ctx context.Context, spec *node.Spec) error {
	for _, e := range spec.Entities() {
		for _, field := range spec.Fields(e) {
			exists, err := s.store.FieldExists(ctx, e, field)
			if err != nil {
				return fmt.Errorf("failed to check %s of %s: %w", field, e, err)
			}
			if !exists {
				continue
			}
			v, err := s.store.GetField(ctx, e, field)
			if err != nil {
				return fmt.Errorf("failed to read %s of %s: %w", field, e, err)
			}
			if err := s.store.SetField(ctx, e, domain.BackupField(field), v); err != nil {
				return fmt.Errorf("failed to back up %s of %s: %w", field, e, err)
			}
			if err := s.store.SetField(ctx, e, field, domain.None()); err != nil {
				return fmt.Errorf("failed to invalidate %s of %s: %w", field, e, err)
			}
			s.logger.Debug("field backed up",
				zap.String("node", spec.Name),
				zap.String("entity", e.String()),
				zap.String("field", field),
				zap.String("value", v.String()))
		}
	}
	return nil
}

func (s *Supervisor) record(ctx context.Context, runID string, r NodeResult) {
	entry := ports.JournalEntry{
		RunID:     runID,
		Node:      r.Node,
		Status:    string(r.Status),
		Outcome:   string(r.Outcome),
		DataPath:  r.DataPath,
		Error:     r.Error,
		StartedAt: r.StartedAt,
		Duration:  r.Duration,
	}
	if err := s.journal.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("failed to record journal entry",
			zap.String("run_id", runID),
			zap.String("node", r.Node),
			zap.Error(err))
	}
}

func (s *Supervisor) publish(ctx context.Context, t ports.EventType, runID, nodeName string, data map[string]interface{}) {
	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: s.now(),
		RunID:     runID,
		Node:      nodeName,
		Data:      data,
	}
	if err := s.eventBus.Publish(ctx, ports.TopicCalibration, event); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("run_id", runID),
			zap.String("type", string(t)),
			zap.Error(err))
	}
}

func runEntities(run *config.Run) []domain.Entity {
	out := make([]domain.Entity, 0, len(run.Qubits)+len(run.Couplers))
	for _, q := range run.Qubits {
		out = append(out, domain.Transmon(q))
	}
	for _, c := range run.Couplers {
		out = append(out, domain.Coupler(c))
	}
	return out
}

func sortedFields(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
