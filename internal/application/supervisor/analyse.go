package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/internal/node"
	"github.com/aescanero/autocal/pkg/analysis"
	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/ports"
)

// AllNodes selects every registered node in Reset.
const AllNodes = "all"

// group is one analysed element with the qubits whose data it reads.
type group struct {
	entity domain.Entity
	qubits []string
	fields []string
}

func analysisGroups(spec *node.Spec) ([]group, error) {
	if spec.Measured == node.MeasureCouplers {
		groups := make([]group, 0, len(spec.Couplers))
		for _, c := range spec.Couplers {
			qubits, err := domain.CouplerQubits(c)
			if err != nil {
				return nil, err
			}
			groups = append(groups, group{entity: domain.Coupler(c), qubits: qubits, fields: spec.CouplerFields})
		}
		return groups, nil
	}
	groups := make([]group, 0, len(spec.Qubits))
	for _, q := range spec.Qubits {
		groups = append(groups, group{entity: domain.Transmon(q), qubits: []string{q}, fields: spec.QubitFields})
	}
	return groups, nil
}

// analyse runs the node analysis per element, writes accepted results and
// their status and renders the reports into dir. Rejected elements keep
// unset fields and stay not calibrated.
func (s *Supervisor) analyse(ctx context.Context, spec *node.Spec, ds *dataset.Dataset, dir string) (map[string]map[string]domain.Value, error) {
	groups, err := analysisGroups(spec)
	if err != nil {
		return nil, err
	}

	var report bytes.Buffer
	fmt.Fprintf(&report, "node: %s\n", spec.Name)
	defer func() {
		if dir == "" {
			return
		}
		path := filepath.Join(dir, spec.Name+".txt")
		if werr := os.WriteFile(path, report.Bytes(), 0o644); werr != nil {
			s.logger.Error("failed to write analysis report", zap.String("path", path), zap.Error(werr))
		}
	}()

	values := make(map[string]map[string]domain.Value, len(groups))
	var rejected []error
	for _, g := range groups {
		if len(g.fields) == 0 {
			continue
		}
		sub, err := ds.Subset(g.qubits...)
		if err != nil {
			return values, fmt.Errorf("no data for %s in %s: %w", g.entity.Name, spec.Name, err)
		}
		a, err := spec.Analysis(sub, g.entity.Name, g.fields)
		if err != nil {
			return values, fmt.Errorf("failed to set up analysis of %s for %s: %w", spec.Name, g.entity.Name, err)
		}
		r, err := a.Run()
		if err != nil {
			return values, fmt.Errorf("analysis of %s for %s failed: %w", spec.Name, g.entity.Name, err)
		}
		if len(r.Values) != len(g.fields) {
			return values, fmt.Errorf("analysis of %s for %s returned %d values for %d fields",
				spec.Name, g.entity.Name, len(r.Values), len(g.fields))
		}

		fmt.Fprintf(&report, "\n== %s ==\n", g.entity.Name)
		if err := a.Report(&report); err != nil {
			return values, fmt.Errorf("failed to render report of %s for %s: %w", spec.Name, g.entity.Name, err)
		}

		if err := s.policy.Accept(spec.Name, g.entity.Name, r); err != nil {
			if !errors.Is(err, analysis.ErrRejected) {
				return values, err
			}
			s.metrics.RecordRejection(spec.Name)
			s.logger.Warn("analysis result rejected",
				zap.String("node", spec.Name),
				zap.String("element", g.entity.Name),
				zap.Float64("confidence", r.Confidence))
			if err := s.invalidate(ctx, g.entity, g.fields); err != nil {
				return values, err
			}
			rejected = append(rejected, err)
			continue
		}

		written := make(map[string]domain.Value, len(g.fields))
		for i, field := range g.fields {
			if err := s.store.SetField(ctx, g.entity, field, r.Values[i]); err != nil {
				return values, fmt.Errorf("failed to write %s of %s: %w", field, g.entity, err)
			}
			written[field] = r.Values[i]
		}
		if err := s.store.SetStatus(ctx, g.entity, spec.Name, domain.StatusCalibrated); err != nil {
			return values, fmt.Errorf("failed to mark %s calibrated for %s: %w", g.entity, spec.Name, err)
		}
		values[g.entity.String()] = written

		s.logger.Debug("quantities of interest written",
			zap.String("node", spec.Name),
			zap.String("entity", g.entity.String()),
			zap.Float64("confidence", r.Confidence))
	}

	if len(rejected) > 0 {
		return values, errors.Join(rejected...)
	}
	return values, nil
}

func (s *Supervisor) invalidate(ctx context.Context, e domain.Entity, fields []string) error {
	for _, field := range fields {
		if err := s.store.SetField(ctx, e, field, domain.None()); err != nil {
			return fmt.Errorf("failed to invalidate %s of %s: %w", field, e, err)
		}
	}
	return nil
}

// Reanalyse analyses a saved dataset of name and persists the results
// without touching the hardware.
func (s *Supervisor) Reanalyse(ctx context.Context, runID, name string, run *config.Run, dir string) (NodeResult, error) {
	started := s.now()
	result := NodeResult{Node: name, Status: domain.DataUndefined, StartedAt: started, DataPath: dir}

	err := func() error {
		spec, err := s.createNode(ctx, name, run)
		if err != nil {
			return err
		}
		if err := s.populate(ctx, spec); err != nil {
			return err
		}
		ds, err := dataset.Load(dir)
		if err != nil {
			return err
		}
		if ds.Node != name {
			return fmt.Errorf("dataset in %s belongs to %s, not %s", dir, ds.Node, name)
		}

		s.logger.Info("reanalysing node", zap.String("node", name), zap.String("data_path", dir))
		values, err := s.analyse(ctx, spec, ds, dir)
		result.Values = values
		if err != nil {
			if errors.Is(err, analysis.ErrRejected) {
				result.Outcome = OutcomeRejected
			}
			return err
		}
		result.Outcome = OutcomeCalibrated
		return nil
	}()

	result.Duration = s.now().Sub(started)
	if err != nil {
		if result.Outcome == "" {
			result.Outcome = OutcomeFailed
		}
		result.Error = err.Error()
		s.publish(context.WithoutCancel(ctx), ports.EventNodeFailed, runID, name, map[string]interface{}{
			"outcome": string(result.Outcome),
			"error":   err.Error(),
		})
	} else {
		result.Status = domain.DataInSpec
		s.publish(ctx, ports.EventNodeCalibrated, runID, name, map[string]interface{}{
			"data_path": dir,
			"values":    result.Values,
		})
	}
	s.metrics.RecordNodeCalibrated(name, string(result.Outcome), result.Duration)
	s.record(ctx, runID, result)
	return result, err
}

// Reset unsets the fields of name and marks its entities not calibrated.
// AllNodes resets every registered node that can be built for the run.
func (s *Supervisor) Reset(ctx context.Context, name string, run *config.Run) error {
	names := []string{name}
	if name == AllNodes {
		names = s.factory.Names()
	}

	for _, n := range names {
		spec, err := s.createNode(ctx, n, run)
		if err != nil {
			if name == AllNodes {
				s.logger.Debug("node skipped by reset", zap.String("node", n), zap.Error(err))
				continue
			}
			return err
		}
		for _, e := range spec.Entities() {
			if err := s.invalidate(ctx, e, spec.Fields(e)); err != nil {
				return err
			}
		}
		for _, e := range spec.StatusEntities() {
			if err := s.store.SetStatus(ctx, e, n, domain.StatusNotCalibrated); err != nil {
				return fmt.Errorf("failed to reset status of %s for %s: %w", e, n, err)
			}
		}
		s.logger.Info("node reset", zap.String("node", n))
	}
	return nil
}
