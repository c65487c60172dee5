package node

import (
	"context"
	"fmt"
	"sort"

	"github.com/aescanero/autocal/pkg/analysis"
	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/measurement"
	"github.com/aescanero/autocal/pkg/samplespace"
)

// Sweep tells the executor how to walk the external samplespace.
type Sweep string

const (
	// SimpleSweep compiles once and re-executes per external value.
	SimpleSweep Sweep = "simple_sweep"
	// ParameterizedSweep recompiles the schedule per external value.
	ParameterizedSweep Sweep = "parameterized_sweep"
)

// Measured selects the elements whose status decides the node state.
type Measured string

const (
	MeasureQubits   Measured = "qubits"
	MeasureCouplers Measured = "couplers"
)

// Spec is one calibration node instantiated for a scope.
type Spec struct {
	Name       string
	Qubits     []string
	Couplers   []string
	QubitState int
	Measured   Measured

	// QubitFields are written to every qubit, CouplerFields to every coupler.
	QubitFields   []string
	CouplerFields []string

	Schedule *samplespace.Samplespace
	External *samplespace.Samplespace
	Keywords map[string]float64

	Loops         int
	Backup        bool
	Sweep         Sweep
	Order         dataset.FlattenOrder
	Reshuffle     *dataset.ReshuffleAxes
	StateChannels int

	Measurement measurement.Builder
	Analysis    analysis.Factory

	InitialOperation func(ctx context.Context) error
	PreMeasurement   func(ctx context.Context, reduced *samplespace.Samplespace) error
	FinalOperation   func(ctx context.Context) error
}

// TargetFields returns the qubit fields followed by the coupler fields.
func (s *Spec) TargetFields() []string {
	out := make([]string, 0, len(s.QubitFields)+len(s.CouplerFields))
	out = append(out, s.QubitFields...)
	return append(out, s.CouplerFields...)
}

// Fields returns the fields the node writes on entity.
func (s *Spec) Fields(entity domain.Entity) []string {
	if entity.Kind == domain.EntityCoupler {
		return s.CouplerFields
	}
	return s.QubitFields
}

// Entities returns every qubit and coupler in scope.
func (s *Spec) Entities() []domain.Entity {
	out := make([]domain.Entity, 0, len(s.Qubits)+len(s.Couplers))
	for _, q := range s.Qubits {
		out = append(out, domain.Transmon(q))
	}
	for _, c := range s.Couplers {
		out = append(out, domain.Coupler(c))
	}
	return out
}

// StatusEntities returns the elements whose calibration status is tracked.
func (s *Spec) StatusEntities() []domain.Entity {
	if s.Measured == MeasureCouplers {
		out := make([]domain.Entity, len(s.Couplers))
		for i, c := range s.Couplers {
			out[i] = domain.Coupler(c)
		}
		return out
	}
	out := make([]domain.Entity, len(s.Qubits))
	for i, q := range s.Qubits {
		out[i] = domain.Transmon(q)
	}
	return out
}

// Layout describes the acquisitions of one iteration. reduced is the
// external samplespace reduced to the iteration's point, or nil.
func (s *Spec) Layout(reduced *samplespace.Samplespace) dataset.Layout {
	return dataset.Layout{
		Node:          s.Name,
		Qubits:        s.Qubits,
		Schedule:      s.Schedule,
		External:      reduced,
		Loops:         s.Loops,
		Order:         s.Order,
		Reshuffle:     s.Reshuffle,
		StateChannels: s.StateChannels,
	}
}

// Dimensions returns the length of each schedule quantity for one element,
// in declaration order, followed by the loop count when there is one.
func (s *Spec) Dimensions() ([]int, error) {
	return s.Layout(nil).Dimensions()
}

// Axes returns the axes of a configured variable.
func (s *Spec) Axes() ([]dataset.Axis, error) {
	return s.Layout(nil).Axes()
}

// ApplyOverrides replaces swept quantities with user supplied values. Each
// quantity must exist in the schedule or external samplespace.
func (s *Spec) ApplyOverrides(overrides map[string]map[string][]float64) error {
	quantities := make([]string, 0, len(overrides))
	for q := range overrides {
		quantities = append(quantities, q)
	}
	sort.Strings(quantities)

	for _, q := range quantities {
		switch {
		case s.Schedule.Has(q):
			if err := s.Schedule.Replace(q, overrides[q]); err != nil {
				return err
			}
		case s.External.Has(q):
			if err := s.External.Replace(q, overrides[q]); err != nil {
				return err
			}
		default:
			return fmt.Errorf("invalid override for node %s: %w: %s", s.Name, samplespace.ErrUnknownQuantity, q)
		}
	}
	return nil
}

// Validate checks that the spec is complete and its layout consistent.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("node has no name")
	}
	if len(s.Qubits) == 0 {
		return fmt.Errorf("node %s has no qubits", s.Name)
	}
	if s.Measured == MeasureCouplers && len(s.Couplers) == 0 {
		return fmt.Errorf("node %s measures couplers but has none", s.Name)
	}
	if len(s.CouplerFields) > 0 && len(s.Couplers) == 0 {
		return fmt.Errorf("node %s writes coupler fields but has no couplers", s.Name)
	}
	if s.Analysis == nil {
		return fmt.Errorf("node %s has no analysis", s.Name)
	}
	if s.Measurement == nil {
		return fmt.Errorf("node %s has no measurement", s.Name)
	}
	if s.Sweep != SimpleSweep && s.Sweep != ParameterizedSweep {
		return fmt.Errorf("node %s has invalid sweep type %q", s.Name, s.Sweep)
	}
	if _, err := s.Axes(); err != nil {
		return err
	}
	return nil
}
