package orchestrator

import (
	"fmt"
	"sort"

	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/internal/graph"
	"github.com/aescanero/autocal/pkg/domain"
)

// Validator validates run requests
type Validator struct {
	graph  *graph.Graph
	device *config.Device
}

// NewValidator creates a new run validator
func NewValidator(g *graph.Graph, device *config.Device) *Validator {
	return &Validator{graph: g, device: device}
}

// Validate checks that run names a known target and that every element it
// touches has VNA seeds.
func (v *Validator) Validate(run *config.Run) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}
	if err := run.Validate(); err != nil {
		return err
	}
	if !v.graph.Has(run.Target) {
		return fmt.Errorf("%w: %s", graph.ErrUnknownNode, run.Target)
	}

	for _, q := range run.Qubits {
		if err := v.validateQubit(q); err != nil {
			return err
		}
	}
	for _, c := range run.Couplers {
		qubits, err := domain.CouplerQubits(c)
		if err != nil {
			return err
		}
		for _, q := range qubits {
			if err := v.validateQubit(q); err != nil {
				return fmt.Errorf("invalid coupler %s: %w", c, err)
			}
		}
	}

	nodes := make([]string, 0, len(run.UserSamplespace))
	for name := range run.UserSamplespace {
		nodes = append(nodes, name)
	}
	sort.Strings(nodes)
	for _, name := range nodes {
		if !v.graph.Has(name) {
			return fmt.Errorf("user samplespace references %w: %s", graph.ErrUnknownNode, name)
		}
	}
	return nil
}

// validateQubit checks the seeds every calibration starts from
func (v *Validator) validateQubit(q string) error {
	if _, err := v.device.ResonatorSeed(q); err != nil {
		return err
	}
	if _, err := v.device.QubitSeed(q, "01"); err != nil {
		return err
	}
	return nil
}
