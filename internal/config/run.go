package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Run describes one calibration request
type Run struct {
	Target   string   `yaml:"target_node"`
	Qubits   []string `yaml:"qubits"`
	Couplers []string `yaml:"couplers"`

	// UserSamplespace overrides sweeps: node -> quantity -> element -> values
	UserSamplespace map[string]map[string]map[string][]float64 `yaml:"user_samplespace"`

	// NodeDictionary carries numeric node options such as loop_repetitions
	NodeDictionary map[string]float64 `yaml:"node_dictionary"`
}

// LoadRun reads a YAML run description
func LoadRun(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run config: %w", err)
	}
	return ParseRun(data)
}

// ParseRun decodes a YAML run description
func ParseRun(data []byte) (*Run, error) {
	r := &Run{}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse run config: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}
	return r, nil
}

// Validate checks the run description
func (r *Run) Validate() error {
	if r.Target == "" {
		return fmt.Errorf("target_node is required")
	}
	if len(r.Qubits) == 0 {
		return fmt.Errorf("at least one qubit is required")
	}
	seen := make(map[string]bool, len(r.Qubits))
	for _, q := range r.Qubits {
		if q == "" || strings.Contains(q, "_") {
			return fmt.Errorf("invalid qubit name: %q", q)
		}
		if seen[q] {
			return fmt.Errorf("duplicate qubit: %s", q)
		}
		seen[q] = true
	}
	for _, c := range r.Couplers {
		parts := strings.Split(c, "_")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("invalid coupler name: %q", c)
		}
	}
	return nil
}
