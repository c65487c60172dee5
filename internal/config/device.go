package config

import (
	"fmt"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Device describes the chip: VNA seed frequencies, initial parameters and
// per-node defaults. Values of nan in the file mean "unset".
type Device struct {
	VNA      VNA                     `toml:"vna"`
	Initials EntityValues            `toml:"initials"`
	QOI      map[string]EntityValues `toml:"qoi"`
	Nodes    map[string]EntityValues `toml:"nodes"`
}

// VNA holds the seed frequencies measured with a network analyser.
type VNA struct {
	Resonator map[string]float64 `toml:"resonator"`
	Qubit01   map[string]float64 `toml:"qubit_01"`
	Qubit12   map[string]float64 `toml:"qubit_12"`
}

// EntityValues holds field values for qubits and couplers. Per-entity
// entries override the shared ones.
type EntityValues struct {
	Qubits     map[string]float64            `toml:"qubits"`
	Couplers   map[string]float64            `toml:"couplers"`
	PerQubit   map[string]map[string]float64 `toml:"per_qubit"`
	PerCoupler map[string]map[string]float64 `toml:"per_coupler"`
}

// LoadDevice reads a TOML device description
func LoadDevice(path string) (*Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device config: %w", err)
	}
	return ParseDevice(data)
}

// ParseDevice decodes a TOML device description
func ParseDevice(data []byte) (*Device, error) {
	d := &Device{}
	if err := toml.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to parse device config: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid device config: %w", err)
	}
	return d, nil
}

// Validate checks the seed frequencies
func (d *Device) Validate() error {
	for _, seeds := range []map[string]float64{d.VNA.Resonator, d.VNA.Qubit01, d.VNA.Qubit12} {
		for q, f := range seeds {
			if math.IsNaN(f) || f <= 0 {
				return fmt.Errorf("invalid VNA frequency for %s: %g", q, f)
			}
		}
	}
	return nil
}

// QubitValues returns the values of section for one qubit
func (v EntityValues) QubitValues(qubit string) map[string]float64 {
	return merged(v.Qubits, v.PerQubit[qubit])
}

// CouplerValues returns the values of section for one coupler
func (v EntityValues) CouplerValues(coupler string) map[string]float64 {
	return merged(v.Couplers, v.PerCoupler[coupler])
}

func merged(shared, specific map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(shared)+len(specific))
	for k, val := range shared {
		out[k] = val
	}
	for k, val := range specific {
		out[k] = val
	}
	return out
}

// ResonatorSeed returns the VNA resonator frequency of qubit
func (d *Device) ResonatorSeed(qubit string) (float64, error) {
	return seed(d.VNA.Resonator, "resonator", qubit)
}

// QubitSeed returns the VNA frequency of the given transition ("01" or "12")
func (d *Device) QubitSeed(qubit, transition string) (float64, error) {
	switch transition {
	case "01":
		return seed(d.VNA.Qubit01, "qubit_01", qubit)
	case "12":
		return seed(d.VNA.Qubit12, "qubit_12", qubit)
	default:
		return 0, fmt.Errorf("invalid transition: %s", transition)
	}
}

func seed(m map[string]float64, table, qubit string) (float64, error) {
	f, ok := m[qubit]
	if !ok {
		return 0, fmt.Errorf("no %s VNA frequency for qubit %s", table, qubit)
	}
	return f, nil
}
