package node

import (
	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/pkg/samplespace"
)

const (
	resonatorSpan    = 5.5e6
	resonatorSamples = 55
	qubitSpan        = 3.5e6
	qubitSamples     = 45
)

// ResonatorSamples returns the readout frequencies swept around the VNA
// resonator frequency of qubit.
func ResonatorSamples(d *config.Device, qubit string) ([]float64, error) {
	f, err := d.ResonatorSeed(qubit)
	if err != nil {
		return nil, err
	}
	return samplespace.Centered(f, resonatorSpan, resonatorSamples), nil
}

// QubitSamples returns the drive frequencies swept around the VNA frequency
// of the given transition of qubit, "01" or "12".
func QubitSamples(d *config.Device, qubit, transition string) ([]float64, error) {
	f, err := d.QubitSeed(qubit, transition)
	if err != nil {
		return nil, err
	}
	return samplespace.Centered(f, qubitSpan, qubitSamples), nil
}

// perElement sets quantity for every element from a sampler.
func perElement(ss *samplespace.Samplespace, quantity string, elements []string, sampler func(string) ([]float64, error)) error {
	for _, e := range elements {
		values, err := sampler(e)
		if err != nil {
			return err
		}
		ss.Set(quantity, e, values)
	}
	return nil
}

// same returns a sampler yielding values for every element.
func same(values []float64) func(string) ([]float64, error) {
	return func(string) ([]float64, error) {
		return values, nil
	}
}

func shifted(values []float64, offset float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v + offset
	}
	return out
}

func scaled(values []float64, factor float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * factor
	}
	return out
}
