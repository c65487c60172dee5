package node

import (
	"context"
	"fmt"

	"github.com/aescanero/autocal/pkg/analysis"
	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/samplespace"
)

const defaultLoopRepetitions = 4

func newTOF(_ context.Context, _ *Env, scope Scope) (*Spec, error) {
	ss := samplespace.New()
	if err := perElement(ss, "ro_times", scope.Qubits, same(samplespace.Arange(0, 1e-6, 4e-9))); err != nil {
		return nil, err
	}
	return &Spec{
		Qubits:      scope.Qubits,
		QubitFields: []string{"tof"},
		Schedule:    ss,
		Analysis:    analysis.Excursion("ro_times"),
	}, nil
}

func newPunchout(_ context.Context, env *Env, scope Scope) (*Spec, error) {
	ss := samplespace.New()
	err := perElement(ss, "ro_frequencies", scope.Qubits, func(q string) ([]float64, error) {
		return ResonatorSamples(env.Device, q)
	})
	if err != nil {
		return nil, err
	}
	if err := perElement(ss, "ro_amplitudes", scope.Qubits, same(samplespace.Linspace(0.005, 0.06, 12))); err != nil {
		return nil, err
	}
	return &Spec{
		Qubits:      scope.Qubits,
		QubitFields: []string{"measure:pulse_amp"},
		Schedule:    ss,
		Analysis:    analysis.Dip("ro_amplitudes"),
	}, nil
}

func resonatorSpectroscopy(state int, fields []string, factory analysis.Factory) Constructor {
	return func(_ context.Context, env *Env, scope Scope) (*Spec, error) {
		ss := samplespace.New()
		err := perElement(ss, "ro_frequencies", scope.Qubits, func(q string) ([]float64, error) {
			return ResonatorSamples(env.Device, q)
		})
		if err != nil {
			return nil, err
		}
		return &Spec{
			Qubits:      scope.Qubits,
			QubitState:  state,
			QubitFields: fields,
			Schedule:    ss,
			Analysis:    factory,
		}, nil
	}
}

// readoutCentre returns the calibrated readout frequency in field, or the
// VNA seed when it is unset.
func readoutCentre(ctx context.Context, env *Env, qubit, field string) (float64, error) {
	v, err := env.current(ctx, domain.Transmon(qubit), field)
	if err != nil {
		return 0, err
	}
	if f, ok := v.Float(); ok {
		return f, nil
	}
	return env.Device.ResonatorSeed(qubit)
}

func roFrequencyOptimization(states int, centreField, field string) Constructor {
	return func(ctx context.Context, env *Env, scope Scope) (*Spec, error) {
		ss := samplespace.New()
		err := perElement(ss, "ro_opt_frequencies", scope.Qubits, func(q string) ([]float64, error) {
			f, err := readoutCentre(ctx, env, q, centreField)
			if err != nil {
				return nil, err
			}
			return samplespace.Centered(f, resonatorSpan, resonatorSamples), nil
		})
		if err != nil {
			return nil, err
		}
		return &Spec{
			Qubits:        scope.Qubits,
			QubitFields:   []string{field},
			Schedule:      ss,
			StateChannels: states,
			Analysis:      analysis.Separation("ro_opt_frequencies"),
		}, nil
	}
}

func roAmplitudeOptimization(states int, fields []string) Constructor {
	return func(_ context.Context, _ *Env, scope Scope) (*Spec, error) {
		loops := int(scope.option("loop_repetitions", defaultLoopRepetitions))
		if loops < 1 {
			return nil, fmt.Errorf("loop_repetitions must be at least 1, got %d", loops)
		}
		levels := make([]float64, states)
		for i := range levels {
			levels[i] = float64(i)
		}
		ss := samplespace.New()
		if err := perElement(ss, "ro_amplitudes", scope.Qubits, same(samplespace.Linspace(0.005, 0.03, 11))); err != nil {
			return nil, err
		}
		if err := perElement(ss, "qubit_states", scope.Qubits, same(levels)); err != nil {
			return nil, err
		}
		return &Spec{
			Qubits:      scope.Qubits,
			QubitFields: fields,
			Schedule:    ss,
			Loops:       loops,
			Order:       dataset.OuterFirst,
			Reshuffle:   &dataset.ReshuffleAxes{Amplitudes: "ro_amplitudes", States: "qubit_states"},
			Analysis:    analysis.AssignmentFidelity("ro_amplitudes", "qubit_states"),
		}, nil
	}
}
