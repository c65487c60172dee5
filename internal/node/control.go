package node

import (
	"context"

	"github.com/aescanero/autocal/pkg/analysis"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/samplespace"
)

func qubitSpectroscopy(transition string, state int, field string, keywords map[string]float64) Constructor {
	return func(_ context.Context, env *Env, scope Scope) (*Spec, error) {
		ss := samplespace.New()
		err := perElement(ss, "spec_frequencies", scope.Qubits, func(q string) ([]float64, error) {
			return QubitSamples(env.Device, q, transition)
		})
		if err != nil {
			return nil, err
		}
		return &Spec{
			Qubits:      scope.Qubits,
			QubitState:  state,
			QubitFields: []string{field},
			Schedule:    ss,
			Keywords:    keywords,
			Analysis:    analysis.Dip("spec_frequencies"),
		}, nil
	}
}

func rabiOscillations(state int, field string) Constructor {
	return func(_ context.Context, _ *Env, scope Scope) (*Spec, error) {
		ss := samplespace.New()
		if err := perElement(ss, "mw_amplitudes", scope.Qubits, same(samplespace.Linspace(0.002, 0.9, 61))); err != nil {
			return nil, err
		}
		return &Spec{
			Qubits:      scope.Qubits,
			QubitState:  state,
			QubitFields: []string{field},
			Schedule:    ss,
			Analysis:    analysis.Dip("mw_amplitudes"),
		}, nil
	}
}

// ramseyCorrection sweeps detuned drive frequencies around the current
// calibrated transition frequency, or its VNA seed when unset.
func ramseyCorrection(transition string, state int, field string) Constructor {
	return func(ctx context.Context, env *Env, scope Scope) (*Spec, error) {
		ss := samplespace.New()
		if err := perElement(ss, "ramsey_delays", scope.Qubits, same(samplespace.Arange(4e-9, 2048e-9, 64e-9))); err != nil {
			return nil, err
		}
		detunings := samplespace.Arange(-2.1e6, 2.1e6, 0.8e6)
		err := perElement(ss, "ramsey_frequencies", scope.Qubits, func(q string) ([]float64, error) {
			v, err := env.current(ctx, domain.Transmon(q), field)
			if err != nil {
				return nil, err
			}
			f, ok := v.Float()
			if !ok {
				if f, err = env.Device.QubitSeed(q, transition); err != nil {
					return nil, err
				}
			}
			return shifted(detunings, f), nil
		})
		if err != nil {
			return nil, err
		}
		return &Spec{
			Qubits:      scope.Qubits,
			QubitState:  state,
			QubitFields: []string{field},
			Schedule:    ss,
			Backup:      true,
			Analysis:    analysis.Dip("ramsey_frequencies"),
		}, nil
	}
}

func newMotzoiParameter(_ context.Context, _ *Env, scope Scope) (*Spec, error) {
	ss := samplespace.New()
	if err := perElement(ss, "mw_motzois", scope.Qubits, same(samplespace.Linspace(-0.5, 0.5, 51))); err != nil {
		return nil, err
	}
	if err := perElement(ss, "X_repetitions", scope.Qubits, same(samplespace.Arange(2, 10, 2))); err != nil {
		return nil, err
	}
	return &Spec{
		Qubits:      scope.Qubits,
		QubitFields: []string{"rxy:motzoi"},
		Schedule:    ss,
		Analysis:    analysis.Dip("mw_motzois"),
	}, nil
}

// newNRabiOscillations refines the pi amplitude with repeated pulses. The
// sweep narrows to ten percent around the current amplitude when it is set.
func newNRabiOscillations(ctx context.Context, env *Env, scope Scope) (*Spec, error) {
	ss := samplespace.New()
	err := perElement(ss, "mw_amplitudes", scope.Qubits, func(q string) ([]float64, error) {
		v, err := env.current(ctx, domain.Transmon(q), "rxy:amp180")
		if err != nil {
			return nil, err
		}
		if amp, ok := v.Float(); ok {
			return scaled(samplespace.Linspace(0.9, 1.1, 21), amp), nil
		}
		return samplespace.Linspace(0.002, 0.9, 61), nil
	})
	if err != nil {
		return nil, err
	}
	if err := perElement(ss, "X_repetitions", scope.Qubits, same(samplespace.Arange(1, 16, 2))); err != nil {
		return nil, err
	}
	return &Spec{
		Qubits:      scope.Qubits,
		QubitFields: []string{"rxy:amp180"},
		Schedule:    ss,
		Backup:      true,
		Analysis:    analysis.Dip("mw_amplitudes"),
	}, nil
}
