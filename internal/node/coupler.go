package node

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/autocal/pkg/analysis"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/samplespace"
)

const defaultCZAmplitude = 0.375

// coupledQubits returns the qubits of couplers in order. Couplers may not
// share qubits.
func coupledQubits(couplers []string) ([]string, error) {
	if len(couplers) == 0 {
		return nil, fmt.Errorf("no couplers in scope")
	}
	seen := make(map[string]string)
	var out []string
	for _, c := range couplers {
		qubits, err := domain.CouplerQubits(c)
		if err != nil {
			return nil, err
		}
		for _, q := range qubits {
			if other, ok := seen[q]; ok {
				return nil, fmt.Errorf("couplers %s and %s share qubit %s", other, c, q)
			}
			seen[q] = c
			out = append(out, q)
		}
	}
	return out, nil
}

// settle sets the bias of element and waits until the source reports it
// settled.
func settle(ctx context.Context, env *Env, element string, value float64) error {
	if env.Bias == nil {
		return fmt.Errorf("no bias source for %s", element)
	}
	if err := env.Bias.SetBias(ctx, element, value); err != nil {
		return fmt.Errorf("failed to set bias of %s: %w", element, err)
	}
	ticker := time.NewTicker(env.BiasPoll)
	defer ticker.Stop()
	for {
		ok, err := env.Bias.Settled(ctx, element)
		if err != nil {
			return fmt.Errorf("failed to read bias of %s: %w", element, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newCouplerSpectroscopy runs two tone spectroscopy of the coupled qubits
// while the coupler current steps through dc_currents.
func newCouplerSpectroscopy(_ context.Context, env *Env, scope Scope) (*Spec, error) {
	qubits, err := coupledQubits(scope.Couplers)
	if err != nil {
		return nil, err
	}
	ss := samplespace.New()
	err = perElement(ss, "spec_frequencies", qubits, func(q string) ([]float64, error) {
		return QubitSamples(env.Device, q, "01")
	})
	if err != nil {
		return nil, err
	}
	external := samplespace.New()
	if err := perElement(external, "dc_currents", scope.Couplers, same(samplespace.Arange(-2.5e-3, 2.5e-3, 150e-6))); err != nil {
		return nil, err
	}

	couplers := scope.Couplers
	return &Spec{
		Qubits:        qubits,
		Couplers:      couplers,
		Measured:      MeasureCouplers,
		CouplerFields: []string{"parking_current"},
		Schedule:      ss,
		External:      external,
		Analysis:      analysis.Dip("dc_currents"),
		PreMeasurement: func(ctx context.Context, reduced *samplespace.Samplespace) error {
			for _, c := range couplers {
				values, _ := reduced.Values("dc_currents", c)
				if len(values) != 1 {
					return fmt.Errorf("expected one dc current for %s, got %d", c, len(values))
				}
				env.Logger.Debug("ramping coupler bias", zap.String("coupler", c), zap.Float64("current", values[0]))
				if err := settle(ctx, env, c, values[0]); err != nil {
					return err
				}
			}
			return nil
		},
		FinalOperation: func(ctx context.Context) error {
			for _, c := range couplers {
				if err := settle(ctx, env, c, 0); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

// transitionFrequency returns the frequency of the |11> <-> |02> avoided
// crossing of a coupler, truncated to 10 kHz.
func transitionFrequency(ctx context.Context, env *Env, coupler string) (float64, error) {
	qubits, err := domain.CouplerQubits(coupler)
	if err != nil {
		return 0, err
	}
	var f01, f12 [2]float64
	for i, q := range qubits {
		if f01[i], err = frequency(ctx, env, q, "clock_freqs:f01", "01"); err != nil {
			return 0, err
		}
		if f12[i], err = frequency(ctx, env, q, "clock_freqs:f12", "12"); err != nil {
			return 0, err
		}
	}
	ac := math.Max(math.Abs(f01[1]-f12[0]), math.Abs(f01[0]-f12[1]))
	return math.Trunc(ac/1e4) * 1e4, nil
}

func frequency(ctx context.Context, env *Env, qubit, field, transition string) (float64, error) {
	v, err := env.current(ctx, domain.Transmon(qubit), field)
	if err != nil {
		return 0, err
	}
	if f, ok := v.Float(); ok {
		return f, nil
	}
	return env.Device.QubitSeed(qubit, transition)
}

// newCZChevron sweeps the CZ pulse duration and frequency around the
// transition frequency with the coupler parked at its calibrated current.
func newCZChevron(ctx context.Context, env *Env, scope Scope) (*Spec, error) {
	qubits, err := coupledQubits(scope.Couplers)
	if err != nil {
		return nil, err
	}
	ss := samplespace.New()
	if err := perElement(ss, "cz_pulse_durations", scope.Couplers, same(shifted(samplespace.Arange(0, 401e-9, 20e-9), 100e-9))); err != nil {
		return nil, err
	}
	err = perElement(ss, "cz_pulse_frequencies", scope.Couplers, func(c string) ([]float64, error) {
		f, err := transitionFrequency(ctx, env, c)
		if err != nil {
			return nil, err
		}
		return shifted(samplespace.Linspace(-15e6, 10e6, 26), f), nil
	})
	if err != nil {
		return nil, err
	}

	keywords := map[string]float64{}
	if _, ok := scope.Options["cz_pulse_amplitude"]; !ok {
		v, err := env.current(ctx, domain.Coupler(scope.Couplers[0]), "cz_pulse_amplitude")
		if err != nil {
			return nil, err
		}
		if !v.IsSet() {
			env.Logger.Info("no CZ amplitude calibrated, using default",
				zap.String("coupler", scope.Couplers[0]), zap.Float64("amplitude", defaultCZAmplitude))
		}
		keywords["cz_pulse_amplitude"] = v.OrElse(defaultCZAmplitude)
	}

	couplers := scope.Couplers
	return &Spec{
		Qubits:        qubits,
		Couplers:      couplers,
		Measured:      MeasureCouplers,
		CouplerFields: []string{"cz_pulse_frequency", "cz_pulse_duration"},
		Schedule:      ss,
		Keywords:      keywords,
		Analysis:      analysis.Dip("cz_pulse_frequencies", "cz_pulse_durations"),
		InitialOperation: func(ctx context.Context) error {
			for _, c := range couplers {
				v, err := env.current(ctx, domain.Coupler(c), "parking_current")
				if err != nil {
					return err
				}
				current, ok := v.Float()
				if !ok {
					return fmt.Errorf("coupler %s has no parking current", c)
				}
				env.Logger.Info("parking coupler", zap.String("coupler", c), zap.Float64("current", current))
				if err := settle(ctx, env, c, current); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}
