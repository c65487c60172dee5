package node

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/autocal/pkg/analysis"
	"github.com/aescanero/autocal/pkg/samplespace"
)

const (
	defaultT1Repeats = 2
	defaultRBSeeds   = 5
)

func relaxation(field string, delays []float64) Constructor {
	return func(_ context.Context, _ *Env, scope Scope) (*Spec, error) {
		ss := samplespace.New()
		if err := perElement(ss, "delays", scope.Qubits, same(delays)); err != nil {
			return nil, err
		}
		return &Spec{
			Qubits:      scope.Qubits,
			QubitFields: []string{field},
			Schedule:    ss,
			Analysis:    analysis.Decay("delays"),
		}, nil
	}
}

// newT1 repeats the relaxation sweep, pausing between repeats so slow
// fluctuations of T1 average out.
func newT1(ctx context.Context, env *Env, scope Scope) (*Spec, error) {
	spec, err := relaxation("t1_time", shifted(samplespace.Arange(0, 300e-6, 6e-6), 8e-9))(ctx, env, scope)
	if err != nil {
		return nil, err
	}
	repeats := int(scope.option("number_of_repeats", defaultT1Repeats))
	if repeats < 1 {
		return nil, fmt.Errorf("number_of_repeats must be at least 1, got %d", repeats)
	}
	spec.External = samplespace.New()
	if err := perElement(spec.External, "repeat", scope.Qubits, same(samplespace.Arange(0, float64(repeats), 1))); err != nil {
		return nil, err
	}
	spec.PreMeasurement = func(ctx context.Context, reduced *samplespace.Samplespace) error {
		values, _ := reduced.Values("repeat", scope.Qubits[0])
		if len(values) == 0 || values[0] == 0 {
			return nil
		}
		env.Logger.Info("pausing between T1 repeats",
			zap.Float64("repeat", values[0]),
			zap.Duration("pause", env.RepeatPause))
		return pause(ctx, env.RepeatPause)
	}
	return spec, nil
}

func newAllXY(_ context.Context, _ *Env, scope Scope) (*Spec, error) {
	ss := samplespace.New()
	if err := perElement(ss, "XY_index", scope.Qubits, same(samplespace.Arange(1, 22, 1))); err != nil {
		return nil, err
	}
	return &Spec{
		Qubits:      scope.Qubits,
		QubitFields: []string{"error_syndromes"},
		Schedule:    ss,
		Analysis:    analysis.Syndromes("XY_index"),
	}, nil
}

// newRandomizedBenchmarking recompiles the Clifford sequences for every
// random seed. The last two lengths are the ground and excited state
// calibration points.
func newRandomizedBenchmarking(_ context.Context, env *Env, scope Scope) (*Spec, error) {
	ss := samplespace.New()
	lengths := []float64{2, 16, 128, 256, 512, 768, 1024, 0, 1}
	if err := perElement(ss, "number_of_cliffords", scope.Qubits, same(lengths)); err != nil {
		return nil, err
	}
	seeds := int(scope.option("number_of_seeds", defaultRBSeeds))
	if seeds < 1 {
		return nil, fmt.Errorf("number_of_seeds must be at least 1, got %d", seeds)
	}
	external := samplespace.New()
	if err := perElement(external, "seeds", scope.Qubits, same(samplespace.Arange(0, float64(seeds), 1))); err != nil {
		return nil, err
	}
	return &Spec{
		Qubits:      scope.Qubits,
		QubitFields: []string{"fidelity"},
		Schedule:    ss,
		External:    external,
		Sweep:       ParameterizedSweep,
		Analysis:    analysis.Benchmark("number_of_cliffords"),
		PreMeasurement: func(_ context.Context, reduced *samplespace.Samplespace) error {
			values, _ := reduced.Values("seeds", scope.Qubits[0])
			env.Logger.Debug("randomized benchmarking seed", zap.Float64s("seed", values))
			return nil
		},
	}, nil
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
