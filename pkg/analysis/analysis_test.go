package analysis

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
)

const qubit = "q00"

func coordinate(quantity string, values []float64) dataset.Coordinate {
	return dataset.Coordinate{
		Name:   quantity + qubit,
		Values: values,
		Attrs:  dataset.CoordinateAttrs{Quantity: quantity, ElementType: dataset.ElementQubit, Element: qubit},
	}
}

func reals(values []float64) []complex128 {
	out := make([]complex128, len(values))
	for i, v := range values {
		out[i] = complex(v, 0)
	}
	return out
}

// line builds a one dimensional dataset of y over quantity.
func line(t *testing.T, quantity string, x, y []float64) *dataset.Dataset {
	t.Helper()
	ds := dataset.New("test")
	require.NoError(t, ds.AddCoordinate(coordinate(quantity, x)))
	require.NoError(t, ds.AddVariable(dataset.Variable{
		Name:  "y" + qubit,
		Dims:  []string{quantity + qubit},
		Shape: []int{len(x)},
		Data:  reals(y),
		Attrs: dataset.VariableAttrs{Qubit: qubit},
	}))
	return ds
}

func run(t *testing.T, f Factory, ds *dataset.Dataset, fields ...string) Result {
	t.Helper()
	a, err := f(ds, qubit, fields)
	require.NoError(t, err)
	r, err := a.Run()
	require.NoError(t, err)
	require.Len(t, r.Values, len(fields))
	return r
}

func value(t *testing.T, v domain.Value) float64 {
	t.Helper()
	x, ok := v.Float()
	require.True(t, ok, "value is unset")
	return x
}

func TestMinConfidence(t *testing.T) {
	good := Result{Values: []domain.Value{domain.Some(1)}, Confidence: 0.8}

	assert.NoError(t, AcceptAll().Accept("n", qubit, good))
	assert.NoError(t, MinConfidence(0.5).Accept("n", qubit, good))

	err := MinConfidence(0.9).Accept("n", qubit, good)
	assert.True(t, errors.Is(err, ErrRejected))

	unset := Result{Values: []domain.Value{domain.Some(1), domain.None()}, Confidence: 1}
	assert.NoError(t, AcceptAll().Accept("n", qubit, unset))
}

func TestRequireComplete(t *testing.T) {
	unset := Result{Values: []domain.Value{domain.Some(1), domain.None()}, Confidence: 1}
	err := RequireComplete(AcceptAll()).Accept("n", qubit, unset)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "no value for field 1")

	complete := Result{Values: []domain.Value{domain.Some(1)}, Confidence: 0.3}
	assert.NoError(t, RequireComplete(nil).Accept("n", qubit, complete))
	assert.ErrorIs(t, RequireComplete(MinConfidence(0.5)).Accept("n", qubit, complete), ErrRejected)
}

func TestDip(t *testing.T) {
	ds := line(t, "ro_frequencies", []float64{10, 11, 12, 13, 14}, []float64{3, 2, 1, 2, 3})
	r := run(t, Dip("ro_frequencies"), ds, "clock_freqs:readout")
	assert.Equal(t, 12.0, value(t, r.Values[0]))
	assert.InDelta(t, 2.0/3, r.Confidence, 1e-12)

	r = run(t, Peak("ro_frequencies"), ds, "edge")
	assert.Equal(t, 10.0, value(t, r.Values[0]))
}

func TestDipOverTwoAxes(t *testing.T) {
	ds := dataset.New("cz_chevron")
	require.NoError(t, ds.AddCoordinate(coordinate("frequencies", []float64{1, 2, 3})))
	require.NoError(t, ds.AddCoordinate(coordinate("durations", []float64{10, 20})))
	require.NoError(t, ds.AddVariable(dataset.Variable{
		Name:  "y" + qubit,
		Dims:  []string{"frequencies" + qubit, "durations" + qubit},
		Shape: []int{3, 2},
		Data:  reals([]float64{5, 5, 5, 5, 1, 5}),
		Attrs: dataset.VariableAttrs{Qubit: qubit},
	}))

	r := run(t, Dip("frequencies", "durations"), ds, "cz_pulse_frequency", "cz_pulse_duration")
	assert.Equal(t, 3.0, value(t, r.Values[0]))
	assert.Equal(t, 10.0, value(t, r.Values[1]))

	// the duration axis is averaged out
	r = run(t, Dip("frequencies"), ds, "cz_pulse_frequency")
	assert.Equal(t, 3.0, value(t, r.Values[0]))
}

func TestFieldCountMismatch(t *testing.T) {
	ds := line(t, "x", []float64{0, 1}, []float64{1, 0})
	_, err := Dip("x")(ds, qubit, []string{"a", "b"})
	assert.Error(t, err)
	_, err = Resonator("x")(ds, qubit, []string{"a"})
	assert.Error(t, err)
}

func TestUnknownAxis(t *testing.T) {
	ds := line(t, "x", []float64{0, 1}, []float64{1, 0})
	a, err := Dip("y")(ds, qubit, []string{"a"})
	require.NoError(t, err)
	_, err = a.Run()
	assert.Error(t, err)
}

func TestResonator(t *testing.T) {
	const f0, gamma = 100.0, 2.0
	var x, y []float64
	for f := 80.0; f <= 120.0001; f += 0.05 {
		x = append(x, f)
		y = append(y, 1-0.5*gamma*gamma/((f-f0)*(f-f0)+gamma*gamma))
	}
	r := run(t, Resonator("ro_frequencies"), line(t, "ro_frequencies", x, y), "clock_freqs:readout", "Ql", "resonator_minimum")

	assert.InDelta(t, f0, value(t, r.Values[0]), 0.05)
	assert.InDelta(t, f0/(2*gamma), value(t, r.Values[1]), 0.5)
	assert.InDelta(t, 0.5, value(t, r.Values[2]), 1e-3)
	assert.Greater(t, r.Confidence, 0.4)
}

func TestResonatorWithoutRecovery(t *testing.T) {
	ds := line(t, "f", []float64{0, 1, 2, 3}, []float64{1, 2, 3, 4})
	r := run(t, Resonator("f"), ds, "a", "b", "c")
	assert.Equal(t, 0.0, value(t, r.Values[0]))
	assert.False(t, r.Values[1].IsSet())
	assert.Zero(t, r.Confidence)
	assert.NoError(t, AcceptAll().Accept("n", qubit, r))
	assert.ErrorIs(t, RequireComplete(AcceptAll()).Accept("n", qubit, r), ErrRejected)
}

func TestDecay(t *testing.T) {
	const tau = 5.0
	var x, y []float64
	for v := 0.0; v <= 50; v += 0.5 {
		x = append(x, v)
		y = append(y, math.Exp(-v/tau))
	}
	r := run(t, Decay("delays"), line(t, "delays", x, y), "t1_time")
	assert.InDelta(t, tau, value(t, r.Values[0]), 0.05)

	r = run(t, Decay("delays"), line(t, "delays", []float64{0, 1, 2}, []float64{1, 2, 3}), "t1_time")
	assert.False(t, r.Values[0].IsSet())
}

func TestDecayIsShiftInvariant(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("decay time does not depend on the sweep offset", prop.ForAll(
		func(offset float64) bool {
			var x, y []float64
			for i := 0; i <= 100; i++ {
				v := float64(i) * 0.2
				x = append(x, v+offset)
				y = append(y, 0.3+math.Exp(-v/2))
			}
			base, ok1 := decayTime(x, y)
			for i := range x {
				x[i] -= offset
			}
			ref, ok2 := decayTime(x, y)
			return ok1 && ok2 && math.Abs(base-ref) < 1e-9
		},
		gen.Float64Range(0, 1e3),
	))
	properties.TestingRun(t)
}

func TestExcursion(t *testing.T) {
	ds := line(t, "ro_times", []float64{0, 1, 2, 3, 4, 5}, []float64{1, 1, 1, 0.8, 0.4, 0.2})
	r := run(t, Excursion("ro_times"), ds, "tof")
	assert.Equal(t, 4.0, value(t, r.Values[0]))

	flat := line(t, "ro_times", []float64{0, 1}, []float64{1, 1})
	r = run(t, Excursion("ro_times"), flat, "tof")
	assert.False(t, r.Values[0].IsSet())
}

func TestSeparation(t *testing.T) {
	ds := dataset.New("ro_frequency_two_state_optimization")
	require.NoError(t, ds.AddCoordinate(coordinate("ro_opt_frequencies", []float64{1, 2, 3})))
	for state, data := range [][]complex128{{1, 1, 1}, {1, 1 + 2i, 1.5}} {
		s := state
		require.NoError(t, ds.AddVariable(dataset.Variable{
			Name:  "y" + qubit + string(rune('0'+state)),
			Dims:  []string{"ro_opt_frequencies" + qubit},
			Shape: []int{3},
			Data:  data,
			Attrs: dataset.VariableAttrs{Qubit: qubit, QubitState: &s},
		}))
	}
	r := run(t, Separation("ro_opt_frequencies"), ds, "extended_clock_freqs:readout_2state_opt")
	assert.Equal(t, 2.0, value(t, r.Values[0]))
	assert.Greater(t, r.Confidence, 0.0)

	single := line(t, "ro_opt_frequencies", []float64{1}, []float64{1})
	a, err := Separation("ro_opt_frequencies")(single, qubit, []string{"f"})
	require.NoError(t, err)
	_, err = a.Run()
	assert.Error(t, err)
}

func TestAssignmentFidelity(t *testing.T) {
	ds := dataset.New("ro_amplitude_two_state_optimization")
	require.NoError(t, ds.AddCoordinate(coordinate("ro_amplitudes", []float64{0.01, 0.02})))
	require.NoError(t, ds.AddCoordinate(coordinate(dataset.LoopQuantity, []float64{0, 1, 2})))
	require.NoError(t, ds.AddCoordinate(coordinate("qubit_states", []float64{0, 1})))

	// (amplitude, loop, state): the states coincide at the first amplitude
	data := []complex128{
		1, 1, 1, 1, 1, 1,
		0, 1, 0, 1, 0, 1,
	}
	require.NoError(t, ds.AddVariable(dataset.Variable{
		Name:  "y" + qubit,
		Dims:  []string{"ro_amplitudes" + qubit, dataset.LoopQuantity + qubit, "qubit_states" + qubit},
		Shape: []int{2, 3, 2},
		Data:  data,
		Attrs: dataset.VariableAttrs{Qubit: qubit},
	}))

	r := run(t, AssignmentFidelity("ro_amplitudes", "qubit_states"), ds, "measure_2state_opt:pulse_amp", "measure_2state_opt:fidelity")
	assert.Equal(t, 0.02, value(t, r.Values[0]))
	assert.Equal(t, 1.0, value(t, r.Values[1]))
}

func TestFidelity(t *testing.T) {
	assert.Equal(t, 0.5, fidelity([]complex128{1, 1}, 0))
	assert.Equal(t, 1.0, fidelity([]complex128{0, 1}, 0))
	assert.InDelta(t, 1-0.5*math.Erfc(1/math.Sqrt2), fidelity([]complex128{0, 2}, 1), 1e-12)
}

func TestBenchmark(t *testing.T) {
	const ground, excited = 1.0, 0.2
	lengths := []float64{1, 2, 4, 8, 16, 0, 1}
	y := make([]float64, len(lengths))
	for i, m := range lengths[:5] {
		y[i] = excited + (ground-excited)*math.Pow(0.9, m)
	}
	y[5], y[6] = ground, excited

	r := run(t, Benchmark("number_of_cliffords"), line(t, "number_of_cliffords", lengths, y), "fidelity")
	f := value(t, r.Values[0])
	assert.Greater(t, f, 0.9)
	assert.Less(t, f, 1.0)
}

func TestSyndromes(t *testing.T) {
	x := make([]float64, len(allXYIdeal))
	for i := range x {
		x[i] = float64(i + 1)
	}
	y := make([]float64, len(allXYIdeal))
	for i, v := range allXYIdeal {
		y[i] = 2 + 3*v
	}
	r := run(t, Syndromes("XY_index"), line(t, "XY_index", x, y), "error_syndromes")
	assert.InDelta(t, 0, value(t, r.Values[0]), 1e-12)
	assert.Equal(t, 1.0, r.Confidence)

	a, err := Syndromes("XY_index")(line(t, "XY_index", x[:3], y[:3]), qubit, []string{"error_syndromes"})
	require.NoError(t, err)
	_, err = a.Run()
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	ds := line(t, "ro_frequencies", []float64{10, 11, 12}, []float64{2, 1, 2})
	a, err := Dip("ro_frequencies")(ds, qubit, []string{"clock_freqs:readout"})
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.Error(t, a.Report(&buf))

	_, err = a.Run()
	require.NoError(t, err)
	require.NoError(t, a.Report(&buf))
	assert.Contains(t, buf.String(), "dip analysis of q00")
	assert.Contains(t, buf.String(), "clock_freqs:readout")
	assert.Contains(t, buf.String(), "11")
}
