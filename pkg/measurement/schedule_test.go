package measurement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/ports"
	"github.com/aescanero/autocal/pkg/samplespace"
)

func TestSweepBuilder(t *testing.T) {
	layout := dataset.Layout{
		Node:   "punchout",
		Qubits: []string{"q1", "q2"},
		Schedule: samplespace.New().
			Set("ro_frequencies", "q1", []float64{1, 2, 3}).
			Set("ro_frequencies", "q2", []float64{4, 5, 6}).
			Set("ro_amplitudes", "q1", []float64{0.1, 0.2}).
			Set("ro_amplitudes", "q2", []float64{0.3, 0.4}),
		External: samplespace.New().Set("repeat", "q2", []float64{7}),
	}

	s, err := NewSweepBuilder().Build(context.Background(), Request{
		Layout:   layout,
		Keywords: map[string]float64{"ro_amplitudes": 9, "spec_amp": 0.01},
	})
	require.NoError(t, err)
	sweep := s.(*SweepSchedule)

	assert.Equal(t, "punchout", sweep.Name())
	assert.Equal(t, 6, sweep.Points())
	assert.Equal(t, 2, sweep.Channels())
	assert.Equal(t, DefaultRepetitions, sweep.Repetitions)
	assert.Equal(t, []dataset.Axis{{"ro_amplitudes", 2}, {"ro_frequencies", 3}}, sweep.AcquisitionAxes())

	// inner-first: frequency varies fastest
	p, err := sweep.Point("q2", 4)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		"ro_frequencies": 5, "ro_amplitudes": 0.4, "repeat": 7, "spec_amp": 0.01,
	}, p)

	_, err = sweep.Point("q2", 6)
	assert.Error(t, err)
}

func TestSweepBuilderReadsDeviceParameters(t *testing.T) {
	layout := dataset.Layout{
		Node:     "rabi_oscillations",
		Qubits:   []string{"q1", "q2"},
		Schedule: samplespace.New().Set("mw_amplitudes", "q1", []float64{0.1}).Set("mw_amplitudes", "q2", []float64{0.1}),
	}
	device := ports.DeviceSnapshot{
		domain.Transmon("q1"):   {"rxy:amp180": domain.Some(0.25), "clock_freqs:f01": domain.None()},
		domain.Coupler("q1_q2"): {"parking_current": domain.Some(1e-3)},
	}

	s, err := NewSweepBuilder().Build(context.Background(), Request{Layout: layout, QubitState: 1, Device: device})
	require.NoError(t, err)
	sweep := s.(*SweepSchedule)

	assert.Equal(t, 1, sweep.QubitState)
	amp, ok := sweep.Parameter("q1", "rxy:amp180")
	require.True(t, ok)
	assert.Equal(t, 0.25, amp)
	_, ok = sweep.Parameter("q1", "clock_freqs:f01")
	assert.False(t, ok, "unset values are not parameters")
	_, ok = sweep.Parameter("q2", "rxy:amp180")
	assert.False(t, ok)
}

func TestSweepBuilderRejectsBadLayout(t *testing.T) {
	_, err := NewSweepBuilder().Build(context.Background(), Request{Layout: dataset.Layout{Node: "x"}})
	assert.Error(t, err)

	_, err = NewSweepBuilder().Build(context.Background(), Request{Layout: dataset.Layout{
		Node: "x", Qubits: []string{"q1"}, Schedule: samplespace.New(),
	}})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewSweepBuilder().Build(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
