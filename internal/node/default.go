package node

import (
	"github.com/aescanero/autocal/internal/graph"
	"github.com/aescanero/autocal/pkg/analysis"
	"github.com/aescanero/autocal/pkg/samplespace"
)

// Default returns a factory with every node of the default calibration
// graph registered.
func Default(env *Env) *Factory {
	f := NewFactory(env)

	f.Register(graph.NodeTOF, newTOF)
	f.Register(graph.NodePunchout, newPunchout)
	f.Register(graph.NodeResonatorSpectroscopy, resonatorSpectroscopy(0,
		[]string{"clock_freqs:readout", "Ql", "resonator_minimum"}, analysis.Resonator("ro_frequencies")))
	f.Register(graph.NodeQubit01Spectroscopy, qubitSpectroscopy("01", 0, "clock_freqs:f01", nil))
	f.Register(graph.NodeQubit01SpectroscopyPulsed, qubitSpectroscopy("01", 0, "clock_freqs:f01",
		map[string]float64{"spec_pulse_duration": 48e-9}))
	f.Register(graph.NodeRabiOscillations, rabiOscillations(0, "rxy:amp180"))
	f.Register(graph.NodeRamseyCorrection, ramseyCorrection("01", 0, "clock_freqs:f01"))
	f.Register(graph.NodeMotzoiParameter, newMotzoiParameter)
	f.Register(graph.NodeNRabiOscillations, newNRabiOscillations)
	f.Register(graph.NodeResonatorSpectroscopy1, resonatorSpectroscopy(1,
		[]string{"extended_clock_freqs:readout_1", "Ql_1", "resonator_minimum_1"}, analysis.Resonator("ro_frequencies")))
	f.Register(graph.NodeROFrequencyTwoStateOptimization, roFrequencyOptimization(2,
		"extended_clock_freqs:readout_1", "extended_clock_freqs:readout_2state_opt"))
	f.Register(graph.NodeROAmplitudeTwoStateOptimization, roAmplitudeOptimization(2,
		[]string{"measure_2state_opt:pulse_amp", "measure_2state_opt:fidelity"}))
	f.Register(graph.NodeT1, newT1)
	f.Register(graph.NodeT2, relaxation("t2_time", shifted(samplespace.Arange(0, 100e-6, 1e-6), 8e-9)))
	f.Register(graph.NodeT2Echo, relaxation("t2_echo_time", shifted(samplespace.Arange(0, 300e-6, 6e-6), 8e-9)))
	f.Register(graph.NodeAllXY, newAllXY)
	f.Register(graph.NodeRandomizedBenchmarking, newRandomizedBenchmarking)
	f.Register(graph.NodeQubit12Spectroscopy, qubitSpectroscopy("12", 1, "clock_freqs:f12", nil))
	f.Register(graph.NodeRabiOscillations12, rabiOscillations(1, "r12:ef_amp180"))
	f.Register(graph.NodeRamseyCorrection12, ramseyCorrection("12", 1, "clock_freqs:f12"))
	f.Register(graph.NodeResonatorSpectroscopy2, resonatorSpectroscopy(2,
		[]string{"extended_clock_freqs:readout_2"}, analysis.Dip("ro_frequencies")))
	f.Register(graph.NodeROFrequencyThreeStateOptimization, roFrequencyOptimization(3,
		"extended_clock_freqs:readout_2", "extended_clock_freqs:readout_3state_opt"))
	f.Register(graph.NodeROAmplitudeThreeStateOptimization, roAmplitudeOptimization(3,
		[]string{"measure_3state_opt:pulse_amp", "measure_3state_opt:fidelity"}))
	f.Register(graph.NodeCouplerSpectroscopy, newCouplerSpectroscopy)
	f.Register(graph.NodeCZChevron, newCZChevron)

	return f
}
