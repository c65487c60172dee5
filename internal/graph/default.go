package graph

// Node names of the default calibration chain.
const (
	NodeTOF                               = "tof"
	NodePunchout                          = "punchout"
	NodeResonatorSpectroscopy             = "resonator_spectroscopy"
	NodeQubit01Spectroscopy               = "qubit_01_spectroscopy"
	NodeQubit01SpectroscopyPulsed         = "qubit_01_spectroscopy_pulsed"
	NodeRabiOscillations                  = "rabi_oscillations"
	NodeRamseyCorrection                  = "ramsey_correction"
	NodeMotzoiParameter                   = "motzoi_parameter"
	NodeNRabiOscillations                 = "n_rabi_oscillations"
	NodeResonatorSpectroscopy1            = "resonator_spectroscopy_1"
	NodeROFrequencyTwoStateOptimization   = "ro_frequency_two_state_optimization"
	NodeROAmplitudeTwoStateOptimization   = "ro_amplitude_two_state_optimization"
	NodeT1                                = "T1"
	NodeT2                                = "T2"
	NodeT2Echo                            = "T2_echo"
	NodeAllXY                             = "all_XY"
	NodeRandomizedBenchmarking            = "randomized_benchmarking"
	NodeQubit12Spectroscopy               = "qubit_12_spectroscopy"
	NodeRabiOscillations12                = "rabi_oscillations_12"
	NodeRamseyCorrection12                = "ramsey_correction_12"
	NodeResonatorSpectroscopy2            = "resonator_spectroscopy_2"
	NodeROFrequencyThreeStateOptimization = "ro_frequency_three_state_optimization"
	NodeROAmplitudeThreeStateOptimization = "ro_amplitude_three_state_optimization"
	NodeCouplerSpectroscopy               = "coupler_spectroscopy"
	NodeCZChevron                         = "cz_chevron"
)

// Default returns the standard transmon calibration graph.
func Default() *Graph {
	g, err := NewBuilder().
		Root(NodeResonatorSpectroscopy).
		AddNode(NodePunchout, EntryOnly()).
		AddNode(NodeTOF, Refine()).
		AddNode(NodeRamseyCorrection, Refine()).
		AddNode(NodeRamseyCorrection12, Refine()).
		AddEdge(NodeTOF, NodeResonatorSpectroscopy).
		AddWeightedEdge(NodeResonatorSpectroscopy, NodeQubit01Spectroscopy, 1).
		AddWeightedEdge(NodeResonatorSpectroscopy, NodeQubit01SpectroscopyPulsed, 2).
		AddEdge(NodeQubit01Spectroscopy, NodeRabiOscillations).
		AddEdge(NodeQubit01SpectroscopyPulsed, NodeRabiOscillations).
		AddEdge(NodeQubit01Spectroscopy, NodeCouplerSpectroscopy).
		AddEdge(NodeRabiOscillations, NodeRamseyCorrection).
		AddEdge(NodeRamseyCorrection, NodeMotzoiParameter).
		AddEdge(NodeMotzoiParameter, NodeNRabiOscillations).
		AddEdge(NodeNRabiOscillations, NodeResonatorSpectroscopy1).
		AddEdge(NodeNRabiOscillations, NodeT1).
		AddEdge(NodeNRabiOscillations, NodeAllXY).
		AddEdge(NodeNRabiOscillations, NodeRandomizedBenchmarking).
		AddEdge(NodeT1, NodeT2).
		AddEdge(NodeT2, NodeT2Echo).
		AddEdge(NodeResonatorSpectroscopy1, NodeROFrequencyTwoStateOptimization).
		AddEdge(NodeROFrequencyTwoStateOptimization, NodeROAmplitudeTwoStateOptimization).
		AddEdge(NodeResonatorSpectroscopy1, NodeQubit12Spectroscopy).
		AddEdge(NodeQubit12Spectroscopy, NodeRabiOscillations12).
		AddEdge(NodeRabiOscillations12, NodeRamseyCorrection12).
		AddEdge(NodeRamseyCorrection12, NodeResonatorSpectroscopy2).
		AddEdge(NodeResonatorSpectroscopy2, NodeROFrequencyThreeStateOptimization).
		AddEdge(NodeROFrequencyThreeStateOptimization, NodeROAmplitudeThreeStateOptimization).
		AddEdge(NodeROAmplitudeThreeStateOptimization, NodeCZChevron).
		AddEdge(NodeCouplerSpectroscopy, NodeCZChevron).
		Branch(NodeCouplerSpectroscopy, NodeResonatorSpectroscopy).
		Build()
	if err != nil {
		panic("invalid default calibration graph: " + err.Error())
	}
	return g
}
