// Package dataset turns raw acquisition buffers into labelled N-dimensional
// datasets and persists them.
//
// A measurement returns one flat complex buffer per acquisition channel.
// The configurator maps each channel to its qubit, attaches one coordinate
// per swept quantity and element, undoes the hardware flatten order and
// names the data variables y<qubit> (or y<qubit><state> for multi-state
// readout). Datasets from consecutive external iterations are concatenated
// along the external quantity.
package dataset
