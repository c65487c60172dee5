// Package analysis extracts quantities of interest from configured datasets
// and decides whether a result may be written back to the parameter store.
//
// The reference analyses here are deliberately model-free: they locate
// extrema, excursions, decay times and state separation on the magnitude
// of the measured signal. Fitting models can be plugged in through Factory.
package analysis
