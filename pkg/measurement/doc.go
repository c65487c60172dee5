// Package measurement builds the schedules handed to the hardware.
//
// The calibration core treats schedules as opaque; SweepSchedule is the
// generic sweep program understood by the built-in simulator. It carries
// the dataset layout so that the acquisition order it describes is exactly
// the one the dataset configurator undoes.
package measurement
