// Package ports defines the interfaces between the calibration core and its
// adapters: the parameter store, the quantum hardware, the event bus, the
// metrics collector and the run journal.
package ports
