// Package orchestrator runs calibration requests in the background.
//
// The manager accepts one run at a time, since every run drives the same
// hardware. It tracks the lifecycle of each run (submit, monitor, cancel)
// and keeps the final report for later queries.
//
// The validator checks a run request against the calibration graph and the
// device description before it is accepted.
package orchestrator
