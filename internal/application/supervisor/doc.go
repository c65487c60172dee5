// Package supervisor implements the calibration state machine.
//
// For a target node the supervisor resolves the ordered list of
// prerequisite nodes from the dependency graph and walks it one node at a
// time. A node whose scoped entities are all calibrated is in spec and
// skipped. An out of spec node is backed up, measured, analysed per
// element, checked by the acceptance policy and persisted, after which its
// entities are marked calibrated.
//
// Every pass over a node is published on the event bus, counted in the
// metrics collector and recorded in the journal.
package supervisor
