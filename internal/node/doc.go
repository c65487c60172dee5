// Package node defines calibration nodes.
//
// A node is a plain Spec record: what to sweep, which fields it calibrates,
// how the hardware lays out its acquisitions and which collaborators build
// its schedule and analyse its data. Nodes with side effects around the
// measurement (bias ramps, pauses) carry them as callbacks.
//
// The Factory maps node names to constructors. Default registers every node
// of the standard calibration graph.
package node
