// Package samplespace models the sweep points of a measurement: for every
// swept quantity, a set of values per element (qubit or coupler).
//
// Quantities and elements keep their insertion order, so the dimensions of
// a samplespace are deterministic. A quantity may also be batched, in which
// case each element holds a list of value batches that are measured one
// batch at a time.
package samplespace
