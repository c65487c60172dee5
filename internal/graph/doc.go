// Package graph holds the calibration dependency graph and its resolver.
//
// A Graph is built once through a Builder and is immutable afterwards.
// Edges point from a prerequisite to the node that depends on it; each edge
// carries a positive weight so that alternative producers of the same
// parameter can be preferred over one another.
//
// The resolver turns a target node into the ordered list of nodes to visit:
// the weighted shortest path from the root, with separate tracks (such as
// coupler characterisation) prepended and refine nodes filtered out unless
// they are the target itself.
package graph
