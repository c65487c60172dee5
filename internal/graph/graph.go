package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownNode is returned for names the graph does not contain.
	ErrUnknownNode = errors.New("unknown node")
	// ErrCycle is returned when the edges form a cycle.
	ErrCycle = errors.New("cycle detected")
	// ErrNoPath is returned when the target cannot be reached from the root.
	ErrNoPath = errors.New("no path")
)

// NodeType tags a node with resolver behaviour.
type NodeType string

const (
	// TypeMeasurement is the default node type.
	TypeMeasurement NodeType = ""
	// TypeRefine marks optional refinement passes, only run when targeted.
	TypeRefine NodeType = "refine"
)

// DefaultWeight is used by AddEdge.
const DefaultWeight = 1.0

type vertex struct {
	name      string
	order     int
	kind      NodeType
	entryOnly bool
	out       []*edge
	in        []*edge
}

type edge struct {
	from   *vertex
	to     *vertex
	weight float64
}

// branch is a separate track: trackNode is reached from trackRoot on its own
// and excluded from the main search.
type branch struct {
	node string
	root string
}

// Graph is an immutable calibration dependency graph.
type Graph struct {
	root     string
	vertices map[string]*vertex
	ordered  []*vertex
	branches []branch
}

// Root returns the name of the root node.
func (g *Graph) Root() string {
	return g.root
}

// Nodes returns node names in declaration order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.ordered))
	for i, v := range g.ordered {
		out[i] = v.name
	}
	return out
}

// Has reports whether name is a node.
func (g *Graph) Has(name string) bool {
	_, ok := g.vertices[name]
	return ok
}

// Type returns the node type.
func (g *Graph) Type(name string) (NodeType, error) {
	v, err := g.vertex(name)
	if err != nil {
		return "", err
	}
	return v.kind, nil
}

// Successors returns the direct dependents of name.
func (g *Graph) Successors(name string) ([]string, error) {
	v, err := g.vertex(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(v.out))
	for i, e := range v.out {
		out[i] = e.to.name
	}
	return out, nil
}

// Predecessors returns the direct prerequisites of name.
func (g *Graph) Predecessors(name string) ([]string, error) {
	v, err := g.vertex(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(v.in))
	for i, e := range v.in {
		out[i] = e.from.name
	}
	return out, nil
}

// Weight returns the weight of the edge from -> to.
func (g *Graph) Weight(from, to string) (float64, bool) {
	v, ok := g.vertices[from]
	if !ok {
		return 0, false
	}
	for _, e := range v.out {
		if e.to.name == to {
			return e.weight, true
		}
	}
	return 0, false
}

// Ancestors returns every node with a path to name, in declaration order.
func (g *Graph) Ancestors(name string) ([]string, error) {
	v, err := g.vertex(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var walk func(*vertex)
	walk = func(n *vertex) {
		for _, e := range n.in {
			if seen[e.from.name] {
				continue
			}
			seen[e.from.name] = true
			walk(e.from)
		}
	}
	walk(v)

	out := make([]string, 0, len(seen))
	for _, n := range g.ordered {
		if seen[n.name] {
			out = append(out, n.name)
		}
	}
	return out, nil
}

func (g *Graph) vertex(name string) (*vertex, error) {
	v, ok := g.vertices[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return v, nil
}
