package graph

import (
	"errors"
	"fmt"
)

// NodeOption configures a node added to a Builder.
type NodeOption func(*vertex)

// Refine marks the node as a refinement pass.
func Refine() NodeOption {
	return func(v *vertex) { v.kind = TypeRefine }
}

// EntryOnly marks a node that has no dependencies and resolves to itself.
func EntryOnly() NodeOption {
	return func(v *vertex) { v.entryOnly = true }
}

type pendingEdge struct {
	from, to string
	weight   float64
}

// Builder collects nodes and edges. Errors are reported by Build.
type Builder struct {
	root     string
	vertices map[string]*vertex
	ordered  []*vertex
	edges    []pendingEdge
	branches []branch
	errs     []error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{vertices: make(map[string]*vertex)}
}

// AddNode declares a node. Declaring a node twice merges its options.
func (b *Builder) AddNode(name string, opts ...NodeOption) *Builder {
	if name == "" {
		b.errs = append(b.errs, errors.New("node name is required"))
		return b
	}
	v, ok := b.vertices[name]
	if !ok {
		v = &vertex{name: name, order: len(b.ordered)}
		b.vertices[name] = v
		b.ordered = append(b.ordered, v)
	}
	for _, opt := range opts {
		opt(v)
	}
	return b
}

// AddEdge adds from -> to with the default weight.
func (b *Builder) AddEdge(from, to string) *Builder {
	return b.AddWeightedEdge(from, to, DefaultWeight)
}

// AddWeightedEdge adds from -> to, declaring missing endpoints.
func (b *Builder) AddWeightedEdge(from, to string, weight float64) *Builder {
	b.AddNode(from)
	b.AddNode(to)
	b.edges = append(b.edges, pendingEdge{from: from, to: to, weight: weight})
	return b
}

// Root sets the node every main path starts from.
func (b *Builder) Root(name string) *Builder {
	b.root = name
	return b
}

// Branch declares node as a separate track reached from root on its own.
func (b *Builder) Branch(node, root string) *Builder {
	b.branches = append(b.branches, branch{node: node, root: root})
	return b
}

// Build validates the declarations and returns the immutable graph.
func (b *Builder) Build() (*Graph, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	if b.root == "" {
		return nil, errors.New("graph root is required")
	}
	if _, ok := b.vertices[b.root]; !ok {
		return nil, fmt.Errorf("root %s: %w", b.root, ErrUnknownNode)
	}

	g := &Graph{
		root:     b.root,
		vertices: make(map[string]*vertex, len(b.vertices)),
		ordered:  make([]*vertex, 0, len(b.ordered)),
	}
	for _, v := range b.ordered {
		c := &vertex{name: v.name, order: v.order, kind: v.kind, entryOnly: v.entryOnly}
		g.vertices[c.name] = c
		g.ordered = append(g.ordered, c)
	}

	for _, pe := range b.edges {
		if err := g.addEdge(pe); err != nil {
			return nil, err
		}
	}

	for _, br := range b.branches {
		if !g.Has(br.node) {
			return nil, fmt.Errorf("branch node %s: %w", br.node, ErrUnknownNode)
		}
		if !g.Has(br.root) {
			return nil, fmt.Errorf("branch root %s: %w", br.root, ErrUnknownNode)
		}
		g.branches = append(g.branches, br)
	}

	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) addEdge(pe pendingEdge) error {
	if pe.from == pe.to {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", pe.from, pe.to)
	}
	if pe.weight <= 0 {
		return fmt.Errorf("edge %s -> %s has non-positive weight %g", pe.from, pe.to, pe.weight)
	}
	from, to := g.vertices[pe.from], g.vertices[pe.to]
	for _, e := range from.out {
		if e.to == to {
			return fmt.Errorf("duplicate edge: %s -> %s", pe.from, pe.to)
		}
	}
	if to.entryOnly {
		return fmt.Errorf("entry-only node %s cannot have dependencies", to.name)
	}
	e := &edge{from: from, to: to, weight: pe.weight}
	from.out = append(from.out, e)
	to.in = append(to.in, e)
	return nil
}
