package graph

import "fmt"

// validate checks the graph for cycles with a depth-first search that keeps
// a temporary set for the current stack and a permanent set for finished nodes.
func (g *Graph) validate() error {
	permanent := make(map[string]bool, len(g.ordered))
	temporary := make(map[string]bool)

	var visit func(v *vertex) error
	visit = func(v *vertex) error {
		if permanent[v.name] {
			return nil
		}
		if temporary[v.name] {
			return fmt.Errorf("%w involving node '%s'", ErrCycle, v.name)
		}
		temporary[v.name] = true
		for _, e := range v.out {
			if err := visit(e.to); err != nil {
				return err
			}
		}
		delete(temporary, v.name)
		permanent[v.name] = true
		return nil
	}

	for _, v := range g.ordered {
		if err := visit(v); err != nil {
			return err
		}
	}
	return nil
}
