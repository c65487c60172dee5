package graph

import "fmt"

// ShortestPath runs Dijkstra from start to end, skipping excluded nodes.
// Among equal-cost paths the one found first wins; candidates are expanded
// by distance and then by declaration order, so the result is deterministic.
func (g *Graph) ShortestPath(start, end string, excluded ...string) ([]string, float64, error) {
	if _, err := g.vertex(start); err != nil {
		return nil, 0, err
	}
	if _, err := g.vertex(end); err != nil {
		return nil, 0, err
	}
	skip := make(map[string]bool, len(excluded))
	for _, x := range excluded {
		skip[x] = true
	}
	if skip[start] || skip[end] {
		return nil, 0, fmt.Errorf("%w from %s to %s: endpoint excluded", ErrNoPath, start, end)
	}

	type pqItem struct {
		v        *vertex
		distance float64
	}

	distances := map[string]float64{start: 0}
	parent := map[string]string{start: start}
	done := make(map[string]bool)
	pq := []pqItem{{g.vertices[start], 0}}

	for len(pq) > 0 {
		minIdx := 0
		for i := 1; i < len(pq); i++ {
			if pq[i].distance < pq[minIdx].distance ||
				(pq[i].distance == pq[minIdx].distance && pq[i].v.order < pq[minIdx].v.order) {
				minIdx = i
			}
		}
		current := pq[minIdx]
		pq = append(pq[:minIdx], pq[minIdx+1:]...)

		if done[current.v.name] {
			continue
		}
		done[current.v.name] = true

		if current.v.name == end {
			path := []string{end}
			for n := end; n != start; {
				n = parent[n]
				path = append(path, n)
			}
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return path, distances[end], nil
		}

		for _, e := range current.v.out {
			if skip[e.to.name] || done[e.to.name] {
				continue
			}
			d := current.distance + e.weight
			if old, seen := distances[e.to.name]; !seen || d < old {
				distances[e.to.name] = d
				parent[e.to.name] = current.v.name
				pq = append(pq, pqItem{e.to, d})
			}
		}
	}

	return nil, 0, fmt.Errorf("%w from %s to %s", ErrNoPath, start, end)
}

// FilteredTopologicalOrder returns the nodes to visit, in order, to
// calibrate target. Entry-only nodes and dependency-free nodes outside the
// root tree resolve to themselves. Separate tracks that lead to target are
// resolved first and excluded from the main search. Refine nodes are
// dropped unless they are the target.
func (g *Graph) FilteredTopologicalOrder(target string) ([]string, error) {
	v, err := g.vertex(target)
	if err != nil {
		return nil, err
	}
	if v.entryOnly || (target != g.root && len(v.in) == 0) {
		return []string{target}, nil
	}

	ancestors, err := g.Ancestors(target)
	if err != nil {
		return nil, err
	}
	isAncestor := make(map[string]bool, len(ancestors))
	for _, a := range ancestors {
		isAncestor[a] = true
	}

	var order, excluded []string
	for _, br := range g.branches {
		if !isAncestor[br.node] {
			continue
		}
		track, _, err := g.ShortestPath(br.root, br.node, excluded...)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve track %s: %w", br.node, err)
		}
		order = append(order, track...)
		excluded = append(excluded, br.node)
	}

	main, _, err := g.ShortestPath(g.root, target, excluded...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", target, err)
	}
	order = append(order, main...)

	seen := make(map[string]bool, len(order))
	filtered := make([]string, 0, len(order))
	for _, name := range order {
		if seen[name] {
			continue
		}
		seen[name] = true
		if name != target && g.vertices[name].kind == TypeRefine {
			continue
		}
		filtered = append(filtered, name)
	}
	return filtered, nil
}
