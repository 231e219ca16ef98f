package depgraph

import "sort"

// GenerationOrder returns a total order over all artifacts in which every
// dependency precedes its dependents. The order is computed over the
// cycle-broken edge set, so it always exists. Among ready artifacts,
// config-kind ones are pulled first; remaining ties fall back to first-seen
// order in the source structure.
func (g *Graph) GenerationOrder() ([]string, error) {
	if g == nil || len(g.nodes) == 0 {
		return nil, ErrEmptyGraph
	}

	adj := g.BreakCycles()
	pending := make(map[string]int, len(g.nodes)) // unresolved dependency count
	dependents := make(map[string][]string, len(g.nodes))
	for p, deps := range adj {
		pending[p] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], p)
		}
	}

	ready := make([]string, 0, len(g.nodes))
	for _, p := range g.order {
		if pending[p] == 0 {
			ready = append(ready, p)
		}
	}

	less := func(a, b string) bool {
		na, nb := g.nodes[a], g.nodes[b]
		ca, cb := na.Kind == KindConfig, nb.Kind == KindConfig
		if ca != cb {
			return ca
		}
		return na.seen < nb.seen
	}

	out := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		p := ready[0]
		ready = ready[1:]
		out = append(out, p)
		for _, dep := range dependents[p] {
			pending[dep]--
			if pending[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return out, nil
}
