package depgraph

const (
	colorWhite = iota
	colorGray
	colorBlack
)

// DetectCycles runs a DFS over the depends-on edge set and returns every
// discovered cycle as a path list (first node repeated at the end). The
// graph is not mutated. DFS roots are visited in first-seen order and
// neighbors in sorted order, so the report is reproducible.
func (g *Graph) DetectCycles() [][]string {
	if g == nil {
		return nil
	}
	color := make(map[string]int, len(g.nodes))
	stack := make([]string, 0, len(g.nodes))
	var cycles [][]string

	var visit func(p string)
	visit = func(p string) {
		color[p] = colorGray
		stack = append(stack, p)
		for _, dep := range g.Dependencies(p) {
			switch color[dep] {
			case colorWhite:
				visit(dep)
			case colorGray:
				// back-edge p→dep closes a cycle; slice it off the stack
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == dep {
						cycle := append([]string(nil), stack[i:]...)
						cycle = append(cycle, dep)
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[p] = colorBlack
	}

	for _, p := range g.order {
		if color[p] == colorWhite {
			visit(p)
		}
	}
	return cycles
}

// BreakCycles returns a reduced adjacency (path → sorted dependency list)
// with every DFS back-edge removed. Removing all back-edges of a single DFS
// leaves no directed cycle, so the result is always a DAG. The rule is
// deterministic: roots in first-seen order, neighbors in sorted order, and
// exactly the edges that close a cycle during that traversal are dropped.
// The graph itself is not mutated; callers and diagnostics keep the full
// edge set.
func (g *Graph) BreakCycles() map[string][]string {
	reduced := make(map[string][]string, g.Len())
	if g == nil {
		return reduced
	}
	color := make(map[string]int, len(g.nodes))

	var visit func(p string)
	visit = func(p string) {
		color[p] = colorGray
		kept := make([]string, 0, len(g.nodes[p].deps))
		for _, dep := range g.Dependencies(p) {
			if color[dep] == colorGray {
				continue // back-edge: dropped
			}
			kept = append(kept, dep)
			if color[dep] == colorWhite {
				visit(dep)
			}
		}
		reduced[p] = kept
		color[p] = colorBlack
	}

	for _, p := range g.order {
		if color[p] == colorWhite {
			visit(p)
		}
	}
	return reduced
}
