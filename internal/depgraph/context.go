package depgraph

import (
	"path"
	"sort"
)

// ContextForFile returns the dependency paths reachable from p within
// maxDepth hops over depends-on edges, plus same-directory artifacts as weak
// context candidates. The result excludes p itself, is sorted, and grows
// monotonically with maxDepth; depth 0 is always empty.
func (g *Graph) ContextForFile(p string, maxDepth int) []string {
	if g == nil || maxDepth <= 0 {
		return nil
	}
	if _, ok := g.nodes[p]; !ok {
		return nil
	}

	found := make(map[string]struct{})

	// BFS over depends-on edges.
	frontier := []string{p}
	visited := map[string]struct{}{p: {}}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, cur := range frontier {
			for _, dep := range g.Dependencies(cur) {
				if _, ok := visited[dep]; ok {
					continue
				}
				visited[dep] = struct{}{}
				found[dep] = struct{}{}
				next = append(next, dep)
			}
		}
		frontier = next
	}

	// Same-directory artifacts are weak candidates regardless of edges.
	dir := path.Dir(p)
	for _, other := range g.order {
		if other == p || path.Dir(other) != dir {
			continue
		}
		found[other] = struct{}{}
	}

	out := make([]string, 0, len(found))
	for k := range found {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
