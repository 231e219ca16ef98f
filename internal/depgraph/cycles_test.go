package depgraph

import (
	"testing"

	"genforge/internal/tester"
)

func TestDetectCycles_ThreeCycle(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("b", "c")
	g.AddDependency("c", "a")

	cycles := g.DetectCycles()
	tester.True(t, len(cycles) > 0, "cycle set must be non-empty")
	tester.True(t, len(cycles[0]) >= 4, "cycle path repeats its first node")

	// detection must not mutate the edge set
	tester.Eq(t, g.Dependencies("a"), []string{"b"})
	tester.Eq(t, g.Dependencies("b"), []string{"c"})
	tester.Eq(t, g.Dependencies("c"), []string{"a"})
}

func TestDetectCycles_Acyclic(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("b", "c")
	tester.Len(t, g.DetectCycles(), 0)
}

func TestBreakCycles_YieldsValidOrder(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("b", "c")
	g.AddDependency("c", "a")

	reduced := g.BreakCycles()
	edges := 0
	for _, deps := range reduced {
		edges += len(deps)
	}
	tester.Eq(t, edges, 2, "exactly the back-edge is removed from a 3-cycle")

	order, err := g.GenerationOrder()
	tester.NoErr(t, err)
	tester.Eq(t, len(order), 3)
	seen := map[string]bool{}
	for _, p := range order {
		seen[p] = true
	}
	tester.True(t, seen["a"] && seen["b"] && seen["c"])
}

func TestBreakCycles_Deterministic(t *testing.T) {
	build := func() *Graph {
		g := New()
		g.AddDependency("a", "b")
		g.AddDependency("b", "c")
		g.AddDependency("c", "a")
		g.AddDependency("x", "y")
		g.AddDependency("y", "x")
		return g
	}
	first := build().BreakCycles()
	second := build().BreakCycles()
	tester.Eq(t, first, second)
}

func TestBreakCycles_KeepsAcyclicEdges(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("b", "c")
	reduced := g.BreakCycles()
	tester.Eq(t, reduced["a"], []string{"b"})
	tester.Eq(t, reduced["b"], []string{"c"})
}
