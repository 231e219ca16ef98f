package depgraph

import (
	"errors"
	"path"
	"sort"

	"genforge/internal/types"
)

// Node is one artifact in the dependency graph.
type Node struct {
	Path string
	Kind Kind

	seen       int // first-seen index in the source structure
	deps       map[string]struct{}
	dependents map[string]struct{}
}

// Graph owns all artifact nodes and the depends-on edge set. Build the graph
// and inject explicit edges first; the graph is read-only once a generation
// order has been requested.
type Graph struct {
	nodes map[string]*Node
	order []string // paths in first-seen order
}

// New returns an empty graph. Nodes are added via Build or AddDependency.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// Build walks the nested structure description, registers every file leaf as
// an artifact node, and infers heuristic edges (test → matching source).
// Folder names are joined with "/". Malformed structure entries are expected
// to have been coerced by types.DecodeStructure, so Build never fails.
func Build(s types.Structure) *Graph {
	g := New()
	g.walk("", s.Files, s.Folders)
	g.inferTestEdges()
	return g
}

func (g *Graph) walk(prefix string, files []string, folders []types.Folder) {
	for _, f := range files {
		if f == "" {
			continue
		}
		g.ensure(path.Join(prefix, f))
	}
	for _, folder := range folders {
		next := prefix
		if folder.Name != "" {
			next = path.Join(prefix, folder.Name)
		}
		g.walk(next, folder.Files, folder.Folders)
	}
}

func (g *Graph) ensure(p string) *Node {
	if n, ok := g.nodes[p]; ok {
		return n
	}
	n := &Node{
		Path:       p,
		Kind:       inferKind(p),
		seen:       len(g.order),
		deps:       make(map[string]struct{}),
		dependents: make(map[string]struct{}),
	}
	g.nodes[p] = n
	g.order = append(g.order, p)
	return n
}

// AddDependency declares that artifact a depends on artifact b. Unknown
// paths are registered on the fly so callers can assemble graphs directly.
// Self-edges are ignored.
func (g *Graph) AddDependency(a, b string) {
	if g == nil || a == "" || b == "" || a == b {
		return
	}
	na := g.ensure(a)
	nb := g.ensure(b)
	na.deps[b] = struct{}{}
	nb.dependents[a] = struct{}{}
}

// Node returns the node for a path, if registered.
func (g *Graph) Node(p string) (*Node, bool) {
	if g == nil {
		return nil, false
	}
	n, ok := g.nodes[p]
	return n, ok
}

// Len reports the number of artifacts in the graph.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// Files returns every artifact path in first-seen order.
func (g *Graph) Files() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Dependencies returns the paths p directly depends on, sorted.
func (g *Graph) Dependencies(p string) []string {
	n, ok := g.Node(p)
	if !ok {
		return nil
	}
	return sortedKeys(n.deps)
}

// Dependents returns every artifact that declared a dependency on p, sorted.
func (g *Graph) Dependents(p string) []string {
	n, ok := g.Node(p)
	if !ok {
		return nil
	}
	return sortedKeys(n.dependents)
}

// Export is a diagnostic snapshot of the graph for logging or persistence
// by the caller.
type Export struct {
	Files           []string            `json:"files"`
	Dependencies    map[string][]string `json:"dependencies"`
	GenerationOrder []string            `json:"generationOrder"`
}

// Export returns the file list, the (non-empty) dependency map, and the
// generation order. An unorderable graph yields an empty order, never an
// error, since Export is diagnostics only.
func (g *Graph) Export() Export {
	ex := Export{Dependencies: make(map[string][]string)}
	if g == nil {
		return ex
	}
	ex.Files = g.Files()
	for _, p := range g.order {
		if deps := g.Dependencies(p); len(deps) > 0 {
			ex.Dependencies[p] = deps
		}
	}
	if order, err := g.GenerationOrder(); err == nil {
		ex.GenerationOrder = order
	}
	return ex
}

// ErrEmptyGraph is returned when a generation order is requested before any
// artifact has been registered.
var ErrEmptyGraph = errors.New("depgraph: graph has no artifacts")

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
