package depgraph

import (
	"path"
	"strings"
)

// Kind is the inferred role of an artifact. Kinds bias ordering and edge
// inference; they are heuristics, not hard dependency truth.
type Kind string

const (
	KindConfig  Kind = "config"
	KindModel   Kind = "model"
	KindUtility Kind = "utility"
	KindTest    Kind = "test"
	KindOther   Kind = "other"
)

var (
	modelDirs = map[string]bool{
		"model": true, "models": true, "service": true, "services": true,
		"entities": true, "domain": true,
	}
	utilityDirs = map[string]bool{
		"util": true, "utils": true, "helper": true, "helpers": true,
		"lib": true, "common": true,
	}
	testDirs = map[string]bool{
		"test": true, "tests": true, "__tests__": true, "spec": true,
	}
	configExts = map[string]bool{
		".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	}
)

func inferKind(p string) Kind {
	base := strings.ToLower(path.Base(p))
	dir := strings.ToLower(path.Base(path.Dir(p)))
	stem := strings.TrimSuffix(base, path.Ext(base))

	if strings.Contains(stem, "test") || testDirs[dir] {
		return KindTest
	}
	if strings.Contains(base, "config") || strings.Contains(base, "settings") ||
		base == ".env" || configExts[path.Ext(base)] {
		return KindConfig
	}
	if modelDirs[dir] {
		return KindModel
	}
	if utilityDirs[dir] {
		return KindUtility
	}
	return KindOther
}

// sourceStem strips test-naming decoration from a file stem so a test
// artifact can be matched to the source it covers:
// "test_parser" → "parser", "parser_test" → "parser", "parser.test" → "parser".
func sourceStem(base string) string {
	stem := strings.ToLower(base)
	if ext := path.Ext(stem); ext != "" {
		stem = strings.TrimSuffix(stem, ext)
	}
	stem = strings.TrimSuffix(stem, ".test")
	stem = strings.TrimSuffix(stem, ".spec")
	stem = strings.TrimPrefix(stem, "test_")
	stem = strings.TrimSuffix(stem, "_test")
	stem = strings.TrimSuffix(stem, "_spec")
	return stem
}

// inferTestEdges links every test artifact to the source artifact it names,
// preferring a match in the same directory over one elsewhere.
func (g *Graph) inferTestEdges() {
	stems := make(map[string][]string) // stem → candidate source paths, first-seen order
	for _, p := range g.order {
		n := g.nodes[p]
		if n.Kind == KindTest {
			continue
		}
		base := path.Base(p)
		stem := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
		stems[stem] = append(stems[stem], p)
	}

	for _, p := range g.order {
		n := g.nodes[p]
		if n.Kind != KindTest {
			continue
		}
		want := sourceStem(path.Base(p))
		if want == "" {
			continue
		}
		candidates := stems[want]
		if len(candidates) == 0 {
			continue
		}
		target := candidates[0]
		for _, c := range candidates {
			if path.Dir(c) == path.Dir(p) {
				target = c
				break
			}
		}
		g.AddDependency(p, target)
	}
}
