package depgraph

import (
	"sort"
	"testing"

	"genforge/internal/tester"
	"genforge/internal/types"
)

func structureFixture() types.Structure {
	return types.Structure{
		Files: []string{"README.md"},
		Folders: []types.Folder{
			{
				Name:  "src",
				Files: []string{"config.py", "main.py", "parser.py"},
				Folders: []types.Folder{
					{Name: "models", Files: []string{"user.py"}},
					{Name: "utils", Files: []string{"strings.py"}},
				},
			},
			{Name: "tests", Files: []string{"test_parser.py"}},
		},
	}
}

func TestBuild_RegistersEveryLeaf(t *testing.T) {
	g := Build(structureFixture())
	want := []string{
		"README.md",
		"src/config.py", "src/main.py", "src/parser.py",
		"src/models/user.py", "src/utils/strings.py",
		"tests/test_parser.py",
	}
	got := g.Files()
	sort.Strings(got)
	sort.Strings(want)
	tester.Eq(t, got, want)
}

func TestBuild_KindInference(t *testing.T) {
	g := Build(structureFixture())
	cases := map[string]Kind{
		"README.md":            KindOther,
		"src/config.py":        KindConfig,
		"src/models/user.py":   KindModel,
		"src/utils/strings.py": KindUtility,
		"tests/test_parser.py": KindTest,
	}
	for p, want := range cases {
		n, ok := g.Node(p)
		tester.True(t, ok, p)
		tester.Eq(t, n.Kind, want, p)
	}
}

func TestBuild_TestEdgeInference(t *testing.T) {
	g := Build(structureFixture())
	deps := g.Dependencies("tests/test_parser.py")
	tester.Eq(t, deps, []string{"src/parser.py"})
	tester.Eq(t, g.Dependents("src/parser.py"), []string{"tests/test_parser.py"})
}

func TestDecodeStructure_CoercesMalformedFolders(t *testing.T) {
	raw := map[string]any{
		"files": []any{"a.go", 42, ""},
		"folders": []any{
			"not-a-folder",
			map[string]any{"name": "pkg", "files": []any{"b.go"}},
		},
	}
	s := types.DecodeStructure(raw)
	tester.Eq(t, s.Files, []string{"a.go"})
	tester.Eq(t, len(s.Folders), 2)
	tester.Eq(t, s.Folders[0], types.Folder{})
	tester.Eq(t, s.Folders[1].Name, "pkg")

	g := Build(s)
	got := g.Files()
	sort.Strings(got)
	tester.Eq(t, got, []string{"a.go", "pkg/b.go"})
}

func TestAddDependency_RegistersUnknownPaths(t *testing.T) {
	g := New()
	g.AddDependency("a", "b")
	g.AddDependency("a", "a") // self-edges ignored
	tester.Eq(t, g.Len(), 2)
	tester.Eq(t, g.Dependencies("a"), []string{"b"})
	tester.Eq(t, g.Dependents("b"), []string{"a"})
	tester.Len(t, g.Dependencies("b"), 0)
}

func TestExport_Snapshot(t *testing.T) {
	g := Build(structureFixture())
	g.AddDependency("src/main.py", "src/config.py")

	ex := g.Export()
	tester.Eq(t, len(ex.Files), g.Len())
	tester.Eq(t, len(ex.GenerationOrder), g.Len())
	tester.Eq(t, ex.Dependencies["src/main.py"], []string{"src/config.py"})
	_, hasEmpty := ex.Dependencies["README.md"]
	tester.False(t, hasEmpty, "artifacts without deps stay out of the map")
}
