package llm

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// FakeClient returns deterministic placeholder content for offline runs and
// tests. Content depends only on the artifact path embedded in the prompt
// input, so repeated runs are reproducible.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) Generate(ctx context.Context, prompt string, input any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target := ""
	if m, ok := input.(map[string]any); ok {
		target, _ = m["path"].(string)
	}
	if target == "" {
		// fall back to the first line of the prompt
		if i := strings.IndexByte(prompt, '\n'); i > 0 {
			target = prompt[:i]
		} else {
			target = prompt
		}
	}
	switch strings.ToLower(path.Ext(target)) {
	case ".md":
		return fmt.Sprintf("# %s\n\nGenerated placeholder.\n", path.Base(target)), nil
	case ".json":
		return "{}\n", nil
	case ".yaml", ".yml", ".toml", ".ini":
		return fmt.Sprintf("# placeholder for %s\n", target), nil
	default:
		return fmt.Sprintf("// placeholder for %s\n", target), nil
	}
}
