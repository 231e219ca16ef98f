package llm

import (
	"context"
	"fmt"

	"genforge/internal/cache/fragment"
	"genforge/internal/scheduler"
)

// PromptFunc renders the prompt for one artifact from its path and the
// opaque per-item context assembled by the caller.
type PromptFunc func(path string, context any) string

// DefaultPrompt is a minimal instruction block naming the target artifact.
// Real deployments supply their own PromptFunc.
func DefaultPrompt(path string, _ any) string {
	return fmt.Sprintf("Generate the complete content of the project file %q.\n"+
		"Return only the raw file content, no commentary.", path)
}

// NewProducer adapts a Client into a scheduler.Producer. When a fragment
// cache is supplied, a fresh cached fragment for the path short-circuits the
// backend call. promptFn defaults to DefaultPrompt.
func NewProducer(cli Client, cache *fragment.Cache, promptFn PromptFunc) scheduler.Producer {
	if promptFn == nil {
		promptFn = DefaultPrompt
	}
	return func(ctx context.Context, path string, itemCtx any) (string, error) {
		if content, ok := cache.Get(path); ok {
			return content, nil
		}
		content, err := cli.Generate(ctx, promptFn(path, itemCtx), itemCtx)
		if err != nil {
			return "", err
		}
		cache.Put(path, content)
		return content, nil
	}
}
