package llm

import (
	"context"
	"encoding/json"
	"log"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient connects to the Gemini API. Rate limiting and retries are
// layered on via middleware, not baked into the client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// Generate sends the prompt and the JSON-encoded briefing in one request and
// returns the first candidate's text.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, input any) (string, error) {
	full := prompt
	if input != nil {
		in, _ := json.MarshalIndent(input, "", "  ")
		full = prompt + "\n\n[INPUT JSON]\n" + string(in)
	}
	log.Printf("llm request (%s): %d bytes", g.model, len(full))

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		nil,
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
