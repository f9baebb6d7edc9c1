package api

import (
	"context"
	"errors"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli       *genai.Client
	model     string
	maxTokens int32
}

// NewGeminiClient creates a Gemini completer. An empty apiKey lets the SDK
// read GOOGLE_API_KEY / GEMINI_API_KEY from the environment.
func NewGeminiClient(ctx context.Context, apiKey, model string, maxTokens int32) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{cli: cli, model: model, maxTokens: maxTokens}, nil
}

// Name identifies the provider and model.
func (g *GeminiClient) Name() string { return "gemini:" + g.model }

// Close is a no-op; the genai client holds no long-lived resources.
func (g *GeminiClient) Close() error { return nil }

// Complete sends prompt as a single user turn.
func (g *GeminiClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return "", &CompletionError{Provider: g.Name(), Cause: err, Permanent: isPermanentGeminiError(err)}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &CompletionError{Provider: g.Name(), Cause: ErrEmptyResponse}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &CompletionError{Provider: g.Name(), Cause: ErrEmptyResponse}
	}
	return text, nil
}

func isPermanentGeminiError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 400 || apiErr.Code == 401 || apiErr.Code == 403 || apiErr.Code == 404
	}
	return false
}
