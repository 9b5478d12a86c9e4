package llm

import (
	"context"
	"errors"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiProvider is a thin wrapper around the official genai client.
type GeminiProvider struct {
	cli   *genai.Client
	model string
}

// NewGeminiProvider creates a Gemini provider. The API key may also
// come from the GEMINI_API_KEY environment variable, which the genai
// client reads on its own.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiProvider{cli: cli, model: cfg.Model}, nil
}

func (g *GeminiProvider) Name() string { return "gemini:" + g.model }

// Generate performs one content-generation call.
func (g *GeminiProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if g.model == "" {
		return Response{}, errors.New("gemini: missing model")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: req.Prompt}}}},
		cfg,
	)
	if err != nil {
		return Response{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Response{}, errors.New("gemini response had no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return Response{}, errors.New("gemini response was empty")
	}

	out := Response{Content: content, Model: g.model}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}
