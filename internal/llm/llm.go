// Package llm abstracts the text-generation backends used by the
// consequence pipeline. Two providers are supported: Cerebras (speaking
// the OpenAI chat-completions wire protocol) and Gemini. A Manager
// fronts a primary provider with an optional fallback tried when the
// primary call fails.
package llm

import (
	"context"
	"fmt"

	"felipe/internal/config"
	"felipe/internal/logger"
)

// Request is a single generation request.
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// Usage reports token accounting when the provider supplies it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the provider's generation result.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Provider is a single text-generation backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}

// Manager fronts a primary provider with an optional fallback. The
// fallback is tried once per call, only after the primary fails.
type Manager struct {
	primary  Provider
	fallback Provider
}

// NewManager builds providers from configuration.
func NewManager(ctx context.Context, cfg config.LLMConfig) (*Manager, error) {
	primary, err := newProvider(ctx, cfg.Provider, cfg.Model, cfg)
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}

	var fallback Provider
	if cfg.FallbackProvider != "" {
		fallback, err = newProvider(ctx, cfg.FallbackProvider, cfg.FallbackModel, cfg)
		if err != nil {
			return nil, fmt.Errorf("fallback provider: %w", err)
		}
	}

	return &Manager{primary: primary, fallback: fallback}, nil
}

// NewManagerWithProviders wires explicit providers; used by tests.
func NewManagerWithProviders(primary, fallback Provider) *Manager {
	return &Manager{primary: primary, fallback: fallback}
}

func newProvider(ctx context.Context, name, model string, cfg config.LLMConfig) (Provider, error) {
	switch name {
	case "cerebras":
		return NewCerebrasProvider(CerebrasConfig{
			APIKey:  cfg.CerebrasAPIKey,
			Model:   model,
			BaseURL: cfg.CerebrasBaseURL,
			Timeout: cfg.Timeout,
		}), nil
	case "gemini":
		return NewGeminiProvider(ctx, GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  model,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", name)
	}
}

// Name identifies the active provider chain.
func (m *Manager) Name() string {
	if m.fallback != nil {
		return m.primary.Name() + "+" + m.fallback.Name()
	}
	return m.primary.Name()
}

// Generate calls the primary provider and falls back once on failure.
func (m *Manager) Generate(ctx context.Context, req Request) (Response, error) {
	resp, err := m.primary.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}
	if m.fallback == nil {
		return Response{}, err
	}

	logger.Warn("llm: %s failed (%v), trying %s", m.primary.Name(), err, m.fallback.Name())
	resp, fbErr := m.fallback.Generate(ctx, req)
	if fbErr != nil {
		return Response{}, fmt.Errorf("all providers failed: %v; fallback: %w", err, fbErr)
	}
	return resp, nil
}
