package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubProvider struct {
	name  string
	resp  Response
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(ctx context.Context, req Request) (Response, error) {
	s.calls++
	return s.resp, s.err
}

func TestManagerPrefersPrimary(t *testing.T) {
	primary := &stubProvider{name: "primary", resp: Response{Content: "from primary"}}
	fallback := &stubProvider{name: "fallback", resp: Response{Content: "from fallback"}}
	m := NewManagerWithProviders(primary, fallback)

	resp, err := m.Generate(context.Background(), Request{Prompt: "hola"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Content != "from primary" {
		t.Errorf("Content = %q, want primary's", resp.Content)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times, want 0", fallback.calls)
	}
}

func TestManagerFallsBackOnFailure(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("rate limited")}
	fallback := &stubProvider{name: "fallback", resp: Response{Content: "from fallback"}}
	m := NewManagerWithProviders(primary, fallback)

	resp, err := m.Generate(context.Background(), Request{Prompt: "hola"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Content != "from fallback" {
		t.Errorf("Content = %q, want fallback's", resp.Content)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.calls, fallback.calls)
	}
}

func TestManagerReportsBothFailures(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("down")}
	fallback := &stubProvider{name: "fallback", err: errors.New("also down")}
	m := NewManagerWithProviders(primary, fallback)

	if _, err := m.Generate(context.Background(), Request{Prompt: "hola"}); err == nil {
		t.Fatal("expected error when all providers fail")
	}
}

func TestManagerWithoutFallback(t *testing.T) {
	primary := &stubProvider{name: "primary", err: errors.New("down")}
	m := NewManagerWithProviders(primary, nil)

	if _, err := m.Generate(context.Background(), Request{Prompt: "hola"}); err == nil {
		t.Fatal("expected primary error to surface")
	}
}

func TestCerebrasGenerate(t *testing.T) {
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "openai/gpt-oss-120b",
			"choices": [{"message": {"content": "  {\"scenarios\": []}  "}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer srv.Close()

	p := NewCerebrasProvider(CerebrasConfig{
		APIKey:  "test-key",
		Model:   "openai/gpt-oss-120b",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})

	resp, err := p.Generate(context.Background(), Request{
		Prompt:       "analiza esto",
		SystemPrompt: "Eres Felipe",
		Temperature:  0.8,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Content != `{"scenarios": []}` {
		t.Errorf("Content = %q, want trimmed JSON", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}

	if gotPayload["temperature"] != 0.8 {
		t.Errorf("temperature = %v, want 0.8", gotPayload["temperature"])
	}
	messages, ok := gotPayload["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("messages = %#v, want system + user", gotPayload["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "Eres Felipe" {
		t.Errorf("unexpected system message: %#v", first)
	}
}

func TestCerebrasGenerateErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewCerebrasProvider(CerebrasConfig{
		APIKey:  "test-key",
		Model:   "m",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
	if _, err := p.Generate(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Error("expected error on HTTP 429")
	}

	missing := NewCerebrasProvider(CerebrasConfig{Model: "m", BaseURL: srv.URL})
	if _, err := missing.Generate(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Error("expected error for missing API key")
	}
}
