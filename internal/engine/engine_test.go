package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"felipe/internal/llm"
	"felipe/internal/models"
)

// scriptedGenerator returns canned responses in order, recording each
// request it receives. Safe for the concurrent derivation calls.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	requests  []llm.Request
}

func (g *scriptedGenerator) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := len(g.requests)
	g.requests = append(g.requests, req)
	if i < len(g.errs) && g.errs[i] != nil {
		return llm.Response{}, g.errs[i]
	}
	if i >= len(g.responses) {
		return llm.Response{}, errors.New("no scripted response left")
	}
	return llm.Response{Content: g.responses[i]}, nil
}

// routingGenerator picks a response by substring of the prompt, so the
// concurrent derivation branches each get the right payload regardless
// of scheduling order.
type routingGenerator struct {
	mu       sync.Mutex
	byPrompt map[string]string // prompt substring -> response
	fallback string
	requests []llm.Request
}

func (g *routingGenerator) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	for needle, resp := range g.byPrompt {
		if strings.Contains(req.Prompt, needle) {
			return llm.Response{Content: resp}, nil
		}
	}
	return llm.Response{Content: g.fallback}, nil
}

type stubMarkets struct {
	markets  []models.Market
	keywords []string
}

func (s *stubMarkets) SearchKeywords(ctx context.Context, keywords []string) []models.Market {
	s.keywords = keywords
	return s.markets
}

type stubWeb struct {
	results []models.SearchResult
	queries []string
}

func (s *stubWeb) SearchMultiple(ctx context.Context, queries []string) []models.SearchResult {
	s.queries = queries
	return s.results
}

const validScenarioJSON = `{"inputType": "decision", "scenarios": [
	{"name": "A", "description": "d", "probability": 30, "impacts": ["x"], "evidenceIds": [], "evidenceQueries": []}
]}`

func TestGenerateRetriesWithLowerTemperature(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"this is not json at all", validScenarioJSON}}

	result, err := generate(context.Background(), gen, rootAttempts, felipeSystemPrompt, "input")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(result.Scenarios) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(result.Scenarios))
	}
	if len(gen.requests) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(gen.requests))
	}
	if gen.requests[1].Temperature >= gen.requests[0].Temperature {
		t.Errorf("retry temperature %v not lower than first attempt %v",
			gen.requests[1].Temperature, gen.requests[0].Temperature)
	}
}

func TestGenerateExhaustsAfterTwoAttempts(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"garbage", "more garbage"}}

	_, err := generate(context.Background(), gen, rootAttempts, felipeSystemPrompt, "input")
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if len(gen.requests) != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", len(gen.requests))
	}
}

func TestGenerateRejectsZeroScenarios(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"inputType": "decision", "scenarios": []}`,
		`{"inputType": "decision", "scenarios": []}`,
	}}

	if _, err := generate(context.Background(), gen, rootAttempts, felipeSystemPrompt, "input"); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted for zero scenarios", err)
	}
}

func TestGenerateProviderErrorCountsAsAttempt(t *testing.T) {
	gen := &scriptedGenerator{
		errs:      []error{errors.New("provider down"), nil},
		responses: []string{"", validScenarioJSON},
	}

	result, err := generate(context.Background(), gen, rootAttempts, felipeSystemPrompt, "input")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(result.Scenarios) != 1 || len(gen.requests) != 2 {
		t.Errorf("expected recovery on attempt 2, got %d scenarios after %d attempts",
			len(result.Scenarios), len(gen.requests))
	}
}

func TestReconcileOverridesProbabilityWithMarketMean(t *testing.T) {
	pool := []models.Market{
		{ID: "m1", Question: "Q1", Probability: 40, URL: "u", Active: true},
		{ID: "m2", Question: "Q2", Probability: 60, URL: "u", Active: true},
	}
	generated := []generatedScenario{
		{Name: "A", Probability: 95, EvidenceIDs: []string{"m1", "m2"}},
	}

	out := reconcile(generated, pool)
	if out[0].Probability != 50 {
		t.Errorf("probability = %d, want mean 50", out[0].Probability)
	}
	if !out[0].EvidenceInfluenced {
		t.Error("EvidenceInfluenced should be true when markets resolve")
	}
	if len(out[0].RelatedMarkets) != 2 {
		t.Errorf("RelatedMarkets = %d, want 2", len(out[0].RelatedMarkets))
	}
}

func TestReconcileKeepsOriginalProbabilityWithoutEvidence(t *testing.T) {
	generated := []generatedScenario{
		{Name: "A", Probability: 35, EvidenceIDs: []string{"nope"}},
	}

	out := reconcile(generated, []models.Market{{ID: "m1", Probability: 90}})
	if out[0].Probability != 35 {
		t.Errorf("probability = %d, want original 35", out[0].Probability)
	}
	if out[0].EvidenceInfluenced {
		t.Error("EvidenceInfluenced should be false when no ids resolve")
	}
	if len(out[0].RelatedMarkets) != 0 {
		t.Errorf("hallucinated id leaked into RelatedMarkets: %v", out[0].RelatedMarkets)
	}
}

func TestReconcileCapsRelatedMarkets(t *testing.T) {
	var pool []models.Market
	var ids []string
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		pool = append(pool, models.Market{ID: id, Probability: 50})
		ids = append(ids, id)
	}

	out := reconcile([]generatedScenario{{Name: "A", Probability: 10, EvidenceIDs: ids}}, pool)
	if len(out[0].RelatedMarkets) != maxRelatedMarkets {
		t.Errorf("RelatedMarkets = %d, want cap %d", len(out[0].RelatedMarkets), maxRelatedMarkets)
	}
}

func TestBuildContextEmpty(t *testing.T) {
	if got := BuildContext(nil, nil); got != "" {
		t.Errorf("BuildContext(nil, nil) = %q, want empty", got)
	}
}

func TestBuildContextMarkets(t *testing.T) {
	markets := []models.Market{
		{ID: "m1", Question: "Will X happen?", Probability: 72, Volume: 125000, URL: "https://polymarket.com/event/x"},
	}
	got := BuildContext(markets, nil)
	for _, want := range []string{"m1", "Will X happen?", "72%", "$125.0k", "evidenceIds"} {
		if !strings.Contains(got, want) {
			t.Errorf("context missing %q:\n%s", want, got)
		}
	}
}

func TestBuildContextTruncatesExcerpt(t *testing.T) {
	long := strings.Repeat("á", 500)
	got := BuildContext(nil, []models.SearchResult{{Title: "T", URL: "u", Content: long, Score: 0.9}})
	if strings.Contains(got, long) {
		t.Error("excerpt was not truncated")
	}
	if !strings.Contains(got, "…") {
		t.Error("truncated excerpt missing ellipsis")
	}
}

func TestRunDerivationFailureDegradesToUngrounded(t *testing.T) {
	// Both derivations return garbage; the main generation still runs
	// and the pipeline succeeds without grounding.
	gen := &scriptedGenerator{responses: []string{"not json", "not json", validScenarioJSON}}
	markets := &stubMarkets{}
	web := &stubWeb{}

	e := New(gen, markets, web)
	result, err := e.Run(context.Background(), "¿Debería mudarme a Madrid?")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Scenarios) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(result.Scenarios))
	}
	if len(markets.keywords) != 0 || len(web.queries) != 0 {
		t.Errorf("derivation failure should yield empty keyword/query lists, got %v / %v",
			markets.keywords, web.queries)
	}
}

func TestRunGroundsAndReconciles(t *testing.T) {
	gen := &routingGenerator{
		byPrompt: map[string]string{
			"EN INGLÉS":                 `{"keywords": ["madrid housing market"]}`,
			"consultas de búsqueda web": `{"queries": ["costo de vida madrid"]}`,
		},
		fallback: `{"inputType": "question", "scenarios": [
			{"name": "Sube", "description": "d", "probability": 90, "impacts": ["x"], "evidenceIds": ["m1"], "evidenceQueries": []}
		]}`,
	}
	markets := &stubMarkets{markets: []models.Market{
		{ID: "m1", Question: "Q", Probability: 64, Volume: 5000, URL: "u", Active: true},
	}}
	web := &stubWeb{results: []models.SearchResult{
		{Title: "T", URL: "https://example.com", Content: "c", Score: 0.8},
	}}

	e := New(gen, markets, web)
	result, err := e.Run(context.Background(), "¿Debería mudarme a Madrid?")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.InputType != models.InputQuestion {
		t.Errorf("InputType = %q, want question", result.InputType)
	}
	if result.Scenarios[0].Probability != 64 {
		t.Errorf("probability = %d, want market-implied 64", result.Scenarios[0].Probability)
	}
	if len(result.SearchResults) != 1 {
		t.Errorf("SearchResults = %d, want 1", len(result.SearchResults))
	}

	// The main generation prompt must carry the grounding block.
	last := gen.requests[len(gen.requests)-1]
	if !strings.Contains(last.Prompt, "m1") || !strings.Contains(last.Prompt, "MERCADOS") {
		t.Errorf("generation prompt missing grounding context:\n%s", last.Prompt)
	}
}

func TestExpandSingleAttempt(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{"broken output"}}

	e := New(gen, &stubMarkets{}, &stubWeb{})
	_, err := e.Expand(context.Background(), "mudarme", models.Scenario{Name: "A", Description: "d"})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if len(gen.requests) != 1 {
		t.Errorf("expansion made %d attempts, want 1", len(gen.requests))
	}
}

func TestExpandChildrenCarryNoEvidence(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"scenarios": [
		{"name": "Hijo", "description": "d", "probability": 40, "impacts": ["x"]}
	]}`}}

	e := New(gen, &stubMarkets{}, &stubWeb{})
	children, err := e.Expand(context.Background(), "mudarme", models.Scenario{Name: "A", Description: "d"})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(children))
	}
	if children[0].EvidenceInfluenced || len(children[0].RelatedMarkets) != 0 {
		t.Errorf("children must carry no market evidence: %+v", children[0])
	}
}
