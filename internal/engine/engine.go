// Package engine orchestrates the consequence-generation pipeline:
// derive search queries from the user's input, fan out to the market
// and web evidence sources, fold the evidence into a grounding context,
// drive the structured generation call, and reconcile model-claimed
// evidence against the market pool.
package engine

import (
	"context"
	"sync"

	"felipe/internal/jsonx"
	"felipe/internal/llm"
	"felipe/internal/logger"
	"felipe/internal/models"
	"felipe/internal/polymarket"
	"felipe/internal/tavily"
)

// Evidence filtering thresholds applied before context building.
const (
	minMarketVolume      = 100
	minMarketProbability = 1
	maxMarketProbability = 99
	minSearchScore       = 0.5
	derivationTemp       = 0.3
)

// TextGenerator is the generation capability the pipeline depends on.
// *llm.Manager satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, req llm.Request) (llm.Response, error)
}

// MarketSource supplies prediction-market evidence. *polymarket.Client
// satisfies it.
type MarketSource interface {
	SearchKeywords(ctx context.Context, keywords []string) []models.Market
}

// WebSource supplies web-search evidence. *tavily.Client satisfies it.
type WebSource interface {
	SearchMultiple(ctx context.Context, queries []string) []models.SearchResult
}

// Engine runs the pipeline. All collaborators are injected at
// construction; the engine holds no other state and is safe for
// concurrent use.
type Engine struct {
	gen     TextGenerator
	markets MarketSource
	web     WebSource
}

// New creates an engine with the given collaborators.
func New(gen TextGenerator, markets MarketSource, web WebSource) *Engine {
	return &Engine{gen: gen, markets: markets, web: web}
}

// Result is the outcome of one top-level pipeline run.
type Result struct {
	InputType     models.InputType
	Scenarios     []models.Scenario
	SearchResults []models.SearchResult
}

// Run executes the full pipeline for one user input. Evidence-source
// failures degrade to an ungrounded generation; only generation
// exhaustion is fatal (ErrExhausted).
func (e *Engine) Run(ctx context.Context, input string) (*Result, error) {
	keywords, queries := e.deriveQueries(ctx, input)

	var (
		wg      sync.WaitGroup
		markets []models.Market
		results []models.SearchResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		markets = e.markets.SearchKeywords(ctx, keywords)
	}()
	go func() {
		defer wg.Done()
		results = e.web.SearchMultiple(ctx, queries)
	}()
	wg.Wait()

	markets = polymarket.FilterByRelevance(markets, minMarketVolume, minMarketProbability, maxMarketProbability)
	results = tavily.FilterByRelevance(results, minSearchScore)
	logger.Info("evidence gathered: %d markets, %d search results", len(markets), len(results))

	prompt := input
	if block := BuildContext(markets, results); block != "" {
		prompt = input + "\n\n" + block
	}

	generated, err := generate(ctx, e.gen, rootAttempts, felipeSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	inputType := models.InputType(generated.InputType)
	if inputType != models.InputQuestion {
		inputType = models.InputDecision
	}

	return &Result{
		InputType:     inputType,
		Scenarios:     reconcile(generated.Scenarios, markets),
		SearchResults: results,
	}, nil
}

// deriveQueries asks the model for market keywords (English) and web
// queries (the input's language) concurrently. Either derivation
// failing degrades to an empty list for that branch; the pipeline
// continues ungrounded rather than aborting.
func (e *Engine) deriveQueries(ctx context.Context, input string) (keywords, queries []string) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		keywords = e.deriveList(ctx, keywordDerivationPrompt(input), "keywords")
	}()
	go func() {
		defer wg.Done()
		queries = e.deriveList(ctx, queryDerivationPrompt(input), "queries")
	}()
	wg.Wait()
	return keywords, queries
}

func (e *Engine) deriveList(ctx context.Context, prompt, field string) []string {
	resp, err := e.gen.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: derivationTemp,
	})
	if err != nil {
		logger.Warn("derivation of %s failed: %v", field, err)
		return nil
	}

	obj, err := jsonx.Extract(resp.Content)
	if err != nil {
		logger.Warn("derivation of %s returned unparseable output: %v", field, err)
		return nil
	}

	raw, _ := obj[field].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
