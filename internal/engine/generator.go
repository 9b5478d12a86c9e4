package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"felipe/internal/jsonx"
	"felipe/internal/llm"
	"felipe/internal/logger"
)

// ErrExhausted is returned when every generation attempt fails. The
// pipeline never degrades this to an empty scenario list: an empty
// result would be indistinguishable from a genuine "nothing notable"
// answer.
var ErrExhausted = errors.New("engine: all generation attempts exhausted")

// generationAttempt is one entry of an attempt policy: the sampling
// temperature to use and the delay before issuing the call.
type generationAttempt struct {
	Temperature float64
	Delay       time.Duration
}

// rootAttempts drives top-level generation: a diverse first attempt,
// then a strict low-temperature retry after a short pause.
var rootAttempts = []generationAttempt{
	{Temperature: 0.8},
	{Temperature: 0.2, Delay: time.Second},
}

// expandAttempts drives tree expansion: a single attempt.
var expandAttempts = []generationAttempt{
	{Temperature: 0.7},
}

// generatedScenario is the model's wire shape for one scenario, before
// evidence reconciliation resolves ids into market records.
type generatedScenario struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Probability     int      `json:"probability"`
	Impacts         []string `json:"impacts"`
	EvidenceIDs     []string `json:"evidenceIds"`
	EvidenceQueries []string `json:"evidenceQueries"`
}

// generationResult is the model's full wire shape for a generation call.
type generationResult struct {
	InputType string              `json:"inputType"`
	Scenarios []generatedScenario `json:"scenarios"`
}

// generate runs the attempt policy against the text generator. An
// attempt fails when the provider errors, the output cannot be parsed,
// or it parses to zero scenarios. The first attempt that yields at
// least one scenario wins.
func generate(ctx context.Context, gen TextGenerator, attempts []generationAttempt, systemPrompt, prompt string) (generationResult, error) {
	var lastErr error
	for i, attempt := range attempts {
		if attempt.Delay > 0 {
			select {
			case <-time.After(attempt.Delay):
			case <-ctx.Done():
				return generationResult{}, ctx.Err()
			}
		}

		resp, err := gen.Generate(ctx, llm.Request{
			Prompt:       prompt,
			SystemPrompt: systemPrompt,
			Temperature:  attempt.Temperature,
		})
		if err != nil {
			lastErr = err
			logger.Warn("generation attempt %d/%d failed: %v", i+1, len(attempts), err)
			continue
		}

		var result generationResult
		if err := jsonx.ExtractInto(resp.Content, &result); err != nil {
			lastErr = err
			logger.Warn("generation attempt %d/%d returned unparseable output: %v", i+1, len(attempts), err)
			continue
		}
		if len(result.Scenarios) == 0 {
			lastErr = errors.New("parsed output contained zero scenarios")
			logger.Warn("generation attempt %d/%d: %v", i+1, len(attempts), lastErr)
			continue
		}
		return result, nil
	}
	return generationResult{}, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, len(attempts), lastErr)
}
