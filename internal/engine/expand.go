package engine

import (
	"context"

	"felipe/internal/models"
)

// Expand treats an existing scenario as having occurred and generates
// its second-order consequences. Single attempt, no market
// re-grounding: children carry empty evidence. Re-grounding expansions
// against fresh market data is a possible extension, not current
// behavior.
func (e *Engine) Expand(ctx context.Context, originalDecision string, parent models.Scenario) ([]models.Scenario, error) {
	prompt := expansionPrompt(originalDecision, parent.Name, parent.Description)
	generated, err := generate(ctx, e.gen, expandAttempts, expansionSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	children := make([]models.Scenario, 0, len(generated.Scenarios))
	for _, g := range generated.Scenarios {
		children = append(children, models.Scenario{
			Name:            g.Name,
			Description:     g.Description,
			Probability:     g.Probability,
			Impacts:         g.Impacts,
			EvidenceQueries: g.EvidenceQueries,
			RelatedMarkets:  []models.Market{},
		})
	}
	return children, nil
}
