package engine

import (
	"math"

	"felipe/internal/logger"
	"felipe/internal/models"
)

const maxRelatedMarkets = 5

// reconcile resolves model-supplied evidence ids against the market
// pool used for this generation call. When at least one market
// resolves, the market-implied probability (arithmetic mean, rounded)
// replaces the model's own estimate: observed prices are more
// trustworthy than the model's numeric intuition. Unresolved ids are
// dropped, not errored — the model may hallucinate ids.
func reconcile(generated []generatedScenario, pool []models.Market) []models.Scenario {
	byID := make(map[string]models.Market, len(pool))
	for _, m := range pool {
		byID[m.ID] = m
	}

	scenarios := make([]models.Scenario, 0, len(generated))
	for _, g := range generated {
		related := make([]models.Market, 0, maxRelatedMarkets)
		for _, id := range g.EvidenceIDs {
			m, ok := byID[id]
			if !ok {
				logger.Debug("reconcile: dropping unresolved market id %q for scenario %q", id, g.Name)
				continue
			}
			if len(related) < maxRelatedMarkets {
				related = append(related, m)
			}
		}

		probability := g.Probability
		if len(related) > 0 {
			sum := 0
			for _, m := range related {
				sum += m.Probability
			}
			probability = int(math.Round(float64(sum) / float64(len(related))))
		}

		scenarios = append(scenarios, models.Scenario{
			Name:               g.Name,
			Description:        g.Description,
			Probability:        probability,
			Impacts:            g.Impacts,
			EvidenceQueries:    g.EvidenceQueries,
			EvidenceInfluenced: len(related) > 0,
			RelatedMarkets:     related,
		})
	}
	return scenarios
}
