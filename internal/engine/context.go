package engine

import (
	"fmt"
	"strings"

	"felipe/internal/models"
)

const (
	contextMaxMarkets = 15
	contextMaxResults = 10
	excerptLength     = 200
)

// BuildContext renders the grounding block injected into the generation
// prompt. Pure formatting: no side effects, no external calls. Both
// inputs empty yields an empty string, which callers treat as "no
// grounding available".
func BuildContext(markets []models.Market, results []models.SearchResult) string {
	if len(markets) == 0 && len(results) == 0 {
		return ""
	}

	var b strings.Builder

	if len(markets) > 0 {
		b.WriteString("MERCADOS DE PREDICCIÓN RELEVANTES (evidencia real de Polymarket):\n")
		for i, m := range markets {
			if i >= contextMaxMarkets {
				break
			}
			fmt.Fprintf(&b, "%d. [id: %s] %s\n", i+1, m.ID, m.Question)
			fmt.Fprintf(&b, "   Probabilidad actual: %d%% | Volumen: $%.1fk\n", m.Probability, m.Volume/1000)
			fmt.Fprintf(&b, "   URL: %s\n", m.URL)
		}
		b.WriteString("\nINSTRUCCIONES SOBRE LA EVIDENCIA:\n")
		b.WriteString("- Para cada escenario, selecciona entre 0 y 5 ids de mercado relevantes y colócalos en \"evidenceIds\".\n")
		b.WriteString("- Si existe evidencia de mercado relevante para un escenario, tu probabilidad estimada debe ser consistente con la probabilidad observada en esos mercados.\n")
	}

	if len(results) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("RESULTADOS DE BÚSQUEDA WEB RECIENTES:\n")
		for i, r := range results {
			if i >= contextMaxResults {
				break
			}
			fmt.Fprintf(&b, "%d. %s (relevancia: %.0f%%)\n", i+1, r.Title, r.Score*100)
			fmt.Fprintf(&b, "   %s\n", excerpt(r.Content, excerptLength))
			if r.PublishedDate != "" {
				fmt.Fprintf(&b, "   URL: %s | Publicado: %s\n", r.URL, r.PublishedDate)
			} else {
				fmt.Fprintf(&b, "   URL: %s\n", r.URL)
			}
		}
	}

	return b.String()
}

// excerpt truncates at a rune boundary so multi-byte text is never cut
// mid-character.
func excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
