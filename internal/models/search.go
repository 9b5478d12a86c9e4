package models

import "errors"

// SearchResult represents one web search hit used as grounding evidence.
// Results are deduplicated by URL across parallel queries.
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"` // provider relevance, 0.0-1.0
	PublishedDate string  `json:"publishedDate,omitempty"`
}

// Validate checks that all search result fields are valid.
func (r *SearchResult) Validate() error {
	if r.URL == "" {
		return errors.New("search result URL must not be empty")
	}
	if r.Score < 0.0 || r.Score > 1.0 {
		return errors.New("search result score must be between 0.0 and 1.0")
	}
	return nil
}
