// Package tavily provides the web-search evidence source. Multiple
// queries fan out fully concurrently, results are deduplicated by URL
// and ranked by the provider's relevance score.
//
// Like the market adapter, individual query failures degrade to empty
// results and never abort the surrounding search.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"felipe/internal/logger"
	"felipe/internal/models"
)

const (
	resultsPerQuery    = 3
	maxFilteredResults = 15
)

// Client provides access to the Tavily search API
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

type searchResponse struct {
	Results []models.SearchResult `json:"results"`
	Answer  string                `json:"answer"`
}

// NewClient creates a new Tavily client
func NewClient(apiURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Search performs one Tavily search call.
func (c *Client) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("tavily: search query must not be empty")
	}

	body, err := json.Marshal(searchRequest{
		APIKey:        c.apiKey,
		Query:         query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
		MaxResults:    resultsPerQuery,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily API error: %d %s", resp.StatusCode, resp.Status)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return parsed.Results, nil
}

// SearchMultiple runs all queries concurrently, deduplicates hits by URL
// (first occurrence wins) and sorts the merged list by score descending.
// A failing query degrades to an empty result for that query.
func (c *Client) SearchMultiple(ctx context.Context, queries []string) []models.SearchResult {
	merged := []models.SearchResult{}
	if len(queries) == 0 {
		return merged
	}

	results := make([][]models.SearchResult, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			hits, err := c.Search(ctx, query)
			if err != nil {
				logger.Warn("tavily: query %q failed: %v", query, err)
				return
			}
			results[i] = hits
		}(i, query)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	for _, hits := range results {
		for _, hit := range hits {
			if _, ok := seen[hit.URL]; ok {
				continue
			}
			merged = append(merged, hit)
			seen[hit.URL] = struct{}{}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

// FilterByRelevance keeps results with score >= minScore, capped at 15.
func FilterByRelevance(results []models.SearchResult, minScore float64) []models.SearchResult {
	filtered := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score < minScore {
			continue
		}
		filtered = append(filtered, r)
		if len(filtered) == maxFilteredResults {
			break
		}
	}
	return filtered
}
