// Package polymarket provides the prediction-market evidence source.
// It searches the Polymarket Gamma API by keyword sets, normalizes raw
// event/market payloads into models.Market snapshots, deduplicates by
// market id, and offers relevance filtering for prompt grounding.
//
// Failure policy: an individual keyword search that keeps failing after
// its retry degrades to an empty result for that keyword. It is logged
// and never aborts the surrounding batch.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"felipe/internal/logger"
	"felipe/internal/models"
)

const (
	// batchSize limits how many keyword searches run concurrently.
	// The Gamma search endpoint starts refusing requests under full fan-out.
	batchSize = 4

	// maxRetries is the number of additional attempts per keyword search.
	maxRetries = 1

	retryBaseDelay = 1 * time.Second
	retryMaxDelay  = 3 * time.Second

	resultsPerKeyword  = 15
	maxFilteredMarkets = 30
)

// trendingKeywords are the broad categories searched by GetTrending.
var trendingKeywords = []string{
	"trump", "election", "politics", "economy", "stock market",
	"crypto", "bitcoin", "AI", "technology", "sports",
	"world", "war", "climate",
}

// Client provides access to the Polymarket Gamma API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// rawEvent is a Polymarket event as returned by public-search. An event
// groups one or more markets and carries the slug used for event URLs.
type rawEvent struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	EndDate     string      `json:"endDate"`
	Markets     []rawMarket `json:"markets"`
}

// rawMarket is a single market payload. Volume and liquidity arrive as
// either numeric fields or strings depending on the endpoint version.
type rawMarket struct {
	ID             string   `json:"id"`
	Question       string   `json:"question"`
	Description    string   `json:"description"`
	Outcomes       []string `json:"outcomes"`
	OutcomePrices  []string `json:"outcomePrices"`
	LastTradePrice *float64 `json:"lastTradePrice"`
	Volume         string   `json:"volume"`
	VolumeNum      *float64 `json:"volumeNum"`
	Liquidity      string   `json:"liquidity"`
	LiquidityNum   *float64 `json:"liquidityNum"`
	EndDate        string   `json:"endDate"`
	Active         *bool    `json:"active"`
	Closed         *bool    `json:"closed"`
}

type searchResponse struct {
	Events []rawEvent `json:"events"`
}

// NewClient creates a new Polymarket client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// search performs one public-search call. An empty query is a caller
// bug, not a runtime fault, and is reported as an error immediately.
func (c *Client) search(ctx context.Context, query string) (*searchResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("polymarket: search query must not be empty")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit_per_type", strconv.Itoa(resultsPerKeyword))
	params.Set("keep_closed_markets", "0")
	params.Set("search_tags", "false")
	params.Set("search_profiles", "false")

	reqURL := fmt.Sprintf("%s/public-search?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("polymarket search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polymarket API error: %d %s", resp.StatusCode, resp.Status)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &parsed, nil
}

// searchKeywordWithRetry searches one keyword with exponential backoff.
// Returns nil when all attempts fail; the caller treats that as an
// empty result.
func (c *Client) searchKeywordWithRetry(ctx context.Context, keyword string) *searchResponse {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
		}

		result, err := c.search(ctx, keyword)
		if err == nil {
			return result
		}
		if attempt == maxRetries {
			logger.Warn("polymarket: keyword %q failed after %d attempts: %v", keyword, maxRetries+1, err)
		}
	}
	return nil
}

// SearchKeywords searches all keywords in batches of four, deduplicates
// markets by id (first occurrence wins, regardless of which keyword
// produced it), and returns the pool sorted by volume descending.
// An empty keyword list returns an empty pool without any network call.
func (c *Client) SearchKeywords(ctx context.Context, keywords []string) []models.Market {
	markets := []models.Market{}
	if len(keywords) == 0 {
		return markets
	}

	seen := make(map[string]struct{})

	for start := 0; start < len(keywords); start += batchSize {
		end := start + batchSize
		if end > len(keywords) {
			end = len(keywords)
		}
		batch := keywords[start:end]

		results := make([]*searchResponse, len(batch))
		var wg sync.WaitGroup
		for i, keyword := range batch {
			wg.Add(1)
			go func(i int, keyword string) {
				defer wg.Done()
				results[i] = c.searchKeywordWithRetry(ctx, keyword)
			}(i, keyword)
		}
		wg.Wait()

		for _, result := range results {
			if result == nil {
				continue
			}
			for _, event := range result.Events {
				for _, raw := range event.Markets {
					if _, ok := seen[raw.ID]; ok {
						continue
					}
					market, ok := convertMarket(raw, event)
					if !ok {
						continue
					}
					markets = append(markets, market)
					seen[raw.ID] = struct{}{}
				}
			}
		}
	}

	sort.SliceStable(markets, func(i, j int) bool {
		return markets[i].Volume > markets[j].Volume
	})

	logger.Debug("polymarket: %d keywords yielded %d unique markets", len(keywords), len(markets))
	return markets
}

// GetTrending returns popular active markets found via a fixed set of
// broad category keywords, sorted by volume descending.
func (c *Client) GetTrending(ctx context.Context, limit int) []models.Market {
	markets := c.SearchKeywords(ctx, trendingKeywords)

	now := time.Now()
	trending := make([]models.Market, 0, limit)
	for _, m := range markets {
		if !m.Active || m.Volume <= 100 || m.Expired(now) {
			continue
		}
		trending = append(trending, m)
		if len(trending) == limit {
			break
		}
	}
	return trending
}

// FilterByRelevance keeps active markets meeting the volume floor and,
// when maxProbability is positive, with probability inside
// [minProbability, maxProbability]. Input order is preserved and the
// result is capped at 30 markets.
func FilterByRelevance(markets []models.Market, minVolume float64, minProbability, maxProbability int) []models.Market {
	filtered := make([]models.Market, 0, len(markets))
	for _, m := range markets {
		if !m.Active {
			continue
		}
		if m.Volume < minVolume {
			continue
		}
		if maxProbability > 0 && (m.Probability < minProbability || m.Probability > maxProbability) {
			continue
		}
		filtered = append(filtered, m)
		if len(filtered) == maxFilteredMarkets {
			break
		}
	}
	return filtered
}

// convertMarket maps a raw market payload into a Market snapshot.
// Probability preference is fixed: lastTradePrice, then the first
// outcome price, then a 50% default.
func convertMarket(raw rawMarket, event rawEvent) (models.Market, bool) {
	if raw.ID == "" || raw.Question == "" {
		return models.Market{}, false
	}

	probability := 50
	switch {
	case raw.LastTradePrice != nil:
		// lastTradePrice is already a 0.0-1.0 decimal
		probability = int(*raw.LastTradePrice*100 + 0.5)
	case len(raw.OutcomePrices) > 0:
		if price, err := strconv.ParseFloat(raw.OutcomePrices[0], 64); err == nil {
			probability = int(price*100 + 0.5)
		}
	}
	if probability < 0 {
		probability = 0
	}
	if probability > 100 {
		probability = 100
	}

	volume := parseAmount(raw.VolumeNum, raw.Volume)
	liquidity := parseAmount(raw.LiquidityNum, raw.Liquidity)

	endDate := raw.EndDate
	if endDate == "" {
		endDate = event.EndDate
	}

	active := true
	switch {
	case raw.Active != nil:
		active = *raw.Active
	case raw.Closed != nil:
		active = !*raw.Closed
	}

	description := raw.Description
	if description == "" {
		description = event.Description
	}

	return models.Market{
		ID:          raw.ID,
		Question:    raw.Question,
		Description: description,
		Probability: probability,
		Volume:      volume,
		Liquidity:   liquidity,
		EndDate:     endDate,
		URL:         "https://polymarket.com/event/" + event.Slug,
		Active:      active,
		Outcomes:    raw.Outcomes,
	}, true
}

// parseAmount prefers the numeric field, falling back to the string form.
func parseAmount(num *float64, str string) float64 {
	if num != nil {
		return *num
	}
	if str == "" {
		return 0
	}
	amount, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0
	}
	return amount
}
