package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"felipe/internal/models"
)

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func searchHandler(t *testing.T, responses map[string]searchResponse, calls *int64) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		q := r.URL.Query().Get("q")
		resp, ok := responses[q]
		if !ok {
			resp = searchResponse{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestSearchKeywordsEmptyListMakesNoCalls(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(searchHandler(t, nil, &calls))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	markets := client.SearchKeywords(context.Background(), nil)

	if len(markets) != 0 {
		t.Errorf("expected empty result, got %d markets", len(markets))
	}
	if atomic.LoadInt64(&calls) != 0 {
		t.Errorf("expected zero network calls, got %d", calls)
	}
}

func TestSearchKeywordsDeduplicatesAcrossKeywords(t *testing.T) {
	shared := rawMarket{
		ID:             "M1",
		Question:       "Will X happen?",
		LastTradePrice: floatPtr(0.40),
		VolumeNum:      floatPtr(5000),
		Active:         boolPtr(true),
	}
	event := rawEvent{ID: "E1", Slug: "will-x-happen", Markets: []rawMarket{shared}}

	var calls int64
	srv := httptest.NewServer(searchHandler(t, map[string]searchResponse{
		"alpha": {Events: []rawEvent{event}},
		"beta":  {Events: []rawEvent{event}},
	}, &calls))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	markets := client.SearchKeywords(context.Background(), []string{"alpha", "beta"})

	if len(markets) != 1 {
		t.Fatalf("expected 1 unique market, got %d", len(markets))
	}
	if markets[0].ID != "M1" {
		t.Errorf("unexpected market ID: %s", markets[0].ID)
	}
	if markets[0].Probability != 40 {
		t.Errorf("expected probability 40, got %d", markets[0].Probability)
	}
}

func TestSearchKeywordsSortsByVolume(t *testing.T) {
	mk := func(id string, volume float64) rawEvent {
		return rawEvent{
			ID:   "E-" + id,
			Slug: "slug-" + id,
			Markets: []rawMarket{{
				ID:        id,
				Question:  "Q " + id,
				VolumeNum: floatPtr(volume),
			}},
		}
	}

	var calls int64
	srv := httptest.NewServer(searchHandler(t, map[string]searchResponse{
		"low":  {Events: []rawEvent{mk("L", 100)}},
		"high": {Events: []rawEvent{mk("H", 9000)}},
	}, &calls))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	markets := client.SearchKeywords(context.Background(), []string{"low", "high"})

	if len(markets) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(markets))
	}
	if markets[0].ID != "H" || markets[1].ID != "L" {
		t.Errorf("expected volume-descending order, got %s, %s", markets[0].ID, markets[1].ID)
	}
}

func TestSearchKeywordsDegradesOnFailure(t *testing.T) {
	good := rawEvent{
		ID:   "E1",
		Slug: "good",
		Markets: []rawMarket{{
			ID:        "G1",
			Question:  "Good question?",
			VolumeNum: floatPtr(10),
		}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(searchResponse{Events: []rawEvent{good}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	markets := client.SearchKeywords(context.Background(), []string{"broken", "fine"})

	if len(markets) != 1 {
		t.Fatalf("expected failing keyword to degrade to empty, got %d markets", len(markets))
	}
	if markets[0].ID != "G1" {
		t.Errorf("unexpected market: %s", markets[0].ID)
	}
}

func TestSearchEmptyQueryIsError(t *testing.T) {
	client := NewClient("http://localhost:0", time.Second)
	if _, err := client.search(context.Background(), ""); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestGetTrendingFilters(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour).Format(time.RFC3339)
	past := now.Add(-24 * time.Hour).Format(time.RFC3339)

	events := []rawEvent{
		{ID: "E1", Slug: "big", Markets: []rawMarket{{
			ID: "BIG", Question: "Big?", VolumeNum: floatPtr(50000), EndDate: future, Active: boolPtr(true),
		}}},
		{ID: "E2", Slug: "thin", Markets: []rawMarket{{
			ID: "THIN", Question: "Thin?", VolumeNum: floatPtr(50), EndDate: future, Active: boolPtr(true),
		}}},
		{ID: "E3", Slug: "dead", Markets: []rawMarket{{
			ID: "DEAD", Question: "Dead?", VolumeNum: floatPtr(70000), EndDate: past, Active: boolPtr(true),
		}}},
		{ID: "E4", Slug: "inactive", Markets: []rawMarket{{
			ID: "OFF", Question: "Off?", VolumeNum: floatPtr(60000), EndDate: future, Active: boolPtr(false),
		}}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(searchResponse{Events: events})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	trending := client.GetTrending(context.Background(), 10)

	if len(trending) != 1 {
		t.Fatalf("expected 1 trending market, got %d", len(trending))
	}
	if trending[0].ID != "BIG" {
		t.Errorf("unexpected trending market: %s", trending[0].ID)
	}
}

func TestFilterByRelevance(t *testing.T) {
	var pool []models.Market
	for i := 0; i < 50; i++ {
		pool = append(pool, models.Market{
			ID:          fmt.Sprintf("M%d", i),
			Question:    "Q?",
			Probability: 50,
			Volume:      1000,
			Active:      true,
		})
	}

	filtered := FilterByRelevance(pool, 100, 1, 99)
	if len(filtered) != 30 {
		t.Errorf("expected cap at 30, got %d", len(filtered))
	}

	mixed := []models.Market{
		{ID: "A", Probability: 50, Volume: 1000, Active: true},
		{ID: "B", Probability: 50, Volume: 10, Active: true},    // below volume floor
		{ID: "C", Probability: 50, Volume: 1000, Active: false}, // inactive
		{ID: "D", Probability: 100, Volume: 1000, Active: true}, // probability out of bounds
		{ID: "E", Probability: 20, Volume: 1000, Active: true},
	}

	filtered = FilterByRelevance(mixed, 100, 1, 99)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(filtered))
	}
	if filtered[0].ID != "A" || filtered[1].ID != "E" {
		t.Errorf("input order not preserved: %s, %s", filtered[0].ID, filtered[1].ID)
	}

	// Probability bounds disabled when maxProbability <= 0.
	filtered = FilterByRelevance(mixed, 100, 0, 0)
	if len(filtered) != 3 {
		t.Errorf("expected 3 markets without probability bounds, got %d", len(filtered))
	}
}

func TestConvertMarketProbabilityPreference(t *testing.T) {
	event := rawEvent{ID: "E1", Slug: "test-event"}

	tests := []struct {
		name string
		raw  rawMarket
		want int
	}{
		{
			name: "lastTradePrice preferred",
			raw: rawMarket{
				ID: "M1", Question: "Q?",
				LastTradePrice: floatPtr(0.73),
				OutcomePrices:  []string{"0.10"},
			},
			want: 73,
		},
		{
			name: "outcome price fallback",
			raw: rawMarket{
				ID: "M1", Question: "Q?",
				OutcomePrices: []string{"0.25", "0.75"},
			},
			want: 25,
		},
		{
			name: "default when no price data",
			raw:  rawMarket{ID: "M1", Question: "Q?"},
			want: 50,
		},
		{
			name: "unparseable outcome price keeps default",
			raw: rawMarket{
				ID: "M1", Question: "Q?",
				OutcomePrices: []string{"n/a"},
			},
			want: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			market, ok := convertMarket(tt.raw, event)
			if !ok {
				t.Fatal("convertMarket rejected valid market")
			}
			if market.Probability != tt.want {
				t.Errorf("probability = %d, want %d", market.Probability, tt.want)
			}
		})
	}
}

func TestConvertMarketFields(t *testing.T) {
	event := rawEvent{
		ID:          "E1",
		Slug:        "the-event",
		Description: "event description",
		EndDate:     "2027-01-01T00:00:00Z",
	}
	raw := rawMarket{
		ID:        "M1",
		Question:  "Will it?",
		Volume:    "1234.5",
		Liquidity: "99.5",
		Closed:    boolPtr(true),
	}

	market, ok := convertMarket(raw, event)
	if !ok {
		t.Fatal("convertMarket rejected valid market")
	}
	if market.Volume != 1234.5 {
		t.Errorf("volume = %v, want 1234.5 (string fallback)", market.Volume)
	}
	if market.Liquidity != 99.5 {
		t.Errorf("liquidity = %v, want 99.5", market.Liquidity)
	}
	if market.Active {
		t.Error("closed market should be inactive")
	}
	if market.EndDate != "2027-01-01T00:00:00Z" {
		t.Errorf("endDate should fall back to event end date, got %q", market.EndDate)
	}
	if market.Description != "event description" {
		t.Errorf("description should fall back to event description, got %q", market.Description)
	}
	if market.URL != "https://polymarket.com/event/the-event" {
		t.Errorf("unexpected URL: %s", market.URL)
	}

	if _, ok := convertMarket(rawMarket{Question: "no id"}, event); ok {
		t.Error("expected rejection of market without id")
	}
}
