// Package models defines the core domain entities for the felipe backend.
// These models represent prediction markets used as evidence, web search
// results, and the decision/scenario tree that is generated and persisted.
//
// Terminology:
//   - Market: a single Polymarket yes/no market, snapshotted at search time.
//   - Scenario: one possible future consequence of a decision or question.
//   - Decision: a persisted user request plus its full scenario tree.
package models

import (
	"errors"
	"time"
)

// Market represents a prediction market fetched from Polymarket as evidence
// for a generation call. Markets are constructed fresh on every search and
// never mutated afterwards; they are persisted only as snapshots nested
// inside a Decision's scenarios.
type Market struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Description string   `json:"description,omitempty"`
	Probability int      `json:"probability"` // market-implied probability, 0-100
	Volume      float64  `json:"volume"`
	Liquidity   float64  `json:"liquidity"`
	EndDate     string   `json:"endDate"` // RFC 3339 or empty when the market has no end date
	URL         string   `json:"url"`
	Active      bool     `json:"active"`
	Outcomes    []string `json:"outcomes,omitempty"`
}

// Validate checks that all market fields are valid.
func (m *Market) Validate() error {
	if m.ID == "" {
		return errors.New("market ID must not be empty")
	}
	if m.Question == "" {
		return errors.New("market question must not be empty")
	}
	if m.Probability < 0 || m.Probability > 100 {
		return errors.New("market probability must be between 0 and 100")
	}
	if m.Volume < 0 {
		return errors.New("market volume must not be negative")
	}
	if m.Liquidity < 0 {
		return errors.New("market liquidity must not be negative")
	}
	if m.EndDate != "" {
		if _, err := time.Parse(time.RFC3339, m.EndDate); err != nil {
			return errors.New("market end date must be RFC 3339 or empty")
		}
	}
	return nil
}

// Expired reports whether the market's end date is in the past.
// Markets without an end date never expire.
func (m *Market) Expired(now time.Time) bool {
	if m.EndDate == "" {
		return false
	}
	end, err := time.Parse(time.RFC3339, m.EndDate)
	if err != nil {
		return false
	}
	return !end.After(now)
}
