package models

import (
	"errors"
	"fmt"
)

// InputType classifies what the user submitted: an action they are
// considering ("decision") or an uncertain future event ("question").
// The classification is made by the language model and changes the
// probability semantics of the generated scenarios.
type InputType string

const (
	InputDecision InputType = "decision"
	InputQuestion InputType = "question"
)

// Scenario is one possible future consequence with an estimated
// probability and narrative impacts. Scenarios form a tree of unbounded
// depth: each node can be expanded on demand into second-order
// consequences stored in ExpandedScenarios.
type Scenario struct {
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Probability        int        `json:"probability"` // 1-100
	Impacts            []string   `json:"impacts"`
	EvidenceQueries    []string   `json:"evidenceQueries"`
	EvidenceInfluenced bool       `json:"evidenceInfluenced"`
	RelatedMarkets     []Market   `json:"relatedMarkets"`
	ExpandedScenarios  []Scenario `json:"expandedScenarios,omitempty"`
}

// Validate checks that all scenario fields are valid, recursing into
// expanded children.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return errors.New("scenario name must not be empty")
	}
	if s.Probability < 1 || s.Probability > 100 {
		return errors.New("scenario probability must be between 1 and 100")
	}
	for i := range s.RelatedMarkets {
		if err := s.RelatedMarkets[i].Validate(); err != nil {
			return fmt.Errorf("related market %d: %w", i, err)
		}
	}
	for i := range s.ExpandedScenarios {
		if err := s.ExpandedScenarios[i].Validate(); err != nil {
			return fmt.Errorf("expanded scenario %d: %w", i, err)
		}
	}
	return nil
}

// Decision is a persisted root-level generation request plus its full
// scenario tree. Only the owning UserID may read, update, or delete it.
type Decision struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"` // opaque owner key, in practice an email
	DecisionText string     `json:"decisionText"`
	Scenarios    []Scenario `json:"scenarios"`
	CreatedAt    string     `json:"createdAt"` // RFC 3339
	UpdatedAt    string     `json:"updatedAt,omitempty"`
}

// Validate checks that all decision fields are valid.
func (d *Decision) Validate() error {
	if d.UserID == "" {
		return errors.New("decision user ID must not be empty")
	}
	if d.DecisionText == "" {
		return errors.New("decision text must not be empty")
	}
	for i := range d.Scenarios {
		if err := d.Scenarios[i].Validate(); err != nil {
			return fmt.Errorf("scenario %d: %w", i, err)
		}
	}
	return nil
}
