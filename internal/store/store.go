// Package store defines the decision persistence contract. Decisions
// are whole documents: node expansion rewrites the full scenario tree,
// accepting last-writer-wins at document granularity.
package store

import (
	"context"
	"errors"

	"felipe/internal/models"
)

// ErrNotFound is returned when no decision exists with the given id.
var ErrNotFound = errors.New("store: decision not found")

// ErrForbidden is returned when a decision exists but is owned by a
// different user. Ownership is checked before every read or mutation
// of a specific decision; it is never silently filtered.
var ErrForbidden = errors.New("store: decision owned by another user")

// Store persists decisions and their scenario trees.
type Store interface {
	// CreateDecision stores a new decision, assigning its ID and
	// CreatedAt, and returns the stored copy.
	CreateDecision(ctx context.Context, userID, decisionText string, scenarios []models.Scenario) (*models.Decision, error)

	// GetDecision returns the decision with the given id. ErrNotFound
	// if absent, ErrForbidden if owned by another user.
	GetDecision(ctx context.Context, id, userID string) (*models.Decision, error)

	// ListDecisions returns the user's decisions, most recent first,
	// capped at limit.
	ListDecisions(ctx context.Context, userID string, limit int) ([]models.Decision, error)

	// UpdateScenarios replaces the decision's whole scenario tree and
	// refreshes UpdatedAt. Same ownership semantics as GetDecision.
	UpdateScenarios(ctx context.Context, id, userID string, scenarios []models.Scenario) error

	// DeleteDecision removes the decision. Same ownership semantics as
	// GetDecision.
	DeleteDecision(ctx context.Context, id, userID string) error

	// Close releases the underlying resources.
	Close() error
}
