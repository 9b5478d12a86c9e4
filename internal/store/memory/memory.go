// Package memory provides an in-memory Store used in tests and local
// development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"felipe/internal/models"
	"felipe/internal/store"
)

// Store keeps decisions in a map guarded by a mutex.
type Store struct {
	mu        sync.RWMutex
	decisions map[string]models.Decision
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{decisions: make(map[string]models.Decision)}
}

// CreateDecision stores a new decision with a generated id.
func (s *Store) CreateDecision(ctx context.Context, userID, decisionText string, scenarios []models.Scenario) (*models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := models.Decision{
		ID:           uuid.NewString(),
		UserID:       userID,
		DecisionText: decisionText,
		Scenarios:    scenarios,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	s.decisions[d.ID] = d
	return &d, nil
}

// GetDecision returns the decision after an ownership check.
func (s *Store) GetDecision(ctx context.Context, id, userID string) (*models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decisions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if d.UserID != userID {
		return nil, store.ErrForbidden
	}
	return &d, nil
}

// ListDecisions returns the user's decisions, most recent first.
func (s *Store) ListDecisions(ctx context.Context, userID string, limit int) ([]models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Decision
	for _, d := range s.decisions {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateScenarios replaces the whole scenario tree.
func (s *Store) UpdateScenarios(ctx context.Context, id, userID string, scenarios []models.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decisions[id]
	if !ok {
		return store.ErrNotFound
	}
	if d.UserID != userID {
		return store.ErrForbidden
	}
	d.Scenarios = scenarios
	d.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	s.decisions[id] = d
	return nil
}

// DeleteDecision removes the decision after an ownership check.
func (s *Store) DeleteDecision(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decisions[id]
	if !ok {
		return store.ErrNotFound
	}
	if d.UserID != userID {
		return store.ErrForbidden
	}
	delete(s.decisions, id)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
