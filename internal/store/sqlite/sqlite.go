// Package sqlite implements the decision store on an embedded SQLite
// database. The scenario tree is stored as a JSON column: decisions are
// read and written as whole documents, so a relational decomposition of
// the tree would buy nothing.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"felipe/internal/models"
	"felipe/internal/store"
)

// Store persists decisions in a SQLite database file.
type Store struct {
	db *sql.DB
}

// New creates or opens the decision database at path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		decision_text TEXT NOT NULL,
		scenarios_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_user_created
		ON decisions(user_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateDecision stores a new decision with a generated id.
func (s *Store) CreateDecision(ctx context.Context, userID, decisionText string, scenarios []models.Scenario) (*models.Decision, error) {
	data, err := json.Marshal(scenarios)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scenarios: %w", err)
	}

	d := models.Decision{
		ID:           uuid.NewString(),
		UserID:       userID,
		DecisionText: decisionText,
		Scenarios:    scenarios,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, user_id, decision_text, scenarios_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.DecisionText, string(data), d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert decision: %w", err)
	}
	return &d, nil
}

// GetDecision returns the decision after an ownership check.
func (s *Store) GetDecision(ctx context.Context, id, userID string) (*models.Decision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, decision_text, scenarios_json, created_at, COALESCE(updated_at, '') FROM decisions WHERE id = ?`, id)

	d, err := scanDecision(row)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, store.ErrForbidden
	}
	return d, nil
}

// ListDecisions returns the user's decisions, most recent first.
func (s *Store) ListDecisions(ctx context.Context, userID string, limit int) ([]models.Decision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, decision_text, scenarios_json, created_at, COALESCE(updated_at, '')
		 FROM decisions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var out []models.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// UpdateScenarios replaces the whole scenario tree.
func (s *Store) UpdateScenarios(ctx context.Context, id, userID string, scenarios []models.Scenario) error {
	if _, err := s.GetDecision(ctx, id, userID); err != nil {
		return err
	}

	data, err := json.Marshal(scenarios)
	if err != nil {
		return fmt.Errorf("failed to encode scenarios: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE decisions SET scenarios_json = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		string(data), time.Now().UTC().Format(time.RFC3339), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update decision: %w", err)
	}
	return nil
}

// DeleteDecision removes the decision after an ownership check.
func (s *Store) DeleteDecision(ctx context.Context, id, userID string) error {
	if _, err := s.GetDecision(ctx, id, userID); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM decisions WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("failed to delete decision: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (*models.Decision, error) {
	var d models.Decision
	var scenariosJSON string
	err := row.Scan(&d.ID, &d.UserID, &d.DecisionText, &scenariosJSON, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan decision: %w", err)
	}
	if err := json.Unmarshal([]byte(scenariosJSON), &d.Scenarios); err != nil {
		return nil, fmt.Errorf("failed to decode scenarios: %w", err)
	}
	return &d, nil
}
