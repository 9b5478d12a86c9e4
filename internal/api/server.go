// Package api exposes the HTTP surface: decision generation, node
// expansion, decision history, and trending markets.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"felipe/internal/engine"
	"felipe/internal/logger"
	"felipe/internal/models"
	"felipe/internal/notify"
	"felipe/internal/store"
)

const defaultTrendingLimit = 10

// Pipeline is the consequence-generation capability. *engine.Engine
// satisfies it.
type Pipeline interface {
	Run(ctx context.Context, input string) (*engine.Result, error)
	Expand(ctx context.Context, originalDecision string, parent models.Scenario) ([]models.Scenario, error)
}

// TrendingSource supplies trending prediction markets.
// *polymarket.Client satisfies it.
type TrendingSource interface {
	GetTrending(ctx context.Context, limit int) []models.Market
}

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	store        store.Store
	pipeline     Pipeline
	markets      TrendingSource
	notifier     notify.Notifier
	historyLimit int
}

// NewServer creates the API server.
func NewServer(st store.Store, pipeline Pipeline, markets TrendingSource, notifier notify.Notifier, historyLimit int) *Server {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Server{
		store:        st,
		pipeline:     pipeline,
		markets:      markets,
		notifier:     notifier,
		historyLimit: historyLimit,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Post("/start-decision-making", s.startDecisionMaking)
	r.Post("/expand-consequence", s.expandConsequence)
	r.Get("/decisions", s.listDecisions)
	r.Get("/decisions/{id}", s.getDecision)
	r.Delete("/decisions/{id}", s.deleteDecision)
	r.Get("/trending-markets", s.trendingMarkets)
	r.Get("/health", s.health)

	return r
}

type startRequest struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type startResponse struct {
	InputType     models.InputType      `json:"inputType"`
	Consequences  []models.Scenario     `json:"consequences"`
	DecisionID    string                `json:"decisionId,omitempty"`
	SearchResults []models.SearchResult `json:"searchResults"`
}

// startDecisionMaking runs the full pipeline and persists the result.
// Persistence failure is non-fatal: the user still gets the generated
// scenarios, just without a decisionId.
func (s *Server) startDecisionMaking(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	started := time.Now()
	result, err := s.pipeline.Run(r.Context(), req.Message)
	if err != nil {
		logger.Error("pipeline failed for %s: %v", req.Email, err)
		go s.notifier.GenerationFailed(req.Email, err)
		writeError(w, http.StatusInternalServerError, "generation failed, please try again")
		return
	}

	resp := startResponse{
		InputType:     result.InputType,
		Consequences:  result.Scenarios,
		SearchResults: result.SearchResults,
	}
	if resp.SearchResults == nil {
		resp.SearchResults = []models.SearchResult{}
	}

	decision, err := s.store.CreateDecision(r.Context(), req.Email, req.Message, result.Scenarios)
	if err != nil {
		logger.Error("failed to persist decision for %s: %v", req.Email, err)
	} else {
		resp.DecisionID = decision.ID
	}

	go s.notifier.GenerationCompleted(req.Email, string(result.InputType), len(result.Scenarios), time.Since(started))
	writeJSON(w, http.StatusOK, resp)
}

type expandRequest struct {
	DecisionID       string          `json:"decisionId"`
	NodeID           string          `json:"nodeId"`
	OriginalDecision string          `json:"originalDecision"`
	Consequence      models.Scenario `json:"consequence"`
	Email            string          `json:"email"`
}

type expandResponse struct {
	Consequences []models.Scenario `json:"consequences"`
}

// expandConsequence generates second-order consequences for one node
// and grafts them into the persisted tree at the node's path. The graft
// re-reads the current tree first, so a concurrent expansion of a
// different node is not clobbered.
func (s *Server) expandConsequence(w http.ResponseWriter, r *http.Request) {
	var req expandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if req.Consequence.Name == "" {
		writeError(w, http.StatusBadRequest, "consequence is required")
		return
	}

	var path []int
	if req.DecisionID != "" {
		var err error
		path, err = models.ParsePath(req.NodeID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid nodeId")
			return
		}
	}

	children, err := s.pipeline.Expand(r.Context(), req.OriginalDecision, req.Consequence)
	if err != nil {
		logger.Error("expansion failed for %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "expansion failed, please try again")
		return
	}

	if req.DecisionID != "" {
		if err := s.persistExpansion(r.Context(), req.DecisionID, req.Email, path, children); err != nil {
			if errors.Is(err, store.ErrForbidden) {
				writeError(w, http.StatusForbidden, "decision belongs to another user")
				return
			}
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "decision not found")
				return
			}
			// Same policy as creation: the generated children are still
			// returned when only persistence failed.
			logger.Error("failed to persist expansion for %s: %v", req.Email, err)
		}
	}

	writeJSON(w, http.StatusOK, expandResponse{Consequences: children})
}

// persistExpansion re-reads the decision and grafts children at path.
func (s *Server) persistExpansion(ctx context.Context, decisionID, email string, path []int, children []models.Scenario) error {
	decision, err := s.store.GetDecision(ctx, decisionID, email)
	if err != nil {
		return err
	}
	updated, err := models.WithExpansion(decision.Scenarios, path, children)
	if err != nil {
		return err
	}
	return s.store.UpdateScenarios(ctx, decisionID, email, updated)
}

func (s *Server) listDecisions(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	decisions, err := s.store.ListDecisions(r.Context(), email, s.historyLimit)
	if err != nil {
		logger.Error("failed to list decisions for %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "failed to list decisions")
		return
	}
	if decisions == nil {
		decisions = []models.Decision{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
}

func (s *Server) getDecision(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	decision, err := s.store.GetDecision(r.Context(), chi.URLParam(r, "id"), email)
	if err != nil {
		writeStoreError(w, email, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decision": decision})
}

func (s *Server) deleteDecision(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := s.store.DeleteDecision(r.Context(), chi.URLParam(r, "id"), email); err != nil {
		writeStoreError(w, email, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) trendingMarkets(w http.ResponseWriter, r *http.Request) {
	limit := defaultTrendingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	markets := s.markets.GetTrending(r.Context(), limit)
	if markets == nil {
		markets = []models.Market{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": markets})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	server := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeStoreError(w http.ResponseWriter, email string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "decision not found")
	case errors.Is(err, store.ErrForbidden):
		writeError(w, http.StatusForbidden, "decision belongs to another user")
	default:
		logger.Error("store operation failed for %s: %v", email, err)
		writeError(w, http.StatusInternalServerError, "storage failure")
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
