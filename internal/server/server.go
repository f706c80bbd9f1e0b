// Package server exposes the evaluation pipeline over HTTP. The dashboard
// posts completed classifications here; the bot listener runs in its own
// context and never goes through this API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sipca-labs/aquasentry/internal/pipeline"
	"github.com/sipca-labs/aquasentry/pkg/history"
	"github.com/sipca-labs/aquasentry/pkg/model"
	"github.com/sipca-labs/aquasentry/pkg/statestore"
)

// Server hosts the sample-evaluation API.
type Server struct {
	evaluator *pipeline.Evaluator
	store     *statestore.Store
	history   *history.Store
	mux       *http.ServeMux
	logger    *slog.Logger
}

// New creates an API server. hist may be nil, in which case the history
// endpoint reports that no audit log is configured.
func New(evaluator *pipeline.Evaluator, store *statestore.Store, hist *history.Store, logger *slog.Logger) *Server {
	s := &Server{
		evaluator: evaluator,
		store:     store,
		history:   hist,
		mux:       http.NewServeMux(),
		logger:    logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/samples", s.handleSample)
	s.mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/v1/history", s.handleHistory)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var sample model.Sample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		http.Error(w, "invalid sample payload", http.StatusBadRequest)
		return
	}
	if !sample.Label.Valid() {
		http.Error(w, "label must be POTABLE or NOT_POTABLE", http.StatusBadRequest)
		return
	}

	result, err := s.evaluator.Evaluate(ctx, sample)
	if err != nil {
		s.logger.Error("evaluate sample", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snapshot, err := s.store.LoadSnapshot()
	if errors.Is(err, statestore.ErrNotFound) {
		http.Error(w, "no sample evaluated yet", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("load snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "history not configured", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.history.Recent(ctx, limit)
	if err != nil {
		s.logger.Error("query history", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []history.Record{}
	}

	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
