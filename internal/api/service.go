// Package api implements the HTTP JSON interface of a tlm node: one endpoint
// to submit signed transactions and read-only endpoints for every ledger
// query, the event log, and the snapshot history. Handlers carry @Route
// annotations consumed by cmd/docgen.
package api

import (
	"encoding/json"
	"net/http"

	"tokenledger.mini/tlm/internal/engine"
	"tokenledger.mini/tlm/internal/ledger"
	"tokenledger.mini/tlm/internal/logger"
	"tokenledger.mini/tlm/internal/store"
)

// Service handles API requests
type Service struct {
	ledger *ledger.Ledger
	engine *engine.Engine
	store  *store.Store
	logger *logger.Logger
}

// NewService creates a new API service
func NewService(l *ledger.Ledger, e *engine.Engine, st *store.Store, logger *logger.Logger) *Service {
	return &Service{
		ledger: l,
		engine: e,
		store:  st,
		logger: logger,
	}
}

// writeJSON writes a JSON response
func (s *Service) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
