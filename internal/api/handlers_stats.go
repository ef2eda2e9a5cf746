package api

import (
	"encoding/json"
	"net/http"
)

// handleStats reports service load for operators: queue depth and the
// number of stored documents.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListDocuments(r.Context())
	if err != nil {
		s.log.Error("stats", "error", err)
		jsonError(w, "failed to gather stats", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"documents":   len(list),
	})
}
