package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lectern-ai/lectern/internal/tools"
)

// maxQueryBytes bounds the request body size.
const maxQueryBytes = 64 * 1024

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type queryResponse struct {
	Answer    string         `json:"answer"`
	Sources   []tools.Source `json:"sources"`
	SessionID string         `json:"session_id"`
}

type queryHandler struct {
	system QueryService
	logger *slog.Logger
}

// query answers one question. An omitted session_id starts a fresh session
// whose id comes back in the response.
func (h *queryHandler) query(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBytes)

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	reply, err := h.system.Answer(r.Context(), req.Query, req.SessionID)
	if err != nil {
		h.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query_failed", "failed to answer the query")
		return
	}

	sources := reply.Sources
	if sources == nil {
		sources = []tools.Source{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Answer:    reply.Answer,
		Sources:   sources,
		SessionID: reply.SessionID,
	})
}
