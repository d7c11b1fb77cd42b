package approvals

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for the pending decision queue
type Handlers struct {
	queue *Queue
	log   zerolog.Logger
}

// NewHandlers creates a new approvals handlers instance
func NewHandlers(queue *Queue, log zerolog.Logger) *Handlers {
	return &Handlers{
		queue: queue,
		log:   log.With().Str("handler", "approvals").Logger(),
	}
}

// HandleList returns queued decisions, optionally filtered by account and
// status. Defaults to pending decisions only.
// GET /api/decisions
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	status := StatusPending
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		if statusParam == "all" {
			status = ""
		} else {
			status = Status(statusParam)
		}
	}

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	decisions, err := h.queue.List(r.URL.Query().Get("account_id"), status, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list pending decisions")
		http.Error(w, "Failed to list pending decisions", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]interface{}{"decisions": decisions})
}

// HandleApprove approves a pending decision, with optional quantity and
// leverage modifications, and executes it immediately
// POST /api/decisions/{id}/approve
func (h *Handlers) HandleApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Modifications *Modifications `json:"modifications"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	result, err := h.queue.Approve(r.Context(), id, req.Modifications)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrExpired):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.log.Error().Err(err).Str("id", id).Msg("Failed to approve decision")
			http.Error(w, err.Error(), http.StatusConflict)
		}
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"id":     id,
		"status": string(StatusApproved),
		"result": result,
	})
}

// HandleReject rejects a pending decision without executing it
// POST /api/decisions/{id}/reject
func (h *Handlers) HandleReject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.queue.Reject(id, req.Reason); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("id", id).Msg("Failed to reject decision")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	h.writeJSON(w, map[string]string{
		"id":     id,
		"status": string(StatusRejected),
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
