package incidents

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for the incident journal
type Handlers struct {
	svc *Service
	log zerolog.Logger
}

// NewHandlers creates a new incidents handlers instance
func NewHandlers(svc *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		svc: svc,
		log: log.With().Str("handler", "incidents").Logger(),
	}
}

// HandleListForAccount returns an account's incidents, newest first
// GET /api/accounts/{id}/incidents
func (h *Handlers) HandleListForAccount(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	filter.AccountID = chi.URLParam(r, "id")
	h.respondList(w, filter)
}

// HandleList returns incidents across all accounts, newest first
// GET /api/incidents
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	h.respondList(w, filterFromQuery(r))
}

func (h *Handlers) respondList(w http.ResponseWriter, filter ListFilter) {
	items, err := h.svc.List(filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list incidents")
		http.Error(w, "Failed to list incidents", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"incidents": items}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func filterFromQuery(r *http.Request) ListFilter {
	filter := ListFilter{
		Type:     r.URL.Query().Get("type"),
		Severity: Severity(r.URL.Query().Get("severity")),
	}
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	return filter
}
