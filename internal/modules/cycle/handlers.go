package cycle

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/modules/account"
)

// Handlers contains HTTP handlers for on-demand cycle runs
type Handlers struct {
	controller *Controller
	log        zerolog.Logger
}

// NewHandlers creates a new cycle handlers instance
func NewHandlers(controller *Controller, log zerolog.Logger) *Handlers {
	return &Handlers{
		controller: controller,
		log:        log.With().Str("handler", "cycle").Logger(),
	}
}

// HandleRunCycle triggers one trading cycle for an account outside the
// scheduled loop
// POST /api/accounts/{id}/cycle
func (h *Handlers) HandleRunCycle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.controller.Run(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("account", id).Msg("Trading cycle failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
