package trading

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers contains HTTP handlers for trade history
type Handlers struct {
	trades *TradeRepository
	log    zerolog.Logger
}

// NewHandlers creates a new trading handlers instance
func NewHandlers(trades *TradeRepository, log zerolog.Logger) *Handlers {
	return &Handlers{
		trades: trades,
		log:    log.With().Str("handler", "trading").Logger(),
	}
}

// HandleGetTrades returns an account's trade history, newest first
// GET /api/accounts/{id}/trades
func (h *Handlers) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	accountID := chi.URLParam(r, "id")
	trades, err := h.trades.GetRecent(accountID, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get trade history")
		http.Error(w, "Failed to get trade history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"account_id": accountID,
		"trades":     trades,
	}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
