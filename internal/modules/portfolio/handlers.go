package portfolio

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/market"
	"github.com/dkoutsos/alphapilot/internal/modules/account"
)

// Handlers contains HTTP handlers for portfolio state
type Handlers struct {
	ledger   *Ledger
	accounts *account.Service
	prices   market.Source
	coins    []string
	log      zerolog.Logger
}

// NewHandlers creates a new portfolio handlers instance
func NewHandlers(ledger *Ledger, accounts *account.Service, prices market.Source, coins []string, log zerolog.Logger) *Handlers {
	return &Handlers{
		ledger:   ledger,
		accounts: accounts,
		prices:   prices,
		coins:    coins,
		log:      log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns the account's full portfolio snapshot at
// current market prices
// GET /api/accounts/{id}/portfolio
func (h *Handlers) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accounts.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to get account")
		http.Error(w, "Failed to get account", http.StatusInternalServerError)
		return
	}

	quotes, err := h.prices.GetQuotes(r.Context(), h.coins)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch market quotes")
		http.Error(w, "Failed to fetch market quotes", http.StatusInternalServerError)
		return
	}

	snapshot, err := h.ledger.Snapshot(acct, market.Prices(quotes))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio snapshot")
		http.Error(w, "Failed to build portfolio snapshot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
