package risk

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/market"
	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// Handlers contains HTTP handlers for risk limit reporting
type Handlers struct {
	accounts *account.Service
	ledger   *portfolio.Ledger
	trades   *trading.TradeRepository
	prices   market.Source
	coins    []string
	log      zerolog.Logger
}

// NewHandlers creates a new risk handlers instance
func NewHandlers(
	accounts *account.Service,
	ledger *portfolio.Ledger,
	trades *trading.TradeRepository,
	prices market.Source,
	coins []string,
	log zerolog.Logger,
) *Handlers {
	return &Handlers{
		accounts: accounts,
		ledger:   ledger,
		trades:   trades,
		prices:   prices,
		coins:    coins,
		log:      log.With().Str("handler", "risk").Logger(),
	}
}

// HandleGetStatus reports every risk limit against its current usage
// GET /api/accounts/{id}/risk
func (h *Handlers) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
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

	tradesToday, err := h.trades.CountToday(acct.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count daily trades")
		http.Error(w, "Failed to count daily trades", http.StatusInternalServerError)
		return
	}

	peak, err := h.accounts.PeakEquity(acct)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load peak equity")
		http.Error(w, "Failed to load peak equity", http.StatusInternalServerError)
		return
	}

	status := BuildStatus(acct, snapshot, tradesToday, peak)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
