package market

import "context"

// Quote is the per-coin market snapshot the trading cycle consumes
type Quote struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
}

// Source supplies quotes for a set of coins. Implementations may return a
// partial map; a missing coin means its price is currently unknown.
type Source interface {
	GetQuotes(ctx context.Context, coins []string) (map[string]Quote, error)
}

// Prices reduces a quote map to plain prices for ledger valuation
func Prices(quotes map[string]Quote) map[string]float64 {
	prices := make(map[string]float64, len(quotes))
	for coin, quote := range quotes {
		prices[coin] = quote.Price
	}
	return prices
}
