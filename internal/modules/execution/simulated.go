package execution

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// Simulated applies decisions directly to the portfolio ledger without
// touching any exchange. It succeeds whenever the ledger's own preconditions
// hold (positive quantity, sufficient margin, an open position for exits).
type Simulated struct {
	ledger *portfolio.Ledger
	log    zerolog.Logger
}

// NewSimulated creates a simulated execution adapter
func NewSimulated(ledger *portfolio.Ledger, log zerolog.Logger) *Simulated {
	return &Simulated{
		ledger: ledger,
		log:    log.With().Str("adapter", "simulated").Logger(),
	}
}

// Execute applies one decision to the ledger
func (s *Simulated) Execute(ctx context.Context, acct *account.Account, coin string, decision trading.Decision, price float64) *Result {
	switch {
	case decision.Signal.IsHold():
		return &Result{Status: StatusSkipped, Coin: coin}

	case decision.Signal.IsEntry():
		trade, err := s.ledger.OpenOrIncrease(
			acct, coin, decision.Signal.PositionSide(),
			decision.Quantity, price, decision.Leverage)
		if err != nil {
			return &Result{Status: StatusFailed, Coin: coin, Error: err.Error()}
		}
		return &Result{Status: StatusSimulated, Coin: coin, Price: trade.Price}

	case decision.Signal.IsExit():
		trade, err := s.ledger.CloseByCoin(acct, coin, price)
		if err != nil {
			return &Result{Status: StatusFailed, Coin: coin, Error: err.Error()}
		}
		return &Result{
			Status: StatusSimulated,
			Coin:   coin,
			Price:  trade.Price,
			PnL:    trade.RealizedPnL,
		}

	default:
		return &Result{Status: StatusFailed, Coin: coin, Error: "unknown signal"}
	}
}
