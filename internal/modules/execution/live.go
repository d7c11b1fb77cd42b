package execution

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/clients/binance"
	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/incidents"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// ExchangeClient is the boundary to the real exchange
type ExchangeClient interface {
	PlaceMarketOrder(ctx context.Context, symbol, side string, qty float64) (*binance.OrderResult, error)
}

// Live places real market orders and mirrors successful fills into the
// ledger. An exchange failure journals a high-severity incident and leaves
// the ledger untouched. When no exchange client is configured it falls back
// to simulated execution and journals a critical incident so the discrepancy
// stays visible.
type Live struct {
	exchange  ExchangeClient
	ledger    *portfolio.Ledger
	positions *portfolio.PositionRepository
	incidents *incidents.Service
	fallback  *Simulated
	log       zerolog.Logger
}

// NewLive creates a live execution adapter. exchange may be nil when no
// credentials are configured.
func NewLive(
	exchange ExchangeClient,
	ledger *portfolio.Ledger,
	positions *portfolio.PositionRepository,
	incidentSvc *incidents.Service,
	log zerolog.Logger,
) *Live {
	return &Live{
		exchange:  exchange,
		ledger:    ledger,
		positions: positions,
		incidents: incidentSvc,
		fallback:  NewSimulated(ledger, log),
		log:       log.With().Str("adapter", "live").Logger(),
	}
}

// Execute places a market order for one decision
func (l *Live) Execute(ctx context.Context, acct *account.Account, coin string, decision trading.Decision, price float64) *Result {
	if decision.Signal.IsHold() {
		return &Result{Status: StatusSkipped, Coin: coin}
	}

	if l.exchange == nil {
		l.incidents.Record(acct.ID, incidents.TypeExchangeNotConfigured, incidents.SeverityCritical,
			"live execution requested but no exchange credentials configured, falling back to simulation",
			map[string]interface{}{"coin": coin, "signal": string(decision.Signal)})
		return l.fallback.Execute(ctx, acct, coin, decision, price)
	}

	side, qty, err := l.orderParams(acct, coin, decision)
	if err != nil {
		return &Result{Status: StatusFailed, Coin: coin, Error: err.Error()}
	}

	order, err := l.exchange.PlaceMarketOrder(ctx, binance.Symbol(coin), side, qty)
	if err != nil {
		l.incidents.Record(acct.ID, incidents.TypeExecutionError, incidents.SeverityHigh,
			fmt.Sprintf("exchange order for %s failed: %v", coin, err),
			map[string]interface{}{
				"coin":   coin,
				"signal": string(decision.Signal),
				"side":   side,
				"qty":    qty,
			})
		return &Result{Status: StatusFailed, Coin: coin, Error: err.Error()}
	}

	fillPrice := order.Price
	if fillPrice <= 0 {
		fillPrice = price
	}

	// Mirror the fill into the ledger, same mutation as simulated execution.
	var trade *trading.Trade
	if decision.Signal.IsEntry() {
		trade, err = l.ledger.OpenOrIncrease(
			acct, coin, decision.Signal.PositionSide(),
			order.Quantity, fillPrice, decision.Leverage)
	} else {
		trade, err = l.ledger.CloseByCoin(acct, coin, fillPrice)
	}
	if err != nil {
		// The order went through; the books are now behind the exchange.
		l.incidents.Record(acct.ID, incidents.TypeExecutionError, incidents.SeverityHigh,
			fmt.Sprintf("order %s filled but ledger update failed: %v", order.OrderID, err),
			map[string]interface{}{"coin": coin, "order_id": order.OrderID})
		return &Result{
			Status:  StatusExecuted,
			Coin:    coin,
			Price:   fillPrice,
			OrderID: order.OrderID,
			Error:   err.Error(),
		}
	}

	result := &Result{
		Status:  StatusExecuted,
		Coin:    coin,
		Price:   fillPrice,
		OrderID: order.OrderID,
	}
	if trade.Signal.IsExit() {
		result.PnL = trade.RealizedPnL
	}

	return result
}

// orderParams maps a decision to exchange order parameters. Exits trade the
// opposite side of the open position for its full quantity.
func (l *Live) orderParams(acct *account.Account, coin string, decision trading.Decision) (string, float64, error) {
	if decision.Signal.IsEntry() {
		if decision.Signal == trading.SignalSellToEnter {
			return "SELL", decision.Quantity, nil
		}
		return "BUY", decision.Quantity, nil
	}

	pos, err := l.positions.GetByCoin(acct.ID, coin)
	if err != nil {
		return "", 0, err
	}
	if pos == nil {
		return "", 0, fmt.Errorf("%w: %s", portfolio.ErrNoPosition, coin)
	}

	if pos.Side == trading.SideShort {
		return "BUY", pos.Quantity, nil
	}
	return "SELL", pos.Quantity, nil
}
