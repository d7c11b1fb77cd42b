package portfolio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// ErrInsufficientCash is returned when an entry's margin plus fee exceeds
// the account's available cash.
var ErrInsufficientCash = errors.New("insufficient cash for margin and fee")

// ErrNoPosition is returned when closing a coin with no open position.
var ErrNoPosition = errors.New("no open position")

// Ledger owns position and cash/P&L accounting for accounts. It is the only
// mutator of position and trade state.
//
// Cash is derived, not stored:
//
//	cash = initial_capital + realized_pnl - entry_fees - margin_used
//
// Realized P&L is the sum of closing-trade P&L (already net of exit fees);
// entry fees are tracked separately because entry trades record pnl = 0.
type Ledger struct {
	positions *PositionRepository
	trades    *trading.TradeRepository
	log       zerolog.Logger
}

// NewLedger creates a new portfolio ledger
func NewLedger(positions *PositionRepository, trades *trading.TradeRepository, log zerolog.Logger) *Ledger {
	return &Ledger{
		positions: positions,
		trades:    trades,
		log:       log.With().Str("service", "ledger").Logger(),
	}
}

// Snapshot computes the account's full accounting view at current prices.
// A coin missing from prices values its position's unrealized P&L at zero.
func (l *Ledger) Snapshot(acct *account.Account, prices map[string]float64) (*Snapshot, error) {
	positions, err := l.positions.GetAll(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	realized, err := l.trades.SumRealizedPnL(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load realized pnl: %w", err)
	}

	entryFees, err := l.trades.SumEntryFees(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entry fees: %w", err)
	}

	snapshot := &Snapshot{
		AccountID:   acct.ID,
		RealizedPnL: realized,
	}

	for _, pos := range positions {
		price := prices[pos.Coin]
		view := PositionView{
			Position:      pos,
			CurrentPrice:  price,
			UnrealizedPnL: pos.UnrealizedPnL(price),
		}

		snapshot.Positions = append(snapshot.Positions, view)
		snapshot.PositionsValue += pos.Notional()
		snapshot.MarginUsed += pos.Margin()
		snapshot.UnrealizedPnL += view.UnrealizedPnL
	}

	snapshot.Cash = acct.InitialCapital + realized - entryFees - snapshot.MarginUsed
	snapshot.TotalValue = acct.InitialCapital + realized + snapshot.UnrealizedPnL

	return snapshot, nil
}

// OpenOrIncrease opens a position or replaces an existing one for the same
// (coin, side) key. The required margin is qty*price/leverage and the entry
// fee is qty*price*feeRate; both must be covered by available cash. A second
// entry for the same key replaces quantity, average price and leverage
// outright rather than averaging in.
func (l *Ledger) OpenOrIncrease(acct *account.Account, coin string, side trading.Side, qty, price float64, leverage int) (*trading.Trade, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}
	if leverage < 1 {
		leverage = 1
	}

	snapshot, err := l.Snapshot(acct, nil)
	if err != nil {
		return nil, err
	}

	margin := qty * price / float64(leverage)
	fee := qty * price * acct.FeeRate

	if margin+fee > snapshot.Cash {
		return nil, fmt.Errorf("%w: need %.2f, have %.2f",
			ErrInsufficientCash, margin+fee, snapshot.Cash)
	}

	pos := Position{
		AccountID: acct.ID,
		Coin:      coin,
		Side:      side,
		Quantity:  qty,
		AvgPrice:  price,
		Leverage:  leverage,
	}
	if err := l.positions.Upsert(pos); err != nil {
		return nil, err
	}

	signal := trading.SignalBuyToEnter
	if side == trading.SideShort {
		signal = trading.SignalSellToEnter
	}

	trade, err := l.trades.Create(trading.Trade{
		AccountID:   acct.ID,
		Coin:        coin,
		Signal:      signal,
		Side:        side,
		Quantity:    qty,
		Price:       price,
		Leverage:    leverage,
		RealizedPnL: 0,
		Fee:         fee,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to journal entry trade: %w", err)
	}

	l.log.Info().
		Str("account", acct.ID).
		Str("coin", trade.Coin).
		Str("side", string(side)).
		Float64("quantity", qty).
		Float64("price", price).
		Int("leverage", leverage).
		Float64("margin", margin).
		Float64("fee", fee).
		Msg("Position opened")

	return trade, nil
}

// Close closes the position for a (coin, side) key at the given exit price.
// Gross P&L is (exit-entry)*qty for longs and (entry-exit)*qty for shorts;
// the exit fee is qty*exitPrice*feeRate and the journaled P&L is net of it.
func (l *Ledger) Close(acct *account.Account, coin string, side trading.Side, exitPrice float64) (*trading.Trade, error) {
	pos, err := l.positions.Get(acct.ID, coin, side)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrNoPosition, coin, side)
	}

	return l.closePosition(acct, pos, exitPrice)
}

// CloseByCoin closes whichever position is open for the coin, on either side
func (l *Ledger) CloseByCoin(acct *account.Account, coin string, exitPrice float64) (*trading.Trade, error) {
	pos, err := l.positions.GetByCoin(acct.ID, coin)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPosition, coin)
	}

	return l.closePosition(acct, pos, exitPrice)
}

func (l *Ledger) closePosition(acct *account.Account, pos *Position, exitPrice float64) (*trading.Trade, error) {
	if exitPrice <= 0 {
		return nil, fmt.Errorf("exit price must be positive")
	}

	var grossPnL float64
	if pos.Side == trading.SideShort {
		grossPnL = (pos.AvgPrice - exitPrice) * pos.Quantity
	} else {
		grossPnL = (exitPrice - pos.AvgPrice) * pos.Quantity
	}

	fee := pos.Quantity * exitPrice * acct.FeeRate
	netPnL := grossPnL - fee

	if err := l.positions.Delete(acct.ID, pos.Coin, pos.Side); err != nil {
		return nil, err
	}

	trade, err := l.trades.Create(trading.Trade{
		AccountID:   acct.ID,
		Coin:        pos.Coin,
		Signal:      trading.SignalClosePosition,
		Side:        pos.Side,
		Quantity:    pos.Quantity,
		Price:       exitPrice,
		Leverage:    pos.Leverage,
		RealizedPnL: netPnL,
		Fee:         fee,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to journal close trade: %w", err)
	}

	l.log.Info().
		Str("account", acct.ID).
		Str("coin", pos.Coin).
		Str("side", string(pos.Side)).
		Float64("exit_price", exitPrice).
		Float64("gross_pnl", grossPnL).
		Float64("net_pnl", netPnL).
		Float64("fee", fee).
		Msg("Position closed")

	return trade, nil
}
