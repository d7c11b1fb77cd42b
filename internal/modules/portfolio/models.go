package portfolio

import (
	"time"

	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// Position represents one open leveraged position. The (account, coin, side)
// triple is unique; a second entry for the same key replaces quantity,
// average price and leverage rather than creating a second record.
type Position struct {
	ID        int64        `json:"id"`
	AccountID string       `json:"account_id"`
	Coin      string       `json:"coin"`
	Side      trading.Side `json:"side"`
	Quantity  float64      `json:"quantity"`
	AvgPrice  float64      `json:"avg_price"`
	Leverage  int          `json:"leverage"`
	OpenedAt  time.Time    `json:"opened_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Margin returns the capital reserved against this position
func (p *Position) Margin() float64 {
	leverage := p.Leverage
	if leverage < 1 {
		leverage = 1
	}
	return p.Quantity * p.AvgPrice / float64(leverage)
}

// Notional returns the position's value at its entry price
func (p *Position) Notional() float64 {
	return p.Quantity * p.AvgPrice
}

// UnrealizedPnL returns the mark-to-market P&L at the given price.
// A zero price (price unknown) yields zero rather than an error.
func (p *Position) UnrealizedPnL(currentPrice float64) float64 {
	if currentPrice <= 0 {
		return 0
	}
	if p.Side == trading.SideShort {
		return (p.AvgPrice - currentPrice) * p.Quantity
	}
	return (currentPrice - p.AvgPrice) * p.Quantity
}

// PositionView is a position enriched with current market data
type PositionView struct {
	Position
	CurrentPrice  float64 `json:"current_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// Snapshot is the full accounting view of one account at current prices
type Snapshot struct {
	AccountID      string         `json:"account_id"`
	Cash           float64        `json:"cash"`
	Positions      []PositionView `json:"positions"`
	PositionsValue float64        `json:"positions_value"`
	MarginUsed     float64        `json:"margin_used"`
	TotalValue     float64        `json:"total_value"`
	RealizedPnL    float64        `json:"realized_pnl"`
	UnrealizedPnL  float64        `json:"unrealized_pnl"`
}

// OpenPositions returns the number of open positions in the snapshot
func (s *Snapshot) OpenPositions() int {
	return len(s.Positions)
}
