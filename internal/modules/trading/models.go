package trading

import (
	"fmt"
	"strings"
	"time"
)

// Signal represents the action an AI decision proposes for a coin
type Signal string

const (
	SignalHold          Signal = "hold"
	SignalBuyToEnter    Signal = "buy_to_enter"
	SignalSellToEnter   Signal = "sell_to_enter"
	SignalClosePosition Signal = "close_position"
)

// IsValid checks if the signal is one of the known values
func (s Signal) IsValid() bool {
	switch s {
	case SignalHold, SignalBuyToEnter, SignalSellToEnter, SignalClosePosition:
		return true
	}
	return false
}

// IsHold returns true for the no-op signal
func (s Signal) IsHold() bool {
	return s == SignalHold
}

// IsEntry returns true for signals that open or increase a position
func (s Signal) IsEntry() bool {
	return s == SignalBuyToEnter || s == SignalSellToEnter
}

// IsExit returns true for signals that close a position
func (s Signal) IsExit() bool {
	return s == SignalClosePosition
}

// PositionSide returns the position side an entry signal maps to.
// Only meaningful for entry signals.
func (s Signal) PositionSide() Side {
	if s == SignalSellToEnter {
		return SideShort
	}
	return SideLong
}

// SignalFromString creates a Signal from a string (case-insensitive)
func SignalFromString(value string) (Signal, error) {
	s := Signal(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", fmt.Errorf("invalid signal: %q", value)
	}
	return s, nil
}

// Side represents the direction of a position
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// IsValid checks if the side is valid
func (s Side) IsValid() bool {
	return s == SideLong || s == SideShort
}

// Decision is one proposed trade produced by the AI decision provider
type Decision struct {
	Signal        Signal   `json:"signal"`
	Quantity      float64  `json:"quantity"`
	Leverage      int      `json:"leverage"`
	StopLoss      *float64 `json:"stop_loss,omitempty"`
	ProfitTarget  *float64 `json:"profit_target,omitempty"`
	Confidence    float64  `json:"confidence"`
	Justification string   `json:"justification,omitempty"`
}

// Validate checks the decision is well-formed enough to act on
func (d *Decision) Validate() error {
	if !d.Signal.IsValid() {
		return fmt.Errorf("invalid signal: %q", d.Signal)
	}

	if d.Signal.IsEntry() && d.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive for entries")
	}

	if d.Leverage < 1 {
		d.Leverage = 1
	}

	return nil
}

// Trade is an immutable record of one executed entry or exit.
// Entries carry a realized P&L of zero; exits carry the net P&L of the
// closed position after the exit fee.
type Trade struct {
	ID          int64     `json:"id"`
	AccountID   string    `json:"account_id"`
	Coin        string    `json:"coin"`
	Signal      Signal    `json:"signal"`
	Side        Side      `json:"side"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price"`
	Leverage    int       `json:"leverage"`
	RealizedPnL float64   `json:"realized_pnl"`
	Fee         float64   `json:"fee"`
	Slippage    float64   `json:"slippage"`
	OrderID     string    `json:"order_id,omitempty"`
	ExecutedAt  time.Time `json:"executed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate validates trade data and normalizes the coin symbol
func (t *Trade) Validate() error {
	if strings.TrimSpace(t.Coin) == "" {
		return fmt.Errorf("coin cannot be empty")
	}

	if t.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	if t.Price <= 0 {
		return fmt.Errorf("price must be positive")
	}

	if !t.Signal.IsValid() {
		return fmt.Errorf("invalid signal: %q", t.Signal)
	}

	if !t.Side.IsValid() {
		return fmt.Errorf("invalid side: %q", t.Side)
	}

	t.Coin = strings.ToUpper(strings.TrimSpace(t.Coin))

	return nil
}
