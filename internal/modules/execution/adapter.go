package execution

import (
	"context"

	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// Status is the outcome class of one execution attempt
type Status string

const (
	StatusExecuted  Status = "executed"  // filled on a real exchange
	StatusSimulated Status = "simulated" // applied to the simulated ledger only
	StatusFailed    Status = "failed"    // nothing was applied
	StatusSkipped   Status = "skipped"   // nothing to do (hold)
)

// Result describes what one execution attempt did
type Result struct {
	Status  Status  `json:"status"`
	Coin    string  `json:"coin"`
	Price   float64 `json:"price,omitempty"`
	OrderID string  `json:"order_id,omitempty"`
	PnL     float64 `json:"pnl,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Adapter executes one approved decision. Simulated and live implementations
// share this contract; callers select the adapter by the account's
// environment. Failures are reported in the Result, never by panicking, and
// a failed execution leaves the ledger untouched.
type Adapter interface {
	Execute(ctx context.Context, acct *account.Account, coin string, decision trading.Decision, price float64) *Result
}
