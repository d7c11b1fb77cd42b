package approvals

import (
	"time"

	"github.com/dkoutsos/alphapilot/internal/modules/execution"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// Status of a pending decision. Approved, rejected and expired are terminal;
// once terminal a decision is never re-opened.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// IsTerminal reports whether the status can no longer change
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// DefaultTTL is how long a queued decision waits for approval
const DefaultTTL = time.Hour

// Modifications are optional overrides a human may apply when approving
type Modifications struct {
	Quantity *float64 `json:"quantity,omitempty"`
	Leverage *int     `json:"leverage,omitempty"`
}

// Apply merges the overrides into a decision
func (m *Modifications) Apply(decision trading.Decision) trading.Decision {
	if m == nil {
		return decision
	}
	if m.Quantity != nil {
		decision.Quantity = *m.Quantity
	}
	if m.Leverage != nil {
		decision.Leverage = *m.Leverage
	}
	return decision
}

// PendingDecision is one AI decision awaiting human approval
type PendingDecision struct {
	ID            string           `json:"id"`
	AccountID     string           `json:"account_id"`
	Coin          string           `json:"coin"`
	Decision      trading.Decision `json:"decision"`
	Explanation   string           `json:"explanation,omitempty"`
	Status        Status           `json:"status"`
	Modifications *Modifications   `json:"modifications,omitempty"`
	ExpiresAt     time.Time        `json:"expires_at"`
	ResolvedAt    *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Expired reports whether the decision's approval window has passed
func (p *PendingDecision) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// ApprovalEvent journals the resolution of one pending decision
type ApprovalEvent struct {
	ID              int64             `json:"id"`
	DecisionID      string            `json:"decision_id"`
	Approved        bool              `json:"approved"`
	Reason          string            `json:"reason,omitempty"`
	ExecutionResult *execution.Result `json:"execution_result,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
