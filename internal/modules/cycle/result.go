package cycle

import (
	"time"

	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/execution"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// ExecutionOutcome pairs a decision with what its execution did
type ExecutionOutcome struct {
	Coin     string            `json:"coin"`
	Decision trading.Decision  `json:"decision"`
	Result   *execution.Result `json:"result"`
}

// SkippedDecision records a decision rejected by the risk validator
type SkippedDecision struct {
	Coin   string         `json:"coin"`
	Signal trading.Signal `json:"signal"`
	Check  string         `json:"check"`
	Reason string         `json:"reason"`
}

// DisplayedDecision is a risk-approved decision surfaced for display only,
// never executed (manual mode)
type DisplayedDecision struct {
	Coin     string           `json:"coin"`
	Decision trading.Decision `json:"decision"`
	Price    float64          `json:"price"`
}

// Result is everything one trading cycle did for one account
type Result struct {
	AccountID   string              `json:"account_id"`
	Environment account.Environment `json:"environment"`
	Automation  account.Automation  `json:"automation"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	AutoPaused  bool                `json:"auto_paused"`
	PauseReason string              `json:"pause_reason,omitempty"`
	Executed    []ExecutionOutcome  `json:"executed,omitempty"`
	Pending     []string            `json:"pending,omitempty"`
	Displayed   []DisplayedDecision `json:"displayed,omitempty"`
	Skipped     []SkippedDecision   `json:"skipped,omitempty"`
}
