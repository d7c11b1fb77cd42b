package risk

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
	"github.com/dkoutsos/alphapilot/pkg/formulas"
)

// Check names, in evaluation order
const (
	CheckPositionSize  = "position_size"
	CheckDailyLoss     = "daily_loss"
	CheckDailyTrades   = "daily_trades"
	CheckOpenPositions = "open_positions"
	CheckCashReserve   = "cash_reserve"
	CheckDrawdown      = "drawdown"
)

// Input bundles everything one validation needs. The validator itself is
// stateless; the caller supplies consistent snapshots.
type Input struct {
	Account     *account.Account
	Coin        string
	Decision    trading.Decision
	Price       float64
	Snapshot    *portfolio.Snapshot
	TradesToday int
	PeakEquity  float64
}

// Result is the outcome of one validation. A failed check is not an error:
// the trade is skipped and the reason surfaced.
type Result struct {
	OK       bool   `json:"ok"`
	Check    string `json:"check,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Critical bool   `json:"critical,omitempty"`
}

func pass() Result {
	return Result{OK: true}
}

func fail(check, reason string) Result {
	return Result{Check: check, Reason: reason}
}

// Validator is the stateless pre-trade rule engine. Checks run in a fixed
// order and short-circuit on the first failure; the returned reason is
// whichever check failed first. It fails closed: any doubt rejects.
type Validator struct {
	log zerolog.Logger
}

// NewValidator creates a new risk validator
func NewValidator(log zerolog.Logger) *Validator {
	return &Validator{
		log: log.With().Str("service", "risk").Logger(),
	}
}

// Validate runs the pre-trade checks for one decision.
// Hold signals always pass trivially.
func (v *Validator) Validate(in Input) Result {
	if in.Decision.Signal.IsHold() {
		return pass()
	}

	checks := []func(Input) Result{
		v.checkPositionSize,
		v.checkDailyLoss,
		v.checkDailyTrades,
		v.checkOpenPositions,
		v.checkCashReserve,
		v.checkDrawdown,
	}

	for _, check := range checks {
		if result := check(in); !result.OK {
			v.log.Debug().
				Str("account", in.Account.ID).
				Str("coin", in.Coin).
				Str("check", result.Check).
				Str("reason", result.Reason).
				Msg("Decision rejected")
			return result
		}
	}

	return pass()
}

// checkPositionSize rejects notionals strictly above the per-trade cap.
// A trade sized at exactly the cap is accepted.
func (v *Validator) checkPositionSize(in Input) Result {
	notional := in.Decision.Quantity * in.Price
	limit := in.Snapshot.TotalValue * in.Account.Risk.MaxPositionSizePct / 100

	if notional > limit {
		return fail(CheckPositionSize, fmt.Sprintf(
			"position size %.2f exceeds limit %.2f (%.1f%% of total value)",
			notional, limit, in.Account.Risk.MaxPositionSizePct))
	}

	return pass()
}

// checkDailyLoss is the account-wide circuit breaker: once total value has
// fallen past the loss threshold, every entry and exit is rejected until
// total value recovers.
func (v *Validator) checkDailyLoss(in Input) Result {
	lossPct := formulas.ChangePct(in.Snapshot.TotalValue, in.Account.InitialCapital)

	if lossPct < -in.Account.Risk.MaxDailyLossPct {
		result := fail(CheckDailyLoss, fmt.Sprintf(
			"daily loss %.2f%% breaches limit of %.1f%%, all trading halted",
			lossPct, in.Account.Risk.MaxDailyLossPct))
		result.Critical = true
		return result
	}

	return pass()
}

func (v *Validator) checkDailyTrades(in Input) Result {
	if in.TradesToday >= in.Account.Risk.MaxDailyTrades {
		return fail(CheckDailyTrades, fmt.Sprintf(
			"daily trade count %d reached limit of %d",
			in.TradesToday, in.Account.Risk.MaxDailyTrades))
	}

	return pass()
}

// checkOpenPositions applies only to entry signals
func (v *Validator) checkOpenPositions(in Input) Result {
	if !in.Decision.Signal.IsEntry() {
		return pass()
	}

	if in.Snapshot.OpenPositions() >= in.Account.Risk.MaxOpenPositions {
		return fail(CheckOpenPositions, fmt.Sprintf(
			"open positions %d reached limit of %d",
			in.Snapshot.OpenPositions(), in.Account.Risk.MaxOpenPositions))
	}

	return pass()
}

// checkCashReserve applies only to entry signals
func (v *Validator) checkCashReserve(in Input) Result {
	if !in.Decision.Signal.IsEntry() {
		return pass()
	}

	leverage := in.Decision.Leverage
	if leverage < 1 {
		leverage = 1
	}

	notional := in.Decision.Quantity * in.Price
	required := notional/float64(leverage) + notional*in.Account.FeeRate
	reserve := in.Snapshot.TotalValue * in.Account.Risk.MinCashReservePct / 100

	if in.Snapshot.Cash-required < reserve {
		return fail(CheckCashReserve, fmt.Sprintf(
			"trade would leave %.2f cash, below required reserve of %.2f",
			in.Snapshot.Cash-required, reserve))
	}

	return pass()
}

// checkDrawdown is only enforced under fully automated trading
func (v *Validator) checkDrawdown(in Input) Result {
	if in.Account.Automation != account.AutomationFullyAutomated {
		return pass()
	}

	peak := in.PeakEquity
	if peak <= 0 {
		peak = in.Account.InitialCapital
	}

	drawdown := formulas.DrawdownPct(in.Snapshot.TotalValue, peak)
	if drawdown < -in.Account.Risk.MaxDrawdownPct {
		return fail(CheckDrawdown, fmt.Sprintf(
			"drawdown %.2f%% from peak %.2f breaches limit of %.1f%%",
			drawdown, peak, in.Account.Risk.MaxDrawdownPct))
	}

	return pass()
}
