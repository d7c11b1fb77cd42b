package risk

import (
	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/pkg/formulas"
)

// LimitUsage describes how much of one risk limit is consumed
type LimitUsage struct {
	Limit    float64 `json:"limit"`
	Current  float64 `json:"current"`
	Breached bool    `json:"breached"`
}

// Status is the per-limit usage snapshot exposed to callers
type Status struct {
	AccountID       string     `json:"account_id"`
	TotalValue      float64    `json:"total_value"`
	Cash            float64    `json:"cash"`
	PeakEquity      float64    `json:"peak_equity"`
	MaxPositionSize LimitUsage `json:"max_position_size"`
	DailyLoss       LimitUsage `json:"daily_loss"`
	DailyTrades     LimitUsage `json:"daily_trades"`
	OpenPositions   LimitUsage `json:"open_positions"`
	CashReserve     LimitUsage `json:"cash_reserve"`
	Drawdown        LimitUsage `json:"drawdown"`
}

// BuildStatus assembles the risk status for one account
func BuildStatus(acct *account.Account, snapshot *portfolio.Snapshot, tradesToday int, peakEquity float64) *Status {
	if peakEquity <= 0 {
		peakEquity = acct.InitialCapital
	}

	lossPct := formulas.ChangePct(snapshot.TotalValue, acct.InitialCapital)
	drawdownPct := formulas.DrawdownPct(snapshot.TotalValue, peakEquity)
	reserve := snapshot.TotalValue * acct.Risk.MinCashReservePct / 100

	return &Status{
		AccountID:  acct.ID,
		TotalValue: snapshot.TotalValue,
		Cash:       snapshot.Cash,
		PeakEquity: peakEquity,
		MaxPositionSize: LimitUsage{
			Limit:   snapshot.TotalValue * acct.Risk.MaxPositionSizePct / 100,
			Current: 0,
		},
		DailyLoss: LimitUsage{
			Limit:    -acct.Risk.MaxDailyLossPct,
			Current:  lossPct,
			Breached: lossPct < -acct.Risk.MaxDailyLossPct,
		},
		DailyTrades: LimitUsage{
			Limit:    float64(acct.Risk.MaxDailyTrades),
			Current:  float64(tradesToday),
			Breached: tradesToday >= acct.Risk.MaxDailyTrades,
		},
		OpenPositions: LimitUsage{
			Limit:    float64(acct.Risk.MaxOpenPositions),
			Current:  float64(snapshot.OpenPositions()),
			Breached: snapshot.OpenPositions() >= acct.Risk.MaxOpenPositions,
		},
		CashReserve: LimitUsage{
			Limit:    reserve,
			Current:  snapshot.Cash,
			Breached: snapshot.Cash < reserve,
		},
		Drawdown: LimitUsage{
			Limit:    -acct.Risk.MaxDrawdownPct,
			Current:  drawdownPct,
			Breached: drawdownPct < -acct.Risk.MaxDrawdownPct,
		},
	}
}
