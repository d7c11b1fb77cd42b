package risk

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
	"github.com/dkoutsos/alphapilot/pkg/formulas"
)

// winRateWindow is the number of recent closed trades the win-rate trigger
// looks at. The trigger stays silent until the window is full.
const winRateWindow = 10

// AutoPauseMonitor evaluates circuit-breaker triggers for fully automated
// accounts. Any single trigger is sufficient; the returned reason is the
// first trigger detected, in the order: consecutive losses, win rate,
// daily loss.
type AutoPauseMonitor struct {
	trades *trading.TradeRepository
	log    zerolog.Logger
}

// NewAutoPauseMonitor creates a new auto-pause monitor
func NewAutoPauseMonitor(trades *trading.TradeRepository, log zerolog.Logger) *AutoPauseMonitor {
	return &AutoPauseMonitor{
		trades: trades,
		log:    log.With().Str("service", "autopause").Logger(),
	}
}

// Evaluate reports whether the account should be paused and why
func (m *AutoPauseMonitor) Evaluate(acct *account.Account, snapshot *portfolio.Snapshot) (bool, string, error) {
	closed, err := m.trades.GetRecentClosed(acct.ID, 50)
	if err != nil {
		return false, "", fmt.Errorf("failed to load closed trades: %w", err)
	}

	// Most recent first, as GetRecentClosed orders them.
	pnls := make([]float64, len(closed))
	for i, trade := range closed {
		pnls[i] = trade.RealizedPnL
	}

	if streak := formulas.ConsecutiveLosses(pnls); streak >= acct.Risk.AutoPauseConsecutiveLosses {
		return true, fmt.Sprintf(
			"%d consecutive losing trades (limit %d)",
			streak, acct.Risk.AutoPauseConsecutiveLosses), nil
	}

	if len(pnls) >= winRateWindow {
		winRate := formulas.WinRate(pnls[:winRateWindow]) * 100
		if winRate < acct.Risk.AutoPauseWinRateThreshold {
			return true, fmt.Sprintf(
				"win rate %.0f%% over last %d trades below threshold %.0f%%",
				winRate, winRateWindow, acct.Risk.AutoPauseWinRateThreshold), nil
		}
	}

	dailyPnLPct := formulas.ChangePct(snapshot.TotalValue, acct.InitialCapital)
	if dailyPnLPct < -acct.Risk.MaxDailyLossPct {
		return true, fmt.Sprintf(
			"daily P&L %.2f%% breaches loss limit of %.1f%%",
			dailyPnLPct, acct.Risk.MaxDailyLossPct), nil
	}

	return false, "", nil
}
