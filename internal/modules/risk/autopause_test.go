package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoutsos/alphapilot/internal/database"
	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
	"github.com/dkoutsos/alphapilot/pkg/logger"
)

func newTestMonitor(t *testing.T) (*AutoPauseMonitor, *trading.TradeRepository, *account.Account) {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := logger.New(logger.Config{Level: "error"})

	acct, err := account.NewRepository(db.Conn(), log).Create(account.Account{
		ID:                  "acct-1",
		Name:                "Test Account",
		InitialCapital:      10000,
		Environment:         account.EnvironmentSimulation,
		Automation:          account.AutomationFullyAutomated,
		ExchangeEnvironment: account.ExchangeTestnet,
		FeeRate:             0.001,
		Risk:                account.DefaultRiskSettings(),
		Active:              true,
	})
	require.NoError(t, err)

	trades := trading.NewTradeRepository(db.Conn(), log)
	return NewAutoPauseMonitor(trades, log), trades, acct
}

// recordClosedTrades journals closing trades oldest first, so the last pnl
// in the slice is the most recent trade.
func recordClosedTrades(t *testing.T, trades *trading.TradeRepository, accountID string, pnls []float64) {
	t.Helper()
	for _, pnl := range pnls {
		_, err := trades.Create(trading.Trade{
			AccountID:   accountID,
			Coin:        "BTC",
			Signal:      trading.SignalClosePosition,
			Side:        trading.SideLong,
			Quantity:    0.01,
			Price:       50000,
			Leverage:    1,
			RealizedPnL: pnl,
		})
		require.NoError(t, err)
	}
}

func flatSnapshot(acct *account.Account) *portfolio.Snapshot {
	return &portfolio.Snapshot{
		AccountID:  acct.ID,
		Cash:       acct.InitialCapital,
		TotalValue: acct.InitialCapital,
	}
}

func TestAutoPause_NoHistoryNoPause(t *testing.T) {
	monitor, _, acct := newTestMonitor(t)

	paused, reason, err := monitor.Evaluate(acct, flatSnapshot(acct))
	require.NoError(t, err)
	assert.False(t, paused)
	assert.Empty(t, reason)
}

func TestAutoPause_ConsecutiveLosses(t *testing.T) {
	monitor, trades, acct := newTestMonitor(t)

	// Five straight losses, most recent last.
	recordClosedTrades(t, trades, acct.ID, []float64{10, -1, -2, -1, -3, -1})

	paused, reason, err := monitor.Evaluate(acct, flatSnapshot(acct))
	require.NoError(t, err)
	assert.True(t, paused)
	assert.Contains(t, reason, "consecutive losing trades")
}

func TestAutoPause_WinInterruptsStreak(t *testing.T) {
	monitor, trades, acct := newTestMonitor(t)

	// Four losses, a win, then four more losses: no streak of five.
	recordClosedTrades(t, trades, acct.ID, []float64{-1, -1, -1, -1, 5, -1, -1, -1, -1})

	paused, _, err := monitor.Evaluate(acct, flatSnapshot(acct))
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestAutoPause_WinRateNeedsFullWindow(t *testing.T) {
	monitor, trades, acct := newTestMonitor(t)

	// Nine closed trades, all but two losing, but not enough losses in a
	// row to trip the streak trigger. With fewer than ten closed trades the
	// win-rate trigger must stay silent.
	recordClosedTrades(t, trades, acct.ID, []float64{-1, -1, 5, -1, -1, -1, 5, -1, -1})

	paused, _, err := monitor.Evaluate(acct, flatSnapshot(acct))
	require.NoError(t, err)
	assert.False(t, paused)
}

func TestAutoPause_WinRateBelowThreshold(t *testing.T) {
	monitor, trades, acct := newTestMonitor(t)

	// Ten closed trades with three winners: 30% against a 40% threshold.
	recordClosedTrades(t, trades, acct.ID, []float64{5, -1, -1, 5, -1, -1, -1, 5, -1, -1})

	paused, reason, err := monitor.Evaluate(acct, flatSnapshot(acct))
	require.NoError(t, err)
	assert.True(t, paused)
	assert.Contains(t, reason, "win rate")
}

func TestAutoPause_DailyLoss(t *testing.T) {
	monitor, _, acct := newTestMonitor(t)

	snapshot := flatSnapshot(acct)
	snapshot.TotalValue = 9400 // down 6%, limit is 5%

	paused, reason, err := monitor.Evaluate(acct, snapshot)
	require.NoError(t, err)
	assert.True(t, paused)
	assert.Contains(t, reason, "daily P&L")
}
