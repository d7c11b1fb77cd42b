package trading

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoutsos/alphapilot/internal/database"
	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/incidents"
	"github.com/dkoutsos/alphapilot/internal/notify"
	"github.com/dkoutsos/alphapilot/pkg/logger"
)

func newTestRepo(t *testing.T) *TradeRepository {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := logger.New(logger.Config{Level: "error"})
	incidentSvc := incidents.NewService(incidents.NewRepository(db.Conn(), log), notify.Nop{}, log)
	accounts := account.NewService(account.NewRepository(db.Conn(), log), incidentSvc, log)
	_, err = accounts.Create(account.Account{
		ID:             "acct-1",
		Name:           "Test",
		InitialCapital: 10000,
		Active:         true,
	})
	require.NoError(t, err)

	return NewTradeRepository(db.Conn(), log)
}

func closeTrade(executedAt time.Time, pnl float64) Trade {
	return Trade{
		AccountID:   "acct-1",
		Coin:        "BTC",
		Signal:      SignalClosePosition,
		Side:        SideLong,
		Quantity:    0.1,
		Price:       50000,
		Leverage:    1,
		RealizedPnL: pnl,
		ExecutedAt:  executedAt,
	}
}

// Timestamps are stored as fixed-width strings and compared lexicographically
// in SQL, so sub-second boundaries must be exact.
func TestTradeRepository_CountSinceSubSecondBoundary(t *testing.T) {
	repo := newTestRepo(t)

	onTheSecond := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := repo.Create(closeTrade(onTheSecond, 10))
	require.NoError(t, err)

	count, err := repo.CountSince("acct-1", onTheSecond.Add(500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = repo.CountSince("acct-1", onTheSecond)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTradeRepository_RecentClosedOrdersWithinSecond(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, err := repo.Create(closeTrade(base, -5))
	require.NoError(t, err)
	_, err = repo.Create(closeTrade(base.Add(900*time.Millisecond), 7))
	require.NoError(t, err)

	trades, err := repo.GetRecentClosed("acct-1", 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, 7.0, trades[0].RealizedPnL)
	assert.Equal(t, -5.0, trades[1].RealizedPnL)
}
