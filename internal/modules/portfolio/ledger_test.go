package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoutsos/alphapilot/internal/database"
	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
	"github.com/dkoutsos/alphapilot/pkg/logger"
)

func newTestLedger(t *testing.T) (*Ledger, *account.Account) {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := logger.New(logger.Config{Level: "error", Pretty: false})

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

	ledger := NewLedger(
		NewPositionRepository(db.Conn(), log),
		trading.NewTradeRepository(db.Conn(), log),
		log,
	)
	return ledger, acct
}

func TestLedger_OpenLong(t *testing.T) {
	ledger, acct := newTestLedger(t)

	trade, err := ledger.OpenOrIncrease(acct, "BTC", trading.SideLong, 0.1, 50000, 1)
	require.NoError(t, err)

	assert.Equal(t, trading.SignalBuyToEnter, trade.Signal)
	assert.InDelta(t, 5.0, trade.Fee, 1e-9)
	assert.Equal(t, 0.0, trade.RealizedPnL)

	snapshot, err := ledger.Snapshot(acct, map[string]float64{"BTC": 50000})
	require.NoError(t, err)

	assert.InDelta(t, 5000.0, snapshot.MarginUsed, 1e-9)
	assert.InDelta(t, 4995.0, snapshot.Cash, 1e-9)
	assert.InDelta(t, 0.0, snapshot.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 10000.0, snapshot.TotalValue, 1e-9)
	require.Len(t, snapshot.Positions, 1)
}

func TestLedger_Leverage(t *testing.T) {
	ledger, acct := newTestLedger(t)

	_, err := ledger.OpenOrIncrease(acct, "BTC", trading.SideLong, 0.1, 50000, 5)
	require.NoError(t, err)

	snapshot, err := ledger.Snapshot(acct, map[string]float64{"BTC": 50000})
	require.NoError(t, err)

	// Margin is notional/leverage, the fee stays on full notional.
	assert.InDelta(t, 1000.0, snapshot.MarginUsed, 1e-9)
	assert.InDelta(t, 8995.0, snapshot.Cash, 1e-9)
}

func TestLedger_RoundTripCostsBothFees(t *testing.T) {
	ledger, acct := newTestLedger(t)

	_, err := ledger.OpenOrIncrease(acct, "BTC", trading.SideLong, 0.1, 50000, 1)
	require.NoError(t, err)

	closeTrade, err := ledger.Close(acct, "BTC", trading.SideLong, 50000)
	require.NoError(t, err)

	// Flat exit: realized P&L is exactly the negated exit fee.
	assert.InDelta(t, -5.0, closeTrade.RealizedPnL, 1e-9)

	snapshot, err := ledger.Snapshot(acct, nil)
	require.NoError(t, err)

	assert.Empty(t, snapshot.Positions)
	assert.InDelta(t, 9990.0, snapshot.Cash, 1e-9)
	assert.InDelta(t, -5.0, snapshot.RealizedPnL, 1e-9)
}

func TestLedger_ReplaceOnReentry(t *testing.T) {
	ledger, acct := newTestLedger(t)

	_, err := ledger.OpenOrIncrease(acct, "ETH", trading.SideLong, 1.0, 2000, 1)
	require.NoError(t, err)

	// Second entry for the same (coin, side) replaces outright.
	_, err = ledger.OpenOrIncrease(acct, "ETH", trading.SideLong, 2.0, 1800, 2)
	require.NoError(t, err)

	snapshot, err := ledger.Snapshot(acct, map[string]float64{"ETH": 1800})
	require.NoError(t, err)

	require.Len(t, snapshot.Positions, 1)
	pos := snapshot.Positions[0].Position
	assert.Equal(t, 2.0, pos.Quantity)
	assert.Equal(t, 1800.0, pos.AvgPrice)
	assert.Equal(t, 2, pos.Leverage)

	// Margin reflects only the replacing entry, entry fees accumulate.
	assert.InDelta(t, 1800.0, snapshot.MarginUsed, 1e-9)
	assert.InDelta(t, 10000.0-2.0-3.6-1800.0, snapshot.Cash, 1e-9)
}

func TestLedger_ShortProfitsWhenPriceFalls(t *testing.T) {
	ledger, acct := newTestLedger(t)

	_, err := ledger.OpenOrIncrease(acct, "ETH", trading.SideShort, 1.0, 2000, 1)
	require.NoError(t, err)

	snapshot, err := ledger.Snapshot(acct, map[string]float64{"ETH": 1900})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, snapshot.UnrealizedPnL, 1e-9)

	closeTrade, err := ledger.Close(acct, "ETH", trading.SideShort, 1800)
	require.NoError(t, err)

	// Gross 200, exit fee 1.8
	assert.InDelta(t, 198.2, closeTrade.RealizedPnL, 1e-9)
	assert.Equal(t, trading.SignalClosePosition, closeTrade.Signal)
}

func TestLedger_CloseWithoutPosition(t *testing.T) {
	ledger, acct := newTestLedger(t)

	_, err := ledger.Close(acct, "BTC", trading.SideLong, 50000)
	assert.ErrorIs(t, err, ErrNoPosition)

	_, err = ledger.CloseByCoin(acct, "BTC", 50000)
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestLedger_InsufficientCash(t *testing.T) {
	ledger, acct := newTestLedger(t)

	// Margin alone exceeds initial capital.
	_, err := ledger.OpenOrIncrease(acct, "BTC", trading.SideLong, 1.0, 50000, 1)
	assert.ErrorIs(t, err, ErrInsufficientCash)

	// Margin fits exactly but the fee pushes past available cash.
	_, err = ledger.OpenOrIncrease(acct, "BTC", trading.SideLong, 0.2, 50000, 1)
	assert.ErrorIs(t, err, ErrInsufficientCash)
}

func TestLedger_SnapshotMissingPriceValuesUnrealizedAtZero(t *testing.T) {
	ledger, acct := newTestLedger(t)

	_, err := ledger.OpenOrIncrease(acct, "SOL", trading.SideLong, 10, 100, 1)
	require.NoError(t, err)

	snapshot, err := ledger.Snapshot(acct, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, snapshot.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 1000.0, snapshot.MarginUsed, 1e-9)
}
