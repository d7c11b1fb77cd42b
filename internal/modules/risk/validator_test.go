package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
	"github.com/dkoutsos/alphapilot/pkg/logger"
)

func testAccount() *account.Account {
	return &account.Account{
		ID:             "acct-1",
		InitialCapital: 10000,
		Environment:    account.EnvironmentSimulation,
		Automation:     account.AutomationFullyAutomated,
		FeeRate:        0.001,
		Risk:           account.DefaultRiskSettings(),
	}
}

func testInput(acct *account.Account) Input {
	return Input{
		Account: acct,
		Coin:    "BTC",
		Decision: trading.Decision{
			Signal:   trading.SignalBuyToEnter,
			Quantity: 0.01,
			Leverage: 1,
		},
		Price: 50000,
		Snapshot: &portfolio.Snapshot{
			AccountID:  acct.ID,
			Cash:       10000,
			TotalValue: 10000,
		},
		TradesToday: 0,
		PeakEquity:  10000,
	}
}

func TestValidator_HoldAlwaysPasses(t *testing.T) {
	v := NewValidator(logger.New(logger.Config{Level: "error"}))

	in := testInput(testAccount())
	in.Decision.Signal = trading.SignalHold
	// Every limit is breached, hold passes anyway.
	in.Snapshot.TotalValue = 1
	in.TradesToday = 1000

	assert.True(t, v.Validate(in).OK)
}

func TestValidator_PositionSize(t *testing.T) {
	v := NewValidator(logger.New(logger.Config{Level: "error"}))
	acct := testAccount()

	// Exactly at the 25% cap: accepted.
	in := testInput(acct)
	in.Decision.Quantity = 0.05 // 2500 notional
	result := v.Validate(in)
	assert.True(t, result.OK)

	// Strictly above: rejected.
	in.Decision.Quantity = 0.0501
	result = v.Validate(in)
	assert.False(t, result.OK)
	assert.Equal(t, CheckPositionSize, result.Check)
	assert.False(t, result.Critical)
}

func TestValidator_DailyLossHaltsExitsToo(t *testing.T) {
	v := NewValidator(logger.New(logger.Config{Level: "error"}))
	acct := testAccount()

	in := testInput(acct)
	in.Decision = trading.Decision{Signal: trading.SignalClosePosition, Quantity: 0.01, Leverage: 1}
	in.Snapshot.TotalValue = 9400 // down 6%, limit is 5%

	result := v.Validate(in)
	assert.False(t, result.OK)
	assert.Equal(t, CheckDailyLoss, result.Check)
	assert.True(t, result.Critical)
}

func TestValidator_DailyTrades(t *testing.T) {
	v := NewValidator(logger.New(logger.Config{Level: "error"}))
	acct := testAccount()

	in := testInput(acct)
	in.TradesToday = acct.Risk.MaxDailyTrades

	result := v.Validate(in)
	assert.False(t, result.OK)
	assert.Equal(t, CheckDailyTrades, result.Check)
}

func TestValidator_OpenPositionsEntryOnly(t *testing.T) {
	v := NewValidator(logger.New(logger.Config{Level: "error"}))
	acct := testAccount()

	full := make([]portfolio.PositionView, acct.Risk.MaxOpenPositions)
	for i := range full {
		full[i] = portfolio.PositionView{Position: portfolio.Position{Coin: "ETH", Quantity: 1}}
	}

	in := testInput(acct)
	in.Snapshot.Positions = full

	result := v.Validate(in)
	assert.False(t, result.OK)
	assert.Equal(t, CheckOpenPositions, result.Check)

	// Exits are exempt so a full book can still be unwound.
	in.Decision.Signal = trading.SignalClosePosition
	assert.True(t, v.Validate(in).OK)
}

func TestValidator_CashReserve(t *testing.T) {
	v := NewValidator(logger.New(logger.Config{Level: "error"}))
	acct := testAccount()

	in := testInput(acct)
	in.Snapshot.Cash = 1500
	in.Decision.Quantity = 0.02 // needs 1000 margin + 1 fee, leaves 499 < 1000 reserve

	result := v.Validate(in)
	assert.False(t, result.OK)
	assert.Equal(t, CheckCashReserve, result.Check)

	// Leverage shrinks the margin requirement below the reserve line.
	in.Decision.Leverage = 5
	assert.True(t, v.Validate(in).OK)
}

func TestValidator_DrawdownOnlyWhenFullyAutomated(t *testing.T) {
	v := NewValidator(logger.New(logger.Config{Level: "error"}))
	acct := testAccount()

	in := testInput(acct)
	in.PeakEquity = 13000
	in.Snapshot.TotalValue = 10000 // 23% drawdown, limit 20%
	in.Snapshot.Cash = 10000

	result := v.Validate(in)
	assert.False(t, result.OK)
	assert.Equal(t, CheckDrawdown, result.Check)

	// The same numbers pass for a semi automated account.
	acct.Automation = account.AutomationSemiAutomated
	assert.True(t, v.Validate(in).OK)
}

func TestValidator_CheckOrderShortCircuits(t *testing.T) {
	v := NewValidator(logger.New(logger.Config{Level: "error"}))
	acct := testAccount()

	// Both position size and daily trades would fail; position size is
	// evaluated first.
	in := testInput(acct)
	in.Decision.Quantity = 1.0
	in.TradesToday = 1000

	result := v.Validate(in)
	assert.False(t, result.OK)
	assert.Equal(t, CheckPositionSize, result.Check)
}
