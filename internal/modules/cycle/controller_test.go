package cycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoutsos/alphapilot/internal/clients/advisor"
	"github.com/dkoutsos/alphapilot/internal/database"
	"github.com/dkoutsos/alphapilot/internal/market"
	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/approvals"
	"github.com/dkoutsos/alphapilot/internal/modules/execution"
	"github.com/dkoutsos/alphapilot/internal/modules/incidents"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/risk"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
	"github.com/dkoutsos/alphapilot/internal/notify"
	"github.com/dkoutsos/alphapilot/pkg/logger"
)

type stubSource struct {
	quotes map[string]market.Quote
}

func (s stubSource) GetQuotes(ctx context.Context, coins []string) (map[string]market.Quote, error) {
	return s.quotes, nil
}

type stubAdvisor struct {
	decisions map[string]trading.Decision
	calls     int
}

func (a *stubAdvisor) Decide(ctx context.Context, req advisor.Request) (map[string]trading.Decision, error) {
	a.calls++
	return a.decisions, nil
}

type simulatedOnly struct {
	adapter execution.Adapter
}

func (s simulatedOnly) AdapterFor(env account.Environment) execution.Adapter {
	return s.adapter
}

type controllerFixture struct {
	controller *Controller
	accounts   *account.Service
	trades     *trading.TradeRepository
	ledger     *portfolio.Ledger
	queue      *approvals.Queue
	advisor    *stubAdvisor
	incidents  *incidents.Service
	acct       *account.Account
}

func newTestController(t *testing.T, automation account.Automation) *controllerFixture {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	log := logger.New(logger.Config{Level: "error"})
	conn := db.Conn()

	acct, err := account.NewRepository(conn, log).Create(account.Account{
		ID:                  "acct-1",
		Name:                "Test Account",
		InitialCapital:      10000,
		Environment:         account.EnvironmentSimulation,
		Automation:          automation,
		ExchangeEnvironment: account.ExchangeTestnet,
		FeeRate:             0.001,
		Risk:                account.DefaultRiskSettings(),
		Active:              true,
	})
	require.NoError(t, err)

	incidentSvc := incidents.NewService(incidents.NewRepository(conn, log), notify.Nop{}, log)
	accountSvc := account.NewService(account.NewRepository(conn, log), incidentSvc, log)
	trades := trading.NewTradeRepository(conn, log)
	ledger := portfolio.NewLedger(portfolio.NewPositionRepository(conn, log), trades, log)

	prices := stubSource{quotes: map[string]market.Quote{
		"BTC": {Price: 50000},
		"ETH": {Price: 2000},
	}}
	adapters := simulatedOnly{execution.NewSimulated(ledger, log)}
	queue := approvals.NewQueue(approvals.NewRepository(conn, log), accountSvc, adapters, prices, notify.Nop{}, log)
	stub := &stubAdvisor{decisions: map[string]trading.Decision{}}

	controller := NewController(Config{
		Coins:     []string{"BTC", "ETH"},
		Accounts:  accountSvc,
		Ledger:    ledger,
		Trades:    trades,
		Validator: risk.NewValidator(log),
		AutoPause: risk.NewAutoPauseMonitor(trades, log),
		Queue:     queue,
		Adapters:  adapters,
		Prices:    prices,
		Advisor:   stub,
		Incidents: incidentSvc,
		Log:       log,
	})

	return &controllerFixture{
		controller: controller,
		accounts:   accountSvc,
		trades:     trades,
		ledger:     ledger,
		queue:      queue,
		advisor:    stub,
		incidents:  incidentSvc,
		acct:       acct,
	}
}

func entryDecision(qty float64) trading.Decision {
	return trading.Decision{
		Signal:   trading.SignalBuyToEnter,
		Quantity: qty,
		Leverage: 1,
	}
}

func TestController_ManualDisplaysOnly(t *testing.T) {
	f := newTestController(t, account.AutomationManual)
	f.advisor.decisions["BTC"] = entryDecision(0.01)

	result, err := f.controller.Run(context.Background(), f.acct.ID)
	require.NoError(t, err)

	require.Len(t, result.Displayed, 1)
	assert.Equal(t, "BTC", result.Displayed[0].Coin)
	assert.Empty(t, result.Executed)
	assert.Empty(t, result.Pending)

	// Nothing touched the ledger.
	trades, err := f.trades.GetRecent(f.acct.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestController_SemiAutomatedQueues(t *testing.T) {
	f := newTestController(t, account.AutomationSemiAutomated)
	f.advisor.decisions["ETH"] = entryDecision(0.5)

	result, err := f.controller.Run(context.Background(), f.acct.ID)
	require.NoError(t, err)

	require.Len(t, result.Pending, 1)
	assert.Empty(t, result.Executed)

	pending, err := f.queue.List(f.acct.ID, approvals.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ETH", pending[0].Coin)
}

func TestController_FullyAutomatedExecutes(t *testing.T) {
	f := newTestController(t, account.AutomationFullyAutomated)
	f.advisor.decisions["BTC"] = entryDecision(0.01)

	result, err := f.controller.Run(context.Background(), f.acct.ID)
	require.NoError(t, err)

	require.Len(t, result.Executed, 1)
	assert.Equal(t, execution.StatusSimulated, result.Executed[0].Result.Status)

	trades, err := f.trades.GetRecent(f.acct.ID, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, trading.SignalBuyToEnter, trades[0].Signal)
}

func TestController_HoldsAreSkippedSilently(t *testing.T) {
	f := newTestController(t, account.AutomationFullyAutomated)
	f.advisor.decisions["BTC"] = trading.Decision{Signal: trading.SignalHold}
	f.advisor.decisions["ETH"] = trading.Decision{Signal: trading.SignalHold}

	result, err := f.controller.Run(context.Background(), f.acct.ID)
	require.NoError(t, err)

	assert.Empty(t, result.Executed)
	assert.Empty(t, result.Skipped)
	assert.Empty(t, result.Displayed)
}

func TestController_RiskRejectionIsSkippedNotFatal(t *testing.T) {
	f := newTestController(t, account.AutomationFullyAutomated)
	// 1 BTC at 50000 is five times the whole account.
	f.advisor.decisions["BTC"] = entryDecision(1.0)
	f.advisor.decisions["ETH"] = entryDecision(0.5)

	result, err := f.controller.Run(context.Background(), f.acct.ID)
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "BTC", result.Skipped[0].Coin)
	assert.Equal(t, risk.CheckPositionSize, result.Skipped[0].Check)

	// The other decision still executed.
	require.Len(t, result.Executed, 1)
	assert.Equal(t, "ETH", result.Executed[0].Coin)
}

func TestController_AutoPauseDowngradesBeforeTrading(t *testing.T) {
	f := newTestController(t, account.AutomationFullyAutomated)
	f.advisor.decisions["BTC"] = entryDecision(0.01)

	// Five straight losing closes trip the pause gate.
	for i := 0; i < 5; i++ {
		_, err := f.trades.Create(trading.Trade{
			AccountID:   f.acct.ID,
			Coin:        "BTC",
			Signal:      trading.SignalClosePosition,
			Side:        trading.SideLong,
			Quantity:    0.01,
			Price:       50000,
			Leverage:    1,
			RealizedPnL: -10,
		})
		require.NoError(t, err)
	}

	result, err := f.controller.Run(context.Background(), f.acct.ID)
	require.NoError(t, err)

	assert.True(t, result.AutoPaused)
	assert.NotEmpty(t, result.PauseReason)
	assert.Equal(t, account.AutomationSemiAutomated, result.Automation)

	// The advisor was never consulted and no new trades happened.
	assert.Equal(t, 0, f.advisor.calls)
	assert.Empty(t, result.Executed)

	acct, err := f.accounts.Get(f.acct.ID)
	require.NoError(t, err)
	assert.Equal(t, account.AutomationSemiAutomated, acct.Automation)

	// The pause is journaled as a critical incident.
	items, err := f.incidents.List(incidents.ListFilter{AccountID: f.acct.ID, Type: incidents.TypeAutoPause})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, incidents.SeverityCritical, items[0].Severity)
}

func TestController_MissingPriceSkips(t *testing.T) {
	f := newTestController(t, account.AutomationFullyAutomated)
	f.advisor.decisions["DOGE"] = entryDecision(100)

	result, err := f.controller.Run(context.Background(), f.acct.ID)
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "DOGE", result.Skipped[0].Coin)
	assert.Contains(t, result.Skipped[0].Reason, "no market price")
}
