package cycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/clients/advisor"
	"github.com/dkoutsos/alphapilot/internal/market"
	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/approvals"
	"github.com/dkoutsos/alphapilot/internal/modules/execution"
	"github.com/dkoutsos/alphapilot/internal/modules/incidents"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/risk"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// Advisor is the AI decision provider boundary
type Advisor interface {
	Decide(ctx context.Context, req advisor.Request) (map[string]trading.Decision, error)
}

// AdapterSelector picks the execution adapter for an environment
type AdapterSelector interface {
	AdapterFor(env account.Environment) execution.Adapter
}

// Controller orchestrates one trading cycle per account according to the
// account's {Environment x Automation} state.
//
// Manual surfaces risk-approved decisions for display only. SemiAutomated
// queues them for human approval. FullyAutomated gates the cycle on the
// auto-pause monitor, then executes approved decisions immediately.
type Controller struct {
	coins     []string
	accounts  *account.Service
	ledger    *portfolio.Ledger
	trades    *trading.TradeRepository
	validator *risk.Validator
	autopause *risk.AutoPauseMonitor
	queue     *approvals.Queue
	adapters  AdapterSelector
	prices    market.Source
	advisor   Advisor
	incidents *incidents.Service
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Config wires a controller
type Config struct {
	Coins     []string
	Accounts  *account.Service
	Ledger    *portfolio.Ledger
	Trades    *trading.TradeRepository
	Validator *risk.Validator
	AutoPause *risk.AutoPauseMonitor
	Queue     *approvals.Queue
	Adapters  AdapterSelector
	Prices    market.Source
	Advisor   Advisor
	Incidents *incidents.Service
	Log       zerolog.Logger
}

// NewController creates a trading cycle controller
func NewController(cfg Config) *Controller {
	return &Controller{
		coins:     cfg.Coins,
		accounts:  cfg.Accounts,
		ledger:    cfg.Ledger,
		trades:    cfg.Trades,
		validator: cfg.Validator,
		autopause: cfg.AutoPause,
		queue:     cfg.Queue,
		adapters:  cfg.Adapters,
		prices:    cfg.Prices,
		advisor:   cfg.Advisor,
		incidents: cfg.Incidents,
		log:       cfg.Log.With().Str("service", "cycle").Logger(),
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockFor serializes cycles per account so a request-triggered run cannot
// race the scheduled loop over the same ledger
func (c *Controller) lockFor(accountID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[accountID] = lock
	}
	return lock
}

// Run executes one full trading cycle for an account
func (c *Controller) Run(ctx context.Context, accountID string) (*Result, error) {
	lock := c.lockFor(accountID)
	lock.Lock()
	defer lock.Unlock()

	if c.advisor == nil {
		return nil, fmt.Errorf("no decision advisor configured")
	}

	acct, err := c.accounts.Get(accountID)
	if err != nil {
		return nil, err
	}

	quotes, err := c.prices.GetQuotes(ctx, c.coins)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market quotes: %w", err)
	}

	snapshot, err := c.ledger.Snapshot(acct, market.Prices(quotes))
	if err != nil {
		return nil, err
	}

	if err := c.accounts.RecordEquity(acct.ID, snapshot.TotalValue); err != nil {
		c.log.Warn().Err(err).Str("account", acct.ID).Msg("Failed to record equity peak")
	}

	result := &Result{
		AccountID:   acct.ID,
		Environment: acct.Environment,
		Automation:  acct.Automation,
		StartedAt:   time.Now().UTC(),
	}

	// The auto-pause gate runs before any decision is even requested.
	if acct.Automation == account.AutomationFullyAutomated {
		paused, reason, err := c.autopause.Evaluate(acct, snapshot)
		if err != nil {
			return nil, err
		}
		if paused {
			return c.pause(acct, result, reason)
		}
	}

	decisions, err := c.advisor.Decide(ctx, advisor.Request{
		MarketState: quotes,
		Portfolio:   snapshot,
		Account: advisor.AccountInfo{
			ID:             acct.ID,
			InitialCapital: acct.InitialCapital,
			Environment:    string(acct.Environment),
			Automation:     string(acct.Automation),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("advisor failed: %w", err)
	}

	c.processDecisions(ctx, acct, decisions, quotes, snapshot, result)

	result.FinishedAt = time.Now().UTC()

	c.log.Info().
		Str("account", acct.ID).
		Str("automation", string(acct.Automation)).
		Int("executed", len(result.Executed)).
		Int("pending", len(result.Pending)).
		Int("displayed", len(result.Displayed)).
		Int("skipped", len(result.Skipped)).
		Msg("Trading cycle completed")

	return result, nil
}

func (c *Controller) pause(acct *account.Account, result *Result, reason string) (*Result, error) {
	if err := c.accounts.SetAutomation(acct.ID, account.AutomationSemiAutomated); err != nil {
		return nil, fmt.Errorf("failed to downgrade automation: %w", err)
	}

	c.incidents.Record(acct.ID, incidents.TypeAutoPause, incidents.SeverityCritical,
		fmt.Sprintf("auto-pause triggered: %s - automation downgraded to semi_automated", reason),
		map[string]interface{}{"reason": reason})

	result.AutoPaused = true
	result.PauseReason = reason
	result.Automation = account.AutomationSemiAutomated
	result.FinishedAt = time.Now().UTC()

	return result, nil
}

func (c *Controller) processDecisions(
	ctx context.Context,
	acct *account.Account,
	decisions map[string]trading.Decision,
	quotes map[string]market.Quote,
	snapshot *portfolio.Snapshot,
	result *Result,
) {
	tradesToday, err := c.trades.CountToday(acct.ID)
	if err != nil {
		c.log.Error().Err(err).Str("account", acct.ID).Msg("Failed to count daily trades")
		return
	}

	peak, err := c.accounts.PeakEquity(acct)
	if err != nil {
		c.log.Error().Err(err).Str("account", acct.ID).Msg("Failed to load peak equity")
		return
	}

	// Deterministic processing order.
	coins := make([]string, 0, len(decisions))
	for coin := range decisions {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	for _, coin := range coins {
		decision := decisions[coin]
		if decision.Signal.IsHold() {
			continue
		}

		quote, ok := quotes[coin]
		if !ok || quote.Price <= 0 {
			result.Skipped = append(result.Skipped, SkippedDecision{
				Coin:   coin,
				Signal: decision.Signal,
				Reason: "no market price available",
			})
			continue
		}

		verdict := c.validator.Validate(risk.Input{
			Account:     acct,
			Coin:        coin,
			Decision:    decision,
			Price:       quote.Price,
			Snapshot:    snapshot,
			TradesToday: tradesToday,
			PeakEquity:  peak,
		})
		if !verdict.OK {
			result.Skipped = append(result.Skipped, SkippedDecision{
				Coin:   coin,
				Signal: decision.Signal,
				Check:  verdict.Check,
				Reason: verdict.Reason,
			})
			if acct.Automation == account.AutomationFullyAutomated {
				c.incidents.Record(acct.ID, incidents.TypeRiskRejection, incidents.SeverityLow,
					fmt.Sprintf("%s %s rejected: %s", coin, decision.Signal, verdict.Reason),
					map[string]interface{}{"check": verdict.Check})
			}
			continue
		}

		switch acct.Automation {
		case account.AutomationManual:
			result.Displayed = append(result.Displayed, DisplayedDecision{
				Coin:     coin,
				Decision: decision,
				Price:    quote.Price,
			})

		case account.AutomationSemiAutomated:
			pending, err := c.queue.Create(acct, coin, decision, decision.Justification, approvals.DefaultTTL)
			if err != nil {
				c.log.Error().Err(err).Str("coin", coin).Msg("Failed to queue decision")
				continue
			}
			result.Pending = append(result.Pending, pending.ID)

		case account.AutomationFullyAutomated:
			adapter := c.adapters.AdapterFor(acct.Environment)
			execResult := adapter.Execute(ctx, acct, coin, decision, quote.Price)
			result.Executed = append(result.Executed, ExecutionOutcome{
				Coin:     coin,
				Decision: decision,
				Result:   execResult,
			})

			if execResult.Status == execution.StatusExecuted ||
				execResult.Status == execution.StatusSimulated {
				tradesToday++
				// Refresh accounting so later decisions in this cycle see
				// the cash and positions this one consumed.
				if fresh, err := c.ledger.Snapshot(acct, market.Prices(quotes)); err == nil {
					snapshot = fresh
				}
			}
		}
	}
}
