package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/cycle"
	"github.com/dkoutsos/alphapilot/internal/modules/incidents"
)

// loopBackoff delays the next pass after a loop-level failure so a broken
// dependency (database, market feed) is not hammered every interval.
const loopBackoff = 60 * time.Second

// accountCycleTimeout bounds one account's cycle, advisor call included.
const accountCycleTimeout = 2 * time.Minute

// TradingLoopJob runs one trading cycle for every active account.
//
// Accounts are isolated from each other: a panic or error in one account's
// cycle is journaled and the loop moves on to the next account.
type TradingLoopJob struct {
	accounts   *account.Service
	controller *cycle.Controller
	incidents  *incidents.Service
	log        zerolog.Logger
	running    atomic.Bool
}

// TradingLoopConfig holds configuration for the trading loop job
type TradingLoopConfig struct {
	Accounts   *account.Service
	Controller *cycle.Controller
	Incidents  *incidents.Service
	Log        zerolog.Logger
}

// NewTradingLoopJob creates a new trading loop job
func NewTradingLoopJob(cfg TradingLoopConfig) *TradingLoopJob {
	return &TradingLoopJob{
		accounts:   cfg.Accounts,
		controller: cfg.Controller,
		incidents:  cfg.Incidents,
		log:        cfg.Log.With().Str("job", "trading_loop").Logger(),
	}
}

// Name returns the job name
func (j *TradingLoopJob) Name() string {
	return "trading_loop"
}

// Run executes one pass over all active accounts
func (j *TradingLoopJob) Run() error {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Warn().Msg("Trading loop already running, skipping this interval")
		return nil
	}
	defer j.running.Store(false)

	accounts, err := j.accounts.ListActive()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to list active accounts, backing off")
		time.Sleep(loopBackoff)
		return err
	}

	if len(accounts) == 0 {
		j.log.Debug().Msg("No active accounts")
		return nil
	}

	start := time.Now()
	for i := range accounts {
		j.runAccount(&accounts[i])
	}

	j.log.Info().
		Int("accounts", len(accounts)).
		Dur("duration", time.Since(start)).
		Msg("Trading loop pass completed")

	return nil
}

// runAccount is the per-account failure boundary. Panics become critical
// incidents, errors are logged, and neither stops the other accounts.
func (j *TradingLoopJob) runAccount(acct *account.Account) {
	defer func() {
		if r := recover(); r != nil {
			j.log.Error().
				Str("account", acct.ID).
				Interface("panic", r).
				Msg("Trading cycle panicked")

			j.incidents.Record(acct.ID, incidents.TypeSystemError, incidents.SeverityCritical,
				fmt.Sprintf("trading cycle panicked: %v", r),
				map[string]interface{}{"stack": string(debug.Stack())})
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), accountCycleTimeout)
	defer cancel()

	if _, err := j.controller.Run(ctx, acct.ID); err != nil {
		j.log.Error().Err(err).Str("account", acct.ID).Msg("Trading cycle failed")
	}
}
