package registry

import (
	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/database"
	"github.com/dkoutsos/alphapilot/internal/market"
	"github.com/dkoutsos/alphapilot/internal/modules/account"
	"github.com/dkoutsos/alphapilot/internal/modules/approvals"
	"github.com/dkoutsos/alphapilot/internal/modules/cycle"
	"github.com/dkoutsos/alphapilot/internal/modules/execution"
	"github.com/dkoutsos/alphapilot/internal/modules/incidents"
	"github.com/dkoutsos/alphapilot/internal/modules/portfolio"
	"github.com/dkoutsos/alphapilot/internal/modules/risk"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
	"github.com/dkoutsos/alphapilot/internal/notify"
)

// Config holds the externally provided collaborators
type Config struct {
	DB       *database.DB
	Coins    []string
	Prices   market.Source
	Advisor  cycle.Advisor            // may be nil when no provider is configured
	Exchange execution.ExchangeClient // may be nil when no credentials are configured
	Notifier notify.Notifier
	Log      zerolog.Logger
}

// Registry wires every service once at process start and hands them out by
// reference. It replaces scattered per-account lookup maps with one
// explicit composition root whose lifecycle is the process lifetime.
type Registry struct {
	Accounts   *account.Service
	Trades     *trading.TradeRepository
	Positions  *portfolio.PositionRepository
	Ledger     *portfolio.Ledger
	Incidents  *incidents.Service
	Validator  *risk.Validator
	AutoPause  *risk.AutoPauseMonitor
	Queue      *approvals.Queue
	Controller *cycle.Controller
	Prices     market.Source
	Notifier   notify.Notifier
	Coins      []string

	simulated *execution.Simulated
	live      *execution.Live
}

// New builds the full service graph
func New(cfg Config) *Registry {
	conn := cfg.DB.Conn()
	log := cfg.Log

	r := &Registry{
		Prices:   cfg.Prices,
		Notifier: cfg.Notifier,
		Coins:    cfg.Coins,
	}

	r.Trades = trading.NewTradeRepository(conn, log)
	r.Positions = portfolio.NewPositionRepository(conn, log)
	r.Incidents = incidents.NewService(incidents.NewRepository(conn, log), cfg.Notifier, log)
	r.Accounts = account.NewService(account.NewRepository(conn, log), r.Incidents, log)
	r.Ledger = portfolio.NewLedger(r.Positions, r.Trades, log)
	r.Validator = risk.NewValidator(log)
	r.AutoPause = risk.NewAutoPauseMonitor(r.Trades, log)

	r.simulated = execution.NewSimulated(r.Ledger, log)
	r.live = execution.NewLive(cfg.Exchange, r.Ledger, r.Positions, r.Incidents, log)

	r.Queue = approvals.NewQueue(
		approvals.NewRepository(conn, log),
		r.Accounts, r, cfg.Prices, cfg.Notifier, log)

	r.Controller = cycle.NewController(cycle.Config{
		Coins:     cfg.Coins,
		Accounts:  r.Accounts,
		Ledger:    r.Ledger,
		Trades:    r.Trades,
		Validator: r.Validator,
		AutoPause: r.AutoPause,
		Queue:     r.Queue,
		Adapters:  r,
		Prices:    cfg.Prices,
		Advisor:   cfg.Advisor,
		Incidents: r.Incidents,
		Log:       log,
	})

	return r
}

// AdapterFor selects the execution adapter for an environment. Live with
// missing credentials is handled inside the live adapter itself, which
// falls back to simulation and journals the gap.
func (r *Registry) AdapterFor(env account.Environment) execution.Adapter {
	if env == account.EnvironmentLive {
		return r.live
	}
	return r.simulated
}
