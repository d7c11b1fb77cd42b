package account

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/database"
)

// Repository handles account database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new account repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "account").Logger(),
	}
}

const accountColumns = `
	id, name, initial_capital, environment, automation, exchange_environment,
	fee_rate, max_position_size_pct, max_daily_loss_pct, max_daily_trades,
	max_open_positions, min_cash_reserve_pct, max_drawdown_pct,
	auto_pause_consecutive_losses, auto_pause_win_rate_threshold,
	active, created_at, updated_at
`

// Create inserts a new account
func (r *Repository) Create(acct Account) (*Account, error) {
	if err := acct.Validate(); err != nil {
		return nil, fmt.Errorf("invalid account: %w", err)
	}

	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		acct.ID,
		acct.Name,
		acct.InitialCapital,
		string(acct.Environment),
		string(acct.Automation),
		string(acct.ExchangeEnvironment),
		acct.FeeRate,
		acct.Risk.MaxPositionSizePct,
		acct.Risk.MaxDailyLossPct,
		acct.Risk.MaxDailyTrades,
		acct.Risk.MaxOpenPositions,
		acct.Risk.MinCashReservePct,
		acct.Risk.MaxDrawdownPct,
		acct.Risk.AutoPauseConsecutiveLosses,
		acct.Risk.AutoPauseWinRateThreshold,
		boolToInt(acct.Active),
		now.Format(database.TimeFormat),
		now.Format(database.TimeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	r.log.Info().Str("account", acct.ID).Msg("Account created")

	return &acct, nil
}

// Get retrieves an account by id, returning (nil, nil) when absent
func (r *Repository) Get(id string) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	acct, err := scanAccount(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acct, nil
}

// GetAll retrieves every account
func (r *Repository) GetAll() ([]Account, error) {
	return r.list(`SELECT ` + accountColumns + ` FROM accounts ORDER BY id`)
}

// GetActive retrieves accounts participating in the trading loop
func (r *Repository) GetActive() ([]Account, error) {
	return r.list(`SELECT ` + accountColumns + ` FROM accounts WHERE active = 1 ORDER BY id`)
}

// SetEnvironment updates the environment axis
func (r *Repository) SetEnvironment(id string, env Environment) error {
	return r.updateField(id, "environment", string(env))
}

// SetAutomation updates the automation axis
func (r *Repository) SetAutomation(id string, automation Automation) error {
	return r.updateField(id, "automation", string(automation))
}

// SetActive flips the account's participation in the trading loop
func (r *Repository) SetActive(id string, active bool) error {
	return r.updateField(id, "active", boolToInt(active))
}

// UpdateRiskSettings replaces the account's risk limits
func (r *Repository) UpdateRiskSettings(id string, settings RiskSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid risk settings: %w", err)
	}

	query := `
		UPDATE accounts SET
			max_position_size_pct = ?,
			max_daily_loss_pct = ?,
			max_daily_trades = ?,
			max_open_positions = ?,
			min_cash_reserve_pct = ?,
			max_drawdown_pct = ?,
			auto_pause_consecutive_losses = ?,
			auto_pause_win_rate_threshold = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		settings.MaxPositionSizePct,
		settings.MaxDailyLossPct,
		settings.MaxDailyTrades,
		settings.MaxOpenPositions,
		settings.MinCashReservePct,
		settings.MaxDrawdownPct,
		settings.AutoPauseConsecutiveLosses,
		settings.AutoPauseWinRateThreshold,
		time.Now().UTC().Format(database.TimeFormat),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update risk settings: %w", err)
	}

	return requireOneRow(result, id)
}

// GetPeakEquity returns the highest total value ever recorded for the account,
// or the initial capital when no peak has been recorded yet
func (r *Repository) GetPeakEquity(id string, initialCapital float64) (float64, error) {
	var peak float64
	err := r.db.QueryRow(
		`SELECT peak_equity FROM equity_peaks WHERE account_id = ?`, id,
	).Scan(&peak)
	if errors.Is(err, sql.ErrNoRows) {
		return initialCapital, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get peak equity: %w", err)
	}

	return peak, nil
}

// RecordEquity updates the stored peak when the given total value exceeds it
func (r *Repository) RecordEquity(id string, totalValue float64) error {
	query := `
		INSERT INTO equity_peaks (account_id, peak_equity, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			peak_equity = excluded.peak_equity,
			updated_at = excluded.updated_at
		WHERE excluded.peak_equity > equity_peaks.peak_equity
	`

	_, err := r.db.Exec(query, id, totalValue, time.Now().UTC().Format(database.TimeFormat))
	if err != nil {
		return fmt.Errorf("failed to record equity peak: %w", err)
	}

	return nil
}

func (r *Repository) list(query string) ([]Account, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		acct, err := scanAccountRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *acct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

func (r *Repository) updateField(id, field string, value interface{}) error {
	query := fmt.Sprintf("UPDATE accounts SET %s = ?, updated_at = ? WHERE id = ?", field)

	result, err := r.db.Exec(query, value, time.Now().UTC().Format(database.TimeFormat), id)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", field, err)
	}

	return requireOneRow(result, id)
}

func requireOneRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row *sql.Row) (*Account, error) {
	return scanAccountFrom(row)
}

func scanAccountRows(rows *sql.Rows) (*Account, error) {
	return scanAccountFrom(rows)
}

func scanAccountFrom(scanner rowScanner) (*Account, error) {
	var (
		acct        Account
		environment string
		automation  string
		exchangeEnv string
		active      int
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&acct.ID,
		&acct.Name,
		&acct.InitialCapital,
		&environment,
		&automation,
		&exchangeEnv,
		&acct.FeeRate,
		&acct.Risk.MaxPositionSizePct,
		&acct.Risk.MaxDailyLossPct,
		&acct.Risk.MaxDailyTrades,
		&acct.Risk.MaxOpenPositions,
		&acct.Risk.MinCashReservePct,
		&acct.Risk.MaxDrawdownPct,
		&acct.Risk.AutoPauseConsecutiveLosses,
		&acct.Risk.AutoPauseWinRateThreshold,
		&active,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	acct.Environment = Environment(environment)
	acct.Automation = Automation(automation)
	acct.ExchangeEnvironment = ExchangeEnvironment(exchangeEnv)
	acct.Active = active == 1
	acct.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	acct.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return &acct, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
