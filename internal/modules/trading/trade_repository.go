package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/database"
)

// TradeRepository handles trade database operations.
// Trades are append-only: there are no update or delete operations.
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db,
		log: log.With().Str("repo", "trade").Logger(),
	}
}

// Create inserts a new trade record and returns it with its assigned id
func (r *TradeRepository) Create(trade Trade) (*Trade, error) {
	if err := trade.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trade: %w", err)
	}

	now := time.Now().UTC()
	trade.CreatedAt = now
	if trade.ExecutedAt.IsZero() {
		trade.ExecutedAt = now
	}

	query := `
		INSERT INTO trades
		(account_id, coin, signal, side, quantity, price, leverage,
		 realized_pnl, fee, slippage, order_id, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		trade.AccountID,
		trade.Coin,
		string(trade.Signal),
		string(trade.Side),
		trade.Quantity,
		trade.Price,
		trade.Leverage,
		trade.RealizedPnL,
		trade.Fee,
		trade.Slippage,
		nullString(trade.OrderID),
		trade.ExecutedAt.UTC().Format(database.TimeFormat),
		now.Format(database.TimeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		trade.ID = id
	}

	r.log.Info().
		Str("account", trade.AccountID).
		Str("coin", trade.Coin).
		Str("signal", string(trade.Signal)).
		Float64("quantity", trade.Quantity).
		Float64("pnl", trade.RealizedPnL).
		Msg("Trade recorded")

	return &trade, nil
}

// GetRecent retrieves trades for an account, most recent first
func (r *TradeRepository) GetRecent(accountID string, limit int) ([]Trade, error) {
	query := `
		SELECT id, account_id, coin, signal, side, quantity, price, leverage,
		       realized_pnl, fee, slippage, order_id, executed_at, created_at
		FROM trades
		WHERE account_id = ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent trades: %w", err)
	}
	defer rows.Close()

	return r.collectTrades(rows)
}

// GetRecentClosed retrieves closing trades for an account, most recent first.
// Only closing trades carry realized P&L, so these drive the auto-pause stats.
func (r *TradeRepository) GetRecentClosed(accountID string, limit int) ([]Trade, error) {
	query := `
		SELECT id, account_id, coin, signal, side, quantity, price, leverage,
		       realized_pnl, fee, slippage, order_id, executed_at, created_at
		FROM trades
		WHERE account_id = ? AND signal = ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, accountID, string(SignalClosePosition), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get closed trades: %w", err)
	}
	defer rows.Close()

	return r.collectTrades(rows)
}

// CountSince counts trades executed at or after the given time
func (r *TradeRepository) CountSince(accountID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM trades
		WHERE account_id = ? AND executed_at >= ?
	`

	var count int
	err := r.db.QueryRow(query, accountID, since.UTC().Format(database.TimeFormat)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}

	return count, nil
}

// CountToday counts trades executed on the current UTC calendar day
func (r *TradeRepository) CountToday(accountID string) (int, error) {
	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return r.CountSince(accountID, startOfDay)
}

// SumRealizedPnL sums realized P&L across all trades of an account
func (r *TradeRepository) SumRealizedPnL(accountID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(realized_pnl), 0) FROM trades
		WHERE account_id = ?
	`

	var sum float64
	if err := r.db.QueryRow(query, accountID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum realized pnl: %w", err)
	}

	return sum, nil
}

// SumEntryFees sums fees charged on entry trades.
// Exit fees are already netted into the realized P&L of closing trades.
func (r *TradeRepository) SumEntryFees(accountID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(fee), 0) FROM trades
		WHERE account_id = ? AND signal IN (?, ?)
	`

	var sum float64
	err := r.db.QueryRow(query, accountID,
		string(SignalBuyToEnter), string(SignalSellToEnter)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum entry fees: %w", err)
	}

	return sum, nil
}

func (r *TradeRepository) collectTrades(rows *sql.Rows) ([]Trade, error) {
	var trades []Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

func scanTrade(rows *sql.Rows) (Trade, error) {
	var (
		trade      Trade
		signal     string
		side       string
		orderID    sql.NullString
		executedAt string
		createdAt  string
	)

	err := rows.Scan(
		&trade.ID,
		&trade.AccountID,
		&trade.Coin,
		&signal,
		&side,
		&trade.Quantity,
		&trade.Price,
		&trade.Leverage,
		&trade.RealizedPnL,
		&trade.Fee,
		&trade.Slippage,
		&orderID,
		&executedAt,
		&createdAt,
	)
	if err != nil {
		return Trade{}, err
	}

	trade.Signal = Signal(signal)
	trade.Side = Side(side)
	if orderID.Valid {
		trade.OrderID = orderID.String
	}
	trade.ExecutedAt, _ = time.Parse(time.RFC3339Nano, executedAt)
	trade.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	return trade, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
