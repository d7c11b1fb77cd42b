package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/database"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// PositionRepository handles position database operations
type PositionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		db:  db,
		log: log.With().Str("repo", "position").Logger(),
	}
}

const positionColumns = `
	id, account_id, coin, side, quantity, avg_price, leverage, opened_at, updated_at
`

// GetAll returns all open positions for an account
func (r *PositionRepository) GetAll(accountID string) ([]Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE account_id = ? ORDER BY coin, side`

	rows, err := r.db.Query(query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return positions, nil
}

// Get returns the position for a (account, coin, side) key, or (nil, nil)
func (r *PositionRepository) Get(accountID, coin string, side trading.Side) (*Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions
		WHERE account_id = ? AND coin = ? AND side = ?`

	rows, err := r.db.Query(query, accountID, normalizeCoin(coin), string(side))
	if err != nil {
		return nil, fmt.Errorf("failed to query position: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error reading position: %w", err)
		}
		return nil, nil
	}

	pos, err := scanPosition(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}

	return &pos, nil
}

// GetByCoin returns the open position for a coin on either side, or (nil, nil)
func (r *PositionRepository) GetByCoin(accountID, coin string) (*Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions
		WHERE account_id = ? AND coin = ? LIMIT 1`

	rows, err := r.db.Query(query, accountID, normalizeCoin(coin))
	if err != nil {
		return nil, fmt.Errorf("failed to query position by coin: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error reading position: %w", err)
		}
		return nil, nil
	}

	pos, err := scanPosition(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}

	return &pos, nil
}

// Upsert writes a position, replacing quantity, average price and leverage
// when the (account, coin, side) key already exists
func (r *PositionRepository) Upsert(pos Position) error {
	now := time.Now().UTC().Format(database.TimeFormat)

	query := `
		INSERT INTO positions
		(account_id, coin, side, quantity, avg_price, leverage, opened_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, coin, side) DO UPDATE SET
			quantity = excluded.quantity,
			avg_price = excluded.avg_price,
			leverage = excluded.leverage,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		pos.AccountID,
		normalizeCoin(pos.Coin),
		string(pos.Side),
		pos.Quantity,
		pos.AvgPrice,
		pos.Leverage,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}

	return nil
}

// Delete removes a position. A position with quantity <= 0 must not exist,
// so closing always deletes the row.
func (r *PositionRepository) Delete(accountID, coin string, side trading.Side) error {
	query := `DELETE FROM positions WHERE account_id = ? AND coin = ? AND side = ?`

	result, err := r.db.Exec(query, accountID, normalizeCoin(coin), string(side))
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return errors.New("position not found")
	}

	return nil
}

// CountOpen returns the number of open positions for an account
func (r *PositionRepository) CountOpen(accountID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM positions WHERE account_id = ?`, accountID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count positions: %w", err)
	}

	return count, nil
}

func scanPosition(rows *sql.Rows) (Position, error) {
	var (
		pos       Position
		side      string
		openedAt  string
		updatedAt string
	)

	err := rows.Scan(
		&pos.ID,
		&pos.AccountID,
		&pos.Coin,
		&side,
		&pos.Quantity,
		&pos.AvgPrice,
		&pos.Leverage,
		&openedAt,
		&updatedAt,
	)
	if err != nil {
		return Position{}, err
	}

	pos.Side = trading.Side(side)
	pos.OpenedAt, _ = time.Parse(time.RFC3339Nano, openedAt)
	pos.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	return pos, nil
}

func normalizeCoin(coin string) string {
	return strings.ToUpper(strings.TrimSpace(coin))
}
