package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// TimeFormat is the timestamp layout stored in every table. The fractional
// seconds are fixed-width so that lexicographic comparison and ORDER BY on
// timestamp columns stay exact; RFC3339Nano trims trailing zeros and
// misorders values within the same second.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL mode for better concurrency between the trading loop and the API
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty
		// in-memory database.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
	}

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}

// Exec executes a query without returning rows
func (db *DB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows
func (db *DB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row
func (db *DB) QueryRow(query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRow(query, args...)
}

// Migrate creates the schema if it does not exist yet
func (db *DB) Migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			initial_capital REAL NOT NULL,
			environment TEXT NOT NULL DEFAULT 'simulation',
			automation TEXT NOT NULL DEFAULT 'manual',
			exchange_environment TEXT NOT NULL DEFAULT 'testnet',
			fee_rate REAL NOT NULL DEFAULT 0.001,
			max_position_size_pct REAL NOT NULL DEFAULT 25,
			max_daily_loss_pct REAL NOT NULL DEFAULT 5,
			max_daily_trades INTEGER NOT NULL DEFAULT 20,
			max_open_positions INTEGER NOT NULL DEFAULT 5,
			min_cash_reserve_pct REAL NOT NULL DEFAULT 10,
			max_drawdown_pct REAL NOT NULL DEFAULT 20,
			auto_pause_consecutive_losses INTEGER NOT NULL DEFAULT 5,
			auto_pause_win_rate_threshold REAL NOT NULL DEFAULT 40,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			coin TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			avg_price REAL NOT NULL,
			leverage INTEGER NOT NULL DEFAULT 1,
			opened_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(account_id, coin, side)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			coin TEXT NOT NULL,
			signal TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			price REAL NOT NULL,
			leverage INTEGER NOT NULL DEFAULT 1,
			realized_pnl REAL NOT NULL DEFAULT 0,
			fee REAL NOT NULL DEFAULT 0,
			slippage REAL NOT NULL DEFAULT 0,
			order_id TEXT,
			executed_at TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_account_executed
			ON trades(account_id, executed_at)`,
		`CREATE TABLE IF NOT EXISTS incidents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id TEXT,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			details TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_incidents_account_created
			ON incidents(account_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS pending_decisions (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			coin TEXT NOT NULL,
			decision TEXT NOT NULL,
			explanation TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			modifications TEXT,
			expires_at TEXT NOT NULL,
			resolved_at TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS approval_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			decision_id TEXT NOT NULL REFERENCES pending_decisions(id),
			approved INTEGER NOT NULL,
			reason TEXT,
			execution_result TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS equity_peaks (
			account_id TEXT PRIMARY KEY REFERENCES accounts(id),
			peak_equity REAL NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
