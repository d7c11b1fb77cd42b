package approvals

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/database"
	"github.com/dkoutsos/alphapilot/internal/modules/trading"
)

// Repository handles pending decision and approval event storage
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new approvals repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "approvals").Logger(),
	}
}

// Create inserts a new pending decision
func (r *Repository) Create(pending PendingDecision) (*PendingDecision, error) {
	now := time.Now().UTC()
	pending.CreatedAt = now
	pending.Status = StatusPending

	decisionJSON, err := json.Marshal(pending.Decision)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal decision: %w", err)
	}

	query := `
		INSERT INTO pending_decisions
		(id, account_id, coin, decision, explanation, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		pending.ID,
		pending.AccountID,
		pending.Coin,
		string(decisionJSON),
		nullString(pending.Explanation),
		string(pending.Status),
		pending.ExpiresAt.UTC().Format(database.TimeFormat),
		now.Format(database.TimeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pending decision: %w", err)
	}

	return &pending, nil
}

// Get retrieves a pending decision by id, returning (nil, nil) when absent
func (r *Repository) Get(id string) (*PendingDecision, error) {
	query := `
		SELECT id, account_id, coin, decision, explanation, status,
		       modifications, expires_at, resolved_at, created_at
		FROM pending_decisions
		WHERE id = ?
	`

	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending decision: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error reading pending decision: %w", err)
		}
		return nil, nil
	}

	pending, err := scanPending(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending decision: %w", err)
	}

	return pending, nil
}

// List retrieves decisions, newest first, optionally filtered by account
// and status
func (r *Repository) List(accountID string, status Status, limit int) ([]PendingDecision, error) {
	query := `
		SELECT id, account_id, coin, decision, explanation, status,
		       modifications, expires_at, resolved_at, created_at
		FROM pending_decisions
		WHERE 1=1
	`
	args := []interface{}{}

	if accountID != "" {
		query += " AND account_id = ?"
		args = append(args, accountID)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}

	query += " ORDER BY created_at DESC LIMIT ?"
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending decisions: %w", err)
	}
	defer rows.Close()

	var result []PendingDecision
	for rows.Next() {
		pending, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending decision: %w", err)
		}
		result = append(result, *pending)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending decisions: %w", err)
	}

	return result, nil
}

// Resolve moves a pending decision to a terminal status. It only succeeds
// when the decision is still pending, so terminal states cannot be reopened.
func (r *Repository) Resolve(id string, status Status, modifications *Modifications) error {
	if !status.IsTerminal() {
		return fmt.Errorf("status %q is not terminal", status)
	}

	var modsJSON sql.NullString
	if modifications != nil {
		raw, err := json.Marshal(modifications)
		if err != nil {
			return fmt.Errorf("failed to marshal modifications: %w", err)
		}
		modsJSON = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		UPDATE pending_decisions
		SET status = ?, modifications = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.db.Exec(query,
		string(status),
		modsJSON,
		time.Now().UTC().Format(database.TimeFormat),
		id,
		string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("failed to resolve pending decision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolve result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("pending decision %s is not pending", id)
	}

	return nil
}

// ExpireStale flips every overdue pending decision to expired and returns
// how many were swept
func (r *Repository) ExpireStale(now time.Time) (int64, error) {
	query := `
		UPDATE pending_decisions
		SET status = ?, resolved_at = ?
		WHERE status = ? AND expires_at < ?
	`

	result, err := r.db.Exec(query,
		string(StatusExpired),
		now.UTC().Format(database.TimeFormat),
		string(StatusPending),
		now.UTC().Format(database.TimeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale decisions: %w", err)
	}

	return result.RowsAffected()
}

// CreateEvent journals an approval event
func (r *Repository) CreateEvent(event ApprovalEvent) error {
	var resultJSON sql.NullString
	if event.ExecutionResult != nil {
		raw, err := json.Marshal(event.ExecutionResult)
		if err != nil {
			return fmt.Errorf("failed to marshal execution result: %w", err)
		}
		resultJSON = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO approval_events (decision_id, approved, reason, execution_result, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		event.DecisionID,
		boolToInt(event.Approved),
		nullString(event.Reason),
		resultJSON,
		time.Now().UTC().Format(database.TimeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to create approval event: %w", err)
	}

	return nil
}

func scanPending(rows *sql.Rows) (*PendingDecision, error) {
	var (
		pending      PendingDecision
		decisionJSON string
		explanation  sql.NullString
		status       string
		modsJSON     sql.NullString
		expiresAt    string
		resolvedAt   sql.NullString
		createdAt    string
	)

	err := rows.Scan(
		&pending.ID,
		&pending.AccountID,
		&pending.Coin,
		&decisionJSON,
		&explanation,
		&status,
		&modsJSON,
		&expiresAt,
		&resolvedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	var decision trading.Decision
	if err := json.Unmarshal([]byte(decisionJSON), &decision); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decision: %w", err)
	}
	pending.Decision = decision

	if explanation.Valid {
		pending.Explanation = explanation.String
	}
	pending.Status = Status(status)
	if modsJSON.Valid && modsJSON.String != "" {
		var mods Modifications
		if err := json.Unmarshal([]byte(modsJSON.String), &mods); err == nil {
			pending.Modifications = &mods
		}
	}
	pending.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expiresAt)
	if resolvedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, resolvedAt.String); err == nil {
			pending.ResolvedAt = &t
		}
	}
	pending.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	return &pending, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
