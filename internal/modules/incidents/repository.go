package incidents

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkoutsos/alphapilot/internal/database"
)

// Repository handles incident database operations.
// Incidents are append-only: there are no update or delete operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new incident repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "incident").Logger(),
	}
}

// Create inserts a new incident record
func (r *Repository) Create(incident Incident) (*Incident, error) {
	if !incident.Severity.IsValid() {
		return nil, fmt.Errorf("invalid severity: %q", incident.Severity)
	}

	now := time.Now().UTC()
	incident.CreatedAt = now

	var details sql.NullString
	if len(incident.Details) > 0 {
		raw, err := json.Marshal(incident.Details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal incident details: %w", err)
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}

	var accountID sql.NullString
	if incident.AccountID != nil {
		accountID = sql.NullString{String: *incident.AccountID, Valid: true}
	}

	query := `
		INSERT INTO incidents (account_id, type, severity, message, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		accountID,
		incident.Type,
		string(incident.Severity),
		incident.Message,
		details,
		now.Format(database.TimeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create incident: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		incident.ID = id
	}

	return &incident, nil
}

// ListFilter narrows incident listings
type ListFilter struct {
	AccountID string
	Type      string
	Severity  Severity
	Limit     int
}

// List retrieves incidents, most recent first
func (r *Repository) List(filter ListFilter) ([]Incident, error) {
	query := `
		SELECT id, account_id, type, severity, message, details, created_at
		FROM incidents
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}
	if filter.Type != "" {
		query += " AND type = ?"
		args = append(args, filter.Type)
	}
	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, string(filter.Severity))
	}

	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	var result []Incident
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		result = append(result, incident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incidents: %w", err)
	}

	return result, nil
}

func scanIncident(rows *sql.Rows) (Incident, error) {
	var (
		incident  Incident
		accountID sql.NullString
		severity  string
		details   sql.NullString
		createdAt string
	)

	err := rows.Scan(
		&incident.ID,
		&accountID,
		&incident.Type,
		&severity,
		&incident.Message,
		&details,
		&createdAt,
	)
	if err != nil {
		return Incident{}, err
	}

	if accountID.Valid {
		incident.AccountID = &accountID.String
	}
	incident.Severity = Severity(severity)
	if details.Valid && details.String != "" {
		_ = json.Unmarshal([]byte(details.String), &incident.Details)
	}
	incident.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	return incident, nil
}
