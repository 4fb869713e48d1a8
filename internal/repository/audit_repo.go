package repository

import (
	"context"
	"encoding/json"

	"ladders_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create inserts a new audit log entry
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO audit_logs (actor, session_key, action, category, details, ip, user_agent)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
	`, log.Actor, string(log.SessionKey), log.Action, log.Category, detailsJSON, log.IP, log.UserAgent)
	return err
}

// CreateWithTx inserts a new audit log entry within a transaction
func (r *AuditRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, log *domain.AuditLog) error {
	detailsJSON, err := json.Marshal(log.Details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO audit_logs (actor, session_key, action, category, details, ip, user_agent)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
	`, log.Actor, string(log.SessionKey), log.Action, log.Category, detailsJSON, log.IP, log.UserAgent)
	return err
}

// GetBySession returns the audit trail of one session, oldest first
func (r *AuditRepository) GetBySession(ctx context.Context, key domain.SessionKey, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, actor, COALESCE(session_key, ''), action, category, details, ip, user_agent, created_at
		FROM audit_logs
		WHERE session_key = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

// GetByActor returns audit logs for an identity
func (r *AuditRepository) GetByActor(ctx context.Context, actor domain.Identity, limit int) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, actor, COALESCE(session_key, ''), action, category, details, ip, user_agent, created_at
		FROM audit_logs
		WHERE actor = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, actor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuditLogs(rows)
}

func scanAuditLogs(rows pgx.Rows) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var detailsJSON []byte
		if err := rows.Scan(&log.ID, &log.Actor, &log.SessionKey, &log.Action, &log.Category, &detailsJSON, &log.IP, &log.UserAgent, &log.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(detailsJSON, &log.Details); err != nil {
			log.Details = make(map[string]interface{})
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
