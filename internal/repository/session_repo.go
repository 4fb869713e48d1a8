package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ladders_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// SessionRepository stores game sessions. The full record is kept as JSONB;
// key, creator, session id, state and roll mode are duplicated into columns
// for lookups.
type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateWithTx inserts a new session. A second session with the same creator
// and session id fails with domain.ErrSessionExists.
func (r *SessionRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, s *domain.GameSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO game_sessions (key, creator, session_id, state, roll_mode, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.Key, s.Creator, s.SessionID.String(), s.State, s.RollMode, data, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrSessionExists
		}
		return err
	}
	return nil
}

// GetForUpdate loads a session and locks its row until tx ends. Every
// mutating operation on a session goes through here, which serializes them.
func (r *SessionRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, key domain.SessionKey) (*domain.GameSession, error) {
	var data []byte
	err := tx.QueryRow(ctx,
		`SELECT data FROM game_sessions WHERE key = $1 FOR UPDATE`,
		key,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return decodeSession(data)
}

// UpdateWithTx writes back a session loaded with GetForUpdate.
func (r *SessionRepository) UpdateWithTx(ctx context.Context, tx pgx.Tx, s *domain.GameSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE game_sessions SET state = $2, data = $3, updated_at = $4 WHERE key = $1`,
		s.Key, s.State, data, s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// GetByKey returns a snapshot without locking.
func (r *SessionRepository) GetByKey(ctx context.Context, key domain.SessionKey) (*domain.GameSession, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT data FROM game_sessions WHERE key = $1`, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return decodeSession(data)
}

// ListByState returns the newest sessions in a state.
func (r *SessionRepository) ListByState(ctx context.Context, state domain.GameState, limit int) ([]*domain.GameSession, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT data FROM game_sessions
		 WHERE state = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		state, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.GameSession
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		s, err := decodeSession(data)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func decodeSession(data []byte) (*domain.GameSession, error) {
	var s domain.GameSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}
