package repository

import (
	"context"
	"time"

	"ladders_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Randomness request statuses
const (
	RandomnessPending   = "pending"
	RandomnessPublished = "published"
	RandomnessFulfilled = "fulfilled"
	RandomnessAbandoned = "abandoned"
)

// RandomnessRepository is the outbox of randomness requests. Requests are
// written in the same transaction that marks a player pending and published
// to the queue after commit.
type RandomnessRepository struct {
	db *pgxpool.Pool
}

func NewRandomnessRepository(db *pgxpool.Pool) *RandomnessRepository {
	return &RandomnessRepository{db: db}
}

func (r *RandomnessRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, req domain.RandomnessRequest) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO randomness_requests (id, session_key, player, client_seed, nonce, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, req.SessionKey, req.Player, req.ClientSeed.String(), int64(req.Nonce), RandomnessPending, req.CreatedAt,
	)
	return err
}

// AbandonOpenWithTx marks every unanswered request of a session abandoned.
func (r *RandomnessRepository) AbandonOpenWithTx(ctx context.Context, tx pgx.Tx, key domain.SessionKey) error {
	_, err := tx.Exec(ctx,
		`UPDATE randomness_requests SET status = $2
		 WHERE session_key = $1 AND status IN ($3, $4)`,
		key, RandomnessAbandoned, RandomnessPending, RandomnessPublished,
	)
	return err
}

func (r *RandomnessRepository) MarkFulfilledWithTx(ctx context.Context, tx pgx.Tx, id string, randomness domain.Seed, at time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE randomness_requests SET status = $2, randomness = $3, fulfilled_at = $4 WHERE id = $1`,
		id, RandomnessFulfilled, randomness.String(), at,
	)
	return err
}

// MarkPublished records that a request reached the queue. Only pending rows
// change, so a late relay cannot resurrect an abandoned request.
func (r *RandomnessRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE randomness_requests SET status = $2, published_at = $3 WHERE id = $1 AND status = $4`,
		id, RandomnessPublished, at, RandomnessPending,
	)
	return err
}

// ListUnpublished returns pending requests created before cutoff, oldest
// first.
func (r *RandomnessRepository) ListUnpublished(ctx context.Context, cutoff time.Time, limit int) ([]domain.RandomnessRequest, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_key, player, client_seed, nonce, created_at
		 FROM randomness_requests
		 WHERE status = $1 AND created_at < $2
		 ORDER BY created_at ASC
		 LIMIT $3`,
		RandomnessPending, cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.RandomnessRequest
	for rows.Next() {
		var (
			req   domain.RandomnessRequest
			seed  string
			nonce int64
		)
		if err := rows.Scan(&req.ID, &req.SessionKey, &req.Player, &seed, &nonce, &req.CreatedAt); err != nil {
			return nil, err
		}
		if err := req.ClientSeed.UnmarshalText([]byte(seed)); err != nil {
			return nil, err
		}
		req.Nonce = uint64(nonce)
		res = append(res, req)
	}
	return res, rows.Err()
}

// GetStatus returns the status of a request.
func (r *RandomnessRepository) GetStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM randomness_requests WHERE id = $1`, id).Scan(&status)
	return status, err
}
