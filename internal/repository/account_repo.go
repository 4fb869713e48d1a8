package repository

import (
	"context"
	"errors"

	"ladders_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository holds ledger balances for players and session pools.
type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// EnsureWithTx creates a zero balance account if it does not exist yet.
func (r *AccountRepository) EnsureWithTx(ctx context.Context, tx pgx.Tx, id domain.Identity) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO accounts (identity) VALUES ($1) ON CONFLICT (identity) DO NOTHING`,
		id,
	)
	return err
}

// LockWithTx locks an account row and returns its balance.
func (r *AccountRepository) LockWithTx(ctx context.Context, tx pgx.Tx, id domain.Identity) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE identity = $1 FOR UPDATE`, id).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}

// AddWithTx changes a balance by delta and returns the new balance. The
// balance CHECK constraint rejects a negative result.
func (r *AccountRepository) AddWithTx(ctx context.Context, tx pgx.Tx, id domain.Identity, delta int64) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE identity = $2 RETURNING balance`,
		delta, id,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}

// BalanceWithTx reads a balance inside tx. Unknown accounts read as zero.
func (r *AccountRepository) BalanceWithTx(ctx context.Context, tx pgx.Tx, id domain.Identity) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE identity = $1`, id).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

// GetByIdentity returns an account outside any transaction.
func (r *AccountRepository) GetByIdentity(ctx context.Context, id domain.Identity) (*domain.Account, error) {
	var a domain.Account
	err := r.db.QueryRow(ctx,
		`SELECT identity, balance, created_at FROM accounts WHERE identity = $1`,
		id,
	).Scan(&a.Identity, &a.Balance, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}
