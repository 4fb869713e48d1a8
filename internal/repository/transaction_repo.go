package repository

import (
	"context"
	"encoding/json"

	"ladders_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetByAccount returns recent ledger rows for an account
func (r *TransactionRepository) GetByAccount(ctx context.Context, account domain.Identity, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, account, type, amount, meta, created_at
		 FROM transactions
		 WHERE account = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		account, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// CreateWithTx inserts a ledger row using an existing database transaction
func (r *TransactionRepository) CreateWithTx(ctx context.Context, dbTx pgx.Tx, tx *domain.Transaction) error {
	metaJSON, err := json.Marshal(tx.Meta)
	if err != nil || tx.Meta == nil {
		metaJSON = []byte("{}")
	}

	return dbTx.QueryRow(ctx,
		`INSERT INTO transactions (account, type, amount, meta)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		tx.Account, tx.Type, tx.Amount, metaJSON,
	).Scan(&tx.ID, &tx.CreatedAt)
}

// Helper to scan rows into Transaction slice
func (r *TransactionRepository) scanRows(rows pgx.Rows) ([]*domain.Transaction, error) {
	var result []*domain.Transaction

	for rows.Next() {
		var (
			tx       domain.Transaction
			metaJSON []byte
		)

		if err := rows.Scan(&tx.ID, &tx.Account, &tx.Type, &tx.Amount, &metaJSON, &tx.CreatedAt); err != nil {
			return nil, err
		}

		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &tx.Meta)
		}

		result = append(result, &tx)
	}

	return result, rows.Err()
}
