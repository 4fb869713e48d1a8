package service

import (
	"context"
	"errors"
	"fmt"

	"ladders_backend/internal/db"
	"ladders_backend/internal/domain"
	"ladders_backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgLedger is the custodian used by the game engine. It works inside the
// caller's transaction so fund movements commit or roll back together with
// the session update.
type PgLedger struct {
	tx       pgx.Tx
	accounts *repository.AccountRepository
	txs      *repository.TransactionRepository
}

func NewPgLedger(tx pgx.Tx, accounts *repository.AccountRepository, txs *repository.TransactionRepository) *PgLedger {
	return &PgLedger{tx: tx, accounts: accounts, txs: txs}
}

func (l *PgLedger) Deposit(ctx context.Context, payer, pool domain.Identity, amount int64, txType string) error {
	return l.transfer(ctx, payer, pool, amount, txType)
}

func (l *PgLedger) Payout(ctx context.Context, pool, winner domain.Identity, amount int64) error {
	return l.transfer(ctx, pool, winner, amount, domain.TxTypePayout)
}

func (l *PgLedger) Balance(ctx context.Context, account domain.Identity) (int64, error) {
	return l.accounts.BalanceWithTx(ctx, l.tx, account)
}

// transfer moves amount between two accounts and records one ledger row per
// side.
func (l *PgLedger) transfer(ctx context.Context, from, to domain.Identity, amount int64, txType string) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if err := l.accounts.EnsureWithTx(ctx, l.tx, to); err != nil {
		return err
	}

	// Lock both accounts (ordered by identity to prevent deadlocks)
	first, second := from, to
	if first > second {
		first, second = second, first
	}
	balances := make(map[domain.Identity]int64, 2)
	for _, id := range []domain.Identity{first, second} {
		bal, err := l.accounts.LockWithTx(ctx, l.tx, id)
		if err != nil {
			if id == from && errors.Is(err, domain.ErrAccountNotFound) {
				// an unknown payer simply has no funds
				return fmt.Errorf("%w: %s", domain.ErrInsufficientFunds, from)
			}
			return err
		}
		balances[id] = bal
	}

	if balances[from] < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientFunds, from, balances[from], amount)
	}

	if _, err := l.accounts.AddWithTx(ctx, l.tx, from, -amount); err != nil {
		return err
	}
	if _, err := l.accounts.AddWithTx(ctx, l.tx, to, amount); err != nil {
		return err
	}

	out := &domain.Transaction{
		Account: from,
		Type:    txType,
		Amount:  -amount,
		Meta:    map[string]interface{}{"counterparty": string(to)},
	}
	if err := l.txs.CreateWithTx(ctx, l.tx, out); err != nil {
		return err
	}
	in := &domain.Transaction{
		Account: to,
		Type:    txType,
		Amount:  amount,
		Meta:    map[string]interface{}{"counterparty": string(from)},
	}
	return l.txs.CreateWithTx(ctx, l.tx, in)
}

// LedgerService exposes balances and history outside of game operations.
type LedgerService struct {
	db       *pgxpool.Pool
	accounts *repository.AccountRepository
	txs      *repository.TransactionRepository
}

func NewLedgerService(pool *pgxpool.Pool) *LedgerService {
	return &LedgerService{
		db:       pool,
		accounts: repository.NewAccountRepository(pool),
		txs:      repository.NewTransactionRepository(pool),
	}
}

// Balance returns the current balance of an account. Unknown accounts have
// a zero balance.
func (s *LedgerService) Balance(ctx context.Context, id domain.Identity) (int64, error) {
	acc, err := s.accounts.GetByIdentity(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return acc.Balance, nil
}

// Transactions returns recent ledger rows of an account.
func (s *LedgerService) Transactions(ctx context.Context, id domain.Identity, limit int) ([]*domain.Transaction, error) {
	return s.txs.GetByAccount(ctx, id, limit)
}

// Fund credits an account from outside the system (faucet, admin top-up).
func (s *LedgerService) Fund(ctx context.Context, id domain.Identity, amount int64, meta map[string]interface{}) (newBalance int64, err error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.accounts.EnsureWithTx(ctx, tx, id); err != nil {
			return err
		}
		bal, err := s.accounts.AddWithTx(ctx, tx, id, amount)
		if err != nil {
			return err
		}
		newBalance = bal

		return s.txs.CreateWithTx(ctx, tx, &domain.Transaction{
			Account: id,
			Type:    domain.TxTypeFunding,
			Amount:  amount,
			Meta:    meta,
		})
	})
	return newBalance, err
}
