package game

import (
	"context"

	"ladders_backend/internal/domain"
)

// EscrowLedger is the custodian that actually holds and moves funds.
// Implementations must make a failed movement leave both balances untouched.
type EscrowLedger interface {
	// Deposit moves amount from payer into the pool account.
	Deposit(ctx context.Context, payer, pool domain.Identity, amount int64, txType string) error

	// Payout moves amount from the pool account to the winner.
	Payout(ctx context.Context, pool, winner domain.Identity, amount int64) error

	// Balance returns the authoritative balance of an account.
	Balance(ctx context.Context, account domain.Identity) (int64, error)
}

// RandomnessGateway accepts randomness requests. The value is delivered later
// as a domain.RandomnessFulfillment through TwoPhaseRollResolver.Resolve.
type RandomnessGateway interface {
	RequestRandomness(ctx context.Context, req domain.RandomnessRequest) error
}
