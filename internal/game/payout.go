package game

import (
	"context"
	"fmt"
	"log/slog"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/logger"

	"github.com/coder/quartz"
)

// Payouts settles finished sessions.
type Payouts struct {
	ledger EscrowLedger
	clock  quartz.Clock
	log    *slog.Logger
}

func NewPayouts(ledger EscrowLedger, clock quartz.Clock) *Payouts {
	return &Payouts{
		ledger: ledger,
		clock:  clock,
		log:    logger.With("component", "payouts"),
	}
}

// Claim pays the whole pot to the recorded winner and returns the amount
// paid. A second claim fails with ErrInvalidWinner because the pot is empty.
func (p *Payouts) Claim(ctx context.Context, s *domain.GameSession, claimant domain.Identity) (int64, error) {
	if s.State != domain.GameStateFinished {
		return 0, domain.ErrGameNotFinished
	}
	if s.Winner == nil || *s.Winner != claimant {
		return 0, domain.ErrUnauthorized
	}
	if s.Pot == 0 {
		return 0, domain.ErrInvalidWinner
	}

	amount := s.Pot
	if err := p.ledger.Payout(ctx, s.PoolAccount(), claimant, amount); err != nil {
		return 0, fmt.Errorf("pay out pot: %w", err)
	}
	s.Pot = 0
	s.UpdatedAt = p.clock.Now()

	p.log.Info("pot claimed", "session", s.Key, "winner", claimant, "amount", amount)
	return amount, nil
}
