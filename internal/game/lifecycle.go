package game

import (
	"context"
	"fmt"
	"log/slog"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/logger"

	"github.com/coder/quartz"
)

// CreateParams describes a new session.
type CreateParams struct {
	Creator    domain.Identity
	SessionID  domain.SessionID
	MaxPlayers int
	EntryFee   int64
	RollFee    int64
	RollMode   domain.RollMode

	// Transport overrides the default board when non-nil.
	Transport []domain.TransportEntry
}

// Lifecycle creates, fills and starts sessions.
type Lifecycle struct {
	ledger EscrowLedger
	clock  quartz.Clock
	log    *slog.Logger
}

func NewLifecycle(ledger EscrowLedger, clock quartz.Clock) *Lifecycle {
	return &Lifecycle{
		ledger: ledger,
		clock:  clock,
		log:    logger.With("component", "lifecycle"),
	}
}

// Create builds a session in the created state. No funds move.
func (l *Lifecycle) Create(p CreateParams) (*domain.GameSession, error) {
	if p.MaxPlayers > domain.MaxPlayers {
		return nil, domain.ErrTooManyPlayers
	}
	if p.MaxPlayers < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1", domain.ErrNoPlayers)
	}
	if p.EntryFee < 0 || p.RollFee < 0 {
		return nil, domain.ErrInvalidAmount
	}

	transport := domain.DefaultTransportTable()
	if p.Transport != nil {
		t, err := domain.NewTransportTable(p.Transport, domain.DefaultWinPosition)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	mode := p.RollMode
	if mode == "" {
		mode = domain.RollModeSync
	}

	now := l.clock.Now()
	s := &domain.GameSession{
		Key:         domain.DeriveSessionKey(p.Creator, p.SessionID),
		Creator:     p.Creator,
		SessionID:   p.SessionID,
		MaxPlayers:  p.MaxPlayers,
		Players:     []domain.Identity{},
		Positions:   make([]int, p.MaxPlayers),
		EntryFee:    p.EntryFee,
		RollFee:     p.RollFee,
		WinPosition: domain.DefaultWinPosition,
		State:       domain.GameStateCreated,
		RollMode:    mode,
		Transport:   transport,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	l.log.Info("session created", "session", s.Key, "creator", s.Creator, "max_players", s.MaxPlayers, "mode", s.RollMode)
	return s, nil
}

// Join adds player to the turn order after collecting the entry fee.
func (l *Lifecycle) Join(ctx context.Context, s *domain.GameSession, player domain.Identity) error {
	if s.State != domain.GameStateCreated {
		return domain.ErrGameAlreadyStarted
	}
	if s.IsFull() {
		return domain.ErrGameFull
	}
	if s.HasPlayer(player) {
		return domain.ErrAlreadyJoined
	}

	pot, err := collect(ctx, l.ledger, s, player, s.EntryFee, domain.TxTypeEntryFee)
	if err != nil {
		return err
	}

	s.Pot = pot
	s.Positions[len(s.Players)] = 0
	s.Players = append(s.Players, player)
	s.UpdatedAt = l.clock.Now()

	l.log.Info("player joined", "session", s.Key, "player", player, "slot", len(s.Players)-1, "pot", s.Pot)
	return nil
}

// Start moves a session with at least one player into play. Only the creator
// may start it.
func (l *Lifecycle) Start(s *domain.GameSession, authority domain.Identity) error {
	if authority != s.Creator {
		return domain.ErrUnauthorized
	}
	if s.State != domain.GameStateCreated {
		return domain.ErrGameAlreadyStarted
	}
	if len(s.Players) == 0 {
		return domain.ErrNoPlayers
	}

	s.State = domain.GameStateStarted
	s.CurrentTurnIndex = 0
	s.UpdatedAt = l.clock.Now()

	l.log.Info("session started", "session", s.Key, "players", len(s.Players))
	return nil
}

// DepositFee tops up the pool. Anyone may pay in until the game finishes.
func (l *Lifecycle) DepositFee(ctx context.Context, s *domain.GameSession, payer domain.Identity, amount int64) error {
	if s.Finished {
		return domain.ErrGameFinished
	}
	if amount < 0 {
		return domain.ErrInvalidAmount
	}

	pot, err := collect(ctx, l.ledger, s, payer, amount, domain.TxTypeDeposit)
	if err != nil {
		return err
	}

	s.Pot = pot
	s.UpdatedAt = l.clock.Now()
	return nil
}

// collect moves amount from payer into the session pool and returns the pool
// balance as reported by the ledger afterwards. A zero amount moves nothing
// but still re-reads the balance.
func collect(ctx context.Context, ledger EscrowLedger, s *domain.GameSession, payer domain.Identity, amount int64, txType string) (int64, error) {
	pool := s.PoolAccount()
	if amount > 0 {
		if err := ledger.Deposit(ctx, payer, pool, amount, txType); err != nil {
			return 0, fmt.Errorf("collect %s: %w", txType, err)
		}
	}
	pot, err := ledger.Balance(ctx, pool)
	if err != nil {
		return 0, fmt.Errorf("read pool balance: %w", err)
	}
	return pot, nil
}
