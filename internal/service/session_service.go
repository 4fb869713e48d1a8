package service

import (
	"context"
	"log/slog"

	"ladders_backend/internal/db"
	"ladders_backend/internal/domain"
	"ladders_backend/internal/game"
	"ladders_backend/internal/logger"
	"ladders_backend/internal/repository"

	"github.com/coder/quartz"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Session events pushed to live subscribers
const (
	EventSessionCreated = "session_created"
	EventPlayerJoined   = "player_joined"
	EventSessionStarted = "session_started"
	EventPotDeposit     = "pot_deposit"
	EventRollRequested  = "roll_requested"
	EventRollResolved   = "roll_resolved"
	EventTurnPassed     = "turn_passed"
	EventPotClaimed     = "pot_claimed"
)

// SessionNotifier receives committed session snapshots.
type SessionNotifier interface {
	NotifySession(s *domain.GameSession, event string, detail any)
}

// SessionConfig tunes a SessionService.
type SessionConfig struct {
	Engine          game.EngineConfig
	DefaultRollMode domain.RollMode
}

// CreateSessionInput describes a session to create.
type CreateSessionInput struct {
	SessionID  domain.SessionID
	MaxPlayers int
	EntryFee   int64
	RollFee    int64
	RollMode   domain.RollMode
	Transport  []domain.TransportEntry
}

// SessionService runs game operations against Postgres. Each operation is one
// database transaction that locks the session row, so operations on the same
// session never interleave and a failed operation leaves nothing behind.
type SessionService struct {
	db       *pgxpool.Pool
	sessions *repository.SessionRepository
	accounts *repository.AccountRepository
	txs      *repository.TransactionRepository
	requests *repository.RandomnessRepository
	relay    *RandomnessRelay
	audit    *AuditService
	notifier SessionNotifier
	clock    quartz.Clock
	cfg      SessionConfig
	log      *slog.Logger
}

func NewSessionService(pool *pgxpool.Pool, relay *RandomnessRelay, audit *AuditService, notifier SessionNotifier, clock quartz.Clock, cfg SessionConfig) *SessionService {
	if cfg.DefaultRollMode == "" {
		cfg.DefaultRollMode = domain.RollModeSync
	}
	return &SessionService{
		db:       pool,
		sessions: repository.NewSessionRepository(pool),
		accounts: repository.NewAccountRepository(pool),
		txs:      repository.NewTransactionRepository(pool),
		requests: repository.NewRandomnessRepository(pool),
		relay:    relay,
		audit:    audit,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,
		log:      logger.With("component", "session_service"),
	}
}

// opScope binds the engine to one database transaction.
type opScope struct {
	tx        pgx.Tx
	gateway   *outboxGateway
	lifecycle *game.Lifecycle
	engine    *game.TurnEngine
	payouts   *game.Payouts
}

func (s *SessionService) scope(tx pgx.Tx) *opScope {
	ledger := NewPgLedger(tx, s.accounts, s.txs)
	gw := &outboxGateway{tx: tx, repo: s.requests}
	return &opScope{
		tx:        tx,
		gateway:   gw,
		lifecycle: game.NewLifecycle(ledger, s.clock),
		engine:    game.NewTurnEngine(ledger, gw, s.clock, s.cfg.Engine),
		payouts:   game.NewPayouts(ledger, s.clock),
	}
}

// mutate loads key for update, applies fn and stores the result in a single
// transaction. Randomness requests emitted by fn are published after commit.
func (s *SessionService) mutate(ctx context.Context, op string, key domain.SessionKey, fn func(sc *opScope, gs *domain.GameSession) error) (*domain.GameSession, error) {
	var (
		gs *domain.GameSession
		sc *opScope
	)
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		gs, err = s.sessions.GetForUpdate(ctx, tx, key)
		if err != nil {
			return err
		}
		sc = s.scope(tx)
		if err := fn(sc, gs); err != nil {
			return err
		}
		return s.sessions.UpdateWithTx(ctx, tx, gs)
	})
	if err != nil {
		s.failed(ctx, op, key, err)
		return nil, err
	}

	if len(sc.gateway.emitted) > 0 && s.relay != nil {
		s.relay.Publish(ctx, sc.gateway.emitted)
	}
	return gs, nil
}

func (s *SessionService) failed(ctx context.Context, op string, key domain.SessionKey, err error) {
	code := domain.ErrorCode(err)
	OperationErrors.WithLabelValues(op, code).Inc()
	if code == "internal" {
		logger.WithContext(ctx).Error("session operation failed", "op", op, "session", key, "error", err)
		return
	}
	logger.WithContext(ctx).Debug("session operation rejected", "op", op, "session", key, "code", code)
}

func (s *SessionService) notify(gs *domain.GameSession, event string, detail any) {
	if s.notifier != nil {
		s.notifier.NotifySession(gs, event, detail)
	}
}

// Create registers a new session owned by caller. No funds move.
func (s *SessionService) Create(ctx context.Context, caller domain.Identity, in CreateSessionInput) (*domain.GameSession, error) {
	mode := in.RollMode
	if mode == "" {
		mode = s.cfg.DefaultRollMode
	}

	var gs *domain.GameSession
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		gs, err = s.scope(tx).lifecycle.Create(game.CreateParams{
			Creator:    caller,
			SessionID:  in.SessionID,
			MaxPlayers: in.MaxPlayers,
			EntryFee:   in.EntryFee,
			RollFee:    in.RollFee,
			RollMode:   mode,
			Transport:  in.Transport,
		})
		if err != nil {
			return err
		}
		if err := s.sessions.CreateWithTx(ctx, tx, gs); err != nil {
			return err
		}
		return s.accounts.EnsureWithTx(ctx, tx, gs.PoolAccount())
	})
	if err != nil {
		s.failed(ctx, "create", "", err)
		return nil, err
	}

	SessionsCreated.Inc()
	s.audit.LogGame(ctx, caller, gs.Key, domain.AuditActionSessionCreate, map[string]interface{}{
		"max_players": gs.MaxPlayers,
		"entry_fee":   gs.EntryFee,
		"roll_fee":    gs.RollFee,
		"roll_mode":   string(gs.RollMode),
	})
	s.notify(gs, EventSessionCreated, nil)
	return gs, nil
}

// Join adds caller to a session after collecting the entry fee.
func (s *SessionService) Join(ctx context.Context, caller domain.Identity, key domain.SessionKey) (*domain.GameSession, error) {
	gs, err := s.mutate(ctx, "join", key, func(sc *opScope, gs *domain.GameSession) error {
		return sc.lifecycle.Join(ctx, gs, caller)
	})
	if err != nil {
		return nil, err
	}

	PlayersJoined.Inc()
	s.audit.LogGame(ctx, caller, key, domain.AuditActionSessionJoin, map[string]interface{}{"entry_fee": gs.EntryFee, "pot": gs.Pot})
	s.notify(gs, EventPlayerJoined, map[string]any{"player": caller})
	return gs, nil
}

// Start opens a session for play. Only its creator may start it.
func (s *SessionService) Start(ctx context.Context, caller domain.Identity, key domain.SessionKey) (*domain.GameSession, error) {
	gs, err := s.mutate(ctx, "start", key, func(sc *opScope, gs *domain.GameSession) error {
		return sc.lifecycle.Start(gs, caller)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogGame(ctx, caller, key, domain.AuditActionSessionStart, map[string]interface{}{"players": len(gs.Players)})
	s.notify(gs, EventSessionStarted, nil)
	return gs, nil
}

// Deposit tops up the pot of an unfinished session.
func (s *SessionService) Deposit(ctx context.Context, caller domain.Identity, key domain.SessionKey, amount int64) (*domain.GameSession, error) {
	gs, err := s.mutate(ctx, "deposit", key, func(sc *opScope, gs *domain.GameSession) error {
		return sc.lifecycle.DepositFee(ctx, gs, caller, amount)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogPayment(ctx, caller, key, domain.AuditActionDeposit, amount)
	s.notify(gs, EventPotDeposit, map[string]any{"payer": caller, "amount": amount})
	return gs, nil
}

// Roll rolls for caller using the session's roll mode.
func (s *SessionService) Roll(ctx context.Context, caller domain.Identity, key domain.SessionKey, clientSeed domain.Seed) (game.RollResult, *domain.GameSession, error) {
	var res game.RollResult
	gs, err := s.mutate(ctx, "roll", key, func(sc *opScope, gs *domain.GameSession) error {
		var err error
		res, err = sc.engine.Resolver(gs.RollMode).Roll(ctx, gs, caller, clientSeed)
		return err
	})
	if err != nil {
		return game.RollResult{}, nil, err
	}

	switch {
	case res.Outcome != nil:
		s.rolled(ctx, gs, domain.RollModeSync, *res.Outcome)
	case res.Request != nil:
		s.requested(ctx, gs, *res.Request)
	}
	return res, gs, nil
}

// RollSync resolves a roll immediately with the clock derived die.
func (s *SessionService) RollSync(ctx context.Context, caller domain.Identity, key domain.SessionKey) (game.TurnOutcome, *domain.GameSession, error) {
	var out game.TurnOutcome
	gs, err := s.mutate(ctx, "roll_sync", key, func(sc *opScope, gs *domain.GameSession) error {
		var err error
		out, err = sc.engine.Sync().Resolve(ctx, gs, caller)
		return err
	})
	if err != nil {
		return game.TurnOutcome{}, nil, err
	}

	s.rolled(ctx, gs, domain.RollModeSync, out)
	return out, gs, nil
}

// RequestRoll asks the randomness gateway for caller's roll.
func (s *SessionService) RequestRoll(ctx context.Context, caller domain.Identity, key domain.SessionKey, clientSeed domain.Seed) (domain.RandomnessRequest, *domain.GameSession, error) {
	var req domain.RandomnessRequest
	gs, err := s.mutate(ctx, "request_roll", key, func(sc *opScope, gs *domain.GameSession) error {
		var err error
		req, err = sc.engine.TwoPhase().Request(ctx, gs, caller, clientSeed)
		return err
	})
	if err != nil {
		return domain.RandomnessRequest{}, nil, err
	}

	s.requested(ctx, gs, req)
	return req, gs, nil
}

// Fulfill applies a randomness callback delivered by msg.Sender.
func (s *SessionService) Fulfill(ctx context.Context, msg domain.RandomnessFulfillment) (game.TurnOutcome, *domain.GameSession, error) {
	var out game.TurnOutcome
	gs, err := s.mutate(ctx, "fulfill", msg.SessionKey, func(sc *opScope, gs *domain.GameSession) error {
		var err error
		out, err = sc.engine.TwoPhase().Resolve(gs, msg)
		if err != nil {
			return err
		}
		return s.requests.MarkFulfilledWithTx(ctx, sc.tx, msg.RequestID, msg.Randomness, s.clock.Now())
	})
	if err != nil {
		return game.TurnOutcome{}, nil, err
	}

	s.rolled(ctx, gs, domain.RollModeVRF, out)
	return out, gs, nil
}

// PassTurn skips caller's turn and abandons any outstanding request.
func (s *SessionService) PassTurn(ctx context.Context, caller domain.Identity, key domain.SessionKey) (*domain.GameSession, error) {
	gs, err := s.mutate(ctx, "pass_turn", key, func(sc *opScope, gs *domain.GameSession) error {
		hadPending := gs.HasPendingRoll()
		if err := sc.engine.PassTurn(gs, caller); err != nil {
			return err
		}
		if hadPending {
			return s.requests.AbandonOpenWithTx(ctx, sc.tx, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogGame(ctx, caller, key, domain.AuditActionPassTurn, map[string]interface{}{"next_turn": gs.CurrentTurnIndex})
	s.notify(gs, EventTurnPassed, map[string]any{"player": caller})
	return gs, nil
}

// Claim pays the pot of a finished session to its winner.
func (s *SessionService) Claim(ctx context.Context, caller domain.Identity, key domain.SessionKey) (int64, *domain.GameSession, error) {
	var paid int64
	gs, err := s.mutate(ctx, "claim", key, func(sc *opScope, gs *domain.GameSession) error {
		var err error
		paid, err = sc.payouts.Claim(ctx, gs, caller)
		return err
	})
	if err != nil {
		return 0, nil, err
	}

	PotPaid.Add(float64(paid))
	s.audit.LogPayment(ctx, caller, key, domain.AuditActionClaim, paid)
	s.notify(gs, EventPotClaimed, map[string]any{"winner": caller, "amount": paid})
	return paid, gs, nil
}

// Get returns a session snapshot.
func (s *SessionService) Get(ctx context.Context, key domain.SessionKey) (*domain.GameSession, error) {
	return s.sessions.GetByKey(ctx, key)
}

// ListOpen returns sessions still accepting players.
func (s *SessionService) ListOpen(ctx context.Context, limit int) ([]*domain.GameSession, error) {
	return s.sessions.ListByState(ctx, domain.GameStateCreated, limit)
}

// Trail returns the audit trail of a session.
func (s *SessionService) Trail(ctx context.Context, key domain.SessionKey, limit int) ([]*domain.AuditLog, error) {
	return s.audit.SessionTrail(ctx, key, limit)
}

func (s *SessionService) rolled(ctx context.Context, gs *domain.GameSession, mode domain.RollMode, out game.TurnOutcome) {
	RollsResolved.WithLabelValues(string(mode), rollResult(out.Won, out.Overshoot, out.Transported)).Inc()
	s.audit.LogGame(ctx, out.Player, gs.Key, domain.AuditActionRoll, map[string]interface{}{
		"mode":        string(mode),
		"roll":        out.Roll,
		"from":        out.From,
		"to":          out.To,
		"transported": out.Transported,
		"overshoot":   out.Overshoot,
		"nonce":       out.Nonce,
	})
	if out.Won {
		GamesWon.Inc()
		s.audit.LogGame(ctx, out.Player, gs.Key, domain.AuditActionGameWin, map[string]interface{}{"pot": gs.Pot})
	}
	s.notify(gs, EventRollResolved, out)
}

func (s *SessionService) requested(ctx context.Context, gs *domain.GameSession, req domain.RandomnessRequest) {
	RandomnessRequested.Inc()
	s.audit.LogGame(ctx, req.Player, gs.Key, domain.AuditActionRollRequest, map[string]interface{}{
		"request_id": req.ID,
		"nonce":      req.Nonce,
	})
	s.notify(gs, EventRollRequested, map[string]any{"player": req.Player, "request_id": req.ID})
}
