package game

import (
	"log/slog"
	"math"
	"time"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/logger"

	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// DefaultRequestTTL is how long a randomness request may stay outstanding
// before its player may replace it.
const DefaultRequestTTL = 2 * time.Minute

// EngineConfig configures a TurnEngine.
type EngineConfig struct {
	// GatewayIdentity is the only principal allowed to deliver randomness.
	GatewayIdentity domain.Identity
	// RequestTTL bounds how long a randomness request blocks its player.
	RequestTTL time.Duration
}

// TurnOutcome describes one resolved roll.
type TurnOutcome struct {
	Player      domain.Identity `json:"player"`
	Slot        int             `json:"slot"`
	Roll        int             `json:"roll"`
	From        int             `json:"from"`
	Landed      int             `json:"landed"`
	To          int             `json:"to"`
	Transported bool            `json:"transported"`
	Overshoot   bool            `json:"overshoot"`
	Won         bool            `json:"won"`
	NextTurn    int             `json:"next_turn"`
	Nonce       uint64          `json:"nonce"`
}

// TurnEngine authorizes and resolves turns. Callers must serialize
// operations on the same session.
type TurnEngine struct {
	ledger   EscrowLedger
	gateway  RandomnessGateway
	clock    quartz.Clock
	cfg      EngineConfig
	newID    func() string
	log      *slog.Logger
	sync     *SyncRollResolver
	twoPhase *TwoPhaseRollResolver
}

func NewTurnEngine(ledger EscrowLedger, gateway RandomnessGateway, clock quartz.Clock, cfg EngineConfig) *TurnEngine {
	if cfg.RequestTTL <= 0 {
		cfg.RequestTTL = DefaultRequestTTL
	}
	e := &TurnEngine{
		ledger:  ledger,
		gateway: gateway,
		clock:   clock,
		cfg:     cfg,
		newID:   func() string { return uuid.NewString() },
		log:     logger.With("component", "turn_engine"),
	}
	e.sync = &SyncRollResolver{engine: e}
	e.twoPhase = &TwoPhaseRollResolver{engine: e}
	return e
}

// Sync returns the single step resolver.
func (e *TurnEngine) Sync() *SyncRollResolver {
	return e.sync
}

// TwoPhase returns the externally randomized resolver.
func (e *TurnEngine) TwoPhase() *TwoPhaseRollResolver {
	return e.twoPhase
}

// Resolver returns the resolver for a session's roll mode.
func (e *TurnEngine) Resolver(mode domain.RollMode) RollResolver {
	if mode == domain.RollModeVRF {
		return e.twoPhase
	}
	return e.sync
}

// PassTurn hands the turn to the next player without moving a token. It also
// abandons any outstanding randomness request.
func (e *TurnEngine) PassTurn(s *domain.GameSession, caller domain.Identity) error {
	if err := checkInPlay(s); err != nil {
		return err
	}
	if len(s.Players) == 0 {
		return domain.ErrNoPlayers
	}
	if current, ok := s.CurrentPlayer(); !ok || current != caller {
		return domain.ErrUnauthorized
	}
	nonce, err := nextNonce(s.TurnNonce)
	if err != nil {
		return err
	}

	s.ClearPending()
	s.CurrentTurnIndex = (s.CurrentTurnIndex + 1) % len(s.Players)
	s.TurnNonce = nonce
	s.UpdatedAt = e.clock.Now()

	e.log.Info("turn passed", "session", s.Key, "player", caller, "next_turn", s.CurrentTurnIndex)
	return nil
}

// applyRoll moves the token in slot by roll and advances the turn unless the
// move wins. Overshooting the final square leaves the token in place.
func (e *TurnEngine) applyRoll(s *domain.GameSession, slot, roll int) TurnOutcome {
	out := TurnOutcome{
		Player: s.Players[slot],
		Slot:   slot,
		Roll:   roll,
		From:   s.Positions[slot],
	}

	candidate := out.From + roll
	out.Landed = candidate
	if candidate > s.WinPosition {
		out.Overshoot = true
		candidate = out.From
		e.log.Debug("roll overshoots", "session", s.Key, "player", out.Player, "from", out.From, "roll", roll)
	} else if to, ok := s.Transport.Apply(candidate); ok {
		out.Transported = true
		e.log.Info("transported", "session", s.Key, "player", out.Player, "from", candidate, "to", to)
		candidate = to
	}
	out.To = candidate
	s.Positions[slot] = candidate

	if !out.Overshoot && candidate == s.WinPosition {
		winner := out.Player
		s.Finished = true
		s.State = domain.GameStateFinished
		s.Winner = &winner
		out.Won = true
		e.log.Info("player wins", "session", s.Key, "player", winner, "pot", s.Pot)
	} else {
		s.CurrentTurnIndex = (s.CurrentTurnIndex + 1) % len(s.Players)
	}
	out.NextTurn = s.CurrentTurnIndex
	s.UpdatedAt = e.clock.Now()
	return out
}

// checkInPlay rejects operations on sessions that are not being played.
func checkInPlay(s *domain.GameSession) error {
	if s.Finished || s.State == domain.GameStateFinished {
		return domain.ErrGameFinished
	}
	if s.State != domain.GameStateStarted {
		return domain.ErrGameNotStarted
	}
	return nil
}

func nextNonce(n uint64) (uint64, error) {
	if n == math.MaxUint64 {
		return 0, domain.ErrNonceOverflow
	}
	return n + 1, nil
}
