package game

import (
	"context"

	"ladders_backend/internal/domain"
)

// RollResult is what a RollResolver produces for one roll call. Exactly one
// of Outcome and Request is set: the sync resolver completes the turn, the
// two phase resolver leaves it waiting on the gateway.
type RollResult struct {
	Outcome *TurnOutcome              `json:"outcome,omitempty"`
	Request *domain.RandomnessRequest `json:"request,omitempty"`
}

// RollResolver is the roll capability a session uses.
type RollResolver interface {
	Mode() domain.RollMode
	Roll(ctx context.Context, s *domain.GameSession, caller domain.Identity, clientSeed domain.Seed) (RollResult, error)
}

// SyncRollResolver requests and resolves a roll in one step using a clock
// derived seed.
type SyncRollResolver struct {
	engine *TurnEngine
}

func (r *SyncRollResolver) Mode() domain.RollMode {
	return domain.RollModeSync
}

func (r *SyncRollResolver) Roll(ctx context.Context, s *domain.GameSession, caller domain.Identity, _ domain.Seed) (RollResult, error) {
	out, err := r.Resolve(ctx, s, caller)
	if err != nil {
		return RollResult{}, err
	}
	return RollResult{Outcome: &out}, nil
}

// Resolve charges the roll fee, rolls and applies the move for the current
// player.
func (r *SyncRollResolver) Resolve(ctx context.Context, s *domain.GameSession, caller domain.Identity) (TurnOutcome, error) {
	e := r.engine
	if err := checkInPlay(s); err != nil {
		return TurnOutcome{}, err
	}
	if s.HasPendingRoll() {
		return TurnOutcome{}, domain.ErrRollPending
	}
	if current, ok := s.CurrentPlayer(); !ok || current != caller {
		return TurnOutcome{}, domain.ErrNotYourTurn
	}

	pot, err := collect(ctx, e.ledger, s, caller, s.RollFee, domain.TxTypeRollFee)
	if err != nil {
		return TurnOutcome{}, err
	}
	s.Pot = pot

	roll := SyncDie(e.clock.Now(), s.TurnNonce)
	e.log.Info("player rolled", "session", s.Key, "player", caller, "roll", roll, "mode", domain.RollModeSync)

	out := e.applyRoll(s, s.CurrentTurnIndex, roll)
	s.TurnNonce++
	out.Nonce = s.TurnNonce
	return out, nil
}

// TwoPhaseRollResolver splits a roll into a request to the randomness
// gateway and a later authenticated callback that applies the move.
type TwoPhaseRollResolver struct {
	engine *TurnEngine
}

func (r *TwoPhaseRollResolver) Mode() domain.RollMode {
	return domain.RollModeVRF
}

func (r *TwoPhaseRollResolver) Roll(ctx context.Context, s *domain.GameSession, caller domain.Identity, clientSeed domain.Seed) (RollResult, error) {
	req, err := r.Request(ctx, s, caller, clientSeed)
	if err != nil {
		return RollResult{}, err
	}
	return RollResult{Request: &req}, nil
}

// Request charges the roll fee, marks caller as pending and emits a
// randomness request. No token moves.
//
// A second request while one is outstanding fails with ErrRollPending unless
// the outstanding one belongs to caller and is older than the request TTL, in
// which case it is replaced.
func (r *TwoPhaseRollResolver) Request(ctx context.Context, s *domain.GameSession, caller domain.Identity, clientSeed domain.Seed) (domain.RandomnessRequest, error) {
	e := r.engine
	if err := checkInPlay(s); err != nil {
		return domain.RandomnessRequest{}, err
	}
	if s.CurrentTurnIndex < 0 || s.CurrentTurnIndex >= len(s.Players) {
		return domain.RandomnessRequest{}, domain.ErrInvalidTurnIndex
	}
	if s.Players[s.CurrentTurnIndex] != caller {
		return domain.RandomnessRequest{}, domain.ErrNotYourTurn
	}
	now := e.clock.Now()
	if s.HasPendingRoll() && !r.expired(s, caller) {
		return domain.RandomnessRequest{}, domain.ErrRollPending
	}
	nonce, err := nextNonce(s.TurnNonce)
	if err != nil {
		return domain.RandomnessRequest{}, err
	}

	pot, err := collect(ctx, e.ledger, s, caller, s.RollFee, domain.TxTypeRollFee)
	if err != nil {
		return domain.RandomnessRequest{}, err
	}

	req := domain.RandomnessRequest{
		ID:         e.newID(),
		SessionKey: s.Key,
		Player:     caller,
		ClientSeed: clientSeed,
		Nonce:      nonce,
		CreatedAt:  now,
	}
	if err := e.gateway.RequestRandomness(ctx, req); err != nil {
		return domain.RandomnessRequest{}, err
	}

	if s.HasPendingRoll() {
		e.log.Warn("replacing expired randomness request", "session", s.Key, "player", caller, "request_id", s.PendingRequestID)
	}
	pending := caller
	s.Pot = pot
	s.PendingPlayer = &pending
	s.PendingRequestID = req.ID
	s.PendingSince = &now
	s.TurnNonce = nonce
	s.UpdatedAt = now

	e.log.Info("randomness requested", "session", s.Key, "player", caller, "request_id", req.ID, "nonce", nonce)
	return req, nil
}

// Resolve applies a gateway callback. Only the configured gateway identity
// may deliver it, and it must answer the outstanding request.
func (r *TwoPhaseRollResolver) Resolve(s *domain.GameSession, msg domain.RandomnessFulfillment) (TurnOutcome, error) {
	e := r.engine
	if e.cfg.GatewayIdentity == "" || msg.Sender != e.cfg.GatewayIdentity {
		return TurnOutcome{}, domain.ErrUnauthorizedGateway
	}
	if err := checkInPlay(s); err != nil {
		return TurnOutcome{}, err
	}
	if s.PendingPlayer == nil {
		return TurnOutcome{}, domain.ErrMoverMismatch
	}
	if msg.SessionKey != s.Key || msg.RequestID != s.PendingRequestID {
		return TurnOutcome{}, domain.ErrMoverMismatch
	}
	if msg.Nonce != s.TurnNonce {
		return TurnOutcome{}, domain.ErrInvalidNonce
	}
	player := *s.PendingPlayer
	slot, ok := s.SlotOf(player)
	if !ok {
		return TurnOutcome{}, domain.ErrInvalidMover
	}

	roll := DieFromRandomness(msg.Randomness)
	e.log.Info("player rolled", "session", s.Key, "player", player, "roll", roll, "mode", domain.RollModeVRF)

	out := e.applyRoll(s, slot, roll)
	out.Nonce = s.TurnNonce
	s.ClearPending()
	return out, nil
}

func (r *TwoPhaseRollResolver) expired(s *domain.GameSession, caller domain.Identity) bool {
	if s.PendingPlayer == nil || *s.PendingPlayer != caller || s.PendingSince == nil {
		return false
	}
	return r.engine.clock.Since(*s.PendingSince) > r.engine.cfg.RequestTTL
}
