package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"ladders_backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[domain.Identity]int64{"A": 20, "B": 20})
	s := f.startedSession(t, CreateParams{MaxPlayers: 2, RollFee: 5, RollMode: domain.RollModeVRF}, "A", "B")

	_, err := f.engine.TwoPhase().Request(ctx, s, "B", domain.Seed{})
	assert.ErrorIs(t, err, domain.ErrNotYourTurn)

	req, err := f.engine.TwoPhase().Request(ctx, s, "A", domain.Seed{1, 2, 3})
	require.NoError(t, err)

	assert.Equal(t, "req-1", req.ID)
	assert.Equal(t, s.Key, req.SessionKey)
	assert.Equal(t, domain.Identity("A"), req.Player)
	assert.Equal(t, uint64(1), req.Nonce)
	assert.Equal(t, f.clock.Now(), req.CreatedAt)
	require.Len(t, f.gateway.requests, 1)
	assert.Equal(t, req, f.gateway.requests[0])

	assert.Equal(t, uint64(1), s.TurnNonce)
	assert.Equal(t, int64(5), s.Pot)
	require.NotNil(t, s.PendingPlayer)
	assert.Equal(t, domain.Identity("A"), *s.PendingPlayer)
	assert.Equal(t, "req-1", s.PendingRequestID)
	assert.Equal(t, []int{0, 0}, s.Positions, "request alone moves nothing")
	assert.Zero(t, s.CurrentTurnIndex)
	require.NoError(t, s.CheckInvariants())

	_, err = f.engine.TwoPhase().Request(ctx, s, "A", domain.Seed{})
	assert.ErrorIs(t, err, domain.ErrRollPending)
	assert.Equal(t, int64(5), s.Pot, "rejected request is not charged")

	_, err = f.engine.Sync().Resolve(ctx, s, "A")
	assert.ErrorIs(t, err, domain.ErrRollPending)
}

func TestRequestRollGatewayFailure(t *testing.T) {
	f := newFixture(t, nil)
	s := f.startedSession(t, CreateParams{MaxPlayers: 1}, "A")
	f.gateway.err = errors.New("queue down")

	_, err := f.engine.TwoPhase().Request(context.Background(), s, "A", domain.Seed{})
	require.Error(t, err)
	assert.Nil(t, s.PendingPlayer)
	assert.Zero(t, s.TurnNonce)
}

func TestRequestRollBadTurnIndex(t *testing.T) {
	f := newFixture(t, nil)
	s := f.startedSession(t, CreateParams{MaxPlayers: 2}, "A", "B")
	s.CurrentTurnIndex = 5

	_, err := f.engine.TwoPhase().Request(context.Background(), s, "A", domain.Seed{})
	assert.ErrorIs(t, err, domain.ErrInvalidTurnIndex)
}

func TestFulfillRoll(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *domain.GameSession, domain.RandomnessRequest) {
		f := newFixture(t, nil)
		s := f.startedSession(t, CreateParams{MaxPlayers: 2, RollMode: domain.RollModeVRF}, "A", "B")
		req, err := f.engine.TwoPhase().Request(ctx, s, "A", domain.Seed{})
		require.NoError(t, err)
		return f, s, req
	}

	t.Run("applies the move and clears pending", func(t *testing.T) {
		f, s, req := setup(t)
		out, err := f.engine.TwoPhase().Resolve(s, fulfill(req, 5))
		require.NoError(t, err)

		assert.Equal(t, 5, out.Roll)
		assert.Equal(t, domain.Identity("A"), out.Player)
		assert.Equal(t, 5, s.Positions[0])
		assert.Equal(t, 1, s.CurrentTurnIndex)
		assert.Equal(t, uint64(1), s.TurnNonce)
		assert.Nil(t, s.PendingPlayer)
		assert.Empty(t, s.PendingRequestID)
		assert.Nil(t, s.PendingSince)
	})

	t.Run("only the gateway may answer", func(t *testing.T) {
		f, s, req := setup(t)
		msg := fulfill(req, 5)
		msg.Sender = "A"
		_, err := f.engine.TwoPhase().Resolve(s, msg)
		assert.ErrorIs(t, err, domain.ErrUnauthorizedGateway)
		assert.NotNil(t, s.PendingPlayer)
	})

	t.Run("unknown request id", func(t *testing.T) {
		f, s, req := setup(t)
		msg := fulfill(req, 5)
		msg.RequestID = "forged"
		_, err := f.engine.TwoPhase().Resolve(s, msg)
		assert.ErrorIs(t, err, domain.ErrMoverMismatch)
	})

	t.Run("wrong session", func(t *testing.T) {
		f, s, req := setup(t)
		msg := fulfill(req, 5)
		msg.SessionKey = "elsewhere"
		_, err := f.engine.TwoPhase().Resolve(s, msg)
		assert.ErrorIs(t, err, domain.ErrMoverMismatch)
	})

	t.Run("stale nonce", func(t *testing.T) {
		f, s, req := setup(t)
		msg := fulfill(req, 5)
		msg.Nonce--
		_, err := f.engine.TwoPhase().Resolve(s, msg)
		assert.ErrorIs(t, err, domain.ErrInvalidNonce)
		assert.Equal(t, []int{0, 0}, s.Positions)
	})

	t.Run("replay after resolution", func(t *testing.T) {
		f, s, req := setup(t)
		_, err := f.engine.TwoPhase().Resolve(s, fulfill(req, 5))
		require.NoError(t, err)
		_, err = f.engine.TwoPhase().Resolve(s, fulfill(req, 5))
		assert.ErrorIs(t, err, domain.ErrMoverMismatch)
		assert.Equal(t, 5, s.Positions[0])
	})

	t.Run("after pass turn", func(t *testing.T) {
		f, s, req := setup(t)
		require.NoError(t, f.engine.PassTurn(s, "A"))
		_, err := f.engine.TwoPhase().Resolve(s, fulfill(req, 5))
		assert.ErrorIs(t, err, domain.ErrMoverMismatch)
	})

	t.Run("gateway not configured", func(t *testing.T) {
		f, s, req := setup(t)
		f.engine.cfg.GatewayIdentity = ""
		msg := fulfill(req, 5)
		msg.Sender = ""
		_, err := f.engine.TwoPhase().Resolve(s, msg)
		assert.ErrorIs(t, err, domain.ErrUnauthorizedGateway)
	})
}

func TestExpiryOnlyForPendingPlayer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	s := f.startedSession(t, CreateParams{MaxPlayers: 2}, "A", "B")

	_, err := f.engine.TwoPhase().Request(ctx, s, "A", domain.Seed{})
	require.NoError(t, err)
	// hand the turn over without clearing the pending request
	s.CurrentTurnIndex = 1
	f.clock.Advance(10 * f.engine.cfg.RequestTTL)

	_, err = f.engine.TwoPhase().Request(ctx, s, "B", domain.Seed{})
	assert.ErrorIs(t, err, domain.ErrRollPending)
}

func TestDieMapping(t *testing.T) {
	for b := 0; b < 256; b++ {
		var r domain.Seed
		r[0] = byte(b)
		got := DieFromRandomness(r)
		require.GreaterOrEqual(t, got, 1)
		require.LessOrEqual(t, got, 6)
		assert.Equal(t, b%6+1, got)
	}

	now := time.Unix(1_700_000_000, 0)
	for n := uint64(0); n < 50; n++ {
		got := SyncDie(now, n)
		assert.GreaterOrEqual(t, got, 1)
		assert.LessOrEqual(t, got, 6)
	}
}
