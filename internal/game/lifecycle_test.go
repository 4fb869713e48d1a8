package game

import (
	"context"
	"errors"
	"testing"

	"ladders_backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	f := newFixture(t, nil)

	t.Run("defaults", func(t *testing.T) {
		s, err := f.lifecycle.Create(CreateParams{Creator: "alice", MaxPlayers: 4, EntryFee: 10, RollFee: 1})
		require.NoError(t, err)

		assert.Equal(t, domain.GameStateCreated, s.State)
		assert.Empty(t, s.Players)
		assert.Equal(t, []int{0, 0, 0, 0}, s.Positions)
		assert.Zero(t, s.Pot)
		assert.Zero(t, s.CurrentTurnIndex)
		assert.Zero(t, s.TurnNonce)
		assert.Equal(t, 100, s.WinPosition)
		assert.Equal(t, 15, s.Transport.Len())
		assert.Equal(t, domain.RollModeSync, s.RollMode)
		assert.Nil(t, s.Winner)
		assert.Nil(t, s.PendingPlayer)
		assert.Equal(t, domain.DeriveSessionKey("alice", domain.SessionID{}), s.Key)
		require.NoError(t, s.CheckInvariants())
	})

	t.Run("too many players", func(t *testing.T) {
		_, err := f.lifecycle.Create(CreateParams{Creator: "alice", MaxPlayers: 9})
		assert.ErrorIs(t, err, domain.ErrTooManyPlayers)
	})

	t.Run("negative fee", func(t *testing.T) {
		_, err := f.lifecycle.Create(CreateParams{Creator: "alice", MaxPlayers: 2, RollFee: -1})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("custom transport is validated", func(t *testing.T) {
		_, err := f.lifecycle.Create(CreateParams{
			Creator:    "alice",
			MaxPlayers: 2,
			Transport:  []domain.TransportEntry{{From: 5, To: 50}, {From: 5, To: 2}},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTransportTable)
	})

	t.Run("tables are not shared", func(t *testing.T) {
		a, err := f.lifecycle.Create(CreateParams{Creator: "a", MaxPlayers: 1})
		require.NoError(t, err)
		b, err := f.lifecycle.Create(CreateParams{Creator: "b", MaxPlayers: 1})
		require.NoError(t, err)
		entries := a.Transport.Entries()
		entries[0].To = 2
		to, _ := b.Transport.Apply(1)
		assert.Equal(t, 38, to)
		to, _ = a.Transport.Apply(1)
		assert.Equal(t, 38, to)
	})
}

func TestJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("collects entry fee and re-reads the pool", func(t *testing.T) {
		f := newFixture(t, map[domain.Identity]int64{"a": 100, "b": 100})
		s, err := f.lifecycle.Create(CreateParams{Creator: "c", MaxPlayers: 2, EntryFee: 30})
		require.NoError(t, err)

		require.NoError(t, f.lifecycle.Join(ctx, s, "a"))
		assert.Equal(t, int64(30), s.Pot)

		// funds arriving outside the game are reflected on the next read
		f.ledger.credit(s.PoolAccount(), 5)
		require.NoError(t, f.lifecycle.Join(ctx, s, "b"))
		assert.Equal(t, int64(65), s.Pot)
		assert.Equal(t, []domain.Identity{"a", "b"}, s.Players)

		bal, _ := f.ledger.Balance(ctx, "a")
		assert.Equal(t, int64(70), bal)
	})

	t.Run("full", func(t *testing.T) {
		f := newFixture(t, nil)
		s, err := f.lifecycle.Create(CreateParams{Creator: "c", MaxPlayers: 1})
		require.NoError(t, err)
		require.NoError(t, f.lifecycle.Join(ctx, s, "a"))
		assert.ErrorIs(t, f.lifecycle.Join(ctx, s, "b"), domain.ErrGameFull)
	})

	t.Run("already joined", func(t *testing.T) {
		f := newFixture(t, nil)
		s, err := f.lifecycle.Create(CreateParams{Creator: "c", MaxPlayers: 3})
		require.NoError(t, err)
		require.NoError(t, f.lifecycle.Join(ctx, s, "a"))
		assert.ErrorIs(t, f.lifecycle.Join(ctx, s, "a"), domain.ErrAlreadyJoined)
		assert.Len(t, s.Players, 1)
	})

	t.Run("after start", func(t *testing.T) {
		f := newFixture(t, nil)
		s := f.startedSession(t, CreateParams{MaxPlayers: 3}, "a")
		assert.ErrorIs(t, f.lifecycle.Join(ctx, s, "b"), domain.ErrGameAlreadyStarted)
	})

	t.Run("insufficient funds leaves session untouched", func(t *testing.T) {
		f := newFixture(t, map[domain.Identity]int64{"a": 5})
		s, err := f.lifecycle.Create(CreateParams{Creator: "c", MaxPlayers: 2, EntryFee: 10})
		require.NoError(t, err)
		before := s.Clone()

		err = f.lifecycle.Join(ctx, s, "a")
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.Equal(t, before, s)
	})

	t.Run("ledger failure propagates unchanged", func(t *testing.T) {
		f := newFixture(t, map[domain.Identity]int64{"a": 50})
		s, err := f.lifecycle.Create(CreateParams{Creator: "c", MaxPlayers: 2, EntryFee: 10})
		require.NoError(t, err)
		boom := errors.New("custodian offline")
		f.ledger.failNext = boom

		assert.ErrorIs(t, f.lifecycle.Join(ctx, s, "a"), boom)
		assert.Empty(t, s.Players)
	})
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	s, err := f.lifecycle.Create(CreateParams{Creator: "c", MaxPlayers: 2})
	require.NoError(t, err)

	assert.ErrorIs(t, f.lifecycle.Start(s, "c"), domain.ErrNoPlayers)
	require.NoError(t, f.lifecycle.Join(ctx, s, "a"))
	assert.ErrorIs(t, f.lifecycle.Start(s, "a"), domain.ErrUnauthorized)

	require.NoError(t, f.lifecycle.Start(s, "c"))
	assert.Equal(t, domain.GameStateStarted, s.State)
	require.NoError(t, s.CheckInvariants())

	assert.ErrorIs(t, f.lifecycle.Start(s, "c"), domain.ErrGameAlreadyStarted)
}

func TestDepositFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[domain.Identity]int64{"a": 100, "sponsor": 500})
	s := f.startedSession(t, CreateParams{MaxPlayers: 1}, "a")

	require.NoError(t, f.lifecycle.DepositFee(ctx, s, "sponsor", 200))
	assert.Equal(t, int64(200), s.Pot)

	assert.ErrorIs(t, f.lifecycle.DepositFee(ctx, s, "sponsor", 1000), domain.ErrInsufficientFunds)
	assert.Equal(t, int64(200), s.Pot)

	s.Positions[0] = 98
	f.rollVRF(t, s, "a", 2)
	require.True(t, s.Finished)
	assert.ErrorIs(t, f.lifecycle.DepositFee(ctx, s, "sponsor", 10), domain.ErrGameFinished)
}
