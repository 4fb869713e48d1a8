package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSessionKey(t *testing.T) {
	var id SessionID
	id[0] = 1

	a := DeriveSessionKey("alice", id)
	assert.Len(t, string(a), 64)
	assert.Equal(t, a, DeriveSessionKey("alice", id))
	assert.NotEqual(t, a, DeriveSessionKey("bob", id))
	assert.NotEqual(t, a, DeriveSessionKey("alice", SessionID{}))
}

func TestParseSessionID(t *testing.T) {
	id, err := ParseSessionID("0102")
	require.NoError(t, err)
	assert.Equal(t, byte(1), id[0])
	assert.Equal(t, byte(2), id[1])
	assert.Equal(t, byte(0), id[2])

	_, err = ParseSessionID("zz")
	assert.Error(t, err)

	_, err = ParseSessionID(strings.Repeat("ab", 33))
	assert.Error(t, err)
}

func TestParseRollMode(t *testing.T) {
	assert.Equal(t, RollModeVRF, ParseRollMode("vrf"))
	assert.Equal(t, RollModeSync, ParseRollMode("sync"))
	assert.Equal(t, RollModeSync, ParseRollMode(""))
	assert.Equal(t, RollModeSync, ParseRollMode("VRF"))
}

func newSession() *GameSession {
	return &GameSession{
		Key:         "k",
		Creator:     "c",
		MaxPlayers:  2,
		Players:     []Identity{"a", "b"},
		Positions:   []int{3, 0},
		WinPosition: DefaultWinPosition,
		State:       GameStateStarted,
		RollMode:    RollModeSync,
		Transport:   DefaultTransportTable(),
	}
}

func TestSessionHelpers(t *testing.T) {
	s := newSession()

	slot, ok := s.SlotOf("b")
	assert.True(t, ok)
	assert.Equal(t, 1, slot)
	_, ok = s.SlotOf("x")
	assert.False(t, ok)

	p, ok := s.CurrentPlayer()
	assert.True(t, ok)
	assert.Equal(t, Identity("a"), p)
	assert.True(t, s.IsFull())
	assert.Equal(t, Identity("pool:k"), s.PoolAccount())

	s.CurrentTurnIndex = 9
	_, ok = s.CurrentPlayer()
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	s := newSession()
	w := Identity("a")
	s.PendingPlayer = &w

	c := s.Clone()
	assert.Equal(t, s, c)

	c.Players[0] = "z"
	c.Positions[0] = 50
	*c.PendingPlayer = "b"
	assert.Equal(t, Identity("a"), s.Players[0])
	assert.Equal(t, 3, s.Positions[0])
	assert.Equal(t, Identity("a"), *s.PendingPlayer)
}

func TestCheckInvariants(t *testing.T) {
	require.NoError(t, newSession().CheckInvariants())

	tests := map[string]func(s *GameSession){
		"duplicate player":   func(s *GameSession) { s.Players[1] = "a" },
		"position off board": func(s *GameSession) { s.Positions[0] = 101 },
		"turn out of range":  func(s *GameSession) { s.CurrentTurnIndex = 2 },
		"winner while started": func(s *GameSession) {
			w := Identity("a")
			s.Winner = &w
		},
		"finished flag mismatch": func(s *GameSession) { s.Finished = true },
		"positions size":         func(s *GameSession) { s.Positions = []int{0} },
		"negative pot":           func(s *GameSession) { s.Pot = -1 },
		"pending stranger": func(s *GameSession) {
			x := Identity("x")
			s.PendingPlayer = &x
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			s := newSession()
			mutate(s)
			assert.Error(t, s.CheckInvariants())
		})
	}
}

func TestSessionJSONKeepsBoard(t *testing.T) {
	s := newSession()
	b, err := json.Marshal(s)
	require.NoError(t, err)

	var got GameSession
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, s.Transport.Entries(), got.Transport.Entries())
	assert.Equal(t, s.Players, got.Players)
	assert.Equal(t, s.SessionID, got.SessionID)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "roll_pending", ErrorCode(ErrRollPending))
	assert.Equal(t, "insufficient_funds", ErrorCode(fmt.Errorf("collect: %w", ErrInsufficientFunds)))
	assert.Equal(t, "internal", ErrorCode(assert.AnError))
}
