package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	DefaultWinPosition = 100
	MaxPlayers         = 8
	MaxTransportSize   = 20

	sessionSeedPrefix = "game"
	poolAccountPrefix = "pool:"
)

// Identity is an authenticated principal: a player, a session creator or the
// randomness gateway.
type Identity string

// GameState - lifecycle state of a session
type GameState string

const (
	GameStateCreated  GameState = "created"
	GameStateStarted  GameState = "started"
	GameStateFinished GameState = "finished"
)

// RollMode selects how a session resolves dice rolls.
type RollMode string

const (
	RollModeSync RollMode = "sync"
	RollModeVRF  RollMode = "vrf"
)

// ParseRollMode returns RollModeSync for anything that is not "vrf".
func ParseRollMode(s string) RollMode {
	if RollMode(s) == RollModeVRF {
		return RollModeVRF
	}
	return RollModeSync
}

// SessionID is the opaque 32-byte identifier chosen by the creator.
type SessionID [32]byte

func (id SessionID) String() string {
	return hex.EncodeToString(id[:])
}

// ParseSessionID decodes a hex encoded session id. Shorter input is left
// aligned and zero padded, the same way a client-side seed buffer is.
func ParseSessionID(s string) (SessionID, error) {
	var id SessionID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("decode session id: %w", err)
	}
	if len(b) > len(id) {
		return id, fmt.Errorf("session id longer than %d bytes", len(id))
	}
	copy(id[:], b)
	return id, nil
}

func (id SessionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// SessionKey addresses a session. It is derived from the creator and the
// session id so that one creator cannot reuse an id.
type SessionKey string

// DeriveSessionKey returns hex(sha256("game" || creator || id)).
func DeriveSessionKey(creator Identity, id SessionID) SessionKey {
	h := sha256.New()
	h.Write([]byte(sessionSeedPrefix))
	h.Write([]byte(creator))
	h.Write(id[:])
	return SessionKey(hex.EncodeToString(h.Sum(nil)))
}

// GameSession is the persisted record of one game.
type GameSession struct {
	Key              SessionKey     `json:"key"`
	Creator          Identity       `json:"creator"`
	SessionID        SessionID      `json:"session_id"`
	MaxPlayers       int            `json:"max_players"`
	Players          []Identity     `json:"players"`
	Positions        []int          `json:"positions"`
	EntryFee         int64          `json:"entry_fee"`
	RollFee          int64          `json:"roll_fee"`
	Pot              int64          `json:"pot"`
	CurrentTurnIndex int            `json:"current_turn_index"`
	TurnNonce        uint64         `json:"turn_nonce"`
	WinPosition      int            `json:"win_position"`
	State            GameState      `json:"state"`
	Finished         bool           `json:"finished"`
	Winner           *Identity      `json:"winner,omitempty"`
	RollMode         RollMode       `json:"roll_mode"`
	Transport        TransportTable `json:"transport"`

	// Outstanding randomness request (vrf mode only)
	PendingPlayer    *Identity  `json:"pending_player,omitempty"`
	PendingRequestID string     `json:"pending_request_id,omitempty"`
	PendingSince     *time.Time `json:"pending_since,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PoolAccount is the ledger account custodying this session's funds.
func (s *GameSession) PoolAccount() Identity {
	return PoolAccountFor(s.Key)
}

// PoolAccountFor returns the pool account name for a session key.
func PoolAccountFor(key SessionKey) Identity {
	return Identity(poolAccountPrefix + string(key))
}

// SlotOf returns the turn-order slot of a player.
func (s *GameSession) SlotOf(player Identity) (int, bool) {
	for i, p := range s.Players {
		if p == player {
			return i, true
		}
	}
	return -1, false
}

// HasPlayer reports whether player already joined.
func (s *GameSession) HasPlayer(player Identity) bool {
	_, ok := s.SlotOf(player)
	return ok
}

// CurrentPlayer returns the identity whose turn it is.
func (s *GameSession) CurrentPlayer() (Identity, bool) {
	if s.CurrentTurnIndex < 0 || s.CurrentTurnIndex >= len(s.Players) {
		return "", false
	}
	return s.Players[s.CurrentTurnIndex], true
}

// IsFull reports whether no more players can join.
func (s *GameSession) IsFull() bool {
	return len(s.Players) >= s.MaxPlayers
}

// HasPendingRoll reports whether a randomness request is outstanding.
func (s *GameSession) HasPendingRoll() bool {
	return s.PendingPlayer != nil
}

// ClearPending drops any outstanding randomness request.
func (s *GameSession) ClearPending() {
	s.PendingPlayer = nil
	s.PendingRequestID = ""
	s.PendingSince = nil
}

// Clone returns a deep copy.
func (s *GameSession) Clone() *GameSession {
	c := *s
	if s.Players != nil {
		c.Players = make([]Identity, len(s.Players))
		copy(c.Players, s.Players)
	}
	if s.Positions != nil {
		c.Positions = make([]int, len(s.Positions))
		copy(c.Positions, s.Positions)
	}
	if s.Winner != nil {
		w := *s.Winner
		c.Winner = &w
	}
	if s.PendingPlayer != nil {
		p := *s.PendingPlayer
		c.PendingPlayer = &p
	}
	if s.PendingSince != nil {
		t := *s.PendingSince
		c.PendingSince = &t
	}
	return &c
}

// CheckInvariants verifies the record is internally consistent.
func (s *GameSession) CheckInvariants() error {
	if s.MaxPlayers < 0 || s.MaxPlayers > MaxPlayers {
		return fmt.Errorf("max players %d out of range", s.MaxPlayers)
	}
	if len(s.Players) > s.MaxPlayers {
		return fmt.Errorf("%d players exceed capacity %d", len(s.Players), s.MaxPlayers)
	}
	if len(s.Positions) != s.MaxPlayers {
		return fmt.Errorf("positions sized %d, want %d", len(s.Positions), s.MaxPlayers)
	}
	seen := make(map[Identity]struct{}, len(s.Players))
	for _, p := range s.Players {
		if _, dup := seen[p]; dup {
			return fmt.Errorf("player %s joined twice", p)
		}
		seen[p] = struct{}{}
	}
	if s.State == GameStateStarted {
		if len(s.Players) == 0 {
			return fmt.Errorf("started session has no players")
		}
		if s.CurrentTurnIndex < 0 || s.CurrentTurnIndex >= len(s.Players) {
			return fmt.Errorf("turn index %d out of range", s.CurrentTurnIndex)
		}
	}
	for i := range s.Players {
		if s.Positions[i] < 0 || s.Positions[i] > s.WinPosition {
			return fmt.Errorf("position %d of slot %d out of board", s.Positions[i], i)
		}
	}
	if (s.Winner != nil) != (s.State == GameStateFinished) {
		return fmt.Errorf("winner set=%v in state %s", s.Winner != nil, s.State)
	}
	if s.Finished != (s.State == GameStateFinished) {
		return fmt.Errorf("finished flag %v in state %s", s.Finished, s.State)
	}
	if s.PendingPlayer != nil {
		if s.State != GameStateStarted {
			return fmt.Errorf("pending roll in state %s", s.State)
		}
		if !s.HasPlayer(*s.PendingPlayer) {
			return fmt.Errorf("pending player %s not in session", *s.PendingPlayer)
		}
	}
	if s.Pot < 0 {
		return fmt.Errorf("negative pot %d", s.Pot)
	}
	return nil
}
