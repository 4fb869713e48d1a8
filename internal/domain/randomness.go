package domain

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Seed is a 32 byte value exchanged with the randomness gateway.
type Seed [32]byte

func (s Seed) String() string {
	return hex.EncodeToString(s[:])
}

func (s Seed) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Seed) UnmarshalText(b []byte) error {
	raw, err := hex.DecodeString(string(b))
	if err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	if len(raw) != len(s) {
		return fmt.Errorf("seed must be %d bytes, got %d", len(s), len(raw))
	}
	copy(s[:], raw)
	return nil
}

// RandomnessRequest asks the gateway for a random value on behalf of the
// pending player of a session.
type RandomnessRequest struct {
	ID         string     `json:"id"`
	SessionKey SessionKey `json:"session_key"`
	Player     Identity   `json:"player"`
	ClientSeed Seed       `json:"client_seed"`
	Nonce      uint64     `json:"nonce"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RandomnessFulfillment is the inbound callback message from the gateway.
// Sender is the authenticated principal that delivered it.
type RandomnessFulfillment struct {
	Sender     Identity   `json:"-"`
	RequestID  string     `json:"request_id"`
	SessionKey SessionKey `json:"session_key"`
	Nonce      uint64     `json:"nonce"`
	Randomness Seed       `json:"randomness"`
}
