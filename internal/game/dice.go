package game

import (
	"time"

	"ladders_backend/internal/domain"
)

const dieFaces = 6

// SyncDie derives a roll in [1,6] from the clock and the turn nonce.
// It is predictable and only suitable for low stake sessions.
func SyncDie(now time.Time, nonce uint64) int {
	seed := uint64(now.Unix()) + uint64(now.UnixMilli()/400) + nonce
	return int(seed%dieFaces) + 1
}

// DieFromRandomness maps a gateway value to a roll in [1,6] using its first
// byte.
func DieFromRandomness(r domain.Seed) int {
	return int(r[0]%dieFaces) + 1
}
