package config

import (
	"testing"
	"time"

	"ladders_backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ladders")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RANDOMNESS_GATEWAY_ID", "oracle")

	cfg := Load()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, domain.Identity("oracle"), cfg.GatewayIdentity)
	assert.Equal(t, "ladders:randomness", cfg.RandomnessQueue)
	assert.Equal(t, 2*time.Minute, cfg.RandomnessTTL)
	assert.Equal(t, domain.RollModeSync, cfg.DefaultRollMode)
	assert.Equal(t, 60, cfg.GameRateLimit)
	assert.Equal(t, time.Minute, cfg.GameRateWindow)
	assert.False(t, cfg.LogJSON)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/ladders")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RANDOMNESS_GATEWAY_ID", "oracle")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("RANDOMNESS_TIMEOUT_SECONDS", "30")
	t.Setenv("DEFAULT_ROLL_MODE", "vrf")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("GAME_RATE_LIMIT", "-4")
	t.Setenv("LOG_JSON", "true")

	cfg := Load()

	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, 30*time.Second, cfg.RandomnessTTL)
	assert.Equal(t, domain.RollModeVRF, cfg.DefaultRollMode)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 60, cfg.GameRateLimit, "negative values fall back to the default")
	assert.True(t, cfg.LogJSON)
}
