package service

import (
	"context"
	"os"
	"testing"
	"time"

	"ladders_backend/internal/domain"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRandomnessQueueIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
	defer client.Close()

	ctx := context.Background()
	key := "test:randomness:" + uuid.NewString()
	defer client.Del(ctx, key)
	q := NewRandomnessQueue(client, key)

	got, err := q.Next(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got, "empty queue times out without error")

	req := domain.RandomnessRequest{
		ID:         uuid.NewString(),
		SessionKey: "k",
		Player:     "alice",
		ClientSeed: domain.Seed{9},
		Nonce:      3,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, q.Publish(ctx, req))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = q.Next(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, req.ClientSeed, got.ClientSeed)
	assert.Equal(t, req.Nonce, got.Nonce)
	assert.True(t, req.CreatedAt.Equal(got.CreatedAt))
}
