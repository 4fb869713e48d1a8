package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ladders_backend/internal/domain"

	redis "github.com/redis/go-redis/v9"
)

// RandomnessQueue carries randomness requests from the game server to the
// oracle over a redis list.
type RandomnessQueue struct {
	client *redis.Client
	key    string
}

func NewRandomnessQueue(client *redis.Client, key string) *RandomnessQueue {
	return &RandomnessQueue{client: client, key: key}
}

// Publish appends req to the queue.
func (q *RandomnessQueue) Publish(ctx context.Context, req domain.RandomnessRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode randomness request: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push randomness request: %w", err)
	}
	return nil
}

// Next blocks up to timeout for the oldest queued request. It returns nil
// and no error when the wait times out.
func (q *RandomnessQueue) Next(ctx context.Context, timeout time.Duration) (*domain.RandomnessRequest, error) {
	res, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BLPOP replies with [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply of %d elements", len(res))
	}

	var req domain.RandomnessRequest
	if err := json.Unmarshal([]byte(res[1]), &req); err != nil {
		return nil, fmt.Errorf("decode randomness request: %w", err)
	}
	return &req, nil
}

// Len returns the number of queued requests.
func (q *RandomnessQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
