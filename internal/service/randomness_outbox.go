package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/logger"
	"ladders_backend/internal/repository"

	"github.com/coder/quartz"
	"github.com/jackc/pgx/v5"
)

const relayBatch = 100

// RandomnessPublisher delivers committed requests to the oracle.
type RandomnessPublisher interface {
	Publish(ctx context.Context, req domain.RandomnessRequest) error
}

// outboxGateway is the game.RandomnessGateway seen by the engine during one
// database transaction. Requests are stored with the session update and only
// published once the transaction commits.
type outboxGateway struct {
	tx      pgx.Tx
	repo    *repository.RandomnessRepository
	emitted []domain.RandomnessRequest
}

func (g *outboxGateway) RequestRandomness(ctx context.Context, req domain.RandomnessRequest) error {
	// an expired request being replaced must never resolve
	if err := g.repo.AbandonOpenWithTx(ctx, g.tx, req.SessionKey); err != nil {
		return fmt.Errorf("abandon open requests: %w", err)
	}
	if err := g.repo.CreateWithTx(ctx, g.tx, req); err != nil {
		return fmt.Errorf("store randomness request: %w", err)
	}
	g.emitted = append(g.emitted, req)
	return nil
}

type outboxStore interface {
	ListUnpublished(ctx context.Context, cutoff time.Time, limit int) ([]domain.RandomnessRequest, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
}

// RandomnessRelay publishes outbox rows. Fresh requests are pushed right
// after commit; Run periodically retries anything that did not make it.
type RandomnessRelay struct {
	store     outboxStore
	publisher RandomnessPublisher
	clock     quartz.Clock
	interval  time.Duration
	log       *slog.Logger
}

func NewRandomnessRelay(store outboxStore, publisher RandomnessPublisher, clock quartz.Clock, interval time.Duration) *RandomnessRelay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &RandomnessRelay{
		store:     store,
		publisher: publisher,
		clock:     clock,
		interval:  interval,
		log:       logger.With("component", "randomness_relay"),
	}
}

// Publish pushes requests that were just committed. Failures are logged and
// left for the next sweep.
func (r *RandomnessRelay) Publish(ctx context.Context, reqs []domain.RandomnessRequest) {
	for _, req := range reqs {
		if err := r.publish(ctx, req); err != nil {
			r.log.Warn("randomness publish deferred", "request_id", req.ID, "session", req.SessionKey, "error", err)
		}
	}
}

func (r *RandomnessRelay) publish(ctx context.Context, req domain.RandomnessRequest) error {
	if r.publisher == nil {
		return fmt.Errorf("no randomness publisher configured")
	}
	if err := r.publisher.Publish(ctx, req); err != nil {
		return err
	}
	RandomnessPublished.Inc()
	return r.store.MarkPublished(ctx, req.ID, r.clock.Now())
}

// Sweep publishes requests left pending for longer than one interval and
// returns how many went out.
func (r *RandomnessRelay) Sweep(ctx context.Context) (int, error) {
	cutoff := r.clock.Now().Add(-r.interval)
	reqs, err := r.store.ListUnpublished(ctx, cutoff, relayBatch)
	if err != nil {
		return 0, fmt.Errorf("list unpublished: %w", err)
	}

	sent := 0
	for _, req := range reqs {
		if err := r.publish(ctx, req); err != nil {
			r.log.Warn("randomness relay failed", "request_id", req.ID, "error", err)
			continue
		}
		sent++
	}
	if sent > 0 {
		r.log.Info("randomness requests relayed", "count", sent)
	}
	return sent, nil
}

// Run sweeps every interval until ctx is done.
func (r *RandomnessRelay) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.interval, "relay")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.log.Error("randomness sweep failed", "error", err)
			}
		}
	}
}
