// Package oracle is a development randomness gateway. It pops queued
// randomness requests, derives a revealable value and delivers it to the
// game server callback as the configured gateway identity.
package oracle

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/logger"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

var Delivered = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "oracle_callbacks_total",
		Help: "Randomness callbacks by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(Delivered)
}

// Source yields queued randomness requests. Next returns nil, nil when
// nothing arrived within timeout.
type Source interface {
	Next(ctx context.Context, timeout time.Duration) (*domain.RandomnessRequest, error)
}

// TokenFunc returns a bearer token for the gateway identity.
type TokenFunc func() (string, error)

type Config struct {
	CallbackURL string
	ServerSeed  domain.Seed
	Workers     int
	PollTimeout time.Duration
	Attempts    int
	Backoff     time.Duration
}

type Oracle struct {
	source Source
	token  TokenFunc
	client *http.Client
	clock  quartz.Clock
	cfg    Config
	log    *slog.Logger
}

func New(source Source, token TokenFunc, client *http.Client, clock quartz.Clock, cfg Config) *Oracle {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Oracle{
		source: source,
		token:  token,
		client: client,
		clock:  clock,
		cfg:    cfg,
		log:    logger.With("component", "oracle"),
	}
}

// Derive returns sha256(serverSeed || clientSeed || requestID). Publishing
// the server seed later lets players recompute every roll.
func Derive(serverSeed, clientSeed domain.Seed, requestID string) domain.Seed {
	h := sha256.New()
	h.Write(serverSeed[:])
	h.Write(clientSeed[:])
	h.Write([]byte(requestID))
	var out domain.Seed
	copy(out[:], h.Sum(nil))
	return out
}

// Run starts cfg.Workers consumers and blocks until ctx is done.
func (o *Oracle) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < o.cfg.Workers; w++ {
		g.Go(func() error {
			return o.work(ctx, w)
		})
	}
	return g.Wait()
}

func (o *Oracle) work(ctx context.Context, id int) error {
	o.log.Info("worker started", "worker", id)
	for {
		req, err := o.source.Next(ctx, o.cfg.PollTimeout)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			o.log.Warn("queue read failed", "worker", id, "error", err)
			if !o.sleep(ctx, o.cfg.Backoff) {
				return nil
			}
			continue
		}
		if req == nil {
			continue
		}
		if err := o.Fulfill(ctx, *req); err != nil {
			o.log.Warn("randomness not delivered", "request_id", req.ID, "session", req.SessionKey, "error", err)
		}
	}
}

// sleep waits d and reports false if ctx ended first.
func (o *Oracle) sleep(ctx context.Context, d time.Duration) bool {
	t := o.clock.NewTimer(d, "oracle", "backoff")
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// permanentError is a callback rejection that retrying cannot fix.
type permanentError struct {
	status int
	body   string
}

func (e *permanentError) Error() string {
	return fmt.Sprintf("callback rejected: %d %s", e.status, e.body)
}

// Fulfill delivers the randomness for req, retrying transport failures and
// 5xx answers.
func (o *Oracle) Fulfill(ctx context.Context, req domain.RandomnessRequest) error {
	msg := domain.RandomnessFulfillment{
		RequestID:  req.ID,
		SessionKey: req.SessionKey,
		Nonce:      req.Nonce,
		Randomness: Derive(o.cfg.ServerSeed, req.ClientSeed, req.ID),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode fulfillment: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= o.cfg.Attempts; attempt++ {
		lastErr = o.post(ctx, body)
		if lastErr == nil {
			Delivered.WithLabelValues("ok").Inc()
			o.log.Info("randomness delivered", "request_id", req.ID, "session", req.SessionKey, "nonce", req.Nonce)
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			Delivered.WithLabelValues("rejected").Inc()
			return lastErr
		}
		if attempt == o.cfg.Attempts {
			break
		}
		if !o.sleep(ctx, o.cfg.Backoff*time.Duration(attempt)) {
			return ctx.Err()
		}
	}
	Delivered.WithLabelValues("failed").Inc()
	return lastErr
}

func (o *Oracle) post(ctx context.Context, body []byte) error {
	token, err := o.token()
	if err != nil {
		return &permanentError{body: "sign token: " + err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.CallbackURL, bytes.NewReader(body))
	if err != nil {
		return &permanentError{body: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	res, err := o.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("post callback: %w", err)
	}
	defer res.Body.Close()
	text, _ := io.ReadAll(io.LimitReader(res.Body, 512))

	switch {
	case res.StatusCode < 300:
		return nil
	case res.StatusCode >= 500:
		return fmt.Errorf("callback status %d: %s", res.StatusCode, text)
	default:
		return &permanentError{status: res.StatusCode, body: string(text)}
	}
}
