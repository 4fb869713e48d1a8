package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ladders_backend/internal/domain"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"
)

const testGateway domain.Identity = "oracle"

// memLedger is an in-memory custodian. Balances never go negative.
type memLedger struct {
	mu       sync.Mutex
	balances map[domain.Identity]int64
	failNext error
}

func newMemLedger(funded map[domain.Identity]int64) *memLedger {
	l := &memLedger{balances: make(map[domain.Identity]int64)}
	for k, v := range funded {
		l.balances[k] = v
	}
	return l
}

func (l *memLedger) move(from, to domain.Identity, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext != nil {
		err := l.failNext
		l.failNext = nil
		return err
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if l.balances[from] < amount {
		return domain.ErrInsufficientFunds
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

func (l *memLedger) Deposit(_ context.Context, payer, pool domain.Identity, amount int64, _ string) error {
	return l.move(payer, pool, amount)
}

func (l *memLedger) Payout(_ context.Context, pool, winner domain.Identity, amount int64) error {
	return l.move(pool, winner, amount)
}

func (l *memLedger) Balance(_ context.Context, account domain.Identity) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

// credit simulates an out-of-band deposit.
func (l *memLedger) credit(account domain.Identity, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

type fakeGateway struct {
	requests []domain.RandomnessRequest
	err      error
}

func (g *fakeGateway) RequestRandomness(_ context.Context, req domain.RandomnessRequest) error {
	if g.err != nil {
		return g.err
	}
	g.requests = append(g.requests, req)
	return nil
}

type fixture struct {
	clock     *quartz.Mock
	ledger    *memLedger
	gateway   *fakeGateway
	lifecycle *Lifecycle
	engine    *TurnEngine
	payouts   *Payouts
}

func newFixture(t *testing.T, funded map[domain.Identity]int64) *fixture {
	t.Helper()
	clock := quartz.NewMock(t)
	ledger := newMemLedger(funded)
	gateway := &fakeGateway{}
	engine := NewTurnEngine(ledger, gateway, clock, EngineConfig{
		GatewayIdentity: testGateway,
		RequestTTL:      time.Minute,
	})
	seq := 0
	engine.newID = func() string {
		seq++
		return fmt.Sprintf("req-%d", seq)
	}
	return &fixture{
		clock:     clock,
		ledger:    ledger,
		gateway:   gateway,
		lifecycle: NewLifecycle(ledger, clock),
		engine:    engine,
		payouts:   NewPayouts(ledger, clock),
	}
}

// startedSession creates, fills and starts a session.
func (f *fixture) startedSession(t *testing.T, params CreateParams, players ...domain.Identity) *domain.GameSession {
	t.Helper()
	ctx := context.Background()
	if params.Creator == "" {
		params.Creator = "creator"
	}
	if params.MaxPlayers == 0 {
		params.MaxPlayers = len(players)
	}
	s, err := f.lifecycle.Create(params)
	require.NoError(t, err)
	for _, p := range players {
		require.NoError(t, f.lifecycle.Join(ctx, s, p))
	}
	require.NoError(t, f.lifecycle.Start(s, params.Creator))
	return s
}

// rollVRF drives one two phase roll for the current player with a forced die
// value.
func (f *fixture) rollVRF(t *testing.T, s *domain.GameSession, caller domain.Identity, die int) TurnOutcome {
	t.Helper()
	req, err := f.engine.TwoPhase().Request(context.Background(), s, caller, domain.Seed{})
	require.NoError(t, err)
	out, err := f.engine.TwoPhase().Resolve(s, fulfill(req, die))
	require.NoError(t, err)
	return out
}

func fulfill(req domain.RandomnessRequest, die int) domain.RandomnessFulfillment {
	var r domain.Seed
	r[0] = byte(die - 1)
	return domain.RandomnessFulfillment{
		Sender:     testGateway,
		RequestID:  req.ID,
		SessionKey: req.SessionKey,
		Nonce:      req.Nonce,
		Randomness: r,
	}
}

// advanceToRoll moves the mock clock until the sync die for nonce shows want.
func advanceToRoll(t *testing.T, clock *quartz.Mock, nonce uint64, want int) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if SyncDie(clock.Now(), nonce) == want {
			return
		}
		clock.Advance(100 * time.Millisecond)
	}
	t.Fatalf("clock never produced roll %d", want)
}
