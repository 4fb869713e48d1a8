package handlers

import (
	"context"
	"net/http"
	"strconv"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/game"
	"ladders_backend/internal/http/middleware"
	"ladders_backend/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionAPI is the game surface served over HTTP. *service.SessionService
// implements it.
type SessionAPI interface {
	Create(ctx context.Context, caller domain.Identity, in service.CreateSessionInput) (*domain.GameSession, error)
	Join(ctx context.Context, caller domain.Identity, key domain.SessionKey) (*domain.GameSession, error)
	Start(ctx context.Context, caller domain.Identity, key domain.SessionKey) (*domain.GameSession, error)
	Deposit(ctx context.Context, caller domain.Identity, key domain.SessionKey, amount int64) (*domain.GameSession, error)
	Roll(ctx context.Context, caller domain.Identity, key domain.SessionKey, clientSeed domain.Seed) (game.RollResult, *domain.GameSession, error)
	RollSync(ctx context.Context, caller domain.Identity, key domain.SessionKey) (game.TurnOutcome, *domain.GameSession, error)
	RequestRoll(ctx context.Context, caller domain.Identity, key domain.SessionKey, clientSeed domain.Seed) (domain.RandomnessRequest, *domain.GameSession, error)
	Fulfill(ctx context.Context, msg domain.RandomnessFulfillment) (game.TurnOutcome, *domain.GameSession, error)
	PassTurn(ctx context.Context, caller domain.Identity, key domain.SessionKey) (*domain.GameSession, error)
	Claim(ctx context.Context, caller domain.Identity, key domain.SessionKey) (int64, *domain.GameSession, error)
	Get(ctx context.Context, key domain.SessionKey) (*domain.GameSession, error)
	ListOpen(ctx context.Context, limit int) ([]*domain.GameSession, error)
	Trail(ctx context.Context, key domain.SessionKey, limit int) ([]*domain.AuditLog, error)
}

// LedgerAPI exposes account reads. *service.LedgerService implements it.
type LedgerAPI interface {
	Balance(ctx context.Context, id domain.Identity) (int64, error)
	Transactions(ctx context.Context, id domain.Identity, limit int) ([]*domain.Transaction, error)
}

type Handler struct {
	Sessions SessionAPI
	Ledger   LedgerAPI
}

func NewHandler(sessions SessionAPI, ledger LedgerAPI) *Handler {
	return &Handler{Sessions: sessions, Ledger: ledger}
}

// caller returns the authenticated identity or writes 401.
func caller(c *gin.Context) (domain.Identity, bool) {
	id, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
		return "", false
	}
	return id, true
}

func sessionKey(c *gin.Context) domain.SessionKey {
	return domain.SessionKey(c.Param("key"))
}

// queryLimit parses ?limit= clamped to [1, upper].
func queryLimit(c *gin.Context, def, upper int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "bad_request"})
}
