package http

import (
	"ladders_backend/internal/config"
	"ladders_backend/internal/http/handlers"
	"ladders_backend/internal/http/middleware"
	"ladders_backend/internal/ws"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services behind the HTTP surface.
type Deps struct {
	Sessions handlers.SessionAPI
	Ledger   handlers.LedgerAPI
	Health   *handlers.HealthHandler
	Hub      *ws.Hub
	Clock    quartz.Clock
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps) {
	h := handlers.NewHandler(deps.Sessions, deps.Ledger)

	r.Use(middleware.RequestContext())

	// Health checks and metrics (no rate limiting)
	r.GET("/health", deps.Health.Health)
	r.GET("/healthz", deps.Health.Liveness)
	r.GET("/readyz", deps.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var mem *middleware.MemoryRateLimiter
	if !middleware.RedisEnabled() {
		mem = middleware.NewMemoryRateLimiter(deps.Clock)
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.APIRateLimit(mem, cfg.APIRateLimit, cfg.APIRateWindow))
	registerAPIRoutes(v1, h, middleware.GameRateLimit(cfg.GameRateLimit, cfg.GameRateWindow))

	// Live session feed
	r.GET("/ws/sessions/:key", ws.HandleSessionFeed(deps.Hub, deps.Sessions, cfg.AllowedOrigin))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, gameRL gin.HandlerFunc) {
	// Sessions (public reads)
	api.GET("/sessions", h.ListSessions)
	api.GET("/sessions/:key", h.GetSession)
	api.GET("/sessions/:key/audit", h.SessionAudit)

	// Session operations
	sessions := api.Group("/sessions")
	sessions.Use(middleware.JWT())
	{
		sessions.POST("", gameRL, h.CreateSession)
		sessions.POST("/:key/join", gameRL, h.Join)
		sessions.POST("/:key/start", h.Start)
		sessions.POST("/:key/deposit", gameRL, h.Deposit)
		sessions.POST("/:key/roll", gameRL, h.Roll)
		sessions.POST("/:key/roll-sync", gameRL, h.RollSync)
		sessions.POST("/:key/request-roll", gameRL, h.RequestRoll)
		sessions.POST("/:key/pass", h.PassTurn)
		sessions.POST("/:key/claim", h.Claim)
	}

	// Randomness gateway callback
	api.POST("/randomness/callback", middleware.JWT(), h.RandomnessCallback)

	// Ledger
	api.GET("/me/balance", middleware.JWT(), h.MyBalance)
	api.GET("/me/transactions", middleware.JWT(), h.MyTransactions)
}
