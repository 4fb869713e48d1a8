package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ladders_backend/internal/config"
	"ladders_backend/internal/db"
	"ladders_backend/internal/game"
	httpServer "ladders_backend/internal/http"
	"ladders_backend/internal/http/handlers"
	"ladders_backend/internal/http/middleware"
	"ladders_backend/internal/logger"
	"ladders_backend/internal/repository"
	"ladders_backend/internal/service"
	"ladders_backend/internal/ws"

	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool := db.Connect(ctx, cfg.DatabaseURL)
	defer dbPool.Close()

	clock := quartz.NewReal()

	var (
		rdb       *redis.Client
		publisher service.RandomnessPublisher
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		publisher = service.NewRandomnessQueue(rdb, cfg.RandomnessQueue)
	} else {
		logger.Warn("REDIS_ADDR not set; randomness requests stay in the outbox and rate limits are per process")
	}
	middleware.InitRedisRateLimiter(rdb)

	relay := service.NewRandomnessRelay(repository.NewRandomnessRepository(dbPool), publisher, clock, cfg.OutboxInterval)
	hub := ws.NewHub(clock)
	hub.StartCleanup(ctx, 10*time.Minute, time.Hour)

	sessions := service.NewSessionService(dbPool, relay, service.NewAuditService(dbPool), hub, clock, service.SessionConfig{
		Engine: game.EngineConfig{
			GatewayIdentity: cfg.GatewayIdentity,
			RequestTTL:      cfg.RandomnessTTL,
		},
		DefaultRollMode: cfg.DefaultRollMode,
	})

	deps := map[string]handlers.Pinger{}
	if rdb != nil {
		deps["redis"] = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, cfg, httpServer.Deps{
		Sessions: sessions,
		Ledger:   service.NewLedgerService(dbPool),
		Health:   handlers.NewHealthHandler(dbPool, version, deps),
		Hub:      hub,
		Clock:    clock,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started", "port", cfg.AppPort, "version", version, "gateway", cfg.GatewayIdentity, "roll_mode", cfg.DefaultRollMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server stopped", "error", err)
	}
	logger.Info("server exited")
}
