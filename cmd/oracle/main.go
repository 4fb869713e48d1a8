package main

import (
	"context"
	"crypto/rand"
	"os/signal"
	"syscall"
	"time"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/logger"
	"ladders_backend/internal/oracle"
	"ladders_backend/internal/service"

	"github.com/alecthomas/kong"
	"github.com/coder/quartz"
	"github.com/joho/godotenv"
	redis "github.com/redis/go-redis/v9"
)

var CLI struct {
	RedisAddr     string        `env:"REDIS_ADDR" default:"localhost:6379" help:"Redis address holding the randomness queue"`
	RedisPassword string        `env:"REDIS_PASSWORD" help:"Redis password"`
	RedisDB       int           `env:"REDIS_DB" default:"0" help:"Redis database index"`
	Queue         string        `env:"RANDOMNESS_QUEUE" default:"ladders:randomness" help:"Redis list to consume"`
	Callback      string        `env:"RANDOMNESS_CALLBACK_URL" default:"http://localhost:8080/api/v1/randomness/callback" help:"Game server callback URL"`
	Identity      string        `env:"RANDOMNESS_GATEWAY_ID" required:"" help:"Gateway identity the server trusts"`
	JWTSecret     string        `name:"jwt-secret" env:"JWT_SECRET" required:"" help:"Secret used to sign gateway tokens"`
	ServerSeed    string        `env:"ORACLE_SERVER_SEED" help:"Hex server seed (random when empty)"`
	Workers       int           `short:"w" default:"2" help:"Concurrent consumers"`
	PollTimeout   time.Duration `default:"5s" help:"BLPOP timeout"`
	Attempts      int           `default:"3" help:"Callback attempts per request"`
	LogLevel      string        `short:"l" env:"LOG_LEVEL" default:"info" help:"Log level"`
	LogJSON       bool          `env:"LOG_JSON" help:"Log as JSON"`
}

func main() {
	_ = godotenv.Load()
	kctx := kong.Parse(&CLI,
		kong.Name("oracle"),
		kong.Description("Development randomness gateway for ladders sessions"),
	)
	logger.Init(CLI.LogLevel, CLI.LogJSON)
	service.InitJWT(CLI.JWTSecret)

	var seed domain.Seed
	if CLI.ServerSeed != "" {
		kctx.FatalIfErrorf(seed.UnmarshalText([]byte(CLI.ServerSeed)))
	} else {
		_, err := rand.Read(seed[:])
		kctx.FatalIfErrorf(err)
		// Revealing this seed lets players verify every roll it produced.
		logger.Info("generated server seed", "seed", seed.String())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{Addr: CLI.RedisAddr, Password: CLI.RedisPassword, DB: CLI.RedisDB})
	defer rdb.Close()
	kctx.FatalIfErrorf(rdb.Ping(ctx).Err())

	identity := domain.Identity(CLI.Identity)
	token := func() (string, error) {
		return service.GenerateJWT(identity, time.Minute)
	}

	o := oracle.New(service.NewRandomnessQueue(rdb, CLI.Queue), token, nil, quartz.NewReal(), oracle.Config{
		CallbackURL: CLI.Callback,
		ServerSeed:  seed,
		Workers:     CLI.Workers,
		PollTimeout: CLI.PollTimeout,
		Attempts:    CLI.Attempts,
	})

	logger.Info("oracle started", "queue", CLI.Queue, "callback", CLI.Callback, "workers", CLI.Workers, "identity", identity)
	if err := o.Run(ctx); err != nil {
		logger.Fatal("oracle stopped", "error", err)
	}
	logger.Info("oracle exited")
}
