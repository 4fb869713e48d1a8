package main

import (
	"context"
	"fmt"
	"time"

	"ladders_backend/internal/db"
	"ladders_backend/internal/domain"
	"ladders_backend/internal/logger"
	"ladders_backend/internal/service"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

var CLI struct {
	DatabaseURL string        `name:"database-url" env:"DATABASE_URL" required:"" help:"Postgres connection string"`
	JWTSecret   string        `name:"jwt-secret" env:"JWT_SECRET" required:"" help:"Secret used to sign the token"`
	Identity    string        `arg:"" optional:"" default:"testuser" help:"Identity to fund and sign a token for"`
	Amount      int64         `short:"a" default:"1000" help:"Amount credited to the account"`
	TTL         time.Duration `default:"24h" help:"Token lifetime"`
}

func main() {
	_ = godotenv.Load()
	kctx := kong.Parse(&CLI, kong.Description("Fund a test account and print a bearer token for it"))
	logger.Init("info", false)
	service.InitJWT(CLI.JWTSecret)

	ctx := context.Background()
	pool := db.Connect(ctx, CLI.DatabaseURL)
	defer pool.Close()

	id := domain.Identity(CLI.Identity)
	balance, err := service.NewLedgerService(pool).Fund(ctx, id, CLI.Amount, map[string]interface{}{"source": "create_test_user"})
	if err != nil {
		logger.Fatal("fund account failed", "identity", id, "error", err)
	}
	logger.Info("account funded", "identity", id, "amount", CLI.Amount, "balance", balance)

	token, err := service.GenerateJWT(id, CLI.TTL)
	kctx.FatalIfErrorf(err)
	fmt.Printf("token=%s\n", token)
}
