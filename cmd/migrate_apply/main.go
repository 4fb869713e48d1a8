package main

import (
	"context"
	"fmt"

	"ladders_backend/internal/db"
	"ladders_backend/internal/logger"
	"ladders_backend/internal/migrations"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

var CLI struct {
	DatabaseURL string `name:"database-url" env:"DATABASE_URL" required:"" help:"Postgres connection string"`
	Apply       bool   `help:"Apply pending migrations instead of listing them"`
}

func main() {
	_ = godotenv.Load()
	kctx := kong.Parse(&CLI, kong.Description("List or apply the embedded SQL migrations"))
	logger.Init("info", false)

	if !CLI.Apply {
		names, err := migrations.Names()
		kctx.FatalIfErrorf(err)
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	ctx := context.Background()
	pool := db.Connect(ctx, CLI.DatabaseURL)
	defer pool.Close()

	applied, err := migrations.Apply(ctx, pool)
	for _, name := range applied {
		fmt.Printf("applied %s\n", name)
	}
	if err != nil {
		logger.Fatal("migration failed", "error", err)
	}
	if len(applied) == 0 {
		fmt.Println("nothing to apply")
	}
}
