package config

import (
	"os"
	"strconv"
	"time"

	"ladders_backend/internal/domain"
	"ladders_backend/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	DatabaseURL   string
	JWTSecret     string
	AllowedOrigin string

	LogLevel string
	LogJSON  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Randomness gateway
	GatewayIdentity domain.Identity
	RandomnessQueue string
	RandomnessTTL   time.Duration
	DefaultRollMode domain.RollMode
	OutboxInterval  time.Duration

	// Rate limits
	APIRateLimit   int
	APIRateWindow  time.Duration
	GameRateLimit  int
	GameRateWindow time.Duration
}

// Load reads configuration from the environment, after loading .env if
// present. Missing required values are fatal.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	gatewayID := os.Getenv("RANDOMNESS_GATEWAY_ID")
	if gatewayID == "" {
		logger.Fatal("RANDOMNESS_GATEWAY_ID is not set")
	}

	return &Config{
		AppPort:       getString("APP_PORT", "8080"),
		DatabaseURL:   dbURL,
		JWTSecret:     jwtSecret,
		AllowedOrigin: os.Getenv("ALLOWED_ORIGIN"),

		LogLevel: getString("LOG_LEVEL", "info"),
		LogJSON:  os.Getenv("LOG_JSON") == "true",

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		GatewayIdentity: domain.Identity(gatewayID),
		RandomnessQueue: getString("RANDOMNESS_QUEUE", "ladders:randomness"),
		RandomnessTTL:   getSeconds("RANDOMNESS_TIMEOUT_SECONDS", 120),
		DefaultRollMode: domain.ParseRollMode(os.Getenv("DEFAULT_ROLL_MODE")),
		OutboxInterval:  getSeconds("RANDOMNESS_OUTBOX_INTERVAL_SECONDS", 5),

		APIRateLimit:   getInt("API_RATE_LIMIT", 120),
		APIRateWindow:  getSeconds("API_RATE_WINDOW_SECONDS", 60),
		GameRateLimit:  getInt("GAME_RATE_LIMIT", 60),
		GameRateWindow: getSeconds("GAME_RATE_WINDOW", 60),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getInt returns def for unset, malformed or negative values.
func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
		logger.Warn("ignoring invalid integer setting", "key", key, "value", v)
	}
	return def
}

func getSeconds(key string, def int) time.Duration {
	n := getInt(key, def)
	if n == 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}
