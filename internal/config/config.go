package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	RedisURL  string
	RedisPass string
	RedisDB   int

	JWTSecret string

	// InitialPool seeds the pool record the first time the service starts.
	InitialPool int64
	// StartingBalance funds development wallets created on first use.
	StartingBalance int64

	SessionTTL     time.Duration
	ReaperInterval time.Duration

	RulesFile string
	Table     TableRules
}

// Load reads configuration from the environment. Callers load .env first.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		RedisURL:  getEnv("REDIS_URL", "localhost:6379"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		RulesFile: os.Getenv("BLACKJACK_RULES_FILE"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	var initialPool, startingBalance int
	if initialPool, err = getEnvInt("INITIAL_POOL", 10_000_000); err != nil {
		return nil, err
	}
	if startingBalance, err = getEnvInt("STARTING_BALANCE", 10_000); err != nil {
		return nil, err
	}
	cfg.InitialPool = int64(initialPool)
	cfg.StartingBalance = int64(startingBalance)

	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReaperInterval, err = getEnvDuration("REAPER_INTERVAL", time.Minute); err != nil {
		return nil, err
	}

	cfg.Table, err = LoadTableRules(cfg.RulesFile, DefaultGameType)
	if err != nil {
		return nil, err
	}

	if cfg.Env == "production" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}
	if cfg.InitialPool < 0 {
		return nil, fmt.Errorf("INITIAL_POOL must not be negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
