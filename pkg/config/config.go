package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"

	StrategyTransactional = "transactional"
	StrategyRescan        = "rescan"

	AuthFirebase = "firebase"
	AuthDev      = "dev"
)

type Config struct {
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	FirebaseProject            string `env:"FIREBASE_PROJECT_ID"`
	FirebaseServiceAccountJSON string `env:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	FirebaseServiceAccountPath string `env:"FIREBASE_SERVICE_ACCOUNT_PATH"`

	StoreDriver            string `env:"STORE_DRIVER" envDefault:"firestore"`
	RatingStrategy         string `env:"RATING_STRATEGY" envDefault:"transactional"`
	TransactionMaxAttempts int    `env:"TRANSACTION_MAX_ATTEMPTS" envDefault:"5"`
	RescanConcurrency      int    `env:"RESCAN_CONCURRENCY" envDefault:"8"`

	AuthMode       string   `env:"AUTH_MODE" envDefault:"firebase"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"2m"`

	BreakerTimeout     time.Duration `env:"BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerMaxFailures uint32        `env:"BREAKER_MAX_FAILURES" envDefault:"5"`
}

func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreFirestore, StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.RatingStrategy {
	case StrategyTransactional, StrategyRescan:
	default:
		return fmt.Errorf("invalid RATING_STRATEGY %q", c.RatingStrategy)
	}

	switch c.AuthMode {
	case AuthFirebase, AuthDev:
	default:
		return fmt.Errorf("invalid AUTH_MODE %q", c.AuthMode)
	}

	if c.StoreDriver == StoreFirestore && c.FirebaseProject == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore store")
	}

	if c.TransactionMaxAttempts < 1 {
		return fmt.Errorf("TRANSACTION_MAX_ATTEMPTS must be at least 1")
	}

	if c.RescanConcurrency < 1 {
		c.RescanConcurrency = 1
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
