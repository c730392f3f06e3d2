// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	DBPath       string `env:"DB_PATH" envDefault:"./card_catalog.db"`
	FallbackPath string `env:"FALLBACK_CATALOG_PATH"`
	SeedOnEmpty  bool   `env:"SEED_ON_EMPTY" envDefault:"true"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`

	// Admin authorization and rate limiting
	AdminToken       string  `env:"ADMIN_TOKEN"`
	AdminRatePerSec  float64 `env:"ADMIN_RATE_PER_SEC" envDefault:"2"`
	AdminRateBurst   int     `env:"ADMIN_RATE_BURST" envDefault:"10"`
	AdminRateClients int     `env:"ADMIN_RATE_CLIENTS" envDefault:"1024"`

	BanListMaxBatch int `env:"BANLIST_MAX_BATCH" envDefault:"500"`

	// Safety-net poll for catalog consumers that missed an invalidation signal
	ConsumerPollInterval time.Duration `env:"CATALOG_POLL_INTERVAL" envDefault:"30s"`
	FetchTimeout         time.Duration `env:"CATALOG_FETCH_TIMEOUT" envDefault:"10s"`

	DeckCopyLimit int `env:"DECK_COPY_LIMIT" envDefault:"3"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.BanListMaxBatch <= 0 {
		return fmt.Errorf("BANLIST_MAX_BATCH must be positive, got %d", c.BanListMaxBatch)
	}
	if c.ConsumerPollInterval <= 0 {
		return fmt.Errorf("CATALOG_POLL_INTERVAL must be positive, got %s", c.ConsumerPollInterval)
	}
	if c.AdminRateClients <= 0 {
		return fmt.Errorf("ADMIN_RATE_CLIENTS must be positive, got %d", c.AdminRateClients)
	}
	if c.DeckCopyLimit <= 0 {
		return fmt.Errorf("DECK_COPY_LIMIT must be positive, got %d", c.DeckCopyLimit)
	}
	return nil
}
