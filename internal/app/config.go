package app

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the data core.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	// APIBaseURL points at the backend REST API serving the five
	// collections.
	APIBaseURL string        `envconfig:"API_BASE_URL" default:"http://localhost:3000/api"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"15s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// RedisAddr backs the local fallback store.
	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	// LowStockQueue routes low-stock alerts through the background task
	// queue instead of the logger.
	LowStockQueue bool `envconfig:"LOW_STOCK_QUEUE" default:"false"`

	// SeedDefaults populates the default catalogue when both the backend
	// and the fallback store come up empty.
	SeedDefaults bool `envconfig:"SEED_DEFAULTS" default:"true"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
