// Package config loads service configuration from the environment.
//
// Infrastructure knobs (DSNs, ports, intervals) live here; the scoring
// coefficients themselves live in the algo_config table so operators can
// tune them at runtime without a redeploy.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`

	// Heat recompute
	HeatTickInterval time.Duration `env:"HEAT_TICK_INTERVAL" envDefault:"1h"`
	HeatLookbackDays int           `env:"HEAT_LOOKBACK_DAYS" envDefault:"30"`
	HeatRatePerSec   float64       `env:"HEAT_RATE_PER_SEC" envDefault:"50"`

	// Recommendation regeneration
	RecTickInterval time.Duration `env:"REC_TICK_INTERVAL" envDefault:"24h"`
	RecCacheTTL     time.Duration `env:"REC_CACHE_TTL" envDefault:"30m"`
	ListCacheTTL    time.Duration `env:"LIST_CACHE_TTL" envDefault:"1h"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.HeatLookbackDays <= 0 {
		return fmt.Errorf("HEAT_LOOKBACK_DAYS must be positive, got %d", c.HeatLookbackDays)
	}

	if c.HeatTickInterval <= 0 {
		return fmt.Errorf("HEAT_TICK_INTERVAL must be positive, got %s", c.HeatTickInterval)
	}

	if c.RecCacheTTL <= 0 {
		return fmt.Errorf("REC_CACHE_TTL must be positive, got %s", c.RecCacheTTL)
	}

	return nil
}
