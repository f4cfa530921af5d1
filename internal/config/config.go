package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"priceoracle/pkg/logger"
)

const (
	ReplayMemory   = "memory"
	ReplayPostgres = "postgres"
	ReplayPebble   = "pebble"
	ReplayRedis    = "redis"
)

type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR,default=:8080"`
	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`

	// Empty keeps credentials in memory.
	DatabaseURL string `env:"DATABASE_URL"`
	// Empty means postgres when DATABASE_URL is set, memory otherwise.
	ReplayBackend string `env:"REPLAY_BACKEND"`
	PebblePath    string `env:"PEBBLE_PATH,default=data/replay"`
	RedisAddr     string `env:"REDIS_ADDR"`

	OraclePublicKey string `env:"ORACLE_PUBLIC_KEY"`
	MonthlyFee      string `env:"MONTHLY_FEE,default=30"`
	FeeAsset        string `env:"FEE_ASSET,default=XRD"`
	AdminJWTSecret  string `env:"ADMIN_JWT_SECRET"`

	MetricsUser     string `env:"METRICS_USER"`
	MetricsPassword string `env:"METRICS_PASSWORD"`

	PriceLifetimeSec   int    `env:"PRICE_LIFETIME_SEC,default=60"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE,default=100"`
	GumballOwnerToken  string `env:"GUMBALL_OWNER_TOKEN"`
	ReportSchedule     string `env:"REPORT_SCHEDULE,default=@every 1m"`

	fee decimal.Decimal
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.NewDefault("config").WithError(err).Warn(".env file could not be read")
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.OraclePublicKey == "" {
		return errors.New("ORACLE_PUBLIC_KEY is required")
	}
	if c.AdminJWTSecret == "" {
		return errors.New("ADMIN_JWT_SECRET is required")
	}

	fee, err := decimal.NewFromString(c.MonthlyFee)
	if err != nil || !fee.IsPositive() {
		return fmt.Errorf("MONTHLY_FEE must be a positive number, got %q", c.MonthlyFee)
	}
	c.fee = fee

	if c.ReplayBackend == "" {
		c.ReplayBackend = ReplayMemory
		if c.DatabaseURL != "" {
			c.ReplayBackend = ReplayPostgres
		}
	}

	switch c.ReplayBackend {
	case ReplayMemory, ReplayPebble:
	case ReplayPostgres:
		if c.DatabaseURL == "" {
			return errors.New("REPLAY_BACKEND=postgres needs DATABASE_URL")
		}
	case ReplayRedis:
		if c.RedisAddr == "" {
			return errors.New("REPLAY_BACKEND=redis needs REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown REPLAY_BACKEND %q", c.ReplayBackend)
	}

	if c.PriceLifetimeSec <= 0 {
		return fmt.Errorf("PRICE_LIFETIME_SEC must be positive, got %d", c.PriceLifetimeSec)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	return nil
}

// Fee is MONTHLY_FEE, parsed by Validate.
func (c *Config) Fee() decimal.Decimal {
	return c.fee
}

func (c *Config) PriceLifetime() time.Duration {
	return time.Duration(c.PriceLifetimeSec) * time.Second
}
