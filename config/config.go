package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	Port        string `env:"PORT" envDefault:"8080" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	// Sweep cadences in cron spec form ("@every 1m" or standard five-field).
	MainSweepSpec    string `env:"MAIN_SWEEP_SPEC" envDefault:"@every 1m" validate:"required"`
	RetrySweepSpec   string `env:"RETRY_SWEEP_SPEC" envDefault:"@every 5m" validate:"required"`
	CleanupSweepSpec string `env:"CLEANUP_SWEEP_SPEC" envDefault:"@every 24h" validate:"required"`

	SweepBatchSize      int  `env:"SWEEP_BATCH_SIZE" envDefault:"100" validate:"min=1,max=1000"`
	SweepConcurrency    int  `env:"SWEEP_CONCURRENCY" envDefault:"4" validate:"min=1,max=32"`
	ExecutionTimeoutSec int  `env:"EXECUTION_TIMEOUT_SEC" envDefault:"60" validate:"min=1,max=600"`
	RetentionDays       int  `env:"RETENTION_DAYS" envDefault:"30" validate:"min=1,max=365"`
	ClockAutoStart      bool `env:"CLOCK_AUTO_START" envDefault:"true"`

	// Latency bounds for the simulated campaign runner.
	RunnerMinLatencyMS int `env:"RUNNER_MIN_LATENCY_MS" envDefault:"100" validate:"min=0"`
	RunnerMaxLatencyMS int `env:"RUNNER_MAX_LATENCY_MS" envDefault:"1500" validate:"min=0,gtefield=RunnerMinLatencyMS"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
