package config

import (
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"gosim/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	UI         UIConfig
	Simulation SimulationConfig
	Profiling  ProfilingConfig
	Logging    LoggingConfig
}

// DatabaseConfig holds database connection settings. Postgres URLs use lib/pq;
// sqlite:// URLs (or file paths) use the embedded sqlite driver.
type DatabaseConfig struct {
	URL             string `env:"DATABASE_URL" envDefault:"sqlite://gosim.db" validate:"required"`
	MaxOpenConns    int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10" validate:"gte=1"`
	MigrationsTable string `env:"DB_MIGRATIONS_TABLE" envDefault:"schema_migrations" validate:"required"`
}

// ServerConfig holds API server settings
type ServerConfig struct {
	Port    string `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	GinMode string `env:"GIN_MODE" envDefault:"debug" validate:"oneof=debug release test"`
}

// UIConfig holds the report browser settings
type UIConfig struct {
	Port string `env:"UI_PORT" envDefault:"8081" validate:"required,numeric"`
}

// SimulationConfig holds driver defaults applied when a study leaves them unset
type SimulationConfig struct {
	Workers    int  `env:"SIM_WORKERS" envDefault:"0" validate:"gte=0"`
	Digits     int  `env:"SIM_DIGITS" envDefault:"3" validate:"gte=0,lte=12"`
	RetainData bool `env:"SIM_RETAIN_DATA" envDefault:"false"`
	MaxRows    int  `env:"SIM_MAX_ROWS" envDefault:"1000000" validate:"gte=1"`
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string `env:"PPROF_PORT" envDefault:"6060"`
	Enabled bool   `env:"PPROF_ENABLED" envDefault:"false"`
}

// LoggingConfig holds the log level
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"INFO" validate:"oneof=ERROR WARN INFO DEBUG TRACE"`
}

var configValidate = validator.New()

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "failed to parse environment")
	}
	if err := configValidate.Struct(cfg); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "configuration validation failed")
	}
	return cfg, nil
}

// EffectiveWorkers resolves a worker count: an explicit request wins, then
// the configured default, then GOMAXPROCS
func (c SimulationConfig) EffectiveWorkers(requested int) int {
	switch {
	case requested > 0:
		return requested
	case c.Workers > 0:
		return c.Workers
	default:
		return runtime.GOMAXPROCS(0)
	}
}
