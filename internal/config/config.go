package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable, e.g. EMBER_PORT.
const Prefix = "EMBER"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port string `envconfig:"PORT" default:"3333"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/ember.db"`

	DBMaxConns int32 `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32 `envconfig:"DB_MIN_CONNS" default:"5"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	MetricsUser string `envconfig:"METRICS_USER"`
	MetricsPass string `envconfig:"METRICS_PASS"`
	PprofSecret string `envconfig:"PPROF_SECRET"`

	RateLimit   float64  `envconfig:"RATE_LIMIT" default:"5"`
	RateBurst   int      `envconfig:"RATE_BURST" default:"30"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// Load reads an optional .env file and then the EMBER_ environment. It
// reports whether a .env file was found so the caller can log it once a
// logger exists.
func Load() (*Config, bool, error) {
	dotenv := godotenv.Load() == nil

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, dotenv, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, dotenv, err
	}
	return &cfg, dotenv, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%s_DATABASE_URL is required for the %s driver", Prefix, DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%s_SQLITE_PATH is required for the %s driver", Prefix, DriverSQLite)
		}
	default:
		return fmt.Errorf("unsupported %s_STORE_DRIVER: %q", Prefix, c.StoreDriver)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported %s_LOG_FORMAT: %q", Prefix, c.LogFormat)
	}

	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("%s_RATE_LIMIT and %s_RATE_BURST must be positive", Prefix, Prefix)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("%s_DB_MIN_CONNS exceeds %s_DB_MAX_CONNS", Prefix, Prefix)
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

// MetricsAuthEnabled reports whether /metrics is guarded by basic auth.
func (c *Config) MetricsAuthEnabled() bool {
	return c.MetricsUser != "" && c.MetricsPass != ""
}
