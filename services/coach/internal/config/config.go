package config

import (
	"fmt"

	pkgconfig "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/config"
)

// Config holds all configuration for the coach service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"COACH_HTTP_PORT" envDefault:"8103"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"coaching"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"coaching_secret"`
	PostgresDB   string `env:"COACH_DB_NAME" envDefault:"coach_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Pprof debug endpoints (CIDR allowlist, empty = disabled)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load coach config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresDB == "" {
		return fmt.Errorf("postgres database name is required")
	}
	return nil
}
