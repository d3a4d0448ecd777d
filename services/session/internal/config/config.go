package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/akulebyakin/sdc-cloud-sports-coaching/pkg/config"
)

// Config holds all configuration for the session service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SESSION_HTTP_PORT" envDefault:"8102"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"coaching"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"coaching_secret"`
	PostgresDB   string `env:"SESSION_DB_NAME" envDefault:"session_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// ConsumerMaxRetries bounds in-process retries of a transient handler
	// failure before the message is left uncommitted for redelivery.
	ConsumerMaxRetries int `env:"CONSUMER_MAX_RETRIES" envDefault:"3"`

	// ConsumerRestartDelay is the wait before a fresh consumer is built
	// after one halts on an uncommitted message.
	ConsumerRestartDelay time.Duration `env:"CONSUMER_RESTART_DELAY" envDefault:"5s"`

	// Redis (processed-event ledger)
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// DedupTTL is how long processed event IDs are retained. It must exceed
	// the channel's worst-case redelivery horizon.
	DedupTTL time.Duration `env:"DEDUP_TTL" envDefault:"72h"`

	// Coach service (reputation notifications)
	CoachServiceURL string        `env:"COACH_SERVICE_URL" envDefault:"http://localhost:8103"`
	NotifyTimeout   time.Duration `env:"COACH_NOTIFY_TIMEOUT" envDefault:"5s"`
	NotifyAttempts  int           `env:"COACH_NOTIFY_ATTEMPTS" envDefault:"3"`
	NotifyBackoff   time.Duration `env:"COACH_NOTIFY_BACKOFF" envDefault:"500ms"`
	NotifyQueueSize int           `env:"COACH_NOTIFY_QUEUE_SIZE" envDefault:"256"`

	// Pprof debug endpoints (CIDR allowlist, empty = disabled)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load session config: %w", err)
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
	if len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}
	if c.CoachServiceURL == "" {
		return fmt.Errorf("coach service URL is required")
	}
	if c.NotifyTimeout <= 0 {
		return fmt.Errorf("coach notify timeout must be positive")
	}
	if c.ConsumerRestartDelay <= 0 {
		return fmt.Errorf("consumer restart delay must be positive")
	}
	return nil
}
