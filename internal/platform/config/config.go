// Package config loads process configuration from the environment so main
// stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the server binary needs to start.
type Config struct {
	Addr           string `env:"PROVENA_ADDR" envDefault:":8080"`
	AdminToken     string `env:"PROVENA_ADMIN_TOKEN,required"`
	AdminPrincipal string `env:"PROVENA_ADMIN_PRINCIPAL"`

	// Required: an empty key would let tokens signed with the empty string
	// through the authenticated surface.
	JWTSigningKey string `env:"PROVENA_JWT_SIGNING_KEY,required"`

	ShutdownTimeout time.Duration `env:"PROVENA_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string        `env:"PROVENA_LOG_LEVEL" envDefault:"info"`

	// Empty DatabaseURL selects the in-memory stores.
	DatabaseURL string `env:"DATABASE_URL"`

	Redis RedisConfig `envPrefix:"PROVENA_REDIS_"`
	Kafka KafkaConfig `envPrefix:"PROVENA_KAFKA_"`

	RateLimit RateLimitConfig `envPrefix:"PROVENA_RATELIMIT_"`
}

// RedisConfig configures the optional Redis-backed rate limit store.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the optional audit mirror. Empty brokers disable it.
type KafkaConfig struct {
	Brokers    []string `env:"BROKERS" envSeparator:","`
	AuditTopic string   `env:"AUDIT_TOPIC" envDefault:"provena.audit"`
}

// RateLimitConfig bounds request rates on the admin and query surfaces.
type RateLimitConfig struct {
	Disabled bool          `env:"DISABLED"`
	Limit    int           `env:"LIMIT" envDefault:"100"`
	Window   time.Duration `env:"WINDOW" envDefault:"1m"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
