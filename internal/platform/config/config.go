package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// StorageBackend selects the persistence adapters.
type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StoragePostgres StorageBackend = "postgres"
)

// AuthMode selects how request identity is established.
type AuthMode string

const (
	// AuthModeToken enforces signed bearer tokens.
	AuthModeToken AuthMode = "token"
	// AuthModeDev trusts an X-Debug-Subject header. Local use only.
	AuthModeDev AuthMode = "dev"
)

// Config is the deployment-provided server configuration.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	StorageBackend StorageBackend `env:"STORAGE_BACKEND" envDefault:"memory"`
	DatabaseURL    string         `env:"DATABASE_URL"`

	AuthMode AuthMode `env:"AUTH_MODE" envDefault:"token"`
	// DevSubject is the fallback identity in dev auth mode.
	DevSubject string `env:"DEV_SUBJECT" envDefault:"dev-user"`

	TokenSecret   string        `env:"TOKEN_SECRET"`
	TokenIssuer   string        `env:"TOKEN_ISSUER" envDefault:"gatherhall"`
	TokenAudience string        `env:"TOKEN_AUDIENCE" envDefault:"events-api"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	// TokenClockSkew is the leeway applied to exp/nbf validation.
	TokenClockSkew time.Duration `env:"TOKEN_CLOCK_SKEW" envDefault:"30s"`
}

// Load parses configuration from the environment and validates the
// combinations that cannot be expressed as struct tags.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be memory or postgres, got %q", cfg.StorageBackend)
	}

	switch cfg.AuthMode {
	case AuthModeDev:
	case AuthModeToken:
		if cfg.TokenSecret == "" {
			return Config{}, fmt.Errorf("TOKEN_SECRET is required when AUTH_MODE=token")
		}
	default:
		return Config{}, fmt.Errorf("AUTH_MODE must be token or dev, got %q", cfg.AuthMode)
	}

	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive")
	}

	return cfg, nil
}
