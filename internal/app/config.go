package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/db"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	APIBaseURL string        `envconfig:"API_BASE_URL" required:"true"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"15s"`

	// PGDSN enables the session audit trail. Empty disables it.
	PGDSN          string        `envconfig:"PG_DSN"`
	PGMaxConns     int32         `envconfig:"PG_MAX_CONNS" default:"4"`
	AuditRetention time.Duration `envconfig:"AUDIT_RETENTION" default:"2160h"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"odyssey_admin"`

	// ShellCacheSize bounds the in-memory per-browser stores and sidebar states.
	ShellCacheSize int           `envconfig:"SHELL_CACHE_SIZE" default:"4096"`
	ShellIdleTTL   time.Duration `envconfig:"SHELL_IDLE_TTL" default:"30m"`
	RestoreTimeout time.Duration `envconfig:"RESTORE_TIMEOUT" default:"10s"`

	LoginRateLimit int `envconfig:"LOGIN_RATE_LIMIT" default:"10"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`
}

// LoadConfig reads configuration from environment variables, after loading a .env
// file when one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.ShellCacheSize <= 0 {
		return nil, errors.New("shell cache size must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// AuditEnabled reports whether session events are persisted.
func (c *Config) AuditEnabled() bool {
	return c != nil && c.PGDSN != ""
}

// Redis returns the connection settings shared by sessions and the job queue.
func (c *Config) Redis() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// Postgres returns the audit pool settings; name identifies the process.
func (c *Config) Postgres(name string) db.Options {
	return db.Options{DSN: c.PGDSN, MaxConns: c.PGMaxConns, ApplicationName: name}
}
