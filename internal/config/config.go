// Package config loads service settings from environment variables.
// Every setting has a default except where noted, and Load validates the
// result so a bad deployment fails at startup instead of mid-submission.
package config

import (
	"strconv"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Store      StoreConfig
	Upload     UploadConfig
	Submission SubmissionConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"120s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining
	// in-flight submissions.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-submission routes.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds PostgreSQL settings. URL is required when the store
// driver is postgres.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// EnsureSchema applies the embedded schema on startup.
	EnsureSchema bool `env:"DB_ENSURE_SCHEMA" default:"true"`
}

// StoreConfig selects the backend and names the object bucket.
type StoreConfig struct {
	// Driver is "postgres" or "memory".
	Driver       string `env:"STORE_DRIVER" default:"postgres"`
	Bucket       string `env:"STORE_BUCKET" default:"solicitacoes-files"`
	CacheControl string `env:"STORE_CACHE_CONTROL" default:"3600"`
}

// UploadConfig bounds attachment handling.
type UploadConfig struct {
	// MaxFileSize is the per-attachment limit in bytes (default: 10MB).
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxRequestSize is the whole multipart body limit (default: 64MB).
	MaxRequestSize int64 `env:"UPLOAD_MAX_REQUEST_SIZE" default:"67108864"`

	// MaxConcurrent is the number of submissions processed at once.
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"8"`

	// MaxWaitTime is how long a submission waits for a slot.
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"15s"`
}

// SubmissionConfig holds the cutoff for new submissions.
type SubmissionConfig struct {
	// Deadline is RFC 3339. Submissions at or after it are rejected.
	Deadline time.Time `env:"SUBMISSION_DEADLINE" default:"2025-07-11T12:00:00-03:00"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute applies to every route.
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// SubmitLimit is submissions per minute per client.
	SubmitLimit int `env:"RATE_LIMIT_SUBMIT" default:"5"`

	// RedisURL shares counters between replicas. Empty keeps them in memory.
	RedisURL string `env:"REDIS_URL"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies lists proxy CIDRs whose forwarding headers are honored.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`

	// Token, when set, must be sent as a bearer token to scrape.
	Token string `env:"METRICS_TOKEN"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
