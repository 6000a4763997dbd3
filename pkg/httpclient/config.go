package httpclient

import (
	"fmt"
	"log/slog"
	"time"
)

// Config configures clients used to poll HTTP endpoints.
type Config struct {
	// Timeout bounds a single request. Must be > 0.
	Timeout time.Duration

	// UserAgent is sent unless the request sets its own.
	UserAgent string

	// InsecureSkipVerify disables TLS certificate verification, for test
	// servers with self-signed certificates.
	InsecureSkipVerify bool

	// Logger receives request logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:   5 * time.Second,
		UserAgent: "citrus/1.0",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}
	return nil
}
