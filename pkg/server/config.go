package server

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Address is the listen address (e.g., ":8080").
	Address string

	// ReadHeaderTimeout limits how long reading request headers may take.
	ReadHeaderTimeout time.Duration

	// ReadTimeout limits reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout limits writing the response. Blocking generations
	// count against it, so it should exceed the engine's block timeout.
	WriteTimeout time.Duration

	// IdleTimeout limits how long keep-alive connections stay open.
	IdleTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// Registry is the Prometheus registry to expose on /metrics.
	// When nil, the default registry is used.
	Registry *prometheus.Registry
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8080",
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   15 * time.Second,
	}
}

func (c *Config) validate() error {
	if c.Address == "" {
		return fmt.Errorf("server: address must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("server: shutdown timeout must be positive")
	}
	return nil
}

// withDefaults fills unset fields from DefaultConfig without mutating c.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	out := *c
	defaults := DefaultConfig()
	if out.Address == "" {
		out.Address = defaults.Address
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = defaults.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = defaults.WriteTimeout
	}
	if out.IdleTimeout == 0 {
		out.IdleTimeout = defaults.IdleTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	return &out
}
