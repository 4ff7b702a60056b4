package engine

import (
	"log/slog"
	"time"

	"github.com/staleserve/staleserve/pkg/cache"
	"github.com/staleserve/staleserve/pkg/events"
)

// Config holds engine configuration. Zero-value fields fall back to
// the defaults documented on each field.
type Config struct {
	// Cache is the artifact cache instance. The engine is the only
	// writer to it. Default: a fresh cache.New().
	Cache *cache.Cache

	// Store is an optional write-through persistence backend. Cache
	// misses consult it before generating, successful generations are
	// written to it asynchronously, and invalidations delete from it.
	// The store is owned by the caller. Default: none.
	Store cache.Store

	// Logger receives engine logs.
	// Default: slog.Default().With("component", "engine").
	Logger *slog.Logger

	// Metrics receives engine metrics. Default: none.
	Metrics *Metrics

	// Tracing emits OpenTelemetry spans around serve and generate.
	// Default: none.
	Tracing *Tracing

	// Events receives engine lifecycle events. Default: none.
	Events events.Publisher

	// BlockTimeout bounds a blocking generation when the request
	// context carries no deadline of its own. Default: 10 seconds.
	BlockTimeout time.Duration

	// BackgroundTimeout bounds background regenerations, which run
	// detached from the triggering request's deadline.
	// Default: 30 seconds.
	BackgroundTimeout time.Duration

	// StoreWriteTimeout bounds asynchronous write-through and delete
	// calls against Store. Default: 10 seconds.
	StoreWriteTimeout time.Duration
}

// DefaultConfig returns a Config with all defaults filled in.
func DefaultConfig() *Config {
	return &Config{
		Cache:             cache.New(),
		Logger:            slog.Default().With("component", "engine"),
		BlockTimeout:      10 * time.Second,
		BackgroundTimeout: 30 * time.Second,
		StoreWriteTimeout: 10 * time.Second,
	}
}

// withDefaults fills unset fields without mutating the caller's Config.
func (c *Config) withDefaults() *Config {
	cfg := &Config{}
	if c != nil {
		*cfg = *c
	}
	def := DefaultConfig()
	if cfg.Cache == nil {
		cfg.Cache = def.Cache
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = def.BlockTimeout
	}
	if cfg.BackgroundTimeout <= 0 {
		cfg.BackgroundTimeout = def.BackgroundTimeout
	}
	if cfg.StoreWriteTimeout <= 0 {
		cfg.StoreWriteTimeout = def.StoreWriteTimeout
	}
	return cfg
}
