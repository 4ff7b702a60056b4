// Package config loads the route manifest and server settings from a
// YAML file. Environment variables in the file are expanded before
// parsing, so secrets can stay out of the manifest.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/staleserve/staleserve/pkg/engine"
	"github.com/staleserve/staleserve/pkg/router"
)

// Config holds all staleserve configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	Upstream  string          `yaml:"upstream"`
	Store     StoreConfig     `yaml:"store"`
	Engine    EngineConfig    `yaml:"engine"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Events    EventsConfig    `yaml:"events"`
	Routes    []RouteConfig   `yaml:"routes"`
}

// StoreConfig selects the persistent artifact store.
// Type is "none" (default), "sqlite", "redis", or "s3".
type StoreConfig struct {
	Type string `yaml:"type"`

	// Path is the database file for the sqlite store.
	Path string `yaml:"path"`

	// Addr and Password configure the redis store.
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// Bucket and Region configure the s3 store.
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
}

// EngineConfig tunes generation scheduling.
type EngineConfig struct {
	BlockTimeout      time.Duration `yaml:"block_timeout"`
	BackgroundTimeout time.Duration `yaml:"background_timeout"`
}

// TelemetryConfig controls OpenTelemetry trace export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// EventsConfig controls the WebSocket event stream.
type EventsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RouteConfig declares one route in the manifest.
type RouteConfig struct {
	// Pattern is the route pattern (e.g., "/blog/[slug]").
	Pattern string `yaml:"pattern"`

	// Revalidate is the staleness interval. Zero means never stale.
	Revalidate time.Duration `yaml:"revalidate"`

	// Fallback is "block" (default), "strict", or "placeholder".
	Fallback string `yaml:"fallback"`

	// Placeholder is the body served while a placeholder-mode route
	// generates.
	Placeholder string `yaml:"placeholder"`

	// PlaceholderStatus overrides the placeholder HTTP status (202).
	PlaceholderStatus int `yaml:"placeholder_status"`

	// Prerender lists parameter sets generated at startup. In strict
	// mode they are also the only sets the route will serve.
	Prerender []ParamSetConfig `yaml:"prerender"`
}

// ParamSetConfig is one concrete parameter binding for a route.
type ParamSetConfig struct {
	Params    map[string]string   `yaml:"params"`
	Wildcards map[string][]string `yaml:"wildcards"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Store:  StoreConfig{Type: "none"},
		Telemetry: TelemetryConfig{
			ServiceName: "staleserve",
		},
		Events: EventsConfig{Enabled: true},
	}
}

// Load reads a YAML manifest and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the manifest for errors that must stop startup.
func (c *Config) Validate() error {
	if c.Upstream == "" {
		return fmt.Errorf("config: upstream is required")
	}
	if len(c.Routes) == 0 {
		return fmt.Errorf("config: at least one route is required")
	}
	switch c.Store.Type {
	case "", "none", "sqlite", "redis", "s3":
	default:
		return fmt.Errorf("config: unknown store type %q", c.Store.Type)
	}
	if c.Store.Type == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("config: sqlite store requires path")
	}
	if c.Store.Type == "redis" && c.Store.Addr == "" {
		return fmt.Errorf("config: redis store requires addr")
	}
	if c.Store.Type == "s3" && c.Store.Bucket == "" {
		return fmt.Errorf("config: s3 store requires bucket")
	}

	for i, rc := range c.Routes {
		if rc.Pattern == "" {
			return fmt.Errorf("config: route %d has no pattern", i)
		}
		if _, err := router.Parse(rc.Pattern); err != nil {
			return fmt.Errorf("config: route %q: %w", rc.Pattern, err)
		}
		if _, err := engine.ParseFallbackMode(rc.Fallback); err != nil {
			return fmt.Errorf("config: route %q: %w", rc.Pattern, err)
		}
		if rc.Revalidate < 0 {
			return fmt.Errorf("config: route %q: revalidate must not be negative", rc.Pattern)
		}
	}
	return nil
}

// RouteDefs converts the manifest routes into engine definitions using
// the given render function.
func (c *Config) RouteDefs(render engine.RenderFunc) ([]engine.RouteDef, error) {
	defs := make([]engine.RouteDef, 0, len(c.Routes))
	for _, rc := range c.Routes {
		mode, err := engine.ParseFallbackMode(rc.Fallback)
		if err != nil {
			return nil, fmt.Errorf("config: route %q: %w", rc.Pattern, err)
		}

		def := engine.RouteDef{
			Pattern:           rc.Pattern,
			Render:            render,
			Revalidate:        rc.Revalidate,
			Fallback:          mode,
			PlaceholderStatus: rc.PlaceholderStatus,
		}
		if rc.Placeholder != "" {
			def.Placeholder = []byte(rc.Placeholder)
		}
		for _, ps := range rc.Prerender {
			def.Prerender = append(def.Prerender, engine.ParamSet{
				Params:    ps.Params,
				Wildcards: ps.Wildcards,
			})
		}
		defs = append(defs, def)
	}
	return defs, nil
}
