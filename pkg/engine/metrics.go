package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus engine metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "staleserve").
	Namespace string

	// Subsystem is the metrics subsystem (default: "engine").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for generation duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus engine metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the generation duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "staleserve",
		Subsystem: "engine",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	lookups            *prometheus.CounterVec
	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	backgroundInflight prometheus.Gauge
}

// NewMetrics registers and returns the engine metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)

	return &Metrics{
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "lookups_total",
			Help:        "Cache lookups by route and result (hit, stale, miss, placeholder, rejected).",
			ConstLabels: cfg.ConstLabels,
		}, []string{"route", "result"}),
		generations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "generations_total",
			Help:        "Render calls by route, trigger, and outcome.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"route", "trigger", "outcome"}),
		generationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "generation_duration_seconds",
			Help:        "Render call duration by route and trigger.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"route", "trigger"}),
		backgroundInflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "background_inflight",
			Help:        "Background regenerations currently in flight.",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

func (m *Metrics) recordLookup(route, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(route, result).Inc()
}

func (m *Metrics) recordGeneration(route, trigger, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(route, trigger, outcome).Inc()
	m.generationDuration.WithLabelValues(route, trigger).Observe(elapsed.Seconds())
}

func (m *Metrics) backgroundStarted() {
	if m == nil {
		return
	}
	m.backgroundInflight.Inc()
}

func (m *Metrics) backgroundDone() {
	if m == nil {
		return
	}
	m.backgroundInflight.Dec()
}
