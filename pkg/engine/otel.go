package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// defaultTracerName is the tracer name used when none is configured.
const defaultTracerName = "staleserve"

// Tracing emits OpenTelemetry spans around serve and generate calls.
// A nil *Tracing is valid and emits nothing.
type Tracing struct {
	tracer trace.Tracer
}

// TracingOption configures Tracing.
type TracingOption func(*tracingConfig)

type tracingConfig struct {
	tracerName     string
	tracerProvider trace.TracerProvider
}

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *tracingConfig) {
		c.tracerName = name
	}
}

// WithTracerProvider sets the tracer provider. Default: the global
// provider.
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(c *tracingConfig) {
		c.tracerProvider = tp
	}
}

// NewTracing creates a Tracing using the configured tracer provider.
func NewTracing(opts ...TracingOption) *Tracing {
	cfg := tracingConfig{tracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	return &Tracing{tracer: cfg.tracerProvider.Tracer(cfg.tracerName)}
}

// startServe starts the per-request span.
func (t *Tracing) startServe(ctx context.Context, path string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, nil
	}
	return t.tracer.Start(ctx, "engine.serve",
		trace.WithAttributes(attribute.String("staleserve.path", path)))
}

// startGenerate starts a span around one render call.
func (t *Tracing) startGenerate(ctx context.Context, route, trigger string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, nil
	}
	return t.tracer.Start(ctx, "engine.generate",
		trace.WithAttributes(
			attribute.String("staleserve.route", route),
			attribute.String("staleserve.trigger", trigger),
		))
}

// endSpan finishes a span, recording err if non-nil. Safe on nil spans.
func endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
