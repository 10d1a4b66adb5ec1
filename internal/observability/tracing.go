// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope of every span.
const TracerName = "github.com/pdiddy/specgrade"

// TraceConfig configures span export.
type TraceConfig struct {
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector (e.g. "localhost:4317"). Empty
	// disables export.
	Endpoint string

	Insecure bool
}

// ShutdownFunc flushes and stops the exporter.
type ShutdownFunc func(context.Context) error

// NewTracer returns a tracer that exports spans over OTLP gRPC. Without an
// endpoint it returns a no-op tracer and a no-op shutdown.
func NewTracer(ctx context.Context, cfg TraceConfig) (trace.Tracer, ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return noop.NewTracerProvider().Tracer(TracerName), func(context.Context) error { return nil }, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", "specgrade"),
		attribute.String("service.version", cfg.ServiceVersion),
	))
	if err != nil {
		res = resource.Default()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Tracer(TracerName), provider.Shutdown, nil
}
