// Package otel configures the relay's opt-in trace pipeline.
package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/dxcis/loanwd/internal/platform/config"
)

// Config controls the trace pipeline. Tracing is opt-in: without an endpoint,
// or when disabled, no global provider is registered.
type Config struct {
	Enabled  bool   `env:"LOANWD_OTEL_ENABLED" envDefault:"true"`
	Endpoint string `env:"LOANWD_OTEL_ENDPOINT"`
}

// Setup reads the tracing configuration from the environment and initialises
// the pipeline for the given service. The returned shutdown function flushes
// pending spans and should be deferred by the caller.
func Setup(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return noopShutdown, err
	}
	return SetupWithConfig(ctx, serviceName, cfg)
}

// SetupWithConfig initialises the trace pipeline from an explicit
// configuration.
func SetupWithConfig(ctx context.Context, serviceName string, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return noopShutdown, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
	)
	if err != nil {
		return noopShutdown, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noopShutdown, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

func noopShutdown(context.Context) error { return nil }
