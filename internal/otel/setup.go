// Package otel centralizes OpenTelemetry configuration for tether.
//
// Setup is process-wide and init-once: the first call configures the global
// tracer and meter providers, every later call is a no-op that returns the
// shutdown function from the first call. Consumers obtain tracers through
// Tracer(pkg) and must work identically when Setup was never called (the
// global no-op providers make every span a no-op).
package otel

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Options control where spans and metrics are exported.
type Options struct {
	// Enabled turns tracing on. When false Setup returns a no-op shutdown
	// and the global providers stay untouched.
	Enabled bool
	// CollectorEndpoint, when non-empty, exports spans over OTLP/HTTP to a
	// local or remote collector (e.g. "localhost:4318"). When empty, spans
	// and metrics go to stdout with pretty printing.
	CollectorEndpoint string
	// Insecure disables TLS for the OTLP exporter. Local collectors
	// generally need this.
	Insecure bool
}

var (
	setupOnce     sync.Once
	setupShutdown func(context.Context) error
	setupErr      error
)

// Setup initializes OpenTelemetry for the process and returns a shutdown
// function that must be called on exit. Calling Setup again returns the
// result of the first call unchanged.
func Setup(serviceName, version string, opts Options) (func(context.Context) error, error) {
	setupOnce.Do(func() {
		setupShutdown, setupErr = setup(serviceName, version, opts)
	})
	return setupShutdown, setupErr
}

func setup(serviceName, version string, opts Options) (func(context.Context) error, error) {
	if !opts.Enabled {
		return func(ctx context.Context) error { return nil }, nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OTel resource: %w", err)
	}

	exporter, err := newTraceExporter(ctx, opts)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExporter)),
	)
	otel.SetMeterProvider(mp)

	shutdown := func(ctx context.Context) error {
		var firstErr error
		if err := tp.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := mp.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		return firstErr
	}
	return shutdown, nil
}

func newTraceExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	if opts.CollectorEndpoint == "" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		return exporter, nil
	}

	otlpOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(opts.CollectorEndpoint)}
	if opts.Insecure {
		otlpOpts = append(otlpOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, otlpOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// Tracer returns a tracer for the given package
func Tracer(pkg string) trace.Tracer {
	return otel.Tracer(pkg)
}
