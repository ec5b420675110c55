// Package telemetry wires the OpenTelemetry trace pipeline. Tracing is
// opt-in: without OTEL_* configuration in the environment the global
// no-op tracer stays installed and relay spans cost nothing.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Enabled reports whether any OpenTelemetry exporter configuration is
// present in the environment.
func Enabled() bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") != "" ||
		os.Getenv("OTEL_SERVICE_NAME") != ""
}

// Setup installs an OTLP/HTTP trace exporter when telemetry is enabled.
// The returned shutdown function flushes buffered spans; it is a no-op
// when tracing is disabled. Exporter endpoint and headers come from the
// standard OTEL_EXPORTER_OTLP_* variables.
func Setup(ctx context.Context, serviceName, serviceVersion string) (func(context.Context) error, error) {
	if !Enabled() {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
		semconv.ServiceNamespace("chat-relay"),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
