// Package telemetry sets up OpenTelemetry tracing.
package telemetry

import (
  "context"
  "errors"
  "fmt"

  "go.opentelemetry.io/otel"
  "go.opentelemetry.io/otel/attribute"
  "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
  "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
  "go.opentelemetry.io/otel/sdk/resource"
  sdktrace "go.opentelemetry.io/otel/sdk/trace"
  "go.opentelemetry.io/otel/trace"
)

const TracerName = "github.com/everything-automotive/ea-backend"

var ErrUnknownExporter = errors.New("telemetry: unknown trace exporter")

type Config struct {
  ServiceName       string
  Environment       string
  // TraceExporter is "otlp", "stdout" or "none".
  TraceExporter     string
  OTLPEndpoint      string
  OTLPInsecure      bool
}

// Init installs the global tracer provider. The returned shutdown flushes
// pending spans and is always safe to call.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
  noop := func(context.Context) error { return nil }
  if cfg.TraceExporter == "" || cfg.TraceExporter == "none" {
    return noop, nil
  }

  var exporter sdktrace.SpanExporter
  var err error
  switch cfg.TraceExporter {
  case "otlp":
    opts := []otlptracegrpc.Option{
      otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
    }
    if cfg.OTLPInsecure {
      opts = append(opts, otlptracegrpc.WithInsecure())
    }
    exporter, err = otlptracegrpc.New(ctx, opts...)
  case "stdout":
    exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
  default:
    return noop, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
  }
  if err != nil {
    return noop, fmt.Errorf("create exporter: %w", err)
  }

  res := resource.NewWithAttributes(
    "",
    attribute.String("service.name", cfg.ServiceName),
    attribute.String("deployment.environment", cfg.Environment),
  )
  tp := sdktrace.NewTracerProvider(
    sdktrace.WithBatcher(exporter),
    sdktrace.WithResource(res),
    sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
  )
  otel.SetTracerProvider(tp)
  return tp.Shutdown, nil
}

// Tracer returns the backend's tracer from the global provider.
func Tracer() trace.Tracer {
  return otel.Tracer(TracerName)
}
