// Package telemetry installs the OpenTelemetry tracer provider that receives
// the pipeline and callback spans.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Exporters accepted by Init.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Config selects the trace exporter.
type Config struct {
	ServiceName string
	// Exporter is "stdout" or "none".
	Exporter string
	// Pretty indents stdout spans.
	Pretty bool
	// Writer receives stdout spans; os.Stderr when nil.
	Writer io.Writer
}

// Shutdown flushes and stops the installed provider.
type Shutdown func(context.Context) error

// Init installs a global tracer provider for cfg. With the "none" exporter
// nothing is installed and the returned Shutdown is a no-op.
func Init(cfg Config) (Shutdown, error) {
	switch cfg.Exporter {
	case ExporterNone, "":
		return func(context.Context) error { return nil }, nil
	case ExporterStdout:
	default:
		return nil, fmt.Errorf("telemetry: unknown exporter %q", cfg.Exporter)
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.Pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exp, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "restpf"
	}
	res := resource.NewWithAttributes("", attribute.String("service.name", name))

	tp := trace.NewTracerProvider(
		trace.WithSyncer(exp),
		trace.WithResource(res),
		trace.WithSampler(trace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
