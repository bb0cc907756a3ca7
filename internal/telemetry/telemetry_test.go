package telemetry_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/guxiaodai/restpf/internal/telemetry"
)

func TestInit_Stdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := telemetry.Init(telemetry.Config{
		ServiceName: "restpf-test",
		Exporter:    telemetry.ExporterStdout,
		Writer:      &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "unit-span")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name":"unit-span"`)
	assert.Contains(t, out, "restpf-test")
}

func TestInit_None(t *testing.T) {
	shutdown, err := telemetry.Init(telemetry.Config{Exporter: telemetry.ExporterNone})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_UnknownExporter(t *testing.T) {
	_, err := telemetry.Init(telemetry.Config{Exporter: "zipkin"})
	assert.ErrorContains(t, err, `unknown exporter "zipkin"`)
}
