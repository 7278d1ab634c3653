package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_None(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Exporter: "none"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_UnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), Config{Exporter: "zipkin"})
	assert.ErrorIs(t, err, ErrUnknownExporter)
}

func TestSetup_StdoutExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := Setup(context.Background(), Config{
		ServiceName:    "nodetree-test",
		ServiceVersion: "test",
		Exporter:       "stdout",
		Writer:         &buf,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("telemetry_test").Start(context.Background(), "tree.GetSubtree")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "tree.GetSubtree")
	assert.Contains(t, buf.String(), "nodetree-test")
}
