package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInfoWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("parking-facility-test", "production", &buf)

	Info(context.Background(), "session opened", "spot_id", "spot-a01")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "session opened", record["msg"])
	assert.Equal(t, "spot-a01", record["spot_id"])
	assert.Equal(t, "parking-facility-test", record["service"])
	assert.Equal(t, "production", record["environment"])
}

func TestDebugSuppressedOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("parking-facility-test", "production", &buf)

	Debug(context.Background(), "noisy detail")

	assert.Zero(t, buf.Len())
}

func TestWithContextAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("parking-facility-test", "development", &buf)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	Warn(ctx, "spot release retried")
	span.End()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, span.SpanContext().TraceID().String(), record["traceId"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["spanId"])
}
