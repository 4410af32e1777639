package parking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"parking-facility/internal/parking"
)

func sumInt64(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestInstrumentedCoordinatorRecordsTelemetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ic, err := parking.NewInstrumentedCoordinator(f.coordinator(), tp.Tracer("test"), mp.Meter("test"))
	require.NoError(t, err)

	var engine parking.Engine = ic

	session, err := engine.Enter(ctx, "veh-abc", "spot-a01")
	require.NoError(t, err)

	_, err = engine.Enter(ctx, "veh-xyz", "spot-a01")
	assert.True(t, errors.Is(err, parking.ErrSpotUnavailable))

	f.clock.Advance(2*time.Hour + 15*time.Minute)
	_, err = engine.Exit(ctx, session.ID)
	require.NoError(t, err)

	_, err = engine.ListAvailableSpots(ctx)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(2), sumInt64(t, rm, "parking_entries_total"))
	assert.Equal(t, int64(1), sumInt64(t, rm, "parking_exits_total"))
	assert.Equal(t, int64(0), sumInt64(t, rm, "parking_occupancy"))
	assert.Equal(t, int64(3000), sumInt64(t, rm, "parking_revenue_cents_total"))

	var names []string
	var failed int
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
		if s.Status().Code == codes.Error {
			failed++
		}
	}
	assert.Contains(t, names, "coordinator.enter")
	assert.Contains(t, names, "coordinator.exit")
	assert.Contains(t, names, "coordinator.list_available_spots")
	assert.Equal(t, 1, failed)
}

func TestInstrumentedCoordinatorCountsIntegrityFaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	tp := sdktrace.NewTracerProvider()

	_, err := f.spots.TrySetOccupied(ctx, "spot-a02")
	require.NoError(t, err)

	ic, err := parking.NewInstrumentedCoordinator(f.coordinator(), tp.Tracer("test"), mp.Meter("test"))
	require.NoError(t, err)

	report, err := ic.CheckIntegrity(ctx)
	require.NoError(t, err)
	assert.False(t, report.Healthy())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(1), sumInt64(t, rm, "parking_integrity_faults_total"))
}
