package recorder

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "parking-facility/recorder"

type instruments struct {
	tracer   trace.Tracer
	enqueued metric.Int64Counter
	recorded metric.Int64Counter
	failed   metric.Int64Counter
	rejected metric.Int64Counter
}

func newInstruments() (*instruments, error) {
	meter := otel.Meter(instrumentationName)

	enqueued, err := meter.Int64Counter("recorder.transactions.enqueued",
		metric.WithDescription("Billing events accepted for recording"))
	if err != nil {
		return nil, err
	}
	recorded, err := meter.Int64Counter("recorder.transactions.recorded",
		metric.WithDescription("Transactions persisted"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("recorder.transactions.failed",
		metric.WithDescription("Transactions that could not be persisted"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("recorder.transactions.rejected",
		metric.WithDescription("Billing events dropped before recording"))
	if err != nil {
		return nil, err
	}

	return &instruments{
		tracer:   otel.Tracer(instrumentationName),
		enqueued: enqueued,
		recorded: recorded,
		failed:   failed,
		rejected: rejected,
	}, nil
}
