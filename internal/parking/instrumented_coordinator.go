package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedCoordinator wraps a Coordinator with spans and OpenTelemetry metrics.
type InstrumentedCoordinator struct {
	*Coordinator
	tracer trace.Tracer

	entryOperations   metric.Int64Counter
	exitOperations    metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
	revenue           metric.Int64Counter
	integrityFaults   metric.Int64Counter
}

func NewInstrumentedCoordinator(c *Coordinator, tracer trace.Tracer, meter metric.Meter) (*InstrumentedCoordinator, error) {
	entryOperations, err := meter.Int64Counter("parking_entries_total",
		metric.WithDescription("Total number of entry requests"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	exitOperations, err := meter.Int64Counter("parking_exits_total",
		metric.WithDescription("Total number of exit requests"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_occupancy",
		metric.WithDescription("Sessions opened minus sessions closed by this process"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("parking_operation_duration_seconds",
		metric.WithDescription("Duration of occupancy operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	revenue, err := meter.Int64Counter("parking_revenue_cents_total",
		metric.WithDescription("Billed amount of closed sessions in cents"),
		metric.WithUnit("{cent}"))
	if err != nil {
		return nil, err
	}

	integrityFaults, err := meter.Int64Counter("parking_integrity_faults_total",
		metric.WithDescription("Integrity faults raised by entry, exit and reconciliation"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedCoordinator{
		Coordinator:       c,
		tracer:            tracer,
		entryOperations:   entryOperations,
		exitOperations:    exitOperations,
		occupancyGauge:    occupancyGauge,
		operationDuration: operationDuration,
		revenue:           revenue,
		integrityFaults:   integrityFaults,
	}, nil
}

func (ic *InstrumentedCoordinator) Enter(ctx context.Context, vehicleID, spotID string) (*Session, error) {
	ctx, span := ic.tracer.Start(ctx, "coordinator.enter",
		trace.WithAttributes(
			attribute.String("vehicle.id", vehicleID),
			attribute.String("spot.id", spotID),
		))
	defer span.End()

	start := time.Now()
	session, err := ic.Coordinator.Enter(ctx, vehicleID, spotID)
	ic.recordEntry(ctx, span, "enter", start, session, err)
	return session, err
}

func (ic *InstrumentedCoordinator) EnterByPlate(ctx context.Context, plate, spotID string) (*Session, error) {
	ctx, span := ic.tracer.Start(ctx, "coordinator.enter_by_plate",
		trace.WithAttributes(
			attribute.String("vehicle.license_plate", NormalizePlate(plate)),
			attribute.String("spot.id", spotID),
		))
	defer span.End()

	start := time.Now()
	session, err := ic.Coordinator.EnterByPlate(ctx, plate, spotID)
	ic.recordEntry(ctx, span, "enter_by_plate", start, session, err)
	return session, err
}

func (ic *InstrumentedCoordinator) recordEntry(ctx context.Context, span trace.Span, op string, start time.Time, session *Session, err error) {
	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{attribute.String("operation", op)}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", ErrorCode(err)),
		)
		ic.countFault(ctx, op, err)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.String("session.id", session.ID))
		span.AddEvent("session_opened", trace.WithAttributes(
			attribute.String("spot.id", session.SpotID),
		))
		ic.occupancyGauge.Add(ctx, 1)
	}

	ic.entryOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ic.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))
}

func (ic *InstrumentedCoordinator) Exit(ctx context.Context, sessionID string) (*Session, error) {
	ctx, span := ic.tracer.Start(ctx, "coordinator.exit",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	start := time.Now()
	session, err := ic.Coordinator.Exit(ctx, sessionID)
	ic.recordExit(ctx, span, "exit", start, session, err)
	return session, err
}

func (ic *InstrumentedCoordinator) ExitByPlate(ctx context.Context, plate string) (*Session, error) {
	ctx, span := ic.tracer.Start(ctx, "coordinator.exit_by_plate",
		trace.WithAttributes(attribute.String("vehicle.license_plate", NormalizePlate(plate))))
	defer span.End()

	start := time.Now()
	session, err := ic.Coordinator.ExitByPlate(ctx, plate)
	ic.recordExit(ctx, span, "exit_by_plate", start, session, err)
	return session, err
}

func (ic *InstrumentedCoordinator) recordExit(ctx context.Context, span trace.Span, op string, start time.Time, session *Session, err error) {
	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{attribute.String("operation", op)}

	// A closed session with an error means the bill is committed but the spot
	// was not released.
	if session != nil {
		span.SetAttributes(
			attribute.String("spot.id", session.SpotID),
			attribute.String("session.total_hours", session.TotalHours.String()),
			attribute.String("session.total_amount", session.TotalAmount.String()),
		)
		span.AddEvent("session_closed")
		ic.revenue.Add(ctx, int64(*session.TotalAmount))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", ErrorCode(err)),
		)
		ic.countFault(ctx, op, err)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		ic.occupancyGauge.Add(ctx, -1)
	}

	ic.exitOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ic.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))
}

func (ic *InstrumentedCoordinator) ListAvailableSpots(ctx context.Context) ([]*Spot, error) {
	ctx, span := ic.tracer.Start(ctx, "coordinator.list_available_spots")
	defer span.End()

	start := time.Now()
	spots, err := ic.Coordinator.ListAvailableSpots(ctx)
	ic.recordRead(ctx, span, "list_available_spots", start, len(spots), err)
	return spots, err
}

func (ic *InstrumentedCoordinator) ListActiveSessions(ctx context.Context) ([]*Session, error) {
	ctx, span := ic.tracer.Start(ctx, "coordinator.list_active_sessions")
	defer span.End()

	start := time.Now()
	sessions, err := ic.Coordinator.ListActiveSessions(ctx)
	ic.recordRead(ctx, span, "list_active_sessions", start, len(sessions), err)
	return sessions, err
}

func (ic *InstrumentedCoordinator) recordRead(ctx context.Context, span trace.Span, op string, start time.Time, n int, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		status = "failed"
	}
	span.SetAttributes(attribute.Int("result.count", n))
	ic.operationDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("status", status),
	))
}

func (ic *InstrumentedCoordinator) CheckIntegrity(ctx context.Context) (*IntegrityReport, error) {
	ctx, span := ic.tracer.Start(ctx, "coordinator.check_integrity")
	defer span.End()

	report, err := ic.Coordinator.CheckIntegrity(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("spots", report.Spots),
		attribute.Int("open_sessions", report.OpenSessions),
		attribute.Int("faults", len(report.Faults)),
	)
	for _, f := range report.Faults {
		ic.integrityFaults.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", "check_integrity"),
			attribute.String("kind", string(f.Kind)),
		))
	}
	return report, nil
}

func (ic *InstrumentedCoordinator) countFault(ctx context.Context, op string, err error) {
	if !IsIntegrityFault(err) {
		return
	}
	ic.integrityFaults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("kind", "runtime"),
	))
}
