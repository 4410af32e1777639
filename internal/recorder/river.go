package recorder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"parking-facility/internal/logging"
	"parking-facility/internal/parking"
)

const maxRecordAttempts = 5

type RecordTransactionArgs struct {
	SessionID     string            `json:"session_id"`
	AmountCents   int64             `json:"amount_cents"`
	PaymentMethod string            `json:"payment_method"`
	ClosedAt      string            `json:"closed_at"`
	TraceContext  map[string]string `json:"trace_context"`
}

func (RecordTransactionArgs) Kind() string { return "record_transaction" }

type RecordTransactionWorker struct {
	river.WorkerDefaults[RecordTransactionArgs]
	store Store
	inst  *instruments
}

func (w *RecordTransactionWorker) Work(ctx context.Context, job *river.Job[RecordTransactionArgs]) error {
	parent := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(job.Args.TraceContext))
	ctx, span := w.inst.tracer.Start(parent, "job.record_transaction",
		trace.WithAttributes(
			attribute.String("session.id", job.Args.SessionID),
			attribute.Int("job.attempt", job.Attempt),
		))
	defer span.End()

	event, err := job.Args.event()
	if err != nil {
		span.RecordError(err)
		return river.JobCancel(err)
	}

	tx, err := w.store.Record(ctx, newTransaction(event, job.Args.PaymentMethod))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.inst.failed.Add(ctx, 1)
		logging.Error(ctx, "failed to record transaction",
			"session_id", job.Args.SessionID,
			"attempt", job.Attempt,
			"error", err,
		)
		return err
	}

	w.inst.recorded.Add(ctx, 1)
	logging.Info(ctx, "transaction recorded",
		"transaction_id", tx.ID,
		"session_id", tx.SessionID,
		"amount", tx.Amount.String(),
	)
	return nil
}

// RiverRecorder enqueues a durable job per billing event and records the
// transaction from a river worker.
type RiverRecorder struct {
	client        *river.Client[pgx.Tx]
	paymentMethod string
	inst          *instruments
}

func NewRiverRecorder(pool *pgxpool.Pool, store Store, paymentMethod string, workers int) (*RiverRecorder, error) {
	inst, err := newInstruments()
	if err != nil {
		return nil, err
	}

	registry := river.NewWorkers()
	river.AddWorker(registry, &RecordTransactionWorker{store: store, inst: inst})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: workers},
		},
		Workers: registry,
	})
	if err != nil {
		return nil, err
	}

	return &RiverRecorder{client: client, paymentMethod: paymentMethod, inst: inst}, nil
}

func (r *RiverRecorder) Start(ctx context.Context) error {
	logging.Info(ctx, "starting river transaction worker")
	return r.client.Start(ctx)
}

func (r *RiverRecorder) Stop(ctx context.Context) error {
	logging.Info(ctx, "stopping river transaction worker")
	return r.client.Stop(ctx)
}

func (r *RiverRecorder) SessionClosed(ctx context.Context, event parking.BillingClosedEvent) error {
	ctx, span := r.inst.tracer.Start(ctx, "job.enqueue",
		trace.WithAttributes(attribute.String("session.id", event.SessionID)))
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	_, err := r.client.Insert(ctx, RecordTransactionArgs{
		SessionID:     event.SessionID,
		AmountCents:   int64(event.Amount),
		PaymentMethod: r.paymentMethod,
		ClosedAt:      event.ClosedAt.Format(timeLayout),
		TraceContext:  carrier,
	}, &river.InsertOpts{MaxAttempts: maxRecordAttempts})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.inst.rejected.Add(ctx, 1)
		return fmt.Errorf("recorder: enqueue session %s: %w", event.SessionID, err)
	}

	r.inst.enqueued.Add(ctx, 1)
	return nil
}

// Migrate installs river's own tables.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return err
	}

	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return err
	}

	logging.Info(ctx, "river migrations completed")
	return nil
}
