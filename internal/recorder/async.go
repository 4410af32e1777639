package recorder

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"parking-facility/internal/logging"
	"parking-facility/internal/parking"
)

type job struct {
	event   parking.BillingClosedEvent
	carrier propagation.MapCarrier
}

// AsyncRecorder records transactions on a fixed pool of goroutines fed by a
// bounded buffer. SessionClosed never blocks: a full buffer is rejected.
type AsyncRecorder struct {
	store         Store
	paymentMethod string
	workers       int

	jobs chan job
	wg   sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	inst *instruments
}

func NewAsyncRecorder(store Store, paymentMethod string, bufferSize, workers int) (*AsyncRecorder, error) {
	if bufferSize < 1 {
		return nil, fmt.Errorf("recorder: buffer size must be positive, got %d", bufferSize)
	}
	if workers < 1 {
		return nil, fmt.Errorf("recorder: workers must be positive, got %d", workers)
	}
	inst, err := newInstruments()
	if err != nil {
		return nil, err
	}
	return &AsyncRecorder{
		store:         store,
		paymentMethod: paymentMethod,
		workers:       workers,
		jobs:          make(chan job, bufferSize),
		inst:          inst,
	}, nil
}

// Start launches the workers. They exit once Stop has drained the buffer.
func (r *AsyncRecorder) Start(ctx context.Context) {
	logging.Info(ctx, "starting transaction recorder", "workers", r.workers)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for j := range r.jobs {
				r.record(j)
			}
		}()
	}
}

// Stop rejects new events and waits for buffered ones to be recorded.
func (r *AsyncRecorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.jobs)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info(ctx, "transaction recorder stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *AsyncRecorder) SessionClosed(ctx context.Context, event parking.BillingClosedEvent) error {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.stopped {
		r.inst.rejected.Add(ctx, 1)
		return ErrStopped
	}

	select {
	case r.jobs <- job{event: event, carrier: carrier}:
		r.inst.enqueued.Add(ctx, 1)
		return nil
	default:
		r.inst.rejected.Add(ctx, 1)
		return fmt.Errorf("session %s: %w", event.SessionID, ErrBufferFull)
	}
}

func (r *AsyncRecorder) record(j job) {
	parent := otel.GetTextMapPropagator().Extract(context.Background(), j.carrier)
	ctx, span := r.inst.tracer.Start(parent, "recorder.record_transaction",
		trace.WithAttributes(
			attribute.String("session.id", j.event.SessionID),
			attribute.String("transaction.amount", j.event.Amount.String()),
		))
	defer span.End()

	tx, err := r.store.Record(ctx, newTransaction(j.event, r.paymentMethod))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.inst.failed.Add(ctx, 1)
		logging.Error(ctx, "failed to record transaction",
			"session_id", j.event.SessionID,
			"amount", j.event.Amount.String(),
			"error", err,
		)
		return
	}

	r.inst.recorded.Add(ctx, 1)
	logging.Info(ctx, "transaction recorded",
		"transaction_id", tx.ID,
		"session_id", tx.SessionID,
		"amount", tx.Amount.String(),
	)
}
