package recorder_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-facility/internal/parking"
	"parking-facility/internal/recorder"
	"parking-facility/internal/store/memory"
)

var closedAt = time.Date(2026, 2, 1, 18, 30, 0, 0, time.UTC)

func event(id string, cents int64) parking.BillingClosedEvent {
	return parking.BillingClosedEvent{
		SessionID: id,
		SpotID:    "spot-a01",
		Amount:    parking.Money(cents),
		Hours:     parking.WholeHours(1),
		ClosedAt:  closedAt,
	}
}

func TestAsyncRecorderRecordsEveryEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTransactionStore()

	r, err := recorder.NewAsyncRecorder(store, "cash", 16, 3)
	require.NoError(t, err)
	r.Start(ctx)

	for i := 0; i < 10; i++ {
		require.NoError(t, r.SessionClosed(ctx, event(fmt.Sprintf("sess-%d", i), int64(500*(i+1)))))
	}
	require.NoError(t, r.Stop(ctx))

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 10)

	tx, err := store.GetBySession(ctx, "sess-3")
	require.NoError(t, err)
	assert.Equal(t, parking.Money(2000), tx.Amount)
	assert.Equal(t, "cash", tx.PaymentMethod)
	assert.Equal(t, recorder.StatusCompleted, tx.Status)
	assert.Equal(t, closedAt, tx.CreatedAt)
}

func TestAsyncRecorderRejectsWhenFull(t *testing.T) {
	ctx := context.Background()

	r, err := recorder.NewAsyncRecorder(memory.NewTransactionStore(), "cash", 1, 1)
	require.NoError(t, err)

	require.NoError(t, r.SessionClosed(ctx, event("sess-1", 500)))
	err = r.SessionClosed(ctx, event("sess-2", 500))
	assert.True(t, errors.Is(err, recorder.ErrBufferFull))

	r.Start(ctx)
	require.NoError(t, r.Stop(ctx))

	err = r.SessionClosed(ctx, event("sess-3", 500))
	assert.True(t, errors.Is(err, recorder.ErrStopped))
	assert.NoError(t, r.Stop(ctx))
}

func TestNewAsyncRecorderValidatesSizes(t *testing.T) {
	_, err := recorder.NewAsyncRecorder(memory.NewTransactionStore(), "cash", 0, 1)
	assert.Error(t, err)
	_, err = recorder.NewAsyncRecorder(memory.NewTransactionStore(), "cash", 1, 0)
	assert.Error(t, err)
}

func TestRecorderAsCoordinatorSink(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTransactionStore()
	r, err := recorder.NewAsyncRecorder(store, "card", 4, 1)
	require.NoError(t, err)
	r.Start(ctx)

	spots := memory.NewSpotRegistry(nil)
	_, err = spots.ProvisionSpot(ctx, parking.Spot{Number: "A01", HourlyRate: 750})
	require.NoError(t, err)
	vehicles := memory.NewVehicleDirectory(nil)
	v, err := vehicles.RegisterVehicle(ctx, parking.Vehicle{LicensePlate: "REC1"})
	require.NoError(t, err)

	c := parking.NewCoordinator(spots, memory.NewSessionLedger(), vehicles, parking.WithSink(r))
	session, err := c.Enter(ctx, v.ID, "spot-a01")
	require.NoError(t, err)
	_, err = c.Exit(ctx, session.ID)
	require.NoError(t, err)

	require.NoError(t, r.Stop(ctx))

	tx, err := store.GetBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, parking.Money(750), tx.Amount)
	assert.Equal(t, "card", tx.PaymentMethod)
}
