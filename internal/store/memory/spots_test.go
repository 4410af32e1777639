package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-facility/internal/clock"
	"parking-facility/internal/parking"
)

func newRegistry(t *testing.T, numbers ...string) *SpotRegistry {
	t.Helper()
	r := NewSpotRegistry(clock.NewManual(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)))
	for _, n := range numbers {
		_, err := r.ProvisionSpot(context.Background(), parking.Spot{Number: n, HourlyRate: 500})
		require.NoError(t, err)
	}
	return r
}

func TestProvisionSpotDefaults(t *testing.T) {
	r := newRegistry(t)

	spot, err := r.ProvisionSpot(context.Background(), parking.Spot{Number: "a01", HourlyRate: 500})
	require.NoError(t, err)

	assert.Equal(t, "spot-a01", spot.ID)
	assert.Equal(t, "A01", spot.Number)
	assert.Equal(t, parking.SpotRegular, spot.Type)
	assert.Equal(t, parking.SpotAvailable, spot.Status)
}

func TestProvisionSpotRejectsDuplicates(t *testing.T) {
	r := newRegistry(t, "A01")

	_, err := r.ProvisionSpot(context.Background(), parking.Spot{Number: "A01"})
	assert.True(t, errors.Is(err, parking.ErrDuplicateSpot))

	_, err = r.ProvisionSpot(context.Background(), parking.Spot{ID: "spot-a01", Number: "Z99"})
	assert.True(t, errors.Is(err, parking.ErrDuplicateSpot))

	_, err = r.ProvisionSpot(context.Background(), parking.Spot{Number: "B01", HourlyRate: -1})
	assert.True(t, errors.Is(err, parking.ErrInvalidRate))
}

func TestTrySetOccupiedOnlyFromAvailable(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, "A01")

	spot, err := r.TrySetOccupied(ctx, "spot-a01")
	require.NoError(t, err)
	assert.Equal(t, parking.SpotOccupied, spot.Status)

	_, err = r.TrySetOccupied(ctx, "spot-a01")
	assert.True(t, errors.Is(err, parking.ErrSpotConflict))

	_, err = r.TrySetOccupied(ctx, "spot-zzz")
	assert.True(t, errors.Is(err, parking.ErrSpotNotFound))
}

func TestTrySetOccupiedIsExclusive(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, "A01")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.TrySetOccupied(ctx, "spot-a01"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestReleaseRequiresOccupied(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, "A01")

	_, err := r.Release(ctx, "spot-a01")
	assert.True(t, errors.Is(err, parking.ErrSpotNotOccupied))

	_, err = r.TrySetOccupied(ctx, "spot-a01")
	require.NoError(t, err)

	spot, err := r.Release(ctx, "spot-a01")
	require.NoError(t, err)
	assert.Equal(t, parking.SpotAvailable, spot.Status)

	_, err = r.Release(ctx, "spot-missing")
	assert.True(t, errors.Is(err, parking.ErrSpotNotFound))
}

func TestMaintenanceBlocksOccupation(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, "A01", "A02")

	spot, err := r.SetMaintenance(ctx, "spot-a01", true)
	require.NoError(t, err)
	assert.Equal(t, parking.SpotMaintenance, spot.Status)

	_, err = r.TrySetOccupied(ctx, "spot-a01")
	assert.True(t, errors.Is(err, parking.ErrSpotConflict))

	_, err = r.TrySetOccupied(ctx, "spot-a02")
	require.NoError(t, err)
	_, err = r.SetMaintenance(ctx, "spot-a02", true)
	assert.True(t, errors.Is(err, parking.ErrSpotConflict))

	spot, err = r.SetMaintenance(ctx, "spot-a01", false)
	require.NoError(t, err)
	assert.Equal(t, parking.SpotAvailable, spot.Status)
}

func TestListFiltersAndOrdersByNumber(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, "B02", "A01", "B01")

	_, err := r.TrySetOccupied(ctx, "spot-b01")
	require.NoError(t, err)

	all, err := r.List(ctx, parking.SpotFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"A01", "B01", "B02"}, []string{all[0].Number, all[1].Number, all[2].Number})

	available, err := r.List(ctx, parking.SpotFilter{Status: parking.SpotAvailable})
	require.NoError(t, err)
	assert.Len(t, available, 2)

	byNumber, err := r.List(ctx, parking.SpotFilter{Number: "B02"})
	require.NoError(t, err)
	require.Len(t, byNumber, 1)
	assert.Equal(t, "spot-b02", byNumber[0].ID)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, "A01")

	spot, err := r.Get(ctx, "spot-a01")
	require.NoError(t, err)
	spot.Status = parking.SpotOccupied

	again, err := r.Get(ctx, "spot-a01")
	require.NoError(t, err)
	assert.Equal(t, parking.SpotAvailable, again.Status)
}
