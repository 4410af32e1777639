package parking_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-facility/internal/parking"
)

type failingLedger struct {
	parking.SessionLedger
	createErr error
}

func (l *failingLedger) CreateOpen(ctx context.Context, vehicleID, spotID string, entry time.Time, rate parking.Money) (*parking.Session, error) {
	if l.createErr != nil {
		return nil, l.createErr
	}
	return l.SessionLedger.CreateOpen(ctx, vehicleID, spotID, entry, rate)
}

type failingRegistry struct {
	parking.SpotRegistry
	releaseErr error
}

func (r *failingRegistry) Release(ctx context.Context, spotID string) (*parking.Spot, error) {
	if r.releaseErr != nil {
		return nil, r.releaseErr
	}
	return r.SpotRegistry.Release(ctx, spotID)
}

func TestEnterRollsBackSpotWhenLedgerFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storeErr := errors.New("ledger unavailable")
	c := f.coordinatorWith(f.spots, &failingLedger{SessionLedger: f.sessions, createErr: storeErr})

	_, err := c.Enter(ctx, "veh-abc", "spot-a01")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storeErr))
	assert.False(t, parking.IsIntegrityFault(err))
	assert.Equal(t, parking.SpotAvailable, f.spotStatus(t, "spot-a01"))
}

func TestEnterVehicleRaceMapsToAlreadyParked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.coordinatorWith(f.spots, &failingLedger{SessionLedger: f.sessions, createErr: parking.ErrVehicleSessionExists})

	_, err := c.Enter(ctx, "veh-abc", "spot-a01")
	assert.True(t, errors.Is(err, parking.ErrAlreadyParked))
	assert.Equal(t, parking.SpotAvailable, f.spotStatus(t, "spot-a01"))
}

func TestEnterRollbackFailureIsIntegrityFault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	spots := &failingRegistry{SpotRegistry: f.spots, releaseErr: errors.New("registry unavailable")}
	c := f.coordinatorWith(spots, &failingLedger{SessionLedger: f.sessions, createErr: errors.New("ledger unavailable")})

	_, err := c.Enter(ctx, "veh-abc", "spot-a01")
	require.Error(t, err)
	assert.True(t, parking.IsIntegrityFault(err))
	assert.False(t, parking.IsClientError(err))

	var ie *parking.IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "enter.rollback", ie.Op)
	assert.Equal(t, "spot-a01", ie.SpotID)

	report, err := f.coordinator().CheckIntegrity(ctx)
	require.NoError(t, err)
	require.Len(t, report.Faults, 1)
	assert.Equal(t, parking.FaultOrphanedSpot, report.Faults[0].Kind)
}

func TestEnterSpotAlreadyInLedgerIsIntegrityFault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.sessions.CreateOpen(ctx, "veh-xyz", "spot-a01", f.clock.Now(), 1000)
	require.NoError(t, err)

	_, err = f.coordinator().Enter(ctx, "veh-abc", "spot-a01")
	assert.True(t, parking.IsIntegrityFault(err))
	assert.True(t, errors.Is(err, parking.ErrSpotSessionExists))
	assert.Equal(t, parking.SpotOccupied, f.spotStatus(t, "spot-a01"))
}

func TestExitReleaseFailureReturnsClosedSessionAndFault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	session, err := f.coordinator().Enter(ctx, "veh-abc", "spot-a01")
	require.NoError(t, err)

	spots := &failingRegistry{SpotRegistry: f.spots, releaseErr: errors.New("registry unavailable")}
	c := f.coordinatorWith(spots, f.sessions)

	closed, err := c.Exit(ctx, session.ID)
	require.NotNil(t, closed)
	assert.False(t, closed.IsActive())
	assert.True(t, parking.IsIntegrityFault(err))
	assert.Len(t, f.sink.Events(), 1)

	report, err := c.CheckIntegrity(ctx)
	require.NoError(t, err)
	require.Len(t, report.Faults, 1)
	assert.Equal(t, parking.FaultOrphanedSpot, report.Faults[0].Kind)
	assert.Equal(t, "spot-a01", report.Faults[0].SpotID)
}

func TestCheckIntegrityHealthy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.coordinator()

	_, err := c.Enter(ctx, "veh-abc", "spot-a01")
	require.NoError(t, err)

	report, err := c.CheckIntegrity(ctx)
	require.NoError(t, err)
	assert.True(t, report.Healthy())
	assert.Equal(t, 3, report.Spots)
	assert.Equal(t, 1, report.OpenSessions)
}

func TestCheckIntegrityReportsLedgerOnlyFaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.sessions.CreateOpen(ctx, "veh-abc", "spot-a02", f.clock.Now(), 500)
	require.NoError(t, err)
	_, err = f.sessions.CreateOpen(ctx, "veh-xyz", "spot-gone", f.clock.Now(), 500)
	require.NoError(t, err)

	report, err := f.coordinator().CheckIntegrity(ctx)
	require.NoError(t, err)

	kinds := map[parking.FaultKind]string{}
	for _, fault := range report.Faults {
		kinds[fault.Kind] = fault.SpotID
	}
	assert.Equal(t, "spot-a02", kinds[parking.FaultUnreleasedSession])
	assert.Equal(t, "spot-gone", kinds[parking.FaultUnknownSpot])
	assert.Len(t, report.Faults, 2)
}

type listedLedger struct {
	parking.SessionLedger
	open []*parking.Session
}

func (l *listedLedger) List(context.Context, parking.SessionFilter) ([]*parking.Session, error) {
	return l.open, nil
}

func TestCheckIntegrityOrdersVehicleFaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ledger := &listedLedger{SessionLedger: f.sessions}
	for i, vehicleID := range []string{"veh-m", "veh-c", "veh-x", "veh-c", "veh-x", "veh-m", "veh-solo"} {
		ledger.open = append(ledger.open, &parking.Session{
			ID:        fmt.Sprintf("sess-%d", i),
			VehicleID: vehicleID,
			SpotID:    fmt.Sprintf("spot-gone-%d", i),
			EntryTime: f.clock.Now(),
		})
	}
	c := f.coordinatorWith(f.spots, ledger)

	for run := 0; run < 5; run++ {
		report, err := c.CheckIntegrity(ctx)
		require.NoError(t, err)

		var vehicles []string
		for _, fault := range report.Faults {
			if fault.Kind == parking.FaultVehicleMultipleSessions {
				vehicles = append(vehicles, fault.VehicleID)
				assert.Equal(t, "2 open sessions", fault.Detail)
			}
		}
		assert.Equal(t, []string{"veh-c", "veh-m", "veh-x"}, vehicles)
	}
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, "already_parked", parking.ErrorCode(parking.ErrAlreadyParked))
	assert.Equal(t, "spot_unavailable", parking.ErrorCode(errors.Join(errors.New("x"), parking.ErrSpotUnavailable)))
	assert.Equal(t, "integrity_fault", parking.ErrorCode(&parking.IntegrityError{Op: "exit", Err: parking.ErrSpotNotOccupied}))
	assert.Equal(t, "internal_error", parking.ErrorCode(errors.New("boom")))
	assert.Equal(t, "invalid_vehicle", parking.ErrorCode(parking.ErrInvalidVehicle))
	assert.True(t, parking.IsClientError(parking.ErrInvalidVehicle))
	assert.True(t, parking.IsInvalidState(parking.ErrAlreadyClosed))
	assert.True(t, parking.IsClientError(parking.ErrInvalidInterval))
}
