package parking

import (
	"context"
	"errors"
	"fmt"

	"parking-facility/internal/clock"
	"parking-facility/internal/logging"
)

// Coordinator is the Occupancy Coordinator. It is the only writer of spot
// status and of session exit data, and it keeps the Spot Registry and the
// Session Ledger consistent across entry and exit.
type Coordinator struct {
	spots    SpotRegistry
	sessions SessionLedger
	vehicles VehicleDirectory

	calc   Calculator
	policy RatePolicy
	clock  clock.Clock
	sink   BillingSink
}

type Option func(*Coordinator)

func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

func WithCalculator(calc Calculator) Option {
	return func(co *Coordinator) { co.calc = calc }
}

func WithRatePolicy(p RatePolicy) Option {
	return func(co *Coordinator) { co.policy = p }
}

// WithSink sets the receiver of billing-closed events.
func WithSink(s BillingSink) Option {
	return func(co *Coordinator) { co.sink = s }
}

func NewCoordinator(spots SpotRegistry, sessions SessionLedger, vehicles VehicleDirectory, opts ...Option) *Coordinator {
	c := &Coordinator{
		spots:    spots,
		sessions: sessions,
		vehicles: vehicles,
		calc:     NewCalculator(GranularityHour),
		policy:   RatePolicyExit,
		clock:    clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enter opens a session for vehicleID on spotID.
func (c *Coordinator) Enter(ctx context.Context, vehicleID, spotID string) (*Session, error) {
	vehicle, err := c.vehicles.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("enter: %w", err)
	}
	return c.enter(ctx, vehicle, spotID)
}

// EnterByPlate resolves the vehicle by license plate, then behaves as Enter.
func (c *Coordinator) EnterByPlate(ctx context.Context, plate, spotID string) (*Session, error) {
	vehicle, err := c.vehicles.GetVehicleByPlate(ctx, NormalizePlate(plate))
	if err != nil {
		return nil, fmt.Errorf("enter: %w", err)
	}
	return c.enter(ctx, vehicle, spotID)
}

func (c *Coordinator) enter(ctx context.Context, vehicle *Vehicle, spotID string) (*Session, error) {
	_, err := c.sessions.GetOpenByVehicle(ctx, vehicle.ID)
	switch {
	case err == nil:
		return nil, fmt.Errorf("enter: vehicle %s: %w", vehicle.LicensePlate, ErrAlreadyParked)
	case !errors.Is(err, ErrSessionNotFound):
		return nil, fmt.Errorf("enter: %w", err)
	}

	spot, err := c.spots.TrySetOccupied(ctx, spotID)
	if err != nil {
		if errors.Is(err, ErrSpotNotFound) || errors.Is(err, ErrSpotConflict) {
			return nil, fmt.Errorf("enter: spot %s: %w", spotID, ErrSpotUnavailable)
		}
		return nil, fmt.Errorf("enter: %w", err)
	}

	session, err := c.sessions.CreateOpen(ctx, vehicle.ID, spot.ID, c.clock.Now(), spot.HourlyRate)
	if err == nil {
		logging.Info(ctx, "session opened",
			"session_id", session.ID,
			"vehicle_id", vehicle.ID,
			"spot_id", spot.ID,
		)
		return session, nil
	}

	// The ledger already holds an open session for a spot we just claimed as
	// available, so the two stores disagree. Leave the spot as it is.
	if errors.Is(err, ErrSpotSessionExists) {
		fault := &IntegrityError{Op: "enter", SpotID: spot.ID, Err: err}
		c.reportFault(ctx, fault)
		return nil, fault
	}

	if _, rbErr := c.spots.Release(ctx, spot.ID); rbErr != nil {
		fault := &IntegrityError{Op: "enter.rollback", SpotID: spot.ID, Err: errors.Join(err, rbErr)}
		c.reportFault(ctx, fault)
		return nil, fault
	}

	logging.Warn(ctx, "session create failed, spot released",
		"vehicle_id", vehicle.ID,
		"spot_id", spot.ID,
		"error", err,
	)

	if errors.Is(err, ErrVehicleSessionExists) {
		return nil, fmt.Errorf("enter: vehicle %s: %w", vehicle.LicensePlate, ErrAlreadyParked)
	}
	return nil, fmt.Errorf("enter: %w", err)
}

// Exit closes the session, bills it and releases the spot.
//
// If the bill is committed but the spot cannot be released, Exit returns the
// closed session together with an *IntegrityError.
func (c *Coordinator) Exit(ctx context.Context, sessionID string) (*Session, error) {
	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("exit: %w", err)
	}
	return c.exit(ctx, session)
}

// ExitByPlate closes the open session of the vehicle with the given plate.
func (c *Coordinator) ExitByPlate(ctx context.Context, plate string) (*Session, error) {
	vehicle, err := c.vehicles.GetVehicleByPlate(ctx, NormalizePlate(plate))
	if err != nil {
		return nil, fmt.Errorf("exit: %w", err)
	}
	session, err := c.sessions.GetOpenByVehicle(ctx, vehicle.ID)
	if err != nil {
		return nil, fmt.Errorf("exit: vehicle %s: %w", vehicle.LicensePlate, err)
	}
	return c.exit(ctx, session)
}

func (c *Coordinator) exit(ctx context.Context, session *Session) (*Session, error) {
	if !session.IsActive() {
		return nil, fmt.Errorf("exit: session %s: %w", session.ID, ErrAlreadyClosed)
	}

	rate, err := c.billingRate(ctx, session)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	bill, err := c.calc.Compute(session.EntryTime, now, rate)
	if err != nil {
		if errors.Is(err, ErrInvalidInterval) {
			logging.Error(ctx, "clock reads earlier than session entry",
				"session_id", session.ID,
				"entry_time", session.EntryTime,
				"now", now,
			)
		}
		return nil, fmt.Errorf("exit: session %s: %w", session.ID, err)
	}

	closed, err := c.sessions.CloseWithBilling(ctx, session.ID, now, bill)
	if err != nil {
		return nil, fmt.Errorf("exit: session %s: %w", session.ID, err)
	}

	var fault error
	if _, err := c.spots.Release(ctx, closed.SpotID); err != nil {
		ie := &IntegrityError{Op: "exit.release", SpotID: closed.SpotID, SessionID: closed.ID, Err: err}
		c.reportFault(ctx, ie)
		fault = ie
	}

	logging.Info(ctx, "session closed",
		"session_id", closed.ID,
		"spot_id", closed.SpotID,
		"total_hours", closed.TotalHours.String(),
		"total_amount", closed.TotalAmount.String(),
	)

	c.emit(ctx, closed)
	return closed, fault
}

func (c *Coordinator) billingRate(ctx context.Context, session *Session) (Money, error) {
	if c.policy == RatePolicyEntry {
		return session.HourlyRate, nil
	}

	spot, err := c.spots.Get(ctx, session.SpotID)
	if err != nil {
		if errors.Is(err, ErrSpotNotFound) {
			fault := &IntegrityError{Op: "exit", SpotID: session.SpotID, SessionID: session.ID, Err: err}
			c.reportFault(ctx, fault)
			return 0, fault
		}
		return 0, fmt.Errorf("exit: %w", err)
	}
	return spot.HourlyRate, nil
}

func (c *Coordinator) emit(ctx context.Context, s *Session) {
	if c.sink == nil {
		return
	}
	event := BillingClosedEvent{
		SessionID: s.ID,
		VehicleID: s.VehicleID,
		SpotID:    s.SpotID,
		Amount:    *s.TotalAmount,
		Hours:     *s.TotalHours,
		ClosedAt:  *s.ExitTime,
	}
	if err := c.sink.SessionClosed(ctx, event); err != nil {
		logging.Error(ctx, "billing event not delivered",
			"session_id", s.ID,
			"amount", s.TotalAmount.String(),
			"error", err,
		)
	}
}

func (c *Coordinator) reportFault(ctx context.Context, fault *IntegrityError) {
	logging.Error(ctx, "integrity fault",
		"op", fault.Op,
		"spot_id", fault.SpotID,
		"session_id", fault.SessionID,
		"error", fault.Err,
	)
}

func (c *Coordinator) ListAvailableSpots(ctx context.Context) ([]*Spot, error) {
	return c.spots.List(ctx, SpotFilter{Status: SpotAvailable})
}

func (c *Coordinator) ListActiveSessions(ctx context.Context) ([]*Session, error) {
	return c.sessions.List(ctx, ActiveOnly())
}

func (c *Coordinator) ListSpots(ctx context.Context, filter SpotFilter) ([]*Spot, error) {
	return c.spots.List(ctx, filter)
}

func (c *Coordinator) GetSpot(ctx context.Context, spotID string) (*Spot, error) {
	return c.spots.Get(ctx, spotID)
}

func (c *Coordinator) ListSessions(ctx context.Context, filter SessionFilter) ([]*Session, error) {
	return c.sessions.List(ctx, filter)
}

func (c *Coordinator) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return c.sessions.Get(ctx, sessionID)
}

func (c *Coordinator) GetVehicle(ctx context.Context, vehicleID string) (*Vehicle, error) {
	return c.vehicles.GetVehicle(ctx, vehicleID)
}

// SetMaintenance moves a spot into or out of maintenance. Occupied spots are
// rejected with ErrSpotOccupied.
func (c *Coordinator) SetMaintenance(ctx context.Context, spotID string, on bool) (*Spot, error) {
	spot, err := c.spots.SetMaintenance(ctx, spotID, on)
	if errors.Is(err, ErrSpotConflict) {
		return nil, fmt.Errorf("maintenance: spot %s: %w", spotID, ErrSpotOccupied)
	}
	if err != nil {
		return nil, fmt.Errorf("maintenance: %w", err)
	}
	logging.Info(ctx, "spot maintenance changed", "spot_id", spot.ID, "status", string(spot.Status))
	return spot, nil
}

func (c *Coordinator) UpdateRate(ctx context.Context, spotID string, rate Money) (*Spot, error) {
	if rate < 0 {
		return nil, fmt.Errorf("update rate: %w: %s", ErrInvalidRate, rate)
	}
	spot, err := c.spots.UpdateRate(ctx, spotID, rate)
	if err != nil {
		return nil, fmt.Errorf("update rate: %w", err)
	}
	logging.Info(ctx, "spot rate changed", "spot_id", spot.ID, "hourly_rate", rate.String())
	return spot, nil
}
