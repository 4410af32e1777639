package parking

import (
	"context"
	"time"
)

// SpotRegistry holds the authoritative status of every spot. The coordinator
// is its only writer.
type SpotRegistry interface {
	Get(ctx context.Context, spotID string) (*Spot, error)
	List(ctx context.Context, filter SpotFilter) ([]*Spot, error)
	// TrySetOccupied moves an available spot to occupied. It returns
	// ErrSpotConflict for any other current status and is linearizable per spot.
	TrySetOccupied(ctx context.Context, spotID string) (*Spot, error)
	// Release moves an occupied spot back to available, or fails with
	// ErrSpotNotOccupied.
	Release(ctx context.Context, spotID string) (*Spot, error)
	// SetMaintenance toggles available and maintenance. An occupied spot
	// fails with ErrSpotConflict.
	SetMaintenance(ctx context.Context, spotID string, on bool) (*Spot, error)
	UpdateRate(ctx context.Context, spotID string, rate Money) (*Spot, error)
}

// SpotProvisioner adds static spot definitions at facility setup.
type SpotProvisioner interface {
	ProvisionSpot(ctx context.Context, spot Spot) (*Spot, error)
}

// SessionLedger stores open and closed sessions. Sessions are never deleted.
type SessionLedger interface {
	// CreateOpen fails with ErrVehicleSessionExists or ErrSpotSessionExists
	// when an open session already holds either key.
	CreateOpen(ctx context.Context, vehicleID, spotID string, entry time.Time, rate Money) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	GetOpenByVehicle(ctx context.Context, vehicleID string) (*Session, error)
	GetOpenBySpot(ctx context.Context, spotID string) (*Session, error)
	// CloseWithBilling sets exit time and totals once. A second call fails with
	// ErrAlreadyClosed.
	CloseWithBilling(ctx context.Context, sessionID string, exit time.Time, bill Bill) (*Session, error)
	// List returns sessions ordered by entry time ascending.
	List(ctx context.Context, filter SessionFilter) ([]*Session, error)
}

// VehicleDirectory is the read side of the vehicle registry.
type VehicleDirectory interface {
	GetVehicle(ctx context.Context, vehicleID string) (*Vehicle, error)
	GetVehicleByPlate(ctx context.Context, plate string) (*Vehicle, error)
	// ListVehicles returns every registered vehicle ordered by plate.
	ListVehicles(ctx context.Context) ([]*Vehicle, error)
}

type VehicleRegistrar interface {
	RegisterVehicle(ctx context.Context, v Vehicle) (*Vehicle, error)
}

// BillingClosedEvent is emitted once per closed session.
type BillingClosedEvent struct {
	SessionID string
	VehicleID string
	SpotID    string
	Amount    Money
	Hours     Hours
	ClosedAt  time.Time
}

// BillingSink receives billing-closed events. Delivery is fire-and-forget
// relative to the exit that produced the event.
type BillingSink interface {
	SessionClosed(ctx context.Context, event BillingClosedEvent) error
}

// Engine is the set of operations exposed to transports.
type Engine interface {
	Enter(ctx context.Context, vehicleID, spotID string) (*Session, error)
	EnterByPlate(ctx context.Context, plate, spotID string) (*Session, error)
	Exit(ctx context.Context, sessionID string) (*Session, error)
	ExitByPlate(ctx context.Context, plate string) (*Session, error)
	ListAvailableSpots(ctx context.Context) ([]*Spot, error)
	ListActiveSessions(ctx context.Context) ([]*Session, error)
	ListSpots(ctx context.Context, filter SpotFilter) ([]*Spot, error)
	GetSpot(ctx context.Context, spotID string) (*Spot, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	GetVehicle(ctx context.Context, vehicleID string) (*Vehicle, error)
	SetMaintenance(ctx context.Context, spotID string, on bool) (*Spot, error)
	UpdateRate(ctx context.Context, spotID string, rate Money) (*Spot, error)
	CheckIntegrity(ctx context.Context) (*IntegrityReport, error)
}
