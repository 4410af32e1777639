package parking

import (
	"errors"
	"fmt"
)

// Client errors. The engine never retries these; the caller must correct the request.
var (
	ErrVehicleNotFound = errors.New("parking: vehicle not found")
	ErrAlreadyParked   = errors.New("parking: vehicle already has an open session")
	ErrSpotUnavailable = errors.New("parking: spot unavailable")
	ErrSessionNotFound = errors.New("parking: session not found")
	ErrAlreadyClosed   = errors.New("parking: session already closed")
	ErrInvalidInterval = errors.New("parking: exit time before entry time")
	ErrSpotOccupied    = errors.New("parking: spot is occupied")
	ErrInvalidRate     = errors.New("parking: invalid hourly rate")
)

// Store errors returned by SpotRegistry, SessionLedger and VehicleDirectory.
var (
	ErrSpotNotFound         = errors.New("parking: spot not found")
	ErrSpotConflict         = errors.New("parking: spot status changed concurrently")
	ErrSpotNotOccupied      = errors.New("parking: spot is not occupied")
	ErrVehicleSessionExists = errors.New("parking: open session exists for vehicle")
	ErrSpotSessionExists    = errors.New("parking: open session exists for spot")
	ErrDuplicateSpot        = errors.New("parking: spot already provisioned")
	ErrDuplicatePlate       = errors.New("parking: license plate already registered")
	ErrInvalidVehicle       = errors.New("parking: invalid vehicle")
)

// IntegrityError reports a broken invariant between the Spot Registry and the
// Session Ledger. It is never retried or repaired automatically.
type IntegrityError struct {
	Op        string
	SpotID    string
	SessionID string
	Err       error
}

func (e *IntegrityError) Error() string {
	msg := fmt.Sprintf("parking: integrity fault during %s", e.Op)
	if e.SpotID != "" {
		msg += " spot=" + e.SpotID
	}
	if e.SessionID != "" {
		msg += " session=" + e.SessionID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// IsIntegrityFault reports whether err carries an IntegrityError.
func IsIntegrityFault(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// IsInvalidState reports whether a close was rejected because the session is
// missing or no longer open.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrAlreadyClosed)
}

// IsClientError reports whether err is caused by the request rather than the engine.
func IsClientError(err error) bool {
	if IsIntegrityFault(err) {
		return false
	}
	return errors.Is(err, ErrVehicleNotFound) ||
		errors.Is(err, ErrAlreadyParked) ||
		errors.Is(err, ErrSpotUnavailable) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrAlreadyClosed) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrSpotOccupied) ||
		errors.Is(err, ErrSpotNotFound) ||
		errors.Is(err, ErrInvalidRate) ||
		errors.Is(err, ErrInvalidVehicle)
}

// ErrorCode returns a stable machine-readable code for err.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case IsIntegrityFault(err):
		return "integrity_fault"
	case errors.Is(err, ErrVehicleNotFound):
		return "vehicle_not_found"
	case errors.Is(err, ErrAlreadyParked):
		return "already_parked"
	case errors.Is(err, ErrSpotUnavailable):
		return "spot_unavailable"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrAlreadyClosed):
		return "already_closed"
	case errors.Is(err, ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, ErrSpotOccupied):
		return "spot_occupied"
	case errors.Is(err, ErrSpotNotFound):
		return "spot_not_found"
	case errors.Is(err, ErrInvalidRate):
		return "invalid_rate"
	case errors.Is(err, ErrDuplicatePlate):
		return "duplicate_plate"
	case errors.Is(err, ErrDuplicateSpot):
		return "duplicate_spot"
	case errors.Is(err, ErrInvalidVehicle):
		return "invalid_vehicle"
	}
	return "internal_error"
}
