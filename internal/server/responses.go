package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"parking-facility/internal/logging"
	"parking-facility/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// CreateSessionRequest identifies the vehicle by id or by license plate.
type CreateSessionRequest struct {
	VehicleID    string `json:"vehicle_id"`
	LicensePlate string `json:"license_plate"`
	SpotID       string `json:"spot_id"`
}

type ExitByPlateRequest struct {
	LicensePlate string `json:"license_plate"`
}

type MaintenanceRequest struct {
	Maintenance *bool `json:"maintenance"`
}

type RateRequest struct {
	HourlyRate *parking.Money `json:"hourly_rate"`
}

type RegisterVehicleRequest struct {
	LicensePlate string              `json:"license_plate"`
	Model        string              `json:"model"`
	Color        string              `json:"color"`
	Type         parking.VehicleType `json:"vehicle_type"`
	OwnerName    string              `json:"owner_name"`
	OwnerPhone   string              `json:"owner_phone"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	writeSuccess(ctx, w, http.StatusOK, message, data)
}

func WriteCreated(ctx context.Context, w http.ResponseWriter, message string, data any) {
	writeSuccess(ctx, w, http.StatusCreated, message, data)
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Code:    code,
		Meta:    extractMeta(ctx),
	})
}

// WriteEngineError maps an engine error to its status and code. data is
// attached when an operation committed before the fault was detected.
func WriteEngineError(ctx context.Context, w http.ResponseWriter, err error, data any) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.Error(ctx, "request failed", "error", err, "code", parking.ErrorCode(err))
		if !parking.IsIntegrityFault(err) {
			message = "Internal server error"
		}
	}

	WriteJSON(w, status, Response{
		Success: false,
		Data:    data,
		Error:   message,
		Code:    parking.ErrorCode(err),
		Meta:    extractMeta(ctx),
	})
}

// StatusFor returns the HTTP status for an engine error.
func StatusFor(err error) int {
	if parking.IsIntegrityFault(err) {
		return http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, parking.ErrVehicleNotFound),
		errors.Is(err, parking.ErrSessionNotFound),
		errors.Is(err, parking.ErrSpotNotFound):
		return http.StatusNotFound
	case errors.Is(err, parking.ErrAlreadyParked),
		errors.Is(err, parking.ErrSpotUnavailable),
		errors.Is(err, parking.ErrAlreadyClosed),
		errors.Is(err, parking.ErrSpotOccupied),
		errors.Is(err, parking.ErrDuplicatePlate),
		errors.Is(err, parking.ErrDuplicateSpot):
		return http.StatusConflict
	case errors.Is(err, parking.ErrInvalidRate),
		errors.Is(err, parking.ErrInvalidInterval),
		errors.Is(err, parking.ErrInvalidVehicle):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
