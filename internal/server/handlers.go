package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"parking-facility/internal/parking"
	"parking-facility/internal/recorder"
)

// VehicleStore looks up and registers vehicles.
type VehicleStore interface {
	parking.VehicleDirectory
	parking.VehicleRegistrar
}

// TransactionLister returns recorded transactions newest first.
type TransactionLister interface {
	List(ctx context.Context) ([]*recorder.Transaction, error)
}

type Handler struct {
	engine       parking.Engine
	vehicles     VehicleStore
	transactions TransactionLister
	serviceName  string
}

func NewHandler(deps Dependencies) *Handler {
	name := deps.ServiceName
	if name == "" {
		name = "parking-facility"
	}
	return &Handler{
		engine:       deps.Engine,
		vehicles:     deps.Vehicles,
		transactions: deps.Transactions,
		serviceName:  name,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) ListSpots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := parking.SpotFilter{
		Status: parking.SpotStatus(r.URL.Query().Get("status")),
		Type:   parking.SpotType(r.URL.Query().Get("type")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		WriteError(ctx, w, http.StatusBadRequest, "invalid_request", "Unknown spot status")
		return
	}
	if filter.Type != "" && !filter.Type.Valid() {
		WriteError(ctx, w, http.StatusBadRequest, "invalid_request", "Unknown spot type")
		return
	}

	spots, err := h.engine.ListSpots(ctx, filter)
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteSuccess(ctx, w, "Spots retrieved successfully", spots)
}

func (h *Handler) ListAvailableSpots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	spots, err := h.engine.ListAvailableSpots(ctx)
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteSuccess(ctx, w, "Available spots retrieved successfully", spots)
}

func (h *Handler) GetSpot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	spot, err := h.engine.GetSpot(ctx, chi.URLParam(r, "id"))
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteSuccess(ctx, w, "Spot retrieved successfully", spot)
}

func (h *Handler) SetMaintenance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MaintenanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Maintenance == nil {
		WriteError(ctx, w, http.StatusBadRequest, "invalid_request", "maintenance is required")
		return
	}

	spot, err := h.engine.SetMaintenance(ctx, chi.URLParam(r, "id"), *req.Maintenance)
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteSuccess(ctx, w, "Spot status updated", spot)
}

func (h *Handler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.HourlyRate == nil {
		WriteError(ctx, w, http.StatusBadRequest, "invalid_request", "hourly_rate is required")
		return
	}

	spot, err := h.engine.UpdateRate(ctx, chi.URLParam(r, "id"), *req.HourlyRate)
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteSuccess(ctx, w, "Spot rate updated", spot)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SpotID == "" || (req.VehicleID == "" && req.LicensePlate == "") {
		WriteError(ctx, w, http.StatusBadRequest, "invalid_request", "spot_id and vehicle_id or license_plate are required")
		return
	}

	var (
		session *parking.Session
		err     error
	)
	if req.VehicleID != "" {
		session, err = h.engine.Enter(ctx, req.VehicleID, req.SpotID)
	} else {
		session, err = h.engine.EnterByPlate(ctx, req.LicensePlate, req.SpotID)
	}
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteCreated(ctx, w, "Parking session started", session)
}

func (h *Handler) ExitSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.engine.Exit(ctx, chi.URLParam(r, "id"))
	h.writeExit(ctx, w, session, err)
}

func (h *Handler) ExitByPlate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ExitByPlateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.LicensePlate) == "" {
		WriteError(ctx, w, http.StatusBadRequest, "invalid_request", "license_plate is required")
		return
	}

	session, err := h.engine.ExitByPlate(ctx, req.LicensePlate)
	h.writeExit(ctx, w, session, err)
}

// writeExit reports a closed session. A release fault after the close still
// returns the billed session alongside the error.
func (h *Handler) writeExit(ctx context.Context, w http.ResponseWriter, session *parking.Session, err error) {
	if err != nil {
		var data any
		if session != nil {
			data = session
		}
		WriteEngineError(ctx, w, err, data)
		return
	}
	WriteSuccess(ctx, w, "Parking session ended", session)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := parking.SessionFilter{
		VehicleID: query.Get("vehicle_id"),
		SpotID:    query.Get("spot_id"),
	}
	if raw := query.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(ctx, w, http.StatusBadRequest, "invalid_request", "active must be true or false")
			return
		}
		filter.Active = &active
	}

	sessions, err := h.engine.ListSessions(ctx, filter)
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteSuccess(ctx, w, "Sessions retrieved successfully", sessions)
}

func (h *Handler) ListActiveSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessions, err := h.engine.ListActiveSessions(ctx)
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteSuccess(ctx, w, "Active sessions retrieved successfully", sessions)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.engine.GetSession(ctx, chi.URLParam(r, "id"))
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteSuccess(ctx, w, "Session retrieved successfully", session)
}

func (h *Handler) RegisterVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterVehicleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LicensePlate == "" {
		WriteError(ctx, w, http.StatusBadRequest, "invalid_request", "license_plate is required")
		return
	}
	if req.Type != "" && !req.Type.Valid() {
		WriteError(ctx, w, http.StatusBadRequest, "invalid_request", "Unknown vehicle type")
		return
	}

	vehicle, err := h.vehicles.RegisterVehicle(ctx, parking.Vehicle{
		LicensePlate: req.LicensePlate,
		Model:        req.Model,
		Color:        req.Color,
		Type:         req.Type,
		OwnerName:    req.OwnerName,
		OwnerPhone:   req.OwnerPhone,
	})
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteCreated(ctx, w, "Vehicle registered", vehicle)
}

func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vehicle, err := h.engine.GetVehicle(ctx, chi.URLParam(r, "id"))
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteSuccess(ctx, w, "Vehicle retrieved successfully", vehicle)
}

func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vehicles, err := h.vehicles.ListVehicles(ctx)
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	if vehicles == nil {
		vehicles = []*parking.Vehicle{}
	}
	WriteSuccess(ctx, w, "Vehicles retrieved successfully", vehicles)
}

func (h *Handler) GetVehicleByPlate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vehicle, err := h.vehicles.GetVehicleByPlate(ctx, chi.URLParam(r, "plate"))
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteSuccess(ctx, w, "Vehicle retrieved successfully", vehicle)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txs, err := h.transactions.List(ctx)
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}
	WriteSuccess(ctx, w, "Transactions retrieved successfully", txs)
}

// CheckIntegrity answers 200 with the report; faults are data, not a failed request.
func (h *Handler) CheckIntegrity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.engine.CheckIntegrity(ctx)
	if err != nil {
		WriteEngineError(ctx, w, err, nil)
		return
	}

	message := "No integrity faults"
	if !report.Healthy() {
		message = strconv.Itoa(len(report.Faults)) + " integrity faults found"
	}
	WriteSuccess(ctx, w, message, report)
}

// decodeBody writes a 400 and returns false when the body is not valid JSON.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, parking.ErrInvalidRate) {
			WriteEngineError(r.Context(), w, err, nil)
			return false
		}
		WriteError(r.Context(), w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return true
}
