package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parking-facility/internal/logging"
	"parking-facility/internal/parking"
)

// Dependencies wires the HTTP surface to the engine and its stores.
type Dependencies struct {
	Engine       parking.Engine
	Vehicles     VehicleStore
	Transactions TransactionLister
	ServiceName  string
}

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewServer(port string, deps Dependencies) *Server {
	handler := NewHandler(deps)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(handler, NewRegistry(deps.Engine)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
	}
}

// NewRouter builds the chi router. Request metrics and occupancy gauges are
// registered on registry and exposed at /metrics.
func NewRouter(handler *Handler, registry *prometheus.Registry) chi.Router {
	httpMetrics := newHTTPMetrics(registry)

	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(OTelHTTP(handler.serviceName))
	r.Use(LoggingMiddleware)
	r.Use(httpMetrics.Middleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Route("/spots", func(r chi.Router) {
			r.Get("/", handler.ListSpots)
			r.Get("/available", handler.ListAvailableSpots)
			r.Get("/{id}", handler.GetSpot)
			r.Put("/{id}/maintenance", handler.SetMaintenance)
			r.Put("/{id}/rate", handler.UpdateRate)
		})
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", handler.CreateSession)
			r.Get("/", handler.ListSessions)
			r.Get("/active", handler.ListActiveSessions)
			r.Post("/exit", handler.ExitByPlate)
			r.Get("/{id}", handler.GetSession)
			r.Put("/{id}/exit", handler.ExitSession)
		})
		r.Route("/vehicles", func(r chi.Router) {
			r.Post("/", handler.RegisterVehicle)
			r.Get("/", handler.ListVehicles)
			r.Get("/plate/{plate}", handler.GetVehicleByPlate)
			r.Get("/{id}", handler.GetVehicle)
		})
		r.Get("/transactions", handler.ListTransactions)
		r.Get("/integrity", handler.CheckIntegrity)
	})

	return r
}

func (s *Server) Start() error {
	logging.Info(context.Background(), "starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
