package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"parking-facility/internal/logging"
	"parking-facility/internal/parking"
)

const collectTimeout = 2 * time.Second

// NewRegistry returns a registry with runtime collectors and live occupancy
// gauges read from engine on every scrape.
func NewRegistry(engine parking.Engine) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if engine != nil {
		reg.MustRegister(newOccupancyCollector(engine))
	}
	return reg
}

type occupancyCollector struct {
	engine         parking.Engine
	spots          *prometheus.Desc
	activeSessions *prometheus.Desc
}

func newOccupancyCollector(engine parking.Engine) *occupancyCollector {
	return &occupancyCollector{
		engine: engine,
		spots: prometheus.NewDesc("parking_spots",
			"Number of spots by status.", []string{"status"}, nil),
		activeSessions: prometheus.NewDesc("parking_active_sessions",
			"Number of open parking sessions.", nil, nil),
	}
}

func (c *occupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.spots
	ch <- c.activeSessions
}

func (c *occupancyCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	spots, err := c.engine.ListSpots(ctx, parking.SpotFilter{})
	if err != nil {
		logging.Warn(ctx, "collect spot occupancy", "error", err)
		return
	}
	counts := map[parking.SpotStatus]int{
		parking.SpotAvailable:   0,
		parking.SpotOccupied:    0,
		parking.SpotMaintenance: 0,
	}
	for _, s := range spots {
		counts[s.Status]++
	}
	for status, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.spots, prometheus.GaugeValue, float64(n), string(status))
	}

	sessions, err := c.engine.ListSessions(ctx, parking.ActiveOnly())
	if err != nil {
		logging.Warn(ctx, "collect active sessions", "error", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.activeSessions, prometheus.GaugeValue, float64(len(sessions)))
}

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

func (m *httpMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
