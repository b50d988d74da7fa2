// Package metrics exposes scanner counters to Prometheus.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics holds all Prometheus metrics for the scan loop.
type Metrics struct {
	CyclesTotal      prometheus.Counter
	CycleDuration    prometheus.Histogram
	PairScans        *prometheus.CounterVec // labels: result=ok|fetch|bad_interval|insufficient_data|other
	AlertsFired      *prometheus.CounterVec // labels: direction
	AlertsSuppressed prometheus.Counter
	NotifyFailures   prometheus.Counter
	StoreSaveErrors  prometheus.Counter
	LastCycleUnix    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the metrics with reg. A nil reg uses a fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heikinsentinel_cycles_total",
			Help: "Completed scan cycles",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "heikinsentinel_cycle_duration_seconds",
			Help:    "Wall time of one scan over every pair",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		PairScans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heikinsentinel_pair_scans_total",
			Help: "Pair scans by result",
		}, []string{"result"}),
		AlertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heikinsentinel_alerts_fired_total",
			Help: "Alerts that passed deduplication",
		}, []string{"direction"}),
		AlertsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heikinsentinel_alerts_suppressed_total",
			Help: "Detections dropped because the level was already alerted",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heikinsentinel_notify_failures_total",
			Help: "Alerts whose delivery failed",
		}),
		StoreSaveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heikinsentinel_state_save_errors_total",
			Help: "Failed writes of the alert state",
		}),
		LastCycleUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heikinsentinel_last_cycle_timestamp_seconds",
			Help: "Unix time the last cycle finished",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.PairScans,
		m.AlertsFired,
		m.AlertsSuppressed,
		m.NotifyFailures,
		m.StoreSaveErrors,
		m.LastCycleUnix,
	)
	return m
}

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(started, finished time.Time) {
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(finished.Sub(started).Seconds())
	m.LastCycleUnix.Set(float64(finished.Unix()))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Health tracks liveness of the scan loop for /healthz.
type Health struct {
	mu        sync.RWMutex
	StartedAt time.Time
	LastCycle time.Time
	Pairs     int
	MaxAge    time.Duration // a cycle older than this marks the service degraded
}

// NewHealth returns a health tracker; maxAge of zero disables the staleness check.
func NewHealth(maxAge time.Duration) *Health {
	return &Health{StartedAt: time.Now(), MaxAge: maxAge}
}

// CycleDone marks a completed cycle.
func (h *Health) CycleDone(at time.Time, pairs int) {
	h.mu.Lock()
	h.LastCycle = at
	h.Pairs = pairs
	h.mu.Unlock()
}

// ServeHTTP handles the /healthz endpoint.
func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if h.MaxAge > 0 && (h.LastCycle.IsZero() || time.Since(h.LastCycle) > h.MaxAge) {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	lastCycle := ""
	if !h.LastCycle.IsZero() {
		lastCycle = h.LastCycle.UTC().Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(struct {
		Status    string `json:"status"`
		Uptime    string `json:"uptime"`
		LastCycle string `json:"last_cycle"`
		Pairs     int    `json:"pairs"`
	}{
		Status:    status,
		Uptime:    time.Since(h.StartedAt).Round(time.Second).String(),
		LastCycle: lastCycle,
		Pairs:     h.Pairs,
	})
}

// Server exposes /metrics and /healthz.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer creates a metrics and health server listening on addr.
func NewServer(addr string, m *Metrics, health *Health, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/healthz", health)
	return &Server{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("metrics server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
