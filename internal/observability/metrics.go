package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus series exported by medstock.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	stockChanges    *prometheus.CounterVec
	stockRejections *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
	ledgerDrift     prometheus.Gauge
}

// NewMetrics initialises the registry and every series.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medstock_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medstock_http_request_duration_seconds",
		Help:    "HTTP request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	changes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medstock_stock_changes_total",
		Help: "Ledger transactions written, by type.",
	}, []string{"type"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medstock_stock_rejections_total",
		Help: "Stock changes refused before reaching the ledger, by reason.",
	}, []string{"reason"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medstock_jobs_total",
		Help: "Background task runs by task and status.",
	}, []string{"task", "status"})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medstock_ledger_drift_medicines",
		Help: "Medicines whose quantity disagreed with the ledger at the last audit.",
	})
	registry.MustRegister(requests, duration, changes, rejections, jobs, drift)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		stockChanges:    changes,
		stockRejections: rejections,
		jobsTotal:       jobs,
		ledgerDrift:     drift,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records count and latency for every request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// StockChanged counts a committed ledger transaction.
func (m *Metrics) StockChanged(txType string) {
	if m == nil {
		return
	}
	m.stockChanges.WithLabelValues(txType).Inc()
}

// StockRejected counts a refused stock change.
func (m *Metrics) StockRejected(reason string) {
	if m == nil {
		return
	}
	m.stockRejections.WithLabelValues(reason).Inc()
}

// JobFinished counts a background task run.
func (m *Metrics) JobFinished(task string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.jobsTotal.WithLabelValues(task, status).Inc()
}

// SetLedgerDrift records the result of the last ledger audit.
func (m *Metrics) SetLedgerDrift(n int) {
	if m == nil {
		return
	}
	m.ledgerDrift.Set(float64(n))
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
