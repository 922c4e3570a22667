package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for scheduled inventory tasks.
type Metrics struct {
	duration *prometheus.HistogramVec
	findings *prometheus.GaugeVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker times a single task run.
type Tracker struct {
	metrics *Metrics
	task    string
	start   time.Time
}

// Track starts a tracker for the given task type.
func (m *Metrics) Track(task string) *Tracker {
	return &Tracker{metrics: m, task: task, start: time.Now()}
}

// End observes the run duration labelled by outcome and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.task == "" {
		return err
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	t.metrics.duration.WithLabelValues(t.task, status).Observe(time.Since(t.start).Seconds())
	return err
}

// SetFindings publishes how many medicines a scan flagged under kind, for
// example "expiring" or "discount".
func (m *Metrics) SetFindings(task, kind string, count int) {
	if m == nil || count < 0 {
		return
	}
	m.findings.WithLabelValues(task, kind).Set(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medstock_job_duration_seconds",
		Help:    "Duration in seconds of background task runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task", "status"})
	findings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "medstock_job_findings",
		Help: "Medicines flagged by the last run of a scheduled scan.",
	}, []string{"task", "kind"})
	registerer.MustRegister(duration, findings)
	return &Metrics{duration: duration, findings: findings}
}
