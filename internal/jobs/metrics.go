// Package jobmetrics holds the Prometheus collectors shared by every
// background task.
package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Metrics counts task runs, their duration and the records they touched.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	items       *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
}

var (
	sharedOnce sync.Once
	shared     *Metrics
)

// NewMetrics registers the collectors on registerer. A nil registerer
// selects the process-wide default, registered at most once.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	sharedOnce.Do(func() { shared = register(prometheus.DefaultRegisterer) })
	return shared
}

func register(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truckops_jobs_total",
			Help: "Background task runs by task type and outcome.",
		}, []string{"job", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truckops_jobs_failures_total",
			Help: "Background task runs that returned an error.",
		}, []string{"job"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "truckops_job_duration_seconds",
			Help:    "Wall time of background task runs.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"job"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truckops_job_items_total",
			Help: "Wage rows, customers or keys processed by background tasks.",
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "truckops_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per task type.",
		}, []string{"job"}),
	}
	registerer.MustRegister(m.runs, m.failures, m.duration, m.items, m.lastSuccess)
	return m
}

// Run is one in-flight task execution.
type Run struct {
	metrics *Metrics
	job     string
	started time.Time
}

// Track starts timing a run of job.
func (m *Metrics) Track(job string) *Run {
	return &Run{metrics: m, job: job, started: time.Now()}
}

// End records the outcome of the run and hands err back unchanged so a
// handler can `return run.End(err)`.
func (r *Run) End(err error) error {
	if r == nil || r.metrics == nil || r.job == "" {
		return err
	}
	m := r.metrics
	m.duration.WithLabelValues(r.job).Observe(time.Since(r.started).Seconds())
	if err != nil {
		m.failures.WithLabelValues(r.job).Inc()
		m.runs.WithLabelValues(r.job, statusFailure).Inc()
		return err
	}
	m.runs.WithLabelValues(r.job, statusSuccess).Inc()
	m.lastSuccess.WithLabelValues(r.job).SetToCurrentTime()
	return nil
}

// AddItems adds count processed records to job's total.
func (m *Metrics) AddItems(job string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.items.WithLabelValues(job).Add(float64(count))
}
