package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamenet_sessions_started_total",
			Help: "Sessions started, by device type",
		},
		[]string{"device_type"},
	)

	SessionsStopped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamenet_sessions_stopped_total",
			Help: "Sessions stopped, by device type",
		},
		[]string{"device_type"},
	)

	SessionRevenue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamenet_session_revenue_total",
			Help: "Device revenue charged at session stop, by device type",
		},
		[]string{"device_type"},
	)

	SessionActiveSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gamenet_session_active_seconds",
			Help:    "Active (unpaused) session duration at stop",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800},
		},
	)

	SalesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gamenet_sales_recorded_total",
			Help: "Buffet sale line items recorded",
		},
	)

	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamenet_job_runs_total",
			Help: "Background job runs, by job and status",
		},
		[]string{"job", "status"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamenet_job_duration_seconds",
			Help:    "Background job duration, by job",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsStarted,
		SessionsStopped,
		SessionRevenue,
		SessionActiveSeconds,
		SalesRecorded,
		JobRuns,
		JobDuration,
	)
}
