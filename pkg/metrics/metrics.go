package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	TasksQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drey_worker_tasks_queued",
			Help: "Number of tasks waiting in the worker queue",
		},
	)

	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drey_worker_tasks_total",
			Help: "Total number of tasks in the worker database by state",
		},
		[]string{"state"},
	)

	TaskRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drey_worker_task_runs_total",
			Help: "Reconciliation steps executed by the worker, by outcome",
		},
		[]string{"outcome"},
	)

	// Manager metrics
	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drey_manager_dispatches_total",
			Help: "Task events dispatched to workers, by outcome",
		},
		[]string{"outcome"},
	)

	PendingEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drey_manager_pending_events",
			Help: "Task events awaiting dispatch",
		},
	)

	ReconcileCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drey_manager_reconcile_cycles_total",
			Help: "Completed manager reconciliation cycles",
		},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drey_manager_reconcile_duration_seconds",
			Help:    "Duration of manager reconciliation cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drey_api_requests_total",
			Help: "HTTP API requests by method, path and status",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		TasksQueued,
		TasksTotal,
		TaskRunsTotal,
		DispatchesTotal,
		PendingEvents,
		ReconcileCyclesTotal,
		ReconcileDuration,
		APIRequestsTotal,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures a duration from its creation.
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time on the given histogram.
func (t *Timer) ObserveDuration(h prometheus.Histogram) {
	h.Observe(time.Since(t.start).Seconds())
}
