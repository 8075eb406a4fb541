package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobsCreatedTotal, jobsFinishedTotal, jobsInFlight, jobDurationSeconds)
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

var jobsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_created_total",
		Help: "Total number of jobs created, labeled by kind.",
	},
	[]string{"kind"},
)

var jobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "jobs_finished_total",
		Help: "Total number of jobs reaching a terminal state, labeled by kind and status.",
	},
	[]string{"kind", "status"}, // 'completed', 'failed', 'cancelled'
)

var jobsInFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "jobs_in_flight",
		Help: "Number of jobs currently processing.",
	},
)

var jobDurationSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Wall-clock pipeline duration of finished jobs.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	},
	[]string{"kind"},
)

func IncJobCreated(kind string) {
	jobsCreatedTotal.WithLabelValues(norm(kind)).Inc()
}

func JobStarted() { jobsInFlight.Inc() }

func JobFinished(kind, status string, seconds float64) {
	jobsInFlight.Dec()
	jobsFinishedTotal.WithLabelValues(norm(kind), norm(status)).Inc()
	if seconds > 0 {
		jobDurationSeconds.WithLabelValues(norm(kind)).Observe(seconds)
	}
}

// JobCancelled records a cancellation. The in-flight gauge only moves when
// the job had actually started; a cancel from pending never incremented it.
func JobCancelled(kind string, wasProcessing bool) {
	if wasProcessing {
		jobsInFlight.Dec()
	}
	jobsFinishedTotal.WithLabelValues(norm(kind), "cancelled").Inc()
}
