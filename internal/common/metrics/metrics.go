// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	SearchStageAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "venue_search_stage_attempts_total",
			Help: "Place search calls per fallback stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	CollaboratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_failures_total",
			Help: "Collaborator failures absorbed by a fallback",
		},
		[]string{"collaborator", "code"},
	)

	FairPointMethods = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fair_point_method_total",
			Help: "Fair point computations by method",
		},
		[]string{"method"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	GeocodeCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_cache_lookups_total",
			Help: "Geocode cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordCollaboratorFailure counts one absorbed collaborator failure.
func RecordCollaboratorFailure(collaborator, code string) {
	CollaboratorFailures.WithLabelValues(collaborator, code).Inc()
}
