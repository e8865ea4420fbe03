// Package metrics holds the Prometheus collectors exported by the daemon's
// /metrics endpoint. Collectors register on a package registry rather than the
// global default so tests and embedded use stay isolated.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry collects every shortforge metric.
var Registry = prometheus.NewRegistry()

var (
	providerRequests = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_provider_requests_total",
			Help: "Total generation provider calls by provider, operation, and status.",
		},
		[]string{"provider", "operation", "status"},
	)
	providerDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortforge_provider_request_duration_seconds",
			Help:    "Duration of generation provider calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"provider", "operation"},
	)
	credentialRotations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_credential_rotations_total",
			Help: "Times a retryable failure advanced to the next credential.",
		},
		[]string{"provider"},
	)
	rotationExhausted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_credential_rotation_failures_total",
			Help: "Rotations that ended without success, by reason (terminal or exhausted).",
		},
		[]string{"provider", "reason"},
	)
	jobOutcomes = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_job_outcomes_total",
			Help: "Job state transitions that end a processing run.",
		},
		[]string{"outcome"},
	)
	stageAdvances = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_stage_advances_total",
			Help: "Pipeline stage advances by target stage and payload mode.",
		},
		[]string{"stage", "mode"},
	)
	batchOutcomes = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortforge_batch_project_outcomes_total",
			Help: "Per-project outcomes of batch operations.",
		},
		[]string{"operation", "outcome"},
	)
)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveProviderCall records one provider call.
func ObserveProviderCall(provider, operation string, started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	providerRequests.WithLabelValues(provider, operation, status).Inc()
	providerDuration.WithLabelValues(provider, operation).Observe(time.Since(started).Seconds())
}

// CredentialRotated records a move to the next credential.
func CredentialRotated(provider string) {
	credentialRotations.WithLabelValues(provider).Inc()
}

// RotationFailed records a rotation that gave up.
func RotationFailed(provider, reason string) {
	rotationExhausted.WithLabelValues(provider, reason).Inc()
}

// JobOutcome records a job reaching review_pending, completed, or failed.
func JobOutcome(outcome string) {
	jobOutcomes.WithLabelValues(outcome).Inc()
}

// StageAdvanced records a successful pipeline advance.
func StageAdvanced(stage, mode string) {
	stageAdvances.WithLabelValues(stage, mode).Inc()
}

// BatchOutcome records one project's result within a batch operation.
func BatchOutcome(operation, outcome string) {
	batchOutcomes.WithLabelValues(operation, outcome).Inc()
}
