package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vietddude/authguard/internal/core/domain"
)

var (
	// ErrorsClassified tracks raw errors by classification kind
	ErrorsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authguard_errors_classified_total",
			Help: "Total number of raw wallet errors classified",
		},
		[]string{"kind"},
	)

	// Recoveries tracks strategy invocations
	Recoveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authguard_recoveries_total",
			Help: "Total number of recovery strategy invocations",
		},
		[]string{"kind", "disconnected"},
	)

	// GuardReports tracks intercepted raw error reports by outcome
	GuardReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authguard_guard_reports_total",
			Help: "Total number of raw error reports intercepted by the guard",
		},
		[]string{"outcome"},
	)

	// CleanupRuns tracks persisted-key cleanup stages
	CleanupRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authguard_cleanup_runs_total",
			Help: "Total number of cleanup stage executions",
		},
		[]string{"stage", "result"},
	)

	// CleanupQueueDepth tracks operations waiting on the cleanup lock
	CleanupQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authguard_cleanup_queue_depth",
			Help: "Number of cleanup operations waiting for the lock",
		},
	)

	// StateDrift tracks aborted sign-in flows per checkpoint
	StateDrift = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authguard_state_drift_total",
			Help: "Total number of sign-in flows aborted by wallet state drift",
		},
		[]string{"checkpoint"},
	)

	// Notifications tracks user-visible notifications
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authguard_notifications_total",
			Help: "Total number of user notifications shown",
		},
		[]string{"type"},
	)

	// ConnectionSequence tracks the connection state sequence number
	ConnectionSequence = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authguard_connection_sequence",
			Help: "Current wallet connection sequence number",
		},
	)
)

// Every kind is exported from startup, so rate queries see zero instead of no series.
func init() {
	for _, kind := range domain.ErrorKinds {
		ErrorsClassified.WithLabelValues(string(kind))
		Recoveries.WithLabelValues(string(kind), BoolLabel(false))
		Recoveries.WithLabelValues(string(kind), BoolLabel(true))
	}
}

// BoolLabel renders a bool as a metric label value.
func BoolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
