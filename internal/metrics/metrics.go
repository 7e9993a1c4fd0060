// Package metrics exposes Prometheus instruments for the meeting core.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/amphitryon/backend/internal/apperr"
)

var (
	// MembershipOperationsTotal counts membership engine calls.
	// Labels: operation (create/join/leave/update/delete), status (ok/not_found/role/invalid/error)
	MembershipOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amphitryon_membership_operations_total",
			Help: "Total number of membership operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// FilterResults observes how many meetings a filter request matched.
	FilterResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "amphitryon_filter_results",
			Help:    "Number of meetings returned per filter request",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	// ChatMessagesTotal counts chat messages accepted.
	ChatMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "amphitryon_chat_messages_total",
			Help: "Total number of chat messages posted",
		},
	)

	// ChatPurgeJobsTotal counts chat purge jobs by outcome (ok/retry/dlq).
	ChatPurgeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "amphitryon_chat_purge_jobs_total",
			Help: "Chat purge jobs processed by the worker, by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordOperation records one membership operation with a status derived from err.
func RecordOperation(operation string, err error) {
	MembershipOperationsTotal.WithLabelValues(operation, Status(err)).Inc()
}

// RecordFilter records the size of a filter result.
func RecordFilter(matches int) {
	FilterResults.Observe(float64(matches))
}

// Status maps an error onto a metric label.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrRole):
		return "role"
	case apperr.IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}
