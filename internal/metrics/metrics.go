package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Placement sessions created, by subject
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_sessions_started_total",
			Help: "Total number of placement sessions started",
		},
		[]string{"subject"},
	)

	SessionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_sessions_completed_total",
			Help: "Total number of placement sessions completed",
		},
		[]string{"subject", "level"},
	)

	AnswersSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_answers_submitted_total",
			Help: "Total number of answers submitted",
		},
		[]string{"result"}, // correct/incorrect
	)

	// Selections that had to leave the difficulty band
	SelectionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_selection_fallbacks_total",
			Help: "Question selections that fell back outside the target difficulty band",
		},
		[]string{"subject", "kind"}, // kind: any_difficulty/repeat
	)

	EngineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_engine_errors_total",
			Help: "Engine operation failures by operation and error class",
		},
		[]string{"operation", "class"},
	)

	ProfileSyncFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placement_profile_sync_failures_total",
			Help: "Completed sessions whose result could not be applied to the user profile",
		},
	)

	UsageRecordFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "placement_usage_record_failures_total",
			Help: "Best-effort question usage updates that failed",
		},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placement_operation_duration_seconds",
			Help:    "Time spent in placement engine operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)
