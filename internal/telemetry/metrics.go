package telemetry

import "github.com/prometheus/client_golang/prometheus"

// HTTPRequestDuration records request latency labeled by method, route, and
// status, consumed by httpserver.Metrics.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "optflow",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// Job queue (C4)
var (
	JobsEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "jobs",
			Name:      "enqueued_total",
			Help:      "Total number of job enqueue attempts, labeled by job_name and outcome (created|deduplicated).",
		},
		[]string{"job_name", "outcome"},
	)

	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "jobs",
			Name:      "completed_total",
			Help:      "Total number of job runs that reached a terminal status.",
		},
		[]string{"job_name", "status"},
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "optflow",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Job handler execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"job_name"},
	)

	LeasesReclaimedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "jobs",
			Name:      "leases_reclaimed_total",
			Help:      "Total number of processing job rows reclaimed after a lease expired.",
		},
	)
)

// Market-data quality gate (C6)
var (
	QualityGateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "quality_gate",
			Name:      "decisions_total",
			Help:      "Total number of quality gate decisions, labeled by effective_action.",
		},
		[]string{"effective_action"},
	)

	BreakerStateChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "quality_gate",
			Name:      "breaker_state_changes_total",
			Help:      "Total number of provider circuit breaker state transitions.",
		},
		[]string{"provider", "to_state"},
	)

	QuoteCacheResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "quality_gate",
			Name:      "quote_cache_results_total",
			Help:      "Total number of quote cache lookups, labeled by result (hit|miss|error).",
		},
		[]string{"result"},
	)
)

// Suggestion generator (C7) / inbox (C8)
var (
	SuggestionsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "suggestions",
			Name:      "generated_total",
			Help:      "Total number of suggestions persisted, labeled by window and status.",
		},
		[]string{"window", "status"},
	)

	SuggestionsStagedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "suggestions",
			Name:      "staged_total",
			Help:      "Total number of suggestions transitioned EXECUTABLE to STAGED.",
		},
	)
)

// Historical validation / autotune (C9 / C10)
var (
	HistoricalRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "validation",
			Name:      "historical_runs_total",
			Help:      "Total number of historical validation runs, labeled by passed.",
		},
		[]string{"passed"},
	)

	AutotuneStreakGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "optflow",
			Subsystem: "validation",
			Name:      "autotune_streak",
			Help:      "Current consecutive-pass streak of the autotune loop per user.",
		},
		[]string{"user_id"},
	)
)

// Go-live readiness (C11) / observability (C12)
var (
	FailFastResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "golive",
			Name:      "fail_fast_resets_total",
			Help:      "Total number of fail-fast streak resets across all users.",
		},
	)

	ReadyForLiveTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "golive",
			Name:      "ready_for_live_total",
			Help:      "Total number of transitions into READY_FOR_LIVE.",
		},
	)

	IntegrityViolationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "optflow",
			Subsystem: "audit",
			Name:      "integrity_violations_total",
			Help:      "Total number of rejected cross-user access attempts.",
		},
	)
)

// All returns every optflow-specific collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		JobsEnqueuedTotal,
		JobsCompletedTotal,
		JobDuration,
		LeasesReclaimedTotal,
		QualityGateDecisionsTotal,
		BreakerStateChangesTotal,
		QuoteCacheResultsTotal,
		SuggestionsGeneratedTotal,
		SuggestionsStagedTotal,
		HistoricalRunsTotal,
		AutotuneStreakGauge,
		FailFastResetsTotal,
		ReadyForLiveTotal,
		IntegrityViolationsTotal,
	}
}
