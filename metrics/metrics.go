// Package metrics exposes Prometheus instrumentation for the matching engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RulesCompiled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_rules_compiled_total",
			Help: "Total number of rules successfully compiled",
		},
		[]string{"type"},
	)

	RuleCompileFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_rule_compile_failures_total",
			Help: "Total number of rules rejected at compile time",
		},
		[]string{"reason"},
	)

	PrefilterRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loglens_prefilter_rejections_total",
			Help: "Total number of lines rejected by pattern prefilters",
		},
	)

	RegexTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_regex_timeouts_total",
			Help: "Total number of pattern evaluations abandoned on timeout",
		},
		[]string{"pattern"},
	)

	RegexExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loglens_regex_execution_duration_seconds",
			Help:    "Time spent in full pattern evaluation",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	CandidatesProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_candidates_produced_total",
			Help: "Total number of match candidates produced per engine",
		},
		[]string{"engine"},
	)

	MatchesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_matches_emitted_total",
			Help: "Total number of final matches emitted",
		},
		[]string{"severity"},
	)

	MatchSessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loglens_match_session_duration_seconds",
			Help:    "End-to-end duration of a match session",
			Buckets: prometheus.DefBuckets,
		},
	)

	PatternCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loglens_pattern_cache_hits_total",
			Help: "Total number of compiled pattern cache hits",
		},
	)

	PatternCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loglens_pattern_cache_misses_total",
			Help: "Total number of compiled pattern cache misses",
		},
	)

	WorkerPoolActiveWorkers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loglens_worker_pool_active_workers",
			Help: "Number of active workers in a pool",
		},
		[]string{"pool"},
	)

	WorkerPoolQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loglens_worker_pool_queue_size",
			Help: "Current task queue depth of a pool",
		},
		[]string{"pool"},
	)

	WorkerPoolTasksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loglens_worker_pool_tasks_processed_total",
			Help: "Total number of tasks processed by a pool",
		},
		[]string{"pool"},
	)
)
