// Package metrics provides Prometheus metrics for the site coordinator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sitecoord"

// Log store metrics
var (
	// EntriesRecordedTotal counts appended log entries by kind.
	EntriesRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logstore",
			Name:      "entries_recorded_total",
			Help:      "Total log entries appended to the store",
		},
		[]string{"kind"},
	)
)

// Weather poller metrics
var (
	WeatherPollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "weather",
			Name:      "polls_total",
			Help:      "Total successful weather poll cycles",
		},
	)

	WeatherPollFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "weather",
			Name:      "poll_failures_total",
			Help:      "Total weather poll cycles that failed to fetch",
		},
	)

	// AlertsEmittedTotal counts edge-triggered alerts by kind.
	AlertsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "alerts_emitted_total",
			Help:      "Total alerts emitted on threshold breach",
		},
		[]string{"kind"},
	)

	// AlertsSuppressedTotal counts repeat breaches dropped while a
	// condition stays active.
	AlertsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerting",
			Name:      "alerts_suppressed_total",
			Help:      "Total repeat breaches suppressed while a condition was active",
		},
		[]string{"kind"},
	)
)

// Dispatcher metrics
var (
	DispatchAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "attempts_total",
			Help:      "Total delivery attempts including retries",
		},
	)

	DispatchDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "dropped_total",
			Help:      "Total messages dropped after exhausting retries or on a full queue",
		},
	)
)

// Report compiler metrics
var (
	// ReportCompilesTotal counts compilations by outcome
	// (ok, degraded, failed, rejected).
	ReportCompilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "compiles_total",
			Help:      "Total report compilations by outcome",
		},
		[]string{"outcome"},
	)

	ReportCompileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "compile_duration_seconds",
			Help:      "Report compilation latency in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

// AI collaborator metrics
var (
	// AICallsTotal counts AI requests by operation and status
	// (ok, unavailable, rate_limited).
	AICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "calls_total",
			Help:      "Total AI collaborator calls by operation and status",
		},
		[]string{"op", "status"},
	)
)

// Scheduler metrics
var (
	SchedulerJobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total scheduled job executions by job name",
		},
		[]string{"job"},
	)
)
