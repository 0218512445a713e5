// Package observability owns the Prometheus collectors of the tracker.
package observability

import (
	"alcyxob/exercise-tracker/internal/domain"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "exercise_tracker"

var (
	sessionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "transitions_total",
		Help:      "Session state changes requested by members, labeled by action.",
	}, []string{"action"})

	limitViolations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "limit_violations_total",
		Help:      "Stops that broke a time limit, labeled by limit kind and by who stopped the session.",
	}, []string{"kind", "source"})

	cutoverRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cutover",
		Name:      "runs_total",
		Help:      "Number of completed cutover runs.",
	})

	cutoverOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cutover",
		Name:      "outcomes_total",
		Help:      "Per-exercise cutover outcomes, labeled by status.",
	}, []string{"status"})

	cutoverDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "cutover",
		Name:      "duration_seconds",
		Help:      "Wall time of a full cutover sweep.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	archivedSeconds = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "history",
		Name:      "archived_seconds_total",
		Help:      "Exercise time moved into history records.",
	})

	eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Archived-record events handed to the broker, labeled by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		sessionTransitions,
		limitViolations,
		cutoverRuns,
		cutoverOutcomes,
		cutoverDuration,
		archivedSeconds,
		eventsPublished,
	)
}

// Limit violation sources
const (
	SourceStop    = "stop"
	SourceCutover = "cutover"
)

// RecordSessionTransition counts a start or stop that changed session state.
func RecordSessionTransition(action string) {
	sessionTransitions.WithLabelValues(action).Inc()
}

// RecordLimitViolation counts a stop that broke a limit. Non-limit errors are ignored.
func RecordLimitViolation(err error, source string) {
	kind := domain.LimitKind(err)
	if kind == "" {
		return
	}
	limitViolations.WithLabelValues(kind, source).Inc()
}

// RecordArchived adds archived time.
func RecordArchived(d time.Duration) {
	if d > 0 {
		archivedSeconds.Add(d.Seconds())
	}
}

// ObserveCutover records a finished run that took the given wall time.
func ObserveCutover(report *domain.CutoverReport, took time.Duration) {
	cutoverRuns.Inc()
	for _, status := range []domain.CutoverOutcomeStatus{domain.OutcomeArchived, domain.OutcomeSkipped, domain.OutcomeFailed} {
		cutoverOutcomes.WithLabelValues(string(status)).Add(float64(report.Count(status)))
	}
	cutoverDuration.Observe(took.Seconds())
}

// RecordEventPublish counts one publish attempt.
func RecordEventPublish(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventsPublished.WithLabelValues(result).Inc()
}
