// Package metrics exports import outcomes to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/membersync/internal/core"
)

// Recorder implements core.Recorder.
type Recorder struct {
	validations    *prometheus.CounterVec
	applies        *prometheus.CounterVec
	plannedChanges *prometheus.CounterVec
	appliedChanges *prometheus.CounterVec
	rowErrors      prometheus.Counter
	validateTime   prometheus.Histogram
	applyTime      prometheus.Histogram

	gatherer prometheus.Gatherer
}

var _ core.Recorder = (*Recorder)(nil)

// New registers the import metrics on reg.
func New(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "membersync_import_validations_total",
			Help: "import validations by outcome",
		}, []string{"outcome"}),
		applies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "membersync_import_applies_total",
			Help: "import applies by outcome",
		}, []string{"outcome"}),
		plannedChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "membersync_import_planned_changes_total",
			Help: "changes planned by successful validations, by change type",
		}, []string{"type"}),
		appliedChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "membersync_import_applied_changes_total",
			Help: "changes written by successful applies, by change type",
		}, []string{"type"}),
		rowErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "membersync_import_row_errors_total",
			Help: "rows rejected during validation",
		}),
		validateTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "membersync_import_validate_duration_seconds",
			Help:    "time spent validating an import",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}),
		applyTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "membersync_import_apply_duration_seconds",
			Help:    "time spent applying an import",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		}),
		gatherer: reg,
	}
}

func (r *Recorder) ObserveValidate(outcome string, counts core.Counts, elapsed time.Duration) {
	r.validations.WithLabelValues(outcome).Inc()
	r.validateTime.Observe(elapsed.Seconds())
	if outcome != core.OutcomeOK {
		return
	}
	r.plannedChanges.WithLabelValues("create").Add(float64(counts.Created))
	r.plannedChanges.WithLabelValues("update").Add(float64(counts.Updated))
	r.plannedChanges.WithLabelValues("delete").Add(float64(counts.Deleted))
	r.plannedChanges.WithLabelValues("noop").Add(float64(counts.Noop))
	r.rowErrors.Add(float64(counts.Errors))
}

func (r *Recorder) ObserveApply(outcome string, applied core.AppliedCounts, elapsed time.Duration) {
	r.applies.WithLabelValues(outcome).Inc()
	r.applyTime.Observe(elapsed.Seconds())
	if outcome != core.OutcomeOK {
		return
	}
	r.appliedChanges.WithLabelValues("create").Add(float64(applied.Created))
	r.appliedChanges.WithLabelValues("update").Add(float64(applied.Updated))
	r.appliedChanges.WithLabelValues("delete").Add(float64(applied.Deleted))
	r.appliedChanges.WithLabelValues("noop").Add(float64(applied.Noop))
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
