// Package metrics records compilation events as Prometheus metrics and
// writes them in the text exposition format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/folio/internal/events"
)

const namespace = "folio"

// Sink is an events.Sink backed by its own Prometheus registry.
type Sink struct {
	registry *prometheus.Registry

	stageDuration  *prometheus.HistogramVec
	stageFailures  *prometheus.CounterVec
	ruleDuration   *prometheus.HistogramVec
	filterDuration *prometheus.HistogramVec
	repsCompiled   *prometheus.CounterVec
	suspensions    prometheus.Counter
	cacheWrites    prometheus.Counter
}

var _ events.Sink = (*Sink)(nil)

// New returns a sink with every metric registered.
func New() *Sink {
	s := &Sink{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each compilation stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Number of failed compilation stages.",
		}, []string{"stage"}),
		ruleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outdatedness_rule_duration_seconds",
			Help:      "Duration of outdatedness rule evaluations.",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 10, 6),
		}, []string{"rule"}),
		filterDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "filter_duration_seconds",
			Help:      "Duration of filter invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"filter"}),
		repsCompiled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reps_total",
			Help:      "Number of reps compiled or restored from the cache.",
		}, []string{"source"}),
		suspensions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rep_suspensions_total",
			Help:      "Number of times a rep waited for another rep's content.",
		}),
		cacheWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Number of compiled-content cache entries written.",
		}),
	}
	s.registry.MustRegister(
		s.stageDuration,
		s.stageFailures,
		s.ruleDuration,
		s.filterDuration,
		s.repsCompiled,
		s.suspensions,
		s.cacheWrites,
	)
	return s
}

// Registry returns the registry holding the sink's metrics.
func (s *Sink) Registry() *prometheus.Registry { return s.registry }

// WriteFile writes every metric to path in the text exposition format,
// for the node exporter's textfile collector.
func (s *Sink) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, s.registry)
}

func (s *Sink) StageStarted(string) {}

func (s *Sink) StageFinished(stage string, d time.Duration, err error) {
	s.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		s.stageFailures.WithLabelValues(stage).Inc()
	}
}

func (s *Sink) OutdatednessRuleEvaluated(rule string, d time.Duration) {
	s.ruleDuration.WithLabelValues(rule).Observe(d.Seconds())
}

func (s *Sink) FilterRan(filter, _ string, d time.Duration) {
	s.filterDuration.WithLabelValues(filter).Observe(d.Seconds())
}

func (s *Sink) RepCompiled(_ string, fromCache bool) {
	source := "compiled"
	if fromCache {
		source = "cache"
	}
	s.repsCompiled.WithLabelValues(source).Inc()
}

func (s *Sink) RepSuspended(string, string, string) { s.suspensions.Inc() }

func (s *Sink) CacheWritten(string) { s.cacheWrites.Inc() }
