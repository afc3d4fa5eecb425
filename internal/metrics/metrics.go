// Package metrics exports Prometheus metrics for the file diff cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Lookup results recorded by Metrics.Lookup.
const (
	ResultHit      = "hit"
	ResultStoreHit = "store_hit"
	ResultMiss     = "miss"
)

// Metrics groups the collectors of one cache instance.
type Metrics struct {
	Lookups     *prometheus.CounterVec
	Loads       *prometheus.CounterVec
	Negatives   prometheus.Counter
	Failures    prometheus.Counter
	DroppedKeys prometheus.Counter
	LoadLatency prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filediff_cache_lookups_total",
				Help: "File diff lookups by result",
			},
			[]string{"result"},
		),
		Loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filediff_loads_total",
				Help: "Computed file diffs by kind",
			},
			[]string{"kind"},
		),
		Negatives: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filediff_negative_total",
			Help: "File diffs that timed out and were cached as negative",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filediff_failures_total",
			Help: "Requests that ended with a diff not available error",
		}),
		DroppedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filediff_dropped_keys_total",
			Help: "Keys that could not be resolved during a batch load",
		}),
		LoadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "filediff_load_latency_seconds",
			Help:    "Batch load latency",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Lookups, m.Loads, m.Negatives, m.Failures, m.DroppedKeys, m.LoadLatency)
	}
	return m
}

// Lookup counts one cache lookup.
func (m *Metrics) Lookup(result string) {
	m.Lookups.WithLabelValues(result).Inc()
}

// Load counts one computed diff of the given kind.
func (m *Metrics) Load(kind string) {
	m.Loads.WithLabelValues(kind).Inc()
}

// ObserveLoad records the duration of a batch load started at start.
func (m *Metrics) ObserveLoad(start time.Time) {
	m.LoadLatency.Observe(time.Since(start).Seconds())
}
