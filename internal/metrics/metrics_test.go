package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCount(t *testing.T) {
	m := New(nil)
	m.Lookup(ResultHit)
	m.Lookup(ResultHit)
	m.Lookup(ResultMiss)
	m.Load("magic")
	m.Negatives.Inc()

	if got := testutil.ToFloat64(m.Lookups.WithLabelValues(ResultHit)); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Lookups.WithLabelValues(ResultMiss)); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Loads.WithLabelValues("magic")); got != 1 {
		t.Errorf("magic loads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Negatives); got != 1 {
		t.Errorf("negatives = %v, want 1", got)
	}
}

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveLoad(time.Now())
	m.Failures.Inc()

	if got := testutil.CollectAndCount(m.LoadLatency); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Error("Gather() returned no metric families")
	}
}
