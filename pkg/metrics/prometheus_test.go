package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordRecommendation("model")
	r.RecordRecommendation("model")
	r.RecordRecommendation("fallback")
	r.RecordEdgeCase("new_user")
	r.RecordCacheLookup(true)
	r.RecordCacheLookup(false)
	r.RecordCacheLookup(false)
	r.RecordTraining("linear_regression", "deployed")
	r.RecordModelRMSE("linear_regression", 12.5)
	r.RecordAnalyticsFailure("recorder")
	r.RecordLatency("recommend", 0.02)

	if got := testutil.ToFloat64(r.recommendations.WithLabelValues("model")); got != 2 {
		t.Fatalf("model recommendations = %v", got)
	}
	if got := testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")); got != 2 {
		t.Fatalf("cache misses = %v", got)
	}
	if got := testutil.ToFloat64(r.modelRMSE.WithLabelValues("linear_regression")); got != 12.5 {
		t.Fatalf("rmse = %v", got)
	}
	if got := testutil.ToFloat64(r.trainingRuns.WithLabelValues("linear_regression", "deployed")); got != 1 {
		t.Fatalf("training runs = %v", got)
	}
	if n := testutil.CollectAndCount(r.latency); n != 1 {
		t.Fatalf("want 1 latency series, got %d", n)
	}
}

func TestRecorderSeparateRegistries(t *testing.T) {
	a, b := New(prometheus.NewRegistry()), New(prometheus.NewRegistry())
	a.RecordEdgeCase("overtrained")
	if got := testutil.ToFloat64(b.edgeCases.WithLabelValues("overtrained")); got != 0 {
		t.Fatalf("registries should not share state, got %v", got)
	}
}
