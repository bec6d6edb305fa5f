package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/districtsched/core/metrics"
)

func TestPromSink_RecordIteration(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	rec := metrics.IterationRecord{
		RunID:     "run-1",
		Algorithm: "exchange-consensus",
		Index:     0,
		RNorm:     3.5,
		SNorm:     1.25,
		Objective: 200,
	}
	if err := sink.RecordIteration(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	rec.Index = 1
	if err := sink.RecordIteration(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP scheduling_iterations_total Total number of optimization iterations
# TYPE scheduling_iterations_total counter
scheduling_iterations_total{algorithm="exchange-consensus"} 2
`
	if err := testutil.CollectAndCompare(sink.iterations, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if got := testutil.ToFloat64(sink.residuals.WithLabelValues("exchange-consensus", "primal")); got != 3.5 {
		t.Errorf("primal residual gauge %v, want 3.5", got)
	}
}

func TestPromSink_RecordRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if err := sink.RecordRun(metrics.RunRecord{
		RunID:      "run-1",
		Algorithm:  "dual-decomposition",
		Iterations: 18,
		Converged:  true,
		Duration:   150 * time.Millisecond,
	}); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP scheduling_runs_total Total number of optimization runs
# TYPE scheduling_runs_total counter
scheduling_runs_total{algorithm="dual-decomposition",converged="true"} 1
`
	if err := testutil.CollectAndCompare(sink.runs, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if c := testutil.CollectAndCount(sink.duration); c == 0 {
		t.Errorf("duration not recorded")
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("first sink: %v", err)
	}
	if _, err := NewPromSink(reg); err != nil {
		t.Fatalf("second sink should reuse collectors: %v", err)
	}
}
