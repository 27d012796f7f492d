package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/ecas/core/cp"
	coremetrics "github.com/kilianp07/ecas/core/metrics"
	"github.com/kilianp07/ecas/core/solver"
)

func TestPromSink_RecordSolveResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	obj := 12.5
	res := coremetrics.SolveResult{
		RunID:        "r1",
		Instance:     "small",
		Engine:       "search",
		Status:       solver.Optimal,
		Objective:    &obj,
		WallTime:     20 * time.Millisecond,
		SearchEffort: 42,
	}
	if err := sink.RecordSolveResult(res); err != nil {
		t.Fatalf("record error: %v", err)
	}
	res.Status = solver.Infeasible
	res.Objective = nil
	if err := sink.RecordSolveResult(res); err != nil {
		t.Fatalf("record error: %v", err)
	}

	expected := `
# HELP ecas_solves_total Number of completed solves by engine and status
# TYPE ecas_solves_total counter
ecas_solves_total{engine="search",status="INFEASIBLE"} 1
ecas_solves_total{engine="search",status="OPTIMAL"} 1
`
	if err := testutil.CollectAndCompare(sink.solves, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}
	if v := testutil.ToFloat64(sink.objective.WithLabelValues("small")); v != 12.5 {
		t.Errorf("expected objective 12.5, got %v", v)
	}
	if c := testutil.CollectAndCount(sink.duration); c != 1 {
		t.Errorf("expected one duration series, got %d", c)
	}
}

func TestPromSink_ModelSizeAndFaults(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if err := sink.RecordModelSize(coremetrics.ModelSizeEvent{
		Instance:      "small",
		Fragmentation: "atomic",
		Size:          cp.Size{Intervals: 17},
	}); err != nil {
		t.Fatalf("model size error: %v", err)
	}
	if err := sink.RecordFault(coremetrics.FaultEvent{Engine: "search", Error: "boom"}); err != nil {
		t.Fatalf("fault error: %v", err)
	}
	if v := testutil.ToFloat64(sink.intervals.WithLabelValues("small", "atomic")); v != 17 {
		t.Errorf("expected 17 intervals, got %v", v)
	}
	if v := testutil.ToFloat64(sink.faults.WithLabelValues("search")); v != 1 {
		t.Errorf("expected one fault, got %v", v)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("first sink: %v", err)
	}
	second, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("second sink: %v", err)
	}
	if err := second.RecordFault(coremetrics.FaultEvent{Engine: "search"}); err != nil {
		t.Fatalf("fault error: %v", err)
	}
	if v := testutil.ToFloat64(first.faults.WithLabelValues("search")); v != 1 {
		t.Errorf("collectors not shared, got %v", v)
	}
}
