package metrics

import (
	"time"

	"github.com/kilianp07/ecas/core/cp"
	"github.com/kilianp07/ecas/core/solver"
)

// SolveResult is the outcome of one run to be recorded.
type SolveResult struct {
	RunID         string
	Instance      string
	Engine        string
	Fragmentation string
	Status        solver.Status
	Objective     *float64
	BestBound     *float64
	CPUTime       float64
	WallTime      time.Duration
	SearchEffort  int64
	Time          time.Time
}

// MetricsSink records solve results for observability purposes.
type MetricsSink interface {
	RecordSolveResult(res SolveResult) error
}

// ModelSizeEvent describes a built model.
type ModelSizeEvent struct {
	RunID         string
	Instance      string
	Fragmentation string
	Size          cp.Size
	BuildTime     time.Duration
	Time          time.Time
}

// ModelSizeRecorder records model sizes.
type ModelSizeRecorder interface {
	RecordModelSize(ev ModelSizeEvent) error
}

// FaultEvent records a solver fault.
type FaultEvent struct {
	RunID  string
	Engine string
	Error  string
	Time   time.Time
}

// FaultRecorder records solver faults.
type FaultRecorder interface {
	RecordFault(ev FaultEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSolveResult(SolveResult) error  { return nil }
func (NopSink) RecordModelSize(ModelSizeEvent) error { return nil }
func (NopSink) RecordFault(FaultEvent) error         { return nil }
