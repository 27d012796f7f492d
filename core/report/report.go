// Package report turns a solver outcome into the run statistics shown to
// users and persisted in the run log.
package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/kilianp07/ecas/core/solver"
)

// CPUSampler reports the user CPU time consumed so far, in seconds.
type CPUSampler interface {
	CPUTime() (float64, error)
}

// ProcessSampler samples the CPU time of the current process.
type ProcessSampler struct {
	proc *process.Process
}

// NewProcessSampler returns a sampler bound to the running process.
func NewProcessSampler() (*ProcessSampler, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open process: %w", err)
	}
	return &ProcessSampler{proc: p}, nil
}

func (s *ProcessSampler) CPUTime() (float64, error) {
	t, err := s.proc.Times()
	if err != nil {
		return 0, err
	}
	return t.User, nil
}

// Stats is the record of one solve.
type Stats struct {
	Status         solver.Status `json:"status"`
	ObjectiveValue *float64      `json:"objective_value"`
	BestBound      *float64      `json:"best_bound,omitempty"`
	CPUTime        float64       `json:"cpu_time"`
	WallTime       time.Duration `json:"wall_time"`
	SearchEffort   int64         `json:"search_effort"`
}

// New maps an outcome to Stats. The objective is only kept when the status
// carries a solution; an infeasible outcome never gets one. A nil sampler or a
// sampling error leaves CPUTime at zero.
func New(out solver.Outcome, cpu CPUSampler) Stats {
	st := Stats{
		Status:       out.Status,
		WallTime:     out.WallTime,
		SearchEffort: out.SearchEffort,
		BestBound:    out.BestBound,
	}
	if out.Status != solver.Infeasible && out.Status != solver.Unknown && out.Objective != nil {
		v := *out.Objective
		st.ObjectiveValue = &v
	}
	if out.Status == solver.Infeasible {
		st.BestBound = nil
	}
	if cpu != nil {
		if t, err := cpu.CPUTime(); err == nil {
			st.CPUTime = t
		}
	}
	return st
}

// Feasible reports whether a solution is attached.
func (s Stats) Feasible() bool { return s.ObjectiveValue != nil }

// Gap returns the relative optimality gap, or false when either side is
// unknown.
func (s Stats) Gap() (float64, bool) {
	if s.ObjectiveValue == nil || s.BestBound == nil {
		return 0, false
	}
	obj := *s.ObjectiveValue
	if obj == 0 {
		return 0, *s.BestBound >= 0
	}
	gap := (obj - *s.BestBound) / obj
	if gap < 0 {
		gap = -gap
	}
	return gap, true
}

// Summary renders the console summary of a run.
func (s Stats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "status: %s\n", s.Status)
	if s.ObjectiveValue != nil {
		fmt.Fprintf(&b, "objective: %.4f\n", *s.ObjectiveValue)
	} else {
		b.WriteString("objective: none\n")
	}
	if s.BestBound != nil {
		fmt.Fprintf(&b, "best bound: %.4f\n", *s.BestBound)
	}
	if gap, ok := s.Gap(); ok {
		fmt.Fprintf(&b, "gap: %.2f%%\n", gap*100)
	}
	fmt.Fprintf(&b, "cpu time: %.3fs\n", s.CPUTime)
	fmt.Fprintf(&b, "wall time: %s\n", s.WallTime.Round(time.Millisecond))
	fmt.Fprintf(&b, "search effort: %d nodes\n", s.SearchEffort)
	return b.String()
}
