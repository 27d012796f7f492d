package events

import (
	"time"

	"github.com/kilianp07/ecas/core/cp"
	"github.com/kilianp07/ecas/core/report"
)

// Event is implemented by every lifecycle event.
type Event interface {
	Run() string
}

// ModelBuilt is published once the model of an instance is declared.
type ModelBuilt struct {
	RunID         string
	Instance      string
	Fragmentation string
	Size          cp.Size
	BuildTime     time.Duration
}

func (e ModelBuilt) Run() string { return e.RunID }

// SolveStarted is published when the model is handed to the engine.
type SolveStarted struct {
	RunID     string
	Engine    string
	Threads   int
	TimeLimit time.Duration
}

func (e SolveStarted) Run() string { return e.RunID }

// SolveFinished carries the statistics of a completed solve, including
// infeasible and timed out ones.
type SolveFinished struct {
	RunID         string
	Instance      string
	Engine        string
	Fragmentation string
	Stats         report.Stats
}

func (e SolveFinished) Run() string { return e.RunID }

// SolverFaulted is published when the engine fails.
type SolverFaulted struct {
	RunID  string
	Engine string
	Err    error
}

func (e SolverFaulted) Run() string { return e.RunID }
