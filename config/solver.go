package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/ecas/core/factory"
	"github.com/kilianp07/ecas/core/solver"
)

// DefaultEngine is used when no engine type is configured.
const DefaultEngine = "search"

// SolverConfig selects the engine and the limits of each solve.
type SolverConfig struct {
	Engine       factory.ModuleConfig `json:"engine"`
	TimeLimit    time.Duration        `json:"time_limit"`
	Threads      int                  `json:"threads"`
	NodeLimit    int64                `json:"node_limit"`
	ExportPath   string               `json:"export_path"`
	ExportFormat string               `json:"export_format"`
}

func (c *SolverConfig) SetDefaults() {
	if c.Engine.Type == "" {
		c.Engine.Type = DefaultEngine
	}
	if c.Threads <= 0 {
		c.Threads = solver.DefaultThreads
	}
}

func (c SolverConfig) Validate() error {
	if c.TimeLimit < 0 {
		return fmt.Errorf("time_limit must be >= 0")
	}
	return c.Options().Validate()
}

// Options returns the per-solve options.
func (c SolverConfig) Options() solver.Options {
	o := solver.Options{
		TimeLimit:    c.TimeLimit,
		Threads:      c.Threads,
		NodeLimit:    c.NodeLimit,
		ExportPath:   c.ExportPath,
		ExportFormat: c.ExportFormat,
	}
	o.SetDefaults()
	return o
}
