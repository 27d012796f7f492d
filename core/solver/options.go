package solver

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilianp07/ecas/core/cp"
)

// DefaultThreads is the worker hint used when none is configured.
const DefaultThreads = 8

// Options controls one solve call.
type Options struct {
	// TimeLimit bounds the wall-clock time of the search. Zero means none.
	TimeLimit time.Duration `json:"time_limit"`
	// Threads is a hint passed to the engine.
	Threads int `json:"threads"`
	// NodeLimit bounds the search effort. Zero means none.
	NodeLimit int64 `json:"node_limit"`
	// ExportPath, when set, receives a serialized copy of the model before
	// the solve starts.
	ExportPath string `json:"export_path"`
	// ExportFormat is text or json. Empty selects from the file extension.
	ExportFormat string `json:"export_format"`
}

func (o *Options) SetDefaults() {
	if o.Threads <= 0 {
		o.Threads = DefaultThreads
	}
	if o.ExportPath != "" && o.ExportFormat == "" {
		if strings.EqualFold(filepath.Ext(o.ExportPath), ".json") {
			o.ExportFormat = cp.FormatJSON
		} else {
			o.ExportFormat = cp.FormatText
		}
	}
}

func (o Options) Validate() error {
	if o.TimeLimit < 0 {
		return fmt.Errorf("time_limit must be >= 0")
	}
	if o.NodeLimit < 0 {
		return fmt.Errorf("node_limit must be >= 0")
	}
	switch o.ExportFormat {
	case "", cp.FormatText, cp.FormatJSON:
	default:
		return fmt.Errorf("unsupported export format %q", o.ExportFormat)
	}
	return nil
}

// Params are the hints handed to an engine session.
type Params struct {
	TimeLimit time.Duration
	Threads   int
	NodeLimit int64
}
