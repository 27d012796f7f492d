package formulation

import (
	"fmt"

	"github.com/kilianp07/ecas/core/cp"
)

// Fragmentation selects the placement granularity of tasks.
type Fragmentation string

const (
	// Atomic places each task as one contiguous interval on one machine.
	Atomic Fragmentation = "atomic"
	// Fragmented splits each task into unit fragments that may migrate
	// between machines while staying contiguous in time.
	Fragmented Fragmentation = "fragmented"
)

// Options configures the model builder.
type Options struct {
	Fragmentation   Fragmentation `json:"fragmentation"`
	PriceEvaluation string        `json:"price_evaluation"`
}

// SetDefaults applies the atomic policy and trapezoidal price evaluation.
func (o *Options) SetDefaults() {
	if o.Fragmentation == "" {
		o.Fragmentation = Atomic
	}
	if o.PriceEvaluation == "" {
		o.PriceEvaluation = cp.EvalTrapezoid.String()
	}
}

// Validate checks the option values.
func (o Options) Validate() error {
	switch o.Fragmentation {
	case Atomic, Fragmented:
	default:
		return fmt.Errorf("unknown fragmentation %q", o.Fragmentation)
	}
	_, err := cp.ParsePriceEvaluation(o.PriceEvaluation)
	return err
}

func (o Options) eval() cp.PriceEvaluation {
	e, _ := cp.ParsePriceEvaluation(o.PriceEvaluation)
	return e
}
