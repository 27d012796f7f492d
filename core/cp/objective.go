package cp

import "fmt"

// PriceEvaluation selects how a price step function is reduced to a single
// rate over an interval [start, end).
type PriceEvaluation int

const (
	// EvalTrapezoid averages the price at start and at end.
	EvalTrapezoid PriceEvaluation = iota
	// EvalStart takes the price in effect at start.
	EvalStart
	// EvalExact averages the price over every slot covered.
	EvalExact
)

func (e PriceEvaluation) String() string {
	switch e {
	case EvalStart:
		return "start"
	case EvalExact:
		return "exact"
	default:
		return "trapezoid"
	}
}

// ParsePriceEvaluation maps a configuration string to a PriceEvaluation.
func ParsePriceEvaluation(s string) (PriceEvaluation, error) {
	switch s {
	case "", "trapezoid":
		return EvalTrapezoid, nil
	case "start":
		return EvalStart, nil
	case "exact":
		return EvalExact, nil
	default:
		return 0, fmt.Errorf("unknown price evaluation %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (e PriceEvaluation) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *PriceEvaluation) UnmarshalText(b []byte) error {
	v, err := ParsePriceEvaluation(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// EnergyTerm costs Power x rate(start,end) for a present interval, multiplied
// by the interval length when PerLength is set.
type EnergyTerm struct {
	Interval  IntervalID      `json:"interval"`
	Power     float64         `json:"power"`
	Prices    StepFnID        `json:"prices"`
	Eval      PriceEvaluation `json:"eval"`
	PerLength bool            `json:"per_length"`
}

// PresenceTerm costs Cost when the interval is present.
type PresenceTerm struct {
	Interval IntervalID `json:"interval"`
	Cost     float64    `json:"cost"`
}

// Objective is a minimised sum of interval costs.
type Objective struct {
	Energy   []EnergyTerm   `json:"energy"`
	Presence []PresenceTerm `json:"presence"`
	Constant float64        `json:"constant"`
}

// Rate reduces the step function to a single price over [start, end).
func Rate(f StepFunction, eval PriceEvaluation, start, end int) float64 {
	switch eval {
	case EvalStart:
		return f.At(start)
	case EvalExact:
		if end <= start {
			return f.At(start)
		}
		var sum float64
		for t := start; t < end; t++ {
			sum += f.At(t)
		}
		return sum / float64(end-start)
	default:
		return (f.At(start) + f.At(end)) / 2
	}
}

// EnergyCost evaluates an energy term for an interval placed on [start, end).
func (m *Model) EnergyCost(t EnergyTerm, start, end int) float64 {
	rate := Rate(m.StepFunctions[t.Prices], t.Eval, start, end)
	if t.PerLength {
		return t.Power * float64(end-start) * rate
	}
	return t.Power * rate
}

// Evaluate computes the objective value of a solution.
func (m *Model) Evaluate(sol *Solution) float64 {
	total := m.Objective.Constant
	for _, t := range m.Objective.Energy {
		v := sol.Value(t.Interval)
		if v.Present {
			total += m.EnergyCost(t, v.Start, v.End)
		}
	}
	for _, t := range m.Objective.Presence {
		if sol.Value(t.Interval).Present {
			total += t.Cost
		}
	}
	return total
}
