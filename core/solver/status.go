package solver

import "fmt"

// Status is the terminal state reported by an engine.
type Status int

const (
	Unknown Status = iota
	Optimal
	Feasible
	Infeasible
	TimedOut
)

var statusNames = map[Status]string{
	Unknown:    "UNKNOWN",
	Optimal:    "OPTIMAL",
	Feasible:   "FEASIBLE",
	Infeasible: "INFEASIBLE",
	TimedOut:   "TIMED_OUT",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus converts the textual form back to a Status.
func ParseStatus(s string) (Status, error) {
	for st, n := range statusNames {
		if n == s {
			return st, nil
		}
	}
	return Unknown, fmt.Errorf("unknown status %q", s)
}

// HasSolution reports whether the status comes with a feasible solution.
func (s Status) HasSolution() bool {
	return s == Optimal || s == Feasible
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
