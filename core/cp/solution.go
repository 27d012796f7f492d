package cp

import "sort"

// IntervalValue is the value of an interval variable in a solution.
type IntervalValue struct {
	Present bool `json:"present"`
	Start   int  `json:"start"`
	End     int  `json:"end"`
}

// Length returns End-Start.
func (v IntervalValue) Length() int { return v.End - v.Start }

// Solution assigns a value to every interval of a model.
type Solution struct {
	Intervals []IntervalValue `json:"intervals"`
	Objective float64         `json:"objective"`
}

// NewSolution returns a solution with every interval absent.
func NewSolution(m *Model) *Solution {
	return &Solution{Intervals: make([]IntervalValue, len(m.Intervals))}
}

// Value returns the value of interval id, absent when out of range.
func (s *Solution) Value(id IntervalID) IntervalValue {
	if s == nil || id < 0 || int(id) >= len(s.Intervals) {
		return IntervalValue{}
	}
	return s.Intervals[id]
}

// Set records a present interval.
func (s *Solution) Set(id IntervalID, start, end int) {
	s.Intervals[id] = IntervalValue{Present: true, Start: start, End: end}
}

// Run is a maximal span over which a state function keeps a value.
type Run struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Runs returns the present windows tied to fn through Spans, sorted by start.
func (s *Solution) Runs(m *Model, fn StateFnID) []Run {
	var runs []Run
	for _, sp := range m.Spans {
		if sp.Function != fn {
			continue
		}
		for _, w := range sp.Windows {
			if v := s.Value(w); v.Present {
				runs = append(runs, Run{Start: v.Start, End: v.End})
			}
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Start < runs[j].Start })
	return runs
}
