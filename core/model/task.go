package model

import "fmt"

// Task is a unit of work that must run for Duration slots inside
// [EarliestStart, LatestEnd] on some machine.
type Task struct {
	ID               int     `json:"id" yaml:"id"`
	Name             string  `json:"name,omitempty" yaml:"name,omitempty"`
	EarliestStart    int     `json:"earliest_start_time" yaml:"earliest_start_time"`
	LatestEnd        int     `json:"latest_end_time" yaml:"latest_end_time"`
	Duration         int     `json:"duration" yaml:"duration"`
	PowerConsumption float64 `json:"power_consumption" yaml:"power_consumption"`
	ResourceUsage    []int   `json:"resource_usage" yaml:"resource_usage"` // cpu, mem, io
}

// DisplayName returns Name or the generated "Task_<id>".
func (t Task) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("Task_%d", t.ID)
}

// Usage returns the demand for the resource kind, or 0 when undeclared.
func (t Task) Usage(k ResourceKind) int {
	if int(k) >= len(t.ResourceUsage) {
		return 0
	}
	return t.ResourceUsage[k]
}

// Slack is the number of slots the task can be shifted inside its window.
func (t Task) Slack() int {
	return t.LatestEnd - t.EarliestStart - t.Duration
}

// Validate checks the task against a horizon of the given number of slots.
func (t Task) Validate(horizon int) error {
	if t.Duration <= 0 {
		return malformed("task", t.ID, "duration must be positive (got %d)", t.Duration)
	}
	if t.EarliestStart < 0 {
		return malformed("task", t.ID, "earliest start must be >= 0 (got %d)", t.EarliestStart)
	}
	if t.Slack() < 0 {
		return malformed("task", t.ID, "window [%d,%d] shorter than duration %d", t.EarliestStart, t.LatestEnd, t.Duration)
	}
	if t.LatestEnd > horizon {
		return malformed("task", t.ID, "latest end %d beyond horizon of %d slots", t.LatestEnd, horizon)
	}
	if t.PowerConsumption < 0 {
		return malformed("task", t.ID, "power consumption must be >= 0 (got %v)", t.PowerConsumption)
	}
	if len(t.ResourceUsage) < ResourceKinds {
		return malformed("task", t.ID, "expected %d resource usages, got %d", ResourceKinds, len(t.ResourceUsage))
	}
	for i, u := range t.ResourceUsage {
		if u < 0 {
			return malformed("task", t.ID, "resource usage[%d] must be >= 0 (got %d)", i, u)
		}
	}
	return nil
}
