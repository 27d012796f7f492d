package model

// Instance aggregates the fleet and workload of one scheduling run.
type Instance struct {
	TimeResolution int           `json:"time_resolution" yaml:"time_resolution"`
	Resources      int           `json:"resources,omitempty" yaml:"resources,omitempty"`
	Machines       []Machine     `json:"machines" yaml:"machines"`
	Tasks          []Task        `json:"tasks" yaml:"tasks"`
	Prices         PriceSchedule `json:"energy_prices" yaml:"energy_prices"`
}

// TimeSlots is the horizon implied by the time resolution.
func (in *Instance) TimeSlots() int {
	return TimeSlots(in.TimeResolution)
}

// Validate checks every domain invariant. The first violation is returned as
// a *MalformedInstanceError.
func (in *Instance) Validate() error {
	if in == nil {
		return malformed("instance", 0, "instance is nil")
	}
	if in.TimeResolution <= 0 || MinutesPerDay%in.TimeResolution != 0 {
		return malformed("instance", 0, "time resolution %d does not divide a %d minute day", in.TimeResolution, MinutesPerDay)
	}
	if in.Resources != 0 && in.Resources != ResourceKinds {
		return malformed("instance", 0, "expected %d resource kinds, got %d", ResourceKinds, in.Resources)
	}
	slots := in.TimeSlots()
	if err := in.Prices.Covers(slots); err != nil {
		return err
	}
	seen := make(map[int]bool, len(in.Machines))
	for _, m := range in.Machines {
		if seen[m.ID] {
			return malformed("machine", m.ID, "duplicate id")
		}
		seen[m.ID] = true
		if err := m.Validate(); err != nil {
			return err
		}
	}
	seen = make(map[int]bool, len(in.Tasks))
	for _, t := range in.Tasks {
		if seen[t.ID] {
			return malformed("task", t.ID, "duplicate id")
		}
		seen[t.ID] = true
		if err := t.Validate(slots); err != nil {
			return err
		}
	}
	if len(in.Tasks) > 0 && len(in.Machines) == 0 {
		return malformed("instance", 0, "%d tasks but no machines", len(in.Tasks))
	}
	return nil
}

// Unhostable returns the ids of the tasks whose demand fits no machine. Such
// an instance is well formed but can only be infeasible.
func (in *Instance) Unhostable() []int {
	var ids []int
	for _, t := range in.Tasks {
		fits := false
		for _, m := range in.Machines {
			if m.Fits(t) {
				fits = true
				break
			}
		}
		if !fits {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// Machine returns the machine with the given id.
func (in *Instance) Machine(id int) (Machine, bool) {
	for _, m := range in.Machines {
		if m.ID == id {
			return m, true
		}
	}
	return Machine{}, false
}

// Task returns the task with the given id.
func (in *Instance) Task(id int) (Task, bool) {
	for _, t := range in.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
