package formulation

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/ecas/core/cp"
	"github.com/kilianp07/ecas/core/model"
)

// Placement is the execution of a task, or of one fragment of it, on a machine
// over [Start, End).
type Placement struct {
	TaskID    int `json:"task_id"`
	Fragment  int `json:"fragment"`
	MachineID int `json:"machine_id"`
	Start     int `json:"start"`
	End       int `json:"end"`
}

// Run is a maximal ON interval of a machine.
type Run struct {
	MachineID int `json:"machine_id"`
	Start     int `json:"start"`
	End       int `json:"end"`
}

// Cost splits the objective into its components.
type Cost struct {
	TaskEnergy float64 `json:"task_energy"`
	IdleEnergy float64 `json:"idle_energy"`
	Cycling    float64 `json:"cycling"`
	Total      float64 `json:"total"`
}

// Schedule is a solution read back in domain terms.
type Schedule struct {
	Horizon    int         `json:"horizon"`
	Placements []Placement `json:"placements"`
	Runs       []Run       `json:"runs"`
	Cost       Cost        `json:"cost"`
}

// Extract maps a solution of f.Model to a schedule. Every task fragment must
// have exactly one present candidate.
func (f *Formulation) Extract(sol *cp.Solution) (*Schedule, error) {
	if sol == nil {
		return nil, fmt.Errorf("no solution to extract")
	}
	s := &Schedule{Horizon: f.Horizon}
	for _, tv := range f.Tasks {
		for k, cands := range tv.Candidates {
			master := sol.Value(tv.Masters[k])
			found := 0
			for j, c := range cands {
				v := sol.Value(c)
				if !v.Present {
					continue
				}
				found++
				if l, ok := f.Model.Intervals[c].FixedLength(); ok && v.Length() != l {
					return nil, fmt.Errorf("task %d fragment %d: placement length %d, want %d",
						tv.TaskID, k, v.Length(), l)
				}
				if master.Present && (master.Start != v.Start || master.End != v.End) {
					return nil, fmt.Errorf("task %d fragment %d: candidate [%d,%d) differs from master [%d,%d)",
						tv.TaskID, k, v.Start, v.End, master.Start, master.End)
				}
				s.Placements = append(s.Placements, Placement{
					TaskID:    tv.TaskID,
					Fragment:  k,
					MachineID: f.Machines[j].MachineID,
					Start:     v.Start,
					End:       v.End,
				})
			}
			if found != 1 {
				return nil, fmt.Errorf("task %d fragment %d: %d present placements", tv.TaskID, k, found)
			}
		}
	}
	for _, mv := range f.Machines {
		for _, r := range sol.Runs(f.Model, mv.Power) {
			s.Runs = append(s.Runs, Run{MachineID: mv.MachineID, Start: r.Start, End: r.End})
		}
	}
	s.Cost = f.cost(sol)
	return s, nil
}

func (f *Formulation) cost(sol *cp.Solution) Cost {
	m := f.Model
	sum := func(idx []int) float64 {
		vals := make([]float64, 0, len(idx))
		for _, i := range idx {
			t := m.Objective.Energy[i]
			if v := sol.Value(t.Interval); v.Present {
				vals = append(vals, m.EnergyCost(t, v.Start, v.End))
			}
		}
		return floats.Sum(vals)
	}
	c := Cost{TaskEnergy: sum(f.taskTerms), IdleEnergy: sum(f.idleTerms)}
	cycling := make([]float64, 0, len(m.Objective.Presence))
	for _, t := range m.Objective.Presence {
		if sol.Value(t.Interval).Present {
			cycling = append(cycling, t.Cost)
		}
	}
	c.Cycling = floats.Sum(cycling)
	c.Total = c.TaskEnergy + c.IdleEnergy + c.Cycling + m.Objective.Constant
	return c
}

// PowerState evaluates the power-state function of a machine at slot t.
func (s *Schedule) PowerState(machineID, t int) cp.State {
	for _, r := range s.Runs {
		if r.MachineID == machineID && t >= r.Start && t < r.End {
			return cp.On
		}
	}
	return cp.Off
}

// MachinePlacements returns the placements hosted by a machine, ordered by start.
func (s *Schedule) MachinePlacements(machineID int) []Placement {
	var out []Placement
	for _, p := range s.Placements {
		if p.MachineID == machineID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Load returns the per-slot demand of a resource kind on a machine.
func (s *Schedule) Load(inst *model.Instance, machineID int, kind model.ResourceKind) []int {
	load := make([]int, s.Horizon)
	for _, p := range s.Placements {
		if p.MachineID != machineID {
			continue
		}
		task, _ := inst.Task(p.TaskID)
		for t := p.Start; t < p.End && t < len(load); t++ {
			load[t] += task.Usage(kind)
		}
	}
	return load
}

// Verify checks the schedule against the instance: full and in-window
// execution, fragment contiguity, resource capacity at every slot and the
// power-state invariants.
func (s *Schedule) Verify(inst *model.Instance) error {
	byTask := make(map[int][]Placement)
	for _, p := range s.Placements {
		byTask[p.TaskID] = append(byTask[p.TaskID], p)
	}
	for _, task := range inst.Tasks {
		ps := byTask[task.ID]
		if len(ps) == 0 {
			return fmt.Errorf("task %d is not scheduled", task.ID)
		}
		sort.Slice(ps, func(i, j int) bool { return ps[i].Fragment < ps[j].Fragment })
		total := 0
		for i, p := range ps {
			if p.Start < task.EarliestStart || p.End > task.LatestEnd {
				return fmt.Errorf("task %d runs [%d,%d) outside [%d,%d]", task.ID, p.Start, p.End, task.EarliestStart, task.LatestEnd)
			}
			if i > 0 && p.Start != ps[i-1].End {
				return fmt.Errorf("task %d fragment %d starts at %d, previous ended at %d", task.ID, p.Fragment, p.Start, ps[i-1].End)
			}
			total += p.End - p.Start
		}
		if total != task.Duration {
			return fmt.Errorf("task %d executes %d of %d slots", task.ID, total, task.Duration)
		}
	}
	for _, mc := range inst.Machines {
		for _, kind := range model.AllResources {
			for t, l := range s.Load(inst, mc.ID, kind) {
				if l > mc.Capacity(kind) {
					return fmt.Errorf("machine %d %s load %d exceeds capacity %d at slot %d", mc.ID, kind, l, mc.Capacity(kind), t)
				}
			}
		}
		for _, r := range s.Runs {
			if r.MachineID == mc.ID && (r.Start < 0 || r.End > s.Horizon || r.End <= r.Start) {
				return fmt.Errorf("machine %d run [%d,%d) leaves the horizon [0,%d)", mc.ID, r.Start, r.End, s.Horizon)
			}
		}
		for _, p := range s.MachinePlacements(mc.ID) {
			for t := p.Start; t < p.End; t++ {
				if s.PowerState(mc.ID, t) != cp.On {
					return fmt.Errorf("machine %d is OFF at slot %d while running task %d", mc.ID, t, p.TaskID)
				}
			}
		}
	}
	return nil
}
