package formulation

import (
	"fmt"

	"github.com/kilianp07/ecas/core/cp"
	"github.com/kilianp07/ecas/core/model"
)

// Formulation is a built model together with the index maps needed to read a
// solution back in domain terms.
type Formulation struct {
	Model    *cp.Model
	Options  Options
	Horizon  int
	Tasks    []TaskVars
	Machines []MachineVars

	prices    cp.StepFnID
	taskTerms []int // indexes into Model.Objective.Energy
	idleTerms []int
}

// TaskVars holds the variables declared for one task.
type TaskVars struct {
	TaskID int
	// Masters has one interval per task (atomic) or per unit fragment.
	Masters []cp.IntervalID
	// Candidates[k][j] is the optional placement of master k on machine j.
	Candidates [][]cp.IntervalID
}

// MachineVars holds the variables declared for one machine.
type MachineVars struct {
	MachineID int
	Power     cp.StateFnID
	Windows   []cp.IntervalID
}

// Build validates the instance and declares its scheduling model. It fails
// with a *model.MalformedInstanceError before declaring anything when the
// instance breaks a domain invariant.
func Build(inst *model.Instance, opts Options) (*Formulation, error) {
	opts.SetDefaults()
	m := cp.NewModel(fmt.Sprintf("ecas_%s", opts.Fragmentation))
	f, err := Declare(m, inst, opts)
	if err != nil {
		return nil, err
	}
	f.Model = m
	return f, nil
}

// Declare writes the model of inst into any backend implementing the
// declarative capability set. The returned Formulation maps tasks and
// machines to the declared ids; its Model is only set by Build.
func Declare(d cp.Declarer, inst *model.Instance, opts Options) (*Formulation, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("model options: %w", err)
	}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	f := &Formulation{Options: opts, Horizon: inst.TimeSlots()}
	f.declare(d, inst)
	return f, nil
}

type pulseSet [model.ResourceKinds][]cp.Pulse

func (f *Formulation) declare(d cp.Declarer, inst *model.Instance) {
	horizon := f.Horizon
	eval := f.Options.eval()
	f.prices = d.AddStepFunction("price", inst.Prices[:horizon])

	f.Machines = make([]MachineVars, len(inst.Machines))
	for j, mc := range inst.Machines {
		// OFF at time 0 and at the horizon are boundary points: every ON run
		// lies inside [0, horizon) and pays a power-up and a power-down.
		power := d.AddStateFunction(fmt.Sprintf("power_M%d", mc.ID), horizon)
		f.Machines[j] = MachineVars{MachineID: mc.ID, Power: power}
	}

	obj := cp.Objective{}
	pulses := make([]pulseSet, len(inst.Machines))
	placed := make([]int, len(inst.Machines))

	f.Tasks = make([]TaskVars, len(inst.Tasks))
	for i, task := range inst.Tasks {
		tv := TaskVars{TaskID: task.ID}
		for k, span := range f.spans(task) {
			name := task.DisplayName()
			if f.Options.Fragmentation == Fragmented {
				name = fmt.Sprintf("%s_F%d", name, k)
			}
			master := d.AddIntervalVar(cp.Interval{
				Name:      name,
				StartMin:  span.startMin,
				EndMax:    span.endMax,
				LengthMin: span.length,
				LengthMax: span.length,
			})
			cands := make([]cp.IntervalID, len(inst.Machines))
			for j, mc := range inst.Machines {
				cands[j] = d.AddIntervalVar(cp.Interval{
					Name:      fmt.Sprintf("%s_M%d", name, mc.ID),
					StartMin:  span.startMin,
					EndMax:    span.endMax,
					LengthMin: span.length,
					LengthMax: span.length,
					Optional:  true,
				})
				d.AddStepFunctionBound(f.Machines[j].Power, cands[j], cp.On)
				for _, kind := range model.AllResources {
					if h := task.Usage(kind); h > 0 {
						pulses[j][kind] = append(pulses[j][kind], cp.Pulse{Interval: cands[j], Height: h})
					}
				}
				placed[j]++
			}
			d.AddAlternative(master, cands)
			if k > 0 {
				prev := tv.Masters[k-1]
				d.AddEndAtStart(prev, master)
				for _, c := range cands {
					d.AddPresenceImplication(c, prev)
				}
			}
			f.taskTerms = append(f.taskTerms, len(obj.Energy))
			obj.Energy = append(obj.Energy, cp.EnergyTerm{
				Interval:  master,
				Power:     task.PowerConsumption,
				Prices:    f.prices,
				Eval:      eval,
				PerLength: true,
			})
			tv.Masters = append(tv.Masters, master)
			tv.Candidates = append(tv.Candidates, cands)
		}
		f.Tasks[i] = tv
	}

	for j, mc := range inst.Machines {
		for _, kind := range model.AllResources {
			d.AddCumulativeCapacity(fmt.Sprintf("%s_M%d", kind, mc.ID), pulses[j][kind], mc.Capacity(kind))
		}
		f.declareWindows(d, &obj, j, mc, placed[j]+1, eval)
	}
	d.SetObjective(obj)
}

// declareWindows adds the chained power-on windows of a machine. Window k may
// only be present when window k-1 is, and windows are separated by at least
// one OFF slot, so the present windows are exactly the maximal ON runs.
func (f *Formulation) declareWindows(d cp.Declarer, obj *cp.Objective, j int, mc model.Machine, n int, eval cp.PriceEvaluation) {
	mv := &f.Machines[j]
	mv.Windows = make([]cp.IntervalID, n)
	for k := 0; k < n; k++ {
		w := d.AddIntervalVar(cp.Interval{
			Name:      fmt.Sprintf("on_M%d_%d", mc.ID, k),
			StartMin:  0,
			EndMax:    f.Horizon,
			LengthMin: 1,
			LengthMax: f.Horizon,
			Optional:  true,
		})
		if k > 0 {
			d.AddPresenceImplication(w, mv.Windows[k-1])
			d.AddEndBeforeStart(mv.Windows[k-1], w, 1)
		}
		mv.Windows[k] = w
		f.idleTerms = append(f.idleTerms, len(obj.Energy))
		obj.Energy = append(obj.Energy, cp.EnergyTerm{
			Interval:  w,
			Power:     mc.IdleConsumption,
			Prices:    f.prices,
			Eval:      eval,
			PerLength: true,
		})
		obj.Presence = append(obj.Presence, cp.PresenceTerm{Interval: w, Cost: mc.CycleCost()})
	}
	d.AddSpans(mv.Power, mv.Windows, cp.On)
}

type span struct {
	startMin, endMax, length int
}

// spans returns the domains of the master intervals of a task: the whole
// window for an atomic task, one shifted unit window per fragment otherwise.
func (f *Formulation) spans(t model.Task) []span {
	if f.Options.Fragmentation != Fragmented {
		return []span{{startMin: t.EarliestStart, endMax: t.LatestEnd, length: t.Duration}}
	}
	out := make([]span, t.Duration)
	for k := range out {
		out[k] = span{
			startMin: t.EarliestStart + k,
			endMax:   t.LatestEnd - (t.Duration - 1 - k),
			length:   1,
		}
	}
	return out
}
