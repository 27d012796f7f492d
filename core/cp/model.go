package cp

import "fmt"

// State is the value of a state function.
type State int

const (
	Off State = iota
	On
)

func (s State) String() string {
	if s == On {
		return "ON"
	}
	return "OFF"
}

// IntervalID indexes Model.Intervals.
type IntervalID int

// StateFnID indexes Model.StateFunctions.
type StateFnID int

// StepFnID indexes Model.StepFunctions.
type StepFnID int

// Interval is an interval decision variable. Start and end are integral and
// satisfy StartMin <= start, end <= EndMax, LengthMin <= end-start <= LengthMax.
// Optional intervals carry a presence flag.
type Interval struct {
	ID        IntervalID `json:"id"`
	Name      string     `json:"name"`
	StartMin  int        `json:"start_min"`
	EndMax    int        `json:"end_max"`
	LengthMin int        `json:"length_min"`
	LengthMax int        `json:"length_max"`
	Optional  bool       `json:"optional"`
}

// FixedLength returns the length when LengthMin == LengthMax.
func (iv Interval) FixedLength() (int, bool) {
	return iv.LengthMin, iv.LengthMin == iv.LengthMax
}

// StateFunction is a step function over [0, Horizon) taking State values.
type StateFunction struct {
	ID      StateFnID `json:"id"`
	Name    string    `json:"name"`
	Horizon int       `json:"horizon"`
}

// StepFunction is a constant input function, one value per slot.
type StepFunction struct {
	ID     StepFnID  `json:"id"`
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// At returns the value at slot t, clamping past either end.
func (f StepFunction) At(t int) float64 {
	if len(f.Values) == 0 {
		return 0
	}
	if t < 0 {
		t = 0
	}
	if t >= len(f.Values) {
		t = len(f.Values) - 1
	}
	return f.Values[t]
}

// Alternative selects exactly one present candidate whose timing equals the
// parent interval.
type Alternative struct {
	Parent     IntervalID   `json:"parent"`
	Candidates []IntervalID `json:"candidates"`
}

// Pulse contributes Height over the span of a present interval.
type Pulse struct {
	Interval IntervalID `json:"interval"`
	Height   int        `json:"height"`
}

// Cumulative bounds the sum of its pulses at every instant.
type Cumulative struct {
	Name     string  `json:"name"`
	Pulses   []Pulse `json:"pulses"`
	Capacity int     `json:"capacity"`
}

// AlwaysEqual forces Function to Value over the span of Interval when it is
// present.
type AlwaysEqual struct {
	Function StateFnID  `json:"function"`
	Interval IntervalID `json:"interval"`
	Value    State      `json:"value"`
}

// StateBound fixes Function to Value over [From, To).
type StateBound struct {
	Function StateFnID `json:"function"`
	From     int       `json:"from"`
	To       int       `json:"to"`
	Value    State     `json:"value"`
}

// PresenceImplication states presenceOf(If) => presenceOf(Then).
type PresenceImplication struct {
	If   IntervalID `json:"if"`
	Then IntervalID `json:"then"`
}

// EndAtStart states end(Before) == start(After) when both are present.
type EndAtStart struct {
	Before IntervalID `json:"before"`
	After  IntervalID `json:"after"`
}

// EndBeforeStart states end(Before)+Delay <= start(After) when both are present.
type EndBeforeStart struct {
	Before IntervalID `json:"before"`
	After  IntervalID `json:"after"`
	Delay  int        `json:"delay"`
}

// Spans ties a state function to a set of windows: the function equals Value
// exactly on the union of the present windows. Each present window is one
// maximal run.
type Spans struct {
	Function StateFnID    `json:"function"`
	Windows  []IntervalID `json:"windows"`
	Value    State        `json:"value"`
}

// Model is the in-memory declarative model.
type Model struct {
	Name            string                `json:"name"`
	Intervals       []Interval            `json:"intervals"`
	StateFunctions  []StateFunction       `json:"state_functions"`
	StepFunctions   []StepFunction        `json:"step_functions"`
	Alternatives    []Alternative         `json:"alternatives"`
	Cumulatives     []Cumulative          `json:"cumulatives"`
	AlwaysEquals    []AlwaysEqual         `json:"always_equals"`
	StateBounds     []StateBound          `json:"state_bounds"`
	Implications    []PresenceImplication `json:"implications"`
	EndAtStarts     []EndAtStart          `json:"end_at_starts"`
	EndBeforeStarts []EndBeforeStart      `json:"end_before_starts"`
	Spans           []Spans               `json:"spans"`
	Objective       Objective             `json:"objective"`
}

// NewModel returns an empty model.
func NewModel(name string) *Model {
	return &Model{Name: name}
}

var _ Declarer = (*Model)(nil)

func (m *Model) AddIntervalVar(iv Interval) IntervalID {
	iv.ID = IntervalID(len(m.Intervals))
	m.Intervals = append(m.Intervals, iv)
	return iv.ID
}

func (m *Model) AddStateFunction(name string, horizon int) StateFnID {
	id := StateFnID(len(m.StateFunctions))
	m.StateFunctions = append(m.StateFunctions, StateFunction{ID: id, Name: name, Horizon: horizon})
	return id
}

func (m *Model) AddStepFunction(name string, values []float64) StepFnID {
	id := StepFnID(len(m.StepFunctions))
	v := make([]float64, len(values))
	copy(v, values)
	m.StepFunctions = append(m.StepFunctions, StepFunction{ID: id, Name: name, Values: v})
	return id
}

func (m *Model) AddAlternative(parent IntervalID, candidates []IntervalID) {
	m.Alternatives = append(m.Alternatives, Alternative{Parent: parent, Candidates: append([]IntervalID(nil), candidates...)})
}

func (m *Model) AddCumulativeCapacity(name string, pulses []Pulse, capacity int) {
	m.Cumulatives = append(m.Cumulatives, Cumulative{Name: name, Pulses: append([]Pulse(nil), pulses...), Capacity: capacity})
}

func (m *Model) AddStepFunctionBound(fn StateFnID, iv IntervalID, v State) {
	m.AlwaysEquals = append(m.AlwaysEquals, AlwaysEqual{Function: fn, Interval: iv, Value: v})
}

func (m *Model) AddFixedStateBound(fn StateFnID, from, to int, v State) {
	m.StateBounds = append(m.StateBounds, StateBound{Function: fn, From: from, To: to, Value: v})
}

func (m *Model) AddPresenceImplication(ifPresent, thenPresent IntervalID) {
	m.Implications = append(m.Implications, PresenceImplication{If: ifPresent, Then: thenPresent})
}

func (m *Model) AddEndAtStart(before, after IntervalID) {
	m.EndAtStarts = append(m.EndAtStarts, EndAtStart{Before: before, After: after})
}

func (m *Model) AddEndBeforeStart(before, after IntervalID, delay int) {
	m.EndBeforeStarts = append(m.EndBeforeStarts, EndBeforeStart{Before: before, After: after, Delay: delay})
}

func (m *Model) AddSpans(fn StateFnID, windows []IntervalID, v State) {
	m.Spans = append(m.Spans, Spans{Function: fn, Windows: append([]IntervalID(nil), windows...), Value: v})
}

func (m *Model) SetObjective(obj Objective) {
	m.Objective = obj
}

// Size summarises a model for logging and structural comparison.
type Size struct {
	Intervals   int `json:"intervals"`
	Optional    int `json:"optional"`
	Constraints int `json:"constraints"`
	Terms       int `json:"terms"`
}

// Size counts variables, constraints and objective terms.
func (m *Model) Size() Size {
	s := Size{Intervals: len(m.Intervals)}
	for _, iv := range m.Intervals {
		if iv.Optional {
			s.Optional++
		}
	}
	s.Constraints = len(m.Alternatives) + len(m.Cumulatives) + len(m.AlwaysEquals) + len(m.StateBounds) +
		len(m.Implications) + len(m.EndAtStarts) + len(m.EndBeforeStarts) + len(m.Spans)
	s.Terms = len(m.Objective.Energy) + len(m.Objective.Presence)
	return s
}

// Validate checks that every reference points to a declared entity and that
// interval domains are not empty.
func (m *Model) Validate() error {
	nIv := IntervalID(len(m.Intervals))
	checkIv := func(id IntervalID, what string) error {
		if id < 0 || id >= nIv {
			return fmt.Errorf("%s: unknown interval %d", what, id)
		}
		return nil
	}
	checkFn := func(id StateFnID, what string) error {
		if id < 0 || int(id) >= len(m.StateFunctions) {
			return fmt.Errorf("%s: unknown state function %d", what, id)
		}
		return nil
	}
	for _, iv := range m.Intervals {
		if iv.LengthMin < 0 || iv.LengthMax < iv.LengthMin {
			return fmt.Errorf("interval %s: bad length range [%d,%d]", iv.Name, iv.LengthMin, iv.LengthMax)
		}
		if iv.EndMax-iv.StartMin < iv.LengthMin {
			return fmt.Errorf("interval %s: empty domain [%d,%d) for length %d", iv.Name, iv.StartMin, iv.EndMax, iv.LengthMin)
		}
	}
	for _, a := range m.Alternatives {
		if err := checkIv(a.Parent, "alternative"); err != nil {
			return err
		}
		for _, c := range a.Candidates {
			if err := checkIv(c, "alternative"); err != nil {
				return err
			}
		}
	}
	for _, c := range m.Cumulatives {
		for _, p := range c.Pulses {
			if err := checkIv(p.Interval, "cumulative "+c.Name); err != nil {
				return err
			}
		}
	}
	for _, a := range m.AlwaysEquals {
		if err := checkIv(a.Interval, "alwaysEqual"); err != nil {
			return err
		}
		if err := checkFn(a.Function, "alwaysEqual"); err != nil {
			return err
		}
	}
	for _, b := range m.StateBounds {
		if err := checkFn(b.Function, "state bound"); err != nil {
			return err
		}
	}
	for _, p := range m.Implications {
		if err := checkIv(p.If, "implication"); err != nil {
			return err
		}
		if err := checkIv(p.Then, "implication"); err != nil {
			return err
		}
	}
	for _, p := range m.EndAtStarts {
		if err := checkIv(p.Before, "endAtStart"); err != nil {
			return err
		}
		if err := checkIv(p.After, "endAtStart"); err != nil {
			return err
		}
	}
	for _, p := range m.EndBeforeStarts {
		if err := checkIv(p.Before, "endBeforeStart"); err != nil {
			return err
		}
		if err := checkIv(p.After, "endBeforeStart"); err != nil {
			return err
		}
	}
	for _, s := range m.Spans {
		if err := checkFn(s.Function, "spans"); err != nil {
			return err
		}
		for _, w := range s.Windows {
			if err := checkIv(w, "spans"); err != nil {
				return err
			}
		}
	}
	for _, t := range m.Objective.Energy {
		if err := checkIv(t.Interval, "energy term"); err != nil {
			return err
		}
		if t.Prices < 0 || int(t.Prices) >= len(m.StepFunctions) {
			return fmt.Errorf("energy term: unknown step function %d", t.Prices)
		}
	}
	for _, t := range m.Objective.Presence {
		if err := checkIv(t.Interval, "presence term"); err != nil {
			return err
		}
	}
	return nil
}
