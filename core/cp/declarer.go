package cp

// Declarer is the minimal capability set a backend offers to model builders.
// Builders only declare; they never search.
type Declarer interface {
	AddIntervalVar(iv Interval) IntervalID
	AddStateFunction(name string, horizon int) StateFnID
	AddStepFunction(name string, values []float64) StepFnID
	AddAlternative(parent IntervalID, candidates []IntervalID)
	AddCumulativeCapacity(name string, pulses []Pulse, capacity int)
	// AddStepFunctionBound forces fn to v over the interval when it is present.
	AddStepFunctionBound(fn StateFnID, iv IntervalID, v State)
	AddFixedStateBound(fn StateFnID, from, to int, v State)
	AddPresenceImplication(ifPresent, thenPresent IntervalID)
	AddEndAtStart(before, after IntervalID)
	AddEndBeforeStart(before, after IntervalID, delay int)
	AddSpans(fn StateFnID, windows []IntervalID, v State)
	SetObjective(obj Objective)
}
