package cp

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyModel() *Model {
	m := NewModel("tiny")
	prices := m.AddStepFunction("price", []float64{1, 2, 3, 4})
	power := m.AddStateFunction("power_M1", 5)
	task := m.AddIntervalVar(Interval{Name: "T1", StartMin: 0, EndMax: 4, LengthMin: 2, LengthMax: 2})
	cand := m.AddIntervalVar(Interval{Name: "T1_M1", StartMin: 0, EndMax: 4, LengthMin: 2, LengthMax: 2, Optional: true})
	win := m.AddIntervalVar(Interval{Name: "W_M1_0", StartMin: 0, EndMax: 4, LengthMin: 1, LengthMax: 4, Optional: true})
	m.AddAlternative(task, []IntervalID{cand})
	m.AddCumulativeCapacity("cpu_M1", []Pulse{{Interval: cand, Height: 1}}, 2)
	m.AddStepFunctionBound(power, cand, On)
	m.AddFixedStateBound(power, 0, 1, Off)
	m.AddSpans(power, []IntervalID{win}, On)
	m.SetObjective(Objective{
		Energy:   []EnergyTerm{{Interval: task, Power: 2, Prices: prices, Eval: EvalExact, PerLength: true}},
		Presence: []PresenceTerm{{Interval: win, Cost: 0.5}},
	})
	return m
}

func TestModelSizeAndValidate(t *testing.T) {
	m := tinyModel()
	require.NoError(t, m.Validate())
	s := m.Size()
	assert.Equal(t, 3, s.Intervals)
	assert.Equal(t, 2, s.Optional)
	assert.Equal(t, 5, s.Constraints)
	assert.Equal(t, 2, s.Terms)
}

func TestModelValidateUnknownReference(t *testing.T) {
	m := tinyModel()
	m.AddAlternative(IntervalID(42), nil)
	if err := m.Validate(); err == nil {
		t.Fatal("expected error for unknown interval")
	}
}

func TestModelValidateEmptyDomain(t *testing.T) {
	m := NewModel("bad")
	m.AddIntervalVar(Interval{Name: "X", StartMin: 3, EndMax: 4, LengthMin: 2, LengthMax: 2})
	if err := m.Validate(); err == nil {
		t.Fatal("expected empty domain error")
	}
}

func TestRate(t *testing.T) {
	f := StepFunction{Values: []float64{1, 2, 3, 4}}
	assert.Equal(t, 2.0, Rate(f, EvalStart, 1, 3))
	assert.Equal(t, 3.0, Rate(f, EvalTrapezoid, 1, 3))
	assert.Equal(t, 2.5, Rate(f, EvalExact, 1, 3))
	// end on the horizon clamps to the last slot
	assert.Equal(t, 3.5, Rate(f, EvalTrapezoid, 2, 4))
}

func TestEvaluate(t *testing.T) {
	m := tinyModel()
	sol := NewSolution(m)
	sol.Set(0, 1, 3)
	sol.Set(1, 1, 3)
	sol.Set(2, 1, 3)
	// 2 power * 2 slots * mean(2,3) + 0.5
	assert.InDelta(t, 10.5, m.Evaluate(sol), 1e-9)
	assert.Equal(t, 2, sol.Value(0).Length())
	assert.Equal(t, []Run{{Start: 1, End: 3}}, sol.Runs(m, 0))
}

func TestParsePriceEvaluation(t *testing.T) {
	for _, s := range []string{"start", "trapezoid", "exact"} {
		e, err := ParsePriceEvaluation(s)
		require.NoError(t, err)
		assert.Equal(t, s, e.String())
	}
	_, err := ParsePriceEvaluation("median")
	assert.Error(t, err)

	var e PriceEvaluation
	require.NoError(t, json.Unmarshal([]byte(`"exact"`), &e))
	assert.Equal(t, EvalExact, e)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tinyModel(), FormatText))
	out := buf.String()
	for _, want := range []string{
		"alternative(T1, [T1_M1]);",
		"cpu_M1: pulse(T1_M1, 1) <= 2;",
		"alwaysEqual(power_M1, T1_M1, ON);",
		"alwaysEqual(power_M1, 0, 1, OFF);",
		"spans(power_M1, [W_M1_0], ON);",
		"T1_M1 = intervalVar(optional, start=0.., end=..4, size=2);",
		"minimize(",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tinyModel(), "json"))
	var back Model
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, 3, len(back.Intervals))
	assert.Equal(t, EvalExact, back.Objective.Energy[0].Eval)

	assert.Error(t, Write(&buf, tinyModel(), "mps"))
}
