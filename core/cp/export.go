package cp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Export formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Write serialises the model in the requested format.
func Write(w io.Writer, m *Model, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText, "cpo":
		return WriteText(w, m)
	case FormatJSON:
		return WriteJSON(w, m)
	default:
		return fmt.Errorf("unsupported model format: %s", format)
	}
}

// WriteJSON writes the model as indented JSON.
func WriteJSON(w io.Writer, m *Model) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// WriteText writes a human readable, CP-style listing of the model.
func WriteText(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)
	name := func(id IntervalID) string { return m.Intervals[id].Name }
	fnName := func(id StateFnID) string { return m.StateFunctions[id].Name }
	names := func(ids []IntervalID) string {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = name(id)
		}
		return strings.Join(parts, ", ")
	}

	size := m.Size()
	fmt.Fprintf(bw, "// model %s: %d intervals (%d optional), %d constraints, %d objective terms\n\n",
		m.Name, size.Intervals, size.Optional, size.Constraints, size.Terms)

	for _, f := range m.StepFunctions {
		vals := make([]string, len(f.Values))
		for i, v := range f.Values {
			vals[i] = fmt.Sprintf("%g", v)
		}
		fmt.Fprintf(bw, "%s = stepFunction([%s]);\n", f.Name, strings.Join(vals, ", "))
	}
	for _, f := range m.StateFunctions {
		fmt.Fprintf(bw, "%s = stateFunction(0..%d);\n", f.Name, f.Horizon)
	}
	for _, iv := range m.Intervals {
		opt := ""
		if iv.Optional {
			opt = "optional, "
		}
		size := fmt.Sprintf("%d", iv.LengthMin)
		if iv.LengthMax != iv.LengthMin {
			size = fmt.Sprintf("%d..%d", iv.LengthMin, iv.LengthMax)
		}
		fmt.Fprintf(bw, "%s = intervalVar(%sstart=%d.., end=..%d, size=%s);\n", iv.Name, opt, iv.StartMin, iv.EndMax, size)
	}
	bw.WriteString("\n")

	for _, a := range m.Alternatives {
		fmt.Fprintf(bw, "alternative(%s, [%s]);\n", name(a.Parent), names(a.Candidates))
	}
	for _, c := range m.Cumulatives {
		parts := make([]string, len(c.Pulses))
		for i, p := range c.Pulses {
			parts[i] = fmt.Sprintf("pulse(%s, %d)", name(p.Interval), p.Height)
		}
		sum := strings.Join(parts, " + ")
		if sum == "" {
			sum = "0"
		}
		fmt.Fprintf(bw, "%s: %s <= %d;\n", c.Name, sum, c.Capacity)
	}
	for _, a := range m.AlwaysEquals {
		fmt.Fprintf(bw, "alwaysEqual(%s, %s, %s);\n", fnName(a.Function), name(a.Interval), a.Value)
	}
	for _, b := range m.StateBounds {
		fmt.Fprintf(bw, "alwaysEqual(%s, %d, %d, %s);\n", fnName(b.Function), b.From, b.To, b.Value)
	}
	for _, p := range m.Implications {
		fmt.Fprintf(bw, "presenceOf(%s) => presenceOf(%s);\n", name(p.If), name(p.Then))
	}
	for _, p := range m.EndAtStarts {
		fmt.Fprintf(bw, "endAtStart(%s, %s);\n", name(p.Before), name(p.After))
	}
	for _, p := range m.EndBeforeStarts {
		fmt.Fprintf(bw, "endBeforeStart(%s, %s, %d);\n", name(p.Before), name(p.After), p.Delay)
	}
	for _, s := range m.Spans {
		fmt.Fprintf(bw, "spans(%s, [%s], %s);\n", fnName(s.Function), names(s.Windows), s.Value)
	}
	bw.WriteString("\nminimize(\n")
	for _, t := range m.Objective.Energy {
		length := ""
		if t.PerLength {
			length = fmt.Sprintf(" * lengthOf(%s)", name(t.Interval))
		}
		fmt.Fprintf(bw, "  + %g * %s(%s, %s)%s\n", t.Power, t.Eval, m.StepFunctions[t.Prices].Name, name(t.Interval), length)
	}
	for _, t := range m.Objective.Presence {
		fmt.Fprintf(bw, "  + %g * presenceOf(%s)\n", t.Cost, name(t.Interval))
	}
	if m.Objective.Constant != 0 {
		fmt.Fprintf(bw, "  + %g\n", m.Objective.Constant)
	}
	bw.WriteString(");\n")
	return bw.Flush()
}
