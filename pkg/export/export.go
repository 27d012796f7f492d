// Package export writes schedules as JSON, CSV or an HTML chart.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/ecas/core/formulation"
	"github.com/kilianp07/ecas/core/model"
)

// Clock maps slots to wall-clock times. A zero Origin leaves times out.
type Clock struct {
	Origin     time.Time
	Resolution int
}

// At returns the start time of slot t.
func (c Clock) At(t int) time.Time {
	return c.Origin.Add(time.Duration(t*c.Resolution) * time.Minute)
}

// Label names slot t for tables and charts.
func (c Clock) Label(t int) string {
	if c.Origin.IsZero() {
		return strconv.Itoa(t)
	}
	return c.At(t).Format("15:04")
}

// WriteJSON writes the schedule to w in JSON format.
func WriteJSON(w io.Writer, s *formulation.Schedule) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteCSV writes one row per placement, ordered by machine then start.
func WriteCSV(w io.Writer, inst *model.Instance, s *formulation.Schedule, clock Clock) error {
	cw := csv.NewWriter(w)
	header := []string{"task_id", "task_name", "fragment", "machine_id", "start_slot", "end_slot"}
	if !clock.Origin.IsZero() {
		header = append(header, "start_time", "end_time")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, m := range inst.Machines {
		for _, p := range s.MachinePlacements(m.ID) {
			task, ok := inst.Task(p.TaskID)
			if !ok {
				return fmt.Errorf("placement of unknown task %d", p.TaskID)
			}
			rec := []string{
				strconv.Itoa(p.TaskID),
				task.DisplayName(),
				strconv.Itoa(p.Fragment),
				strconv.Itoa(p.MachineID),
				strconv.Itoa(p.Start),
				strconv.Itoa(p.End),
			}
			if !clock.Origin.IsZero() {
				rec = append(rec, clock.At(p.Start).Format(time.RFC3339), clock.At(p.End).Format(time.RFC3339))
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
