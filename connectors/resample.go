package connectors

import (
	"fmt"
	"time"

	"github.com/kilianp07/ecas/core/model"
)

// Resample converts market prices into a schedule covering the day that
// starts at origin, one value per slot of resolutionMinutes. Each slot gets the
// time-weighted mean of the prices overlapping it, multiplied by scale.
// Negative means are floored at zero. Every slot must be covered.
func Resample(points []PricePoint, origin time.Time, resolutionMinutes int, scale float64) (model.PriceSchedule, error) {
	slots := model.TimeSlots(resolutionMinutes)
	if slots == 0 || model.MinutesPerDay%resolutionMinutes != 0 {
		return nil, fmt.Errorf("invalid resolution %d", resolutionMinutes)
	}
	step := time.Duration(resolutionMinutes) * time.Minute
	out := make(model.PriceSchedule, slots)
	for i := range out {
		s := origin.Add(time.Duration(i) * step)
		e := s.Add(step)
		var weighted float64
		var covered time.Duration
		for _, p := range points {
			lo, hi := later(s, p.Start), earlier(e, p.End)
			if !hi.After(lo) {
				continue
			}
			d := hi.Sub(lo)
			covered += d
			weighted += p.Price * d.Seconds()
		}
		if covered < step {
			return nil, fmt.Errorf("slot %d (%s) is covered for %s only", i, s.Format(time.RFC3339), covered)
		}
		v := weighted / covered.Seconds() * scale
		if v < 0 {
			v = 0
		}
		out[i] = v
	}
	return out, nil
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
