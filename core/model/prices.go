package model

import "math"

// MinutesPerDay is the scheduling horizon length.
const MinutesPerDay = 24 * 60

// TimeSlots returns the number of slots a day is split into for the given
// resolution in minutes. It returns 0 for a non-positive resolution.
func TimeSlots(resolutionMinutes int) int {
	if resolutionMinutes <= 0 {
		return 0
	}
	return MinutesPerDay / resolutionMinutes
}

// PriceSchedule is a piecewise-constant price per unit of power, one value
// per time slot.
type PriceSchedule []float64

// At returns the price in effect at slot t. Slots past the end are clamped to
// the last slot so that interval ends on the horizon can be evaluated.
func (p PriceSchedule) At(t int) float64 {
	if len(p) == 0 {
		return 0
	}
	if t < 0 {
		t = 0
	}
	if t >= len(p) {
		t = len(p) - 1
	}
	return p[t]
}

// Covers checks that the schedule defines a finite, non-negative price for
// every slot in [0, slots).
func (p PriceSchedule) Covers(slots int) error {
	if len(p) < slots {
		return malformed("prices", 0, "%d prices do not cover the %d slot horizon", len(p), slots)
	}
	for i := 0; i < slots; i++ {
		v := p[i]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return malformed("prices", 0, "price at slot %d must be finite and >= 0 (got %v)", i, v)
		}
	}
	return nil
}

// Flat returns a schedule of n slots at the same price.
func Flat(n int, price float64) PriceSchedule {
	p := make(PriceSchedule, n)
	for i := range p {
		p[i] = price
	}
	return p
}
