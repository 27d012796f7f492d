package connectors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ecas/core/model"
)

func hourly(origin time.Time, prices ...float64) []PricePoint {
	pts := make([]PricePoint, len(prices))
	for i, p := range prices {
		s := origin.Add(time.Duration(i) * time.Hour)
		pts[i] = PricePoint{Start: s, End: s.Add(time.Hour), Price: p}
	}
	return pts
}

func day() []float64 {
	prices := make([]float64, 24)
	for i := range prices {
		prices[i] = float64(i)
	}
	return prices
}

func TestResample_Downsample(t *testing.T) {
	origin := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ps, err := Resample(hourly(origin, day()...), origin, 360, 1)
	require.NoError(t, err)
	// means of 0..5, 6..11, 12..17, 18..23
	assert.Equal(t, model.PriceSchedule{2.5, 8.5, 14.5, 20.5}, ps)
}

func TestResample_UpsampleAndScale(t *testing.T) {
	origin := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ps, err := Resample(hourly(origin, day()...), origin, 30, 0.001)
	require.NoError(t, err)
	require.Len(t, ps, 48)
	assert.InDelta(t, 0.005, ps[10], 1e-12)
	assert.InDelta(t, 0.005, ps[11], 1e-12)
}

func TestResample_NegativeFloored(t *testing.T) {
	origin := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	prices := day()
	prices[0] = -40
	ps, err := Resample(hourly(origin, prices...), origin, 60, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ps[0])
}

func TestResample_Gaps(t *testing.T) {
	origin := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := Resample(hourly(origin, 1, 2, 3), origin, 60, 1)
	assert.Error(t, err)
	_, err = Resample(nil, origin, 7, 1)
	assert.Error(t, err)
}
