package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFn(horizon int, forbidden ...int) *powerFn {
	f := &powerFn{
		horizon:    horizon,
		forbidden:  make([]bool, horizon),
		startMin:   0,
		endMax:     horizon,
		lenMin:     1,
		lenMax:     horizon,
		delay:      1,
		spanned:    true,
		maxWindows: horizon,
	}
	for _, t := range forbidden {
		f.forbidden[t] = true
	}
	f.prefix = make([]int, horizon+1)
	for t, fb := range f.forbidden {
		f.prefix[t+1] = f.prefix[t]
		if fb {
			f.prefix[t+1]++
		}
	}
	return f
}

func busyOf(horizon int, runs ...[2]int) []int {
	b := make([]int, horizon)
	for _, r := range runs {
		for t := r[0]; t < r[1]; t++ {
			b[t]++
		}
	}
	return b
}

// idleCost charges idle per slot plus a fixed cycling cost per window.
func idleCost(idle, cycle float64) func(s, e int) float64 {
	return func(s, e int) float64 { return cycle + idle*float64(e-s) }
}

func TestSegmentsOf(t *testing.T) {
	segs := segmentsOf(busyOf(10, [2]int{1, 3}, [2]int{3, 4}, [2]int{6, 7}))
	assert.Equal(t, []segment{{1, 4}, {6, 7}}, segs)
	assert.Empty(t, segmentsOf(make([]int, 5)))
}

func TestDeriveMergesWhenCyclingIsExpensive(t *testing.T) {
	f := testFn(11, 0, 10)
	busy := busyOf(11, [2]int{2, 4}, [2]int{6, 8})
	cost, ws, ok := f.derive(busy, idleCost(1, 10))
	require.True(t, ok)
	assert.Equal(t, []window{{2, 8}}, ws)
	assert.InDelta(t, 16, cost, 1e-9)
}

func TestDeriveSplitsWhenCyclingIsFree(t *testing.T) {
	f := testFn(11, 0, 10)
	busy := busyOf(11, [2]int{2, 4}, [2]int{6, 8})
	cost, ws, ok := f.derive(busy, idleCost(1, 0))
	require.True(t, ok)
	assert.Equal(t, []window{{2, 4}, {6, 8}}, ws)
	assert.InDelta(t, 4, cost, 1e-9)
}

func TestDeriveRespectsForbiddenSlots(t *testing.T) {
	f := testFn(11, 0, 5, 10)
	busy := busyOf(11, [2]int{2, 4}, [2]int{6, 8})
	_, ws, ok := f.derive(busy, idleCost(1, 10))
	require.True(t, ok)
	assert.Equal(t, []window{{2, 4}, {6, 8}}, ws)
}

func TestDeriveWindowLimit(t *testing.T) {
	f := testFn(11, 0, 5, 10)
	f.maxWindows = 1
	busy := busyOf(11, [2]int{2, 4}, [2]int{6, 8})
	_, _, ok := f.derive(busy, idleCost(1, 0))
	assert.False(t, ok)
}

func TestDeriveAdjacentSegmentsNeedGap(t *testing.T) {
	// segments separated by a single idle slot cannot form two windows with
	// a delay of two slots
	f := testFn(11, 0, 10)
	f.delay = 2
	busy := busyOf(11, [2]int{2, 4}, [2]int{5, 7})
	_, ws, ok := f.derive(busy, idleCost(1, 0))
	require.True(t, ok)
	assert.Equal(t, []window{{2, 7}}, ws)
}

func TestDeriveExtendsToCheaperEndpoint(t *testing.T) {
	f := testFn(11, 0, 10)
	price := []float64{0, 5, 5, 5, 100, 0, 5, 5, 5, 5, 5}
	// trapezoid-like cost: length times the mean of both endpoint prices
	cost := func(s, e int) float64 {
		pe := price[min(e, len(price)-1)]
		return float64(e-s) * (price[s] + pe) / 2
	}
	_, ws, ok := f.derive(busyOf(11, [2]int{2, 4}), cost)
	require.True(t, ok)
	assert.Equal(t, []window{{2, 5}}, ws)
}

func TestDeriveEmpty(t *testing.T) {
	cost, ws, ok := testFn(5).derive(make([]int, 5), idleCost(1, 1))
	assert.True(t, ok)
	assert.Nil(t, ws)
	assert.Zero(t, cost)
}
