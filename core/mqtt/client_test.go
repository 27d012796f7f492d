package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ecas/core/formulation"
)

func TestPlansFrom(t *testing.T) {
	s := &formulation.Schedule{
		Horizon: 24,
		Placements: []formulation.Placement{
			{TaskID: 2, MachineID: 1, Start: 6, End: 8},
			{TaskID: 1, MachineID: 1, Start: 2, End: 4},
			{TaskID: 3, MachineID: 2, Start: 3, End: 5},
		},
		Runs: []formulation.Run{{MachineID: 1, Start: 2, End: 8}, {MachineID: 2, Start: 3, End: 5}},
	}
	origin := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	plans := PlansFrom("r1", s, []int{1, 2, 3}, 60, origin)
	require.Len(t, plans, 3)

	assert.Equal(t, "r1", plans[0].RunID)
	assert.Equal(t, 60, plans[0].Resolution)
	assert.Equal(t, origin, plans[0].Origin)
	require.Len(t, plans[0].Placements, 2)
	assert.Equal(t, 1, plans[0].Placements[0].TaskID)
	assert.Equal(t, []formulation.Run{{MachineID: 1, Start: 2, End: 8}}, plans[0].Runs)

	assert.Len(t, plans[1].Placements, 1)
	assert.Empty(t, plans[2].Runs)
	assert.Empty(t, plans[2].Placements)
}
