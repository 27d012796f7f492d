package formulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ecas/core/cp"
)

// place marks master k of task i and its candidate on machine j present.
func place(f *Formulation, sol *cp.Solution, i, k, j, start int) {
	iv := f.Model.Intervals[f.Tasks[i].Masters[k]]
	sol.Set(f.Tasks[i].Masters[k], start, start+iv.LengthMin)
	sol.Set(f.Tasks[i].Candidates[k][j], start, start+iv.LengthMin)
}

func TestExtractAndVerify(t *testing.T) {
	inst := testInstance()
	f, err := Build(inst, Options{})
	require.NoError(t, err)
	sol := cp.NewSolution(f.Model)
	place(f, sol, 0, 0, 0, 2) // task 1 on M1 [2,5)
	place(f, sol, 1, 0, 0, 5) // task 2 on M1 [5,7)
	sol.Set(f.Machines[0].Windows[0], 2, 7)

	s, err := f.Extract(sol)
	require.NoError(t, err)
	require.Len(t, s.Placements, 2)
	assert.Equal(t, Placement{TaskID: 1, MachineID: 1, Start: 2, End: 5}, s.Placements[0])
	assert.Equal(t, []Run{{MachineID: 1, Start: 2, End: 7}}, s.Runs)
	require.NoError(t, s.Verify(inst))

	// task energy: 2*3*1 + 1*2*1, idle 1*5*1, cycling 2
	assert.InDelta(t, 8, s.Cost.TaskEnergy, 1e-9)
	assert.InDelta(t, 5, s.Cost.IdleEnergy, 1e-9)
	assert.InDelta(t, 2, s.Cost.Cycling, 1e-9)
	assert.InDelta(t, f.Model.Evaluate(sol), s.Cost.Total, 1e-9)

	assert.Equal(t, cp.Off, s.PowerState(1, 0))
	assert.Equal(t, cp.On, s.PowerState(1, 4))
	assert.Equal(t, cp.Off, s.PowerState(1, f.Horizon))
	load := s.Load(inst, 1, 0)
	assert.Equal(t, 2, load[4])
	assert.Equal(t, 1, load[5])
	assert.Equal(t, 0, load[7])
}

func TestExtractMissingPlacement(t *testing.T) {
	f, err := Build(testInstance(), Options{})
	require.NoError(t, err)
	sol := cp.NewSolution(f.Model)
	place(f, sol, 0, 0, 0, 2)
	_, err = f.Extract(sol)
	assert.Error(t, err)
	_, err = f.Extract(nil)
	assert.Error(t, err)
}

func TestExtractWrongLength(t *testing.T) {
	f, err := Build(testInstance(), Options{})
	require.NoError(t, err)
	sol := cp.NewSolution(f.Model)
	place(f, sol, 0, 0, 0, 2)
	place(f, sol, 1, 0, 0, 5)
	sol.Set(f.Tasks[1].Masters[0], 5, 8)
	sol.Set(f.Tasks[1].Candidates[0][0], 5, 8)
	_, err = f.Extract(sol)
	assert.ErrorContains(t, err, "placement length 3, want 2")
}

func TestVerifyDetectsViolations(t *testing.T) {
	inst := testInstance()
	f, err := Build(inst, Options{})
	require.NoError(t, err)

	// both tasks on M2 overlapping: cpu 2+1 > 2
	sol := cp.NewSolution(f.Model)
	place(f, sol, 0, 0, 1, 4)
	place(f, sol, 1, 0, 1, 5)
	sol.Set(f.Machines[1].Windows[0], 4, 7)
	s, err := f.Extract(sol)
	require.NoError(t, err)
	assert.ErrorContains(t, s.Verify(inst), "exceeds capacity")

	// machine left OFF while working
	sol = cp.NewSolution(f.Model)
	place(f, sol, 0, 0, 0, 1)
	place(f, sol, 1, 0, 0, 5)
	sol.Set(f.Machines[0].Windows[0], 1, 4)
	s, err = f.Extract(sol)
	require.NoError(t, err)
	assert.ErrorContains(t, s.Verify(inst), "OFF")
}

func TestVerifyFragmentContiguity(t *testing.T) {
	inst := testInstance()
	f, err := Build(inst, Options{Fragmentation: Fragmented})
	require.NoError(t, err)
	sol := cp.NewSolution(f.Model)
	place(f, sol, 0, 0, 0, 2)
	place(f, sol, 0, 1, 1, 3)
	place(f, sol, 0, 2, 0, 5) // gap after fragment 1
	place(f, sol, 1, 0, 1, 6)
	place(f, sol, 1, 1, 1, 7)
	sol.Set(f.Machines[0].Windows[0], 2, 3)
	sol.Set(f.Machines[0].Windows[1], 5, 6)
	sol.Set(f.Machines[1].Windows[0], 3, 4)
	sol.Set(f.Machines[1].Windows[1], 6, 8)
	s, err := f.Extract(sol)
	require.NoError(t, err)
	assert.ErrorContains(t, s.Verify(inst), "previous ended")
}
