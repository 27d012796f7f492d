package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInstance() *Instance {
	return &Instance{
		TimeResolution: 60,
		Machines: []Machine{
			{ID: 1, IdleConsumption: 1, PowerUpCost: 0.5, PowerDownCost: 0.5, ResourceCapacity: []int{4, 4, 4}},
		},
		Tasks: []Task{
			{ID: 7, EarliestStart: 0, LatestEnd: 10, Duration: 2, PowerConsumption: 2, ResourceUsage: []int{2, 1, 1}},
		},
		Prices: Flat(24, 1.0),
	}
}

func TestInstanceValidateOK(t *testing.T) {
	in := sampleInstance()
	require.NoError(t, in.Validate())
	assert.Equal(t, 24, in.TimeSlots())
}

func TestInstanceValidateShortWindow(t *testing.T) {
	in := sampleInstance()
	in.Tasks[0].LatestEnd = 1
	err := in.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedInstance))
	var merr *MalformedInstanceError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, "task", merr.Entity)
	assert.Equal(t, 7, merr.ID)
}

func TestInstanceValidatePricesShort(t *testing.T) {
	in := sampleInstance()
	in.TimeResolution = 30 // 48 slots, only 24 prices
	err := in.Validate()
	require.ErrorIs(t, err, ErrMalformedInstance)
	assert.Contains(t, err.Error(), "prices")
}

func TestInstanceValidateMachineCapacities(t *testing.T) {
	in := sampleInstance()
	in.Machines[0].ResourceCapacity = []int{4, 4}
	err := in.Validate()
	require.ErrorIs(t, err, ErrMalformedInstance)
	assert.Contains(t, err.Error(), "machine 1")
}

func TestInstanceValidateRejects(t *testing.T) {
	cases := map[string]func(*Instance){
		"resolution":     func(in *Instance) { in.TimeResolution = 7 },
		"zero duration":  func(in *Instance) { in.Tasks[0].Duration = 0 },
		"beyond horizon": func(in *Instance) { in.Tasks[0].LatestEnd = 25 },
		"nan price":      func(in *Instance) { in.Prices[3] = math.NaN() },
		"negative price": func(in *Instance) { in.Prices[0] = -1 },
		"negative cap":   func(in *Instance) { in.Machines[0].ResourceCapacity[1] = -1 },
		"usage count":    func(in *Instance) { in.Tasks[0].ResourceUsage = []int{1} },
		"duplicate task": func(in *Instance) { in.Tasks = append(in.Tasks, in.Tasks[0]) },
		"no machines":    func(in *Instance) { in.Machines = nil },
		"resources":      func(in *Instance) { in.Resources = 2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := sampleInstance()
			mutate(in)
			if err := in.Validate(); !errors.Is(err, ErrMalformedInstance) {
				t.Fatalf("expected malformed instance error, got %v", err)
			}
		})
	}
}

func TestNilInstance(t *testing.T) {
	var in *Instance
	if err := in.Validate(); err == nil {
		t.Fatal("expected error for nil instance")
	}
}

func TestPriceScheduleAtClamps(t *testing.T) {
	p := PriceSchedule{1, 2, 3}
	assert.Equal(t, 1.0, p.At(-1))
	assert.Equal(t, 2.0, p.At(1))
	assert.Equal(t, 3.0, p.At(3))
	assert.Equal(t, 0.0, PriceSchedule(nil).At(0))
}

func TestTimeSlots(t *testing.T) {
	assert.Equal(t, 96, TimeSlots(15))
	assert.Equal(t, 0, TimeSlots(0))
}

func TestTaskAndMachineHelpers(t *testing.T) {
	in := sampleInstance()
	task := in.Tasks[0]
	assert.Equal(t, "Task_7", task.DisplayName())
	assert.Equal(t, 8, task.Slack())
	assert.Equal(t, 1, task.Usage(IO))
	m := in.Machines[0]
	assert.True(t, m.Fits(task))
	assert.Equal(t, 1.0, m.CycleCost())
	task.ResourceUsage[CPU] = 5
	assert.False(t, m.Fits(task))
	_, ok := in.Machine(2)
	assert.False(t, ok)
	got, ok := in.Task(7)
	assert.True(t, ok)
	assert.Equal(t, 7, got.ID)
	assert.Equal(t, "mem", Memory.String())
}

func TestUnhostable(t *testing.T) {
	in := sampleInstance()
	assert.Empty(t, in.Unhostable())
	in.Machines = append(in.Machines, Machine{ID: 2, ResourceCapacity: []int{8, 1, 1}})
	in.Tasks = append(in.Tasks,
		Task{ID: 8, EarliestStart: 0, LatestEnd: 4, Duration: 1, ResourceUsage: []int{6, 1, 1}},
		Task{ID: 9, EarliestStart: 0, LatestEnd: 4, Duration: 1, ResourceUsage: []int{6, 2, 1}},
	)
	require.NoError(t, in.Validate())
	assert.Equal(t, []int{9}, in.Unhostable())
}
