package mqtt

import (
	"errors"
	"time"

	"github.com/kilianp07/ecas/core/formulation"
)

// ErrAckTimeout is returned when a machine does not acknowledge its plan in
// time.
var ErrAckTimeout = errors.New("timeout waiting for plan ack")

// MachinePlan is the part of a schedule one machine has to execute. Slots are
// expressed in the instance resolution; Origin anchors slot 0.
type MachinePlan struct {
	PlanID     string                  `json:"plan_id"`
	RunID      string                  `json:"run_id"`
	MachineID  int                     `json:"machine_id"`
	Resolution int                     `json:"resolution_minutes"`
	Origin     time.Time               `json:"origin"`
	Runs       []formulation.Run       `json:"power_runs"`
	Placements []formulation.Placement `json:"placements"`
}

// PlansFrom splits a schedule into one plan per machine of machineIDs. Plan
// identifiers are left empty for the publisher to assign.
func PlansFrom(runID string, s *formulation.Schedule, machineIDs []int, resolution int, origin time.Time) []MachinePlan {
	plans := make([]MachinePlan, 0, len(machineIDs))
	for _, id := range machineIDs {
		p := MachinePlan{RunID: runID, MachineID: id, Resolution: resolution, Origin: origin}
		for _, r := range s.Runs {
			if r.MachineID == id {
				p.Runs = append(p.Runs, r)
			}
		}
		p.Placements = s.MachinePlacements(id)
		plans = append(plans, p)
	}
	return plans
}

// Client publishes machine plans and tracks their acknowledgment by the
// machine controllers.
type Client interface {
	// PublishPlan sends the plan to the machine topic and returns the plan
	// identifier used to track the acknowledgment.
	PublishPlan(plan MachinePlan) (planID string, err error)

	// WaitForAck waits for an acknowledgment of the plan or until the
	// timeout expires.
	WaitForAck(planID string, timeout time.Duration) (bool, error)
}
