package mqtt

import (
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/ecas/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// PublishAll publishes every plan and returns the plan ids in order. It stops
// at the first failure.
func PublishAll(c Client, plans []coremqtt.MachinePlan) ([]string, error) {
	ids := make([]string, 0, len(plans))
	for _, p := range plans {
		id, err := c.PublishPlan(p)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Plans      map[int]coremqtt.MachinePlan
	FailIDs    map[int]bool
	AckResults map[string]bool
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Plans:      make(map[int]coremqtt.MachinePlan),
		FailIDs:    make(map[int]bool),
		AckResults: make(map[string]bool),
	}
}

// PublishPlan records the plan or returns an error if configured to fail.
func (m *MockPublisher) PublishPlan(plan coremqtt.MachinePlan) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[plan.MachineID] {
		return "", fmt.Errorf("publish failed")
	}
	if plan.PlanID == "" {
		plan.PlanID = fmt.Sprintf("plan-%d", plan.MachineID)
	}
	m.Plans[plan.MachineID] = plan
	m.AckResults[plan.PlanID] = true
	return plan.PlanID, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockPublisher) WaitForAck(planID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[planID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("unknown plan")
	}
	return ok, nil
}
