package model

// Machine is a fleet member able to host tasks. It draws IdleConsumption
// whenever it is powered on and pays PowerUpCost+PowerDownCost per ON run.
type Machine struct {
	ID               int     `json:"id" yaml:"id"`
	IdleConsumption  float64 `json:"idle_consumption" yaml:"idle_consumption"`
	PowerUpCost      float64 `json:"power_up_cost" yaml:"power_up_cost"`
	PowerDownCost    float64 `json:"power_down_cost" yaml:"power_down_cost"`
	ResourceCapacity []int   `json:"resource_capacities" yaml:"resource_capacities"` // cpu, mem, io
}

// Capacity returns the capacity for the resource kind, or 0 when undeclared.
func (m Machine) Capacity(k ResourceKind) int {
	if int(k) >= len(m.ResourceCapacity) {
		return 0
	}
	return m.ResourceCapacity[k]
}

// CycleCost is the fixed cost charged once per ON run.
func (m Machine) CycleCost() float64 {
	return m.PowerUpCost + m.PowerDownCost
}

// Fits reports whether the task demand fits an empty machine.
func (m Machine) Fits(t Task) bool {
	for _, k := range AllResources {
		if t.Usage(k) > m.Capacity(k) {
			return false
		}
	}
	return true
}

// Validate checks capacities and costs.
func (m Machine) Validate() error {
	if len(m.ResourceCapacity) < ResourceKinds {
		return malformed("machine", m.ID, "expected %d resource capacities, got %d", ResourceKinds, len(m.ResourceCapacity))
	}
	for i, c := range m.ResourceCapacity {
		if c < 0 {
			return malformed("machine", m.ID, "resource capacity[%d] must be >= 0 (got %d)", i, c)
		}
	}
	if m.IdleConsumption < 0 {
		return malformed("machine", m.ID, "idle consumption must be >= 0 (got %v)", m.IdleConsumption)
	}
	if m.PowerUpCost < 0 || m.PowerDownCost < 0 {
		return malformed("machine", m.ID, "power cycling costs must be >= 0")
	}
	return nil
}
