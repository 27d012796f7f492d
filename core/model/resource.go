package model

// ResourceKind identifies one of the resource dimensions tracked per machine.
type ResourceKind int

const (
	CPU ResourceKind = iota
	Memory
	IO
)

// ResourceKinds is the number of resource dimensions every task and machine declares.
const ResourceKinds = 3

// AllResources lists the resource kinds in declaration order.
var AllResources = []ResourceKind{CPU, Memory, IO}

// String returns a short lowercase name used in variable and metric names.
func (k ResourceKind) String() string {
	switch k {
	case CPU:
		return "cpu"
	case Memory:
		return "mem"
	case IO:
		return "io"
	default:
		return "unknown"
	}
}
