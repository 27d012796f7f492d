package model

import (
	"errors"
	"fmt"
)

// ErrMalformedInstance is matched by every MalformedInstanceError.
var ErrMalformedInstance = errors.New("malformed instance")

// MalformedInstanceError reports instance data violating a domain invariant.
// It is raised before any model is handed to a solver.
type MalformedInstanceError struct {
	Entity string // "task", "machine", "prices" or "instance"
	ID     int
	Reason string
}

func (e *MalformedInstanceError) Error() string {
	switch e.Entity {
	case "task", "machine":
		return fmt.Sprintf("malformed instance: %s %d: %s", e.Entity, e.ID, e.Reason)
	default:
		return fmt.Sprintf("malformed instance: %s: %s", e.Entity, e.Reason)
	}
}

// Is makes errors.Is(err, ErrMalformedInstance) succeed.
func (e *MalformedInstanceError) Is(target error) bool {
	return target == ErrMalformedInstance
}

func malformed(entity string, id int, format string, args ...any) error {
	return &MalformedInstanceError{Entity: entity, ID: id, Reason: fmt.Sprintf(format, args...)}
}
