package solver

import (
	"errors"
	"fmt"
)

// ErrSolverFault matches every *SolverFault.
var ErrSolverFault = errors.New("solver fault")

// SolverFault wraps an internal engine failure. A faulted solve is terminal
// and is never retried.
type SolverFault struct {
	Engine string
	Err    error
}

func (f *SolverFault) Error() string {
	return fmt.Sprintf("solver fault (%s): %v", f.Engine, f.Err)
}

func (f *SolverFault) Unwrap() error { return f.Err }

func (f *SolverFault) Is(target error) bool { return target == ErrSolverFault }
