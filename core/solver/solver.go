package solver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kilianp07/ecas/core/cp"
)

// Engine creates solver sessions.
type Engine interface {
	Name() string
	Open() (Session, error)
}

// Session is the scoped context of one solve. It is never shared between
// calls and must be closed on every exit path.
type Session interface {
	Solve(ctx context.Context, m *cp.Model, p Params) (Result, error)
	Close() error
}

// Result is what a session reports back. Objective is nil unless a solution
// was found.
type Result struct {
	Status       Status
	Solution     *cp.Solution
	Objective    *float64
	BestBound    *float64
	SearchEffort int64
}

// Outcome is the result of Solve as seen by callers.
type Outcome struct {
	Engine       string        `json:"engine"`
	Status       Status        `json:"status"`
	Objective    *float64      `json:"objective_value,omitempty"`
	BestBound    *float64      `json:"best_bound,omitempty"`
	SearchEffort int64         `json:"search_effort"`
	WallTime     time.Duration `json:"wall_time"`
	ExportPath   string        `json:"export_path,omitempty"`
	Solution     *cp.Solution  `json:"-"`
}

// Solve exports the model when requested, opens a session on engine and
// blocks until the engine returns. Reaching the time limit is reported as
// TimedOut, not as an error. Engine errors and panics are returned as
// *SolverFault.
func Solve(ctx context.Context, engine Engine, m *cp.Model, opts Options) (out Outcome, err error) {
	if engine == nil {
		return Outcome{}, errors.New("no engine configured")
	}
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("solver options: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("invalid model: %w", err)
	}
	out.Engine = engine.Name()
	if opts.ExportPath != "" {
		if err := export(m, opts); err != nil {
			return Outcome{}, fmt.Errorf("export model: %w", err)
		}
		out.ExportPath = opts.ExportPath
	}

	sess, err := engine.Open()
	if err != nil {
		return Outcome{}, &SolverFault{Engine: out.Engine, Err: err}
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil && err == nil {
			err = &SolverFault{Engine: out.Engine, Err: fmt.Errorf("close session: %w", cerr)}
		}
	}()

	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}
	p := Params{TimeLimit: opts.TimeLimit, Threads: opts.Threads, NodeLimit: opts.NodeLimit}

	start := time.Now()
	res, err := run(ctx, sess, m, p)
	out.WallTime = time.Since(start)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return out, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			out.Status = TimedOut
			return out, nil
		}
		return out, &SolverFault{Engine: out.Engine, Err: err}
	}

	out.Status = res.Status
	out.SearchEffort = res.SearchEffort
	out.BestBound = res.BestBound
	if res.Status.HasSolution() || res.Status == TimedOut {
		out.Objective = res.Objective
		out.Solution = res.Solution
	}
	if out.Objective == nil {
		out.Solution = nil
	}
	return out, nil
}

func run(ctx context.Context, sess Session, m *cp.Model, p Params) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sess.Solve(ctx, m, p)
}

func export(m *cp.Model, opts Options) error {
	f, err := os.Create(opts.ExportPath)
	if err != nil {
		return err
	}
	if err := cp.Write(f, m, opts.ExportFormat); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
