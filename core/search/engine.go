package search

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/kilianp07/ecas/core/cp"
	"github.com/kilianp07/ecas/core/factory"
	"github.com/kilianp07/ecas/core/logger"
	"github.com/kilianp07/ecas/core/solver"
)

// Name is the registry name of the engine.
const Name = "search"

// Config tunes the engine.
type Config struct {
	// DisableLPBound skips the root linear relaxation.
	DisableLPBound bool `json:"disable_lp_bound"`
	// LPMaxVars skips the relaxation above this many columns.
	LPMaxVars int `json:"lp_max_vars"`
	// CheckEvery is the number of nodes between two deadline checks.
	CheckEvery int `json:"check_every"`
}

func (c *Config) SetDefaults() {
	if c.LPMaxVars <= 0 {
		c.LPMaxVars = 2000
	}
	if c.CheckEvery <= 0 {
		c.CheckEvery = 256
	}
}

func init() {
	_ = solver.RegisterEngine(Name, func(conf map[string]any) (solver.Engine, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c, nil), nil
	})
}

// Engine is a depth-first branch-and-bound engine for scheduling models made
// of alternatives, cumulatives and spanned state functions.
type Engine struct {
	cfg Config
	log logger.Logger
}

// New returns an engine. A nil logger discards output.
func New(cfg Config, log logger.Logger) *Engine {
	cfg.SetDefaults()
	return &Engine{cfg: cfg, log: logger.OrNop(log)}
}

// WithLogger replaces the engine logger.
func (e *Engine) WithLogger(log logger.Logger) *Engine {
	e.log = logger.OrNop(log)
	return e
}

func (e *Engine) Name() string { return Name }

func (e *Engine) Open() (solver.Session, error) {
	return &session{e: e}, nil
}

var errClosed = errors.New("session closed")

type session struct {
	e      *Engine
	closed bool
}

func (s *session) Close() error {
	s.closed = true
	return nil
}

func (s *session) Solve(ctx context.Context, m *cp.Model, params solver.Params) (solver.Result, error) {
	if s.closed {
		return solver.Result{}, errClosed
	}
	log := s.e.log
	p, err := compile(m)
	if err != nil {
		return solver.Result{}, err
	}

	bound := p.constant + p.suffix[0]
	if !s.e.cfg.DisableLPBound && len(p.chains) > 0 && !math.IsInf(bound, 1) {
		start := time.Now()
		lb, ok, err := p.lpBound(s.e.cfg.LPMaxVars)
		switch {
		case err != nil:
			log.Debugf("lp relaxation of %s failed: %v", m.Name, err)
		case ok:
			log.Debugf("lp relaxation of %s: bound %.4f in %s", m.Name, lb, time.Since(start))
			bound = max(bound, lb)
		default:
			log.Debugf("lp relaxation of %s skipped", m.Name)
		}
	}

	threads := max(params.Threads, 1)
	sh := newShared(ctx, params.NodeLimit, s.e.cfg.CheckEvery, bound)
	if math.IsInf(bound, 1) {
		// some chain has no placement at all
		log.Debugf("model %s has an unplaceable task", m.Name)
	} else {
		p.run(sh, threads)
	}

	res := solver.Result{SearchEffort: sh.nodes.Load()}
	reason := stopReason(sh.reason.Load())
	if sh.found {
		obj := sh.best.Objective
		res.Objective = &obj
		res.Solution = sh.best
	}
	switch reason {
	case stopCanceled:
		return res, ctx.Err()
	case stopDeadline:
		res.Status = solver.TimedOut
	case stopNodes:
		res.Status = solver.Unknown
		if sh.found {
			res.Status = solver.Feasible
		}
	default:
		res.Status = solver.Infeasible
		if sh.found {
			res.Status = solver.Optimal
		}
	}
	switch {
	case res.Status == solver.Optimal:
		b := *res.Objective
		res.BestBound = &b
	case res.Status != solver.Infeasible && !math.IsInf(bound, 1):
		b := bound
		res.BestBound = &b
	}
	log.Infof("search %s: %s after %d nodes (%d threads)", m.Name, res.Status, res.SearchEffort, threads)
	return res, nil
}
