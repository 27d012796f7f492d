// Package app wires configuration, engine, metrics, run log, plan
// publication and error monitoring into a service that schedules instances.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/ecas/config"
	"github.com/kilianp07/ecas/core/events"
	"github.com/kilianp07/ecas/core/formulation"
	coremetrics "github.com/kilianp07/ecas/core/metrics"
	"github.com/kilianp07/ecas/core/model"
	coremon "github.com/kilianp07/ecas/core/monitoring"
	coremqtt "github.com/kilianp07/ecas/core/mqtt"
	"github.com/kilianp07/ecas/core/report"
	"github.com/kilianp07/ecas/core/search"
	"github.com/kilianp07/ecas/core/solver"
	"github.com/kilianp07/ecas/infra/logger"
	"github.com/kilianp07/ecas/infra/metrics"
	"github.com/kilianp07/ecas/infra/monitoring"
	"github.com/kilianp07/ecas/infra/mqtt"
	"github.com/kilianp07/ecas/infra/runlog"
	"github.com/kilianp07/ecas/internal/eventbus"
)

// Service schedules instances with the configured engine and records every
// run.
type Service struct {
	cfg     *config.Config
	engine  solver.Engine
	sink    coremetrics.MetricsSink
	bus     *eventbus.TypedBus[events.Event]
	store   runlog.Store
	pub     coremqtt.Client
	paho    *mqtt.PahoClient
	monitor coremon.Monitor
	cpu     report.CPUSampler
	log     logger.Logger

	collected <-chan struct{}
	stop      context.CancelFunc
}

// Option overrides a dependency of the service.
type Option func(*Service)

func WithEngine(e solver.Engine) Option         { return func(s *Service) { s.engine = e } }
func WithSink(m coremetrics.MetricsSink) Option { return func(s *Service) { s.sink = m } }
func WithStore(st runlog.Store) Option          { return func(s *Service) { s.store = st } }
func WithPublisher(p coremqtt.Client) Option    { return func(s *Service) { s.pub = p } }
func WithMonitor(m coremon.Monitor) Option      { return func(s *Service) { s.monitor = m } }
func WithCPUSampler(c report.CPUSampler) Option { return func(s *Service) { s.cpu = c } }

// Result is the outcome of one run.
type Result struct {
	RunID       string
	Instance    string
	Formulation *formulation.Formulation
	Outcome     solver.Outcome
	Stats       report.Stats
	// Schedule is nil when no solution was found.
	Schedule *formulation.Schedule
	PlanIDs  []string
}

// New creates a Service from the configuration. Background tasks stop when
// ctx is canceled or Close is called.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg, log: logger.New("service")}
	for _, o := range opts {
		o(s)
	}
	ctx, s.stop = context.WithCancel(ctx)
	if err := s.init(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) init(ctx context.Context) error {
	cfg := s.cfg
	if s.monitor == nil {
		mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
		if err != nil {
			return fmt.Errorf("sentry: %w", err)
		}
		s.monitor = mon
	}
	coremon.Init(s.monitor)

	if s.engine == nil {
		e, err := solver.NewEngine(cfg.Solver.Engine)
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		if se, ok := e.(*search.Engine); ok {
			se.WithLogger(logger.New(search.Name))
		}
		s.engine = e
	}

	if s.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return fmt.Errorf("metrics sink: %w", err)
		}
		s.sink = sink
	}
	s.bus = eventbus.NewTyped[events.Event]()
	s.collected = metrics.StartEventCollector(ctx, s.bus, s.sink)
	if addr := cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			defer coremon.Recover()
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	if s.store == nil {
		st, err := runlog.Open(cfg.RunLog)
		if err != nil {
			return fmt.Errorf("run log: %w", err)
		}
		s.store = st
	}

	if s.pub == nil && cfg.MQTT.Enabled {
		cli, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("mqtt client: %w", err)
		}
		s.paho, s.pub = cli, cli
	}

	if s.cpu == nil {
		cpu, err := report.NewProcessSampler()
		if err != nil {
			s.log.Warnf("cpu sampling disabled: %v", err)
		} else {
			s.cpu = cpu
		}
	}
	return nil
}

// Bus exposes the lifecycle events of the service.
func (s *Service) Bus() *eventbus.TypedBus[events.Event] { return s.bus }

// Store exposes the run log.
func (s *Service) Store() runlog.Store { return s.store }

// Run builds the model of inst, solves it and records the run. name labels
// the instance in metrics and the run log; origin anchors slot 0 in published
// plans. Infeasible and timed out solves are results, not errors. A
// *solver.SolverFault is captured by the monitor and returned.
func (s *Service) Run(ctx context.Context, name string, inst *model.Instance, origin time.Time) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Instance: name}

	built := time.Now()
	f, err := formulation.Build(inst, s.cfg.Model)
	if err != nil {
		return nil, err
	}
	res.Formulation = f
	if ids := inst.Unhostable(); len(ids) > 0 {
		s.log.Warnf("%s: tasks %v fit no machine", name, ids)
	}
	frag := string(f.Options.Fragmentation)
	s.bus.Publish(events.ModelBuilt{
		RunID:         res.RunID,
		Instance:      name,
		Fragmentation: frag,
		Size:          f.Model.Size(),
		BuildTime:     time.Since(built),
	})

	opts := s.cfg.Solver.Options()
	s.bus.Publish(events.SolveStarted{RunID: res.RunID, Engine: s.engine.Name(), Threads: opts.Threads, TimeLimit: opts.TimeLimit})
	cpu := newDeltaSampler(s.cpu)
	out, err := solver.Solve(ctx, s.engine, f.Model, opts)
	if err != nil {
		if errors.Is(err, solver.ErrSolverFault) {
			return nil, s.fault(res.RunID, name, err)
		}
		return nil, fmt.Errorf("solve %s: %w", name, err)
	}
	res.Outcome = out
	res.Stats = report.New(out, cpu)

	if res.Stats.Feasible() && out.Solution != nil {
		sched, err := f.Extract(out.Solution)
		if err == nil {
			err = sched.Verify(inst)
		}
		if err != nil {
			return nil, s.fault(res.RunID, name, &solver.SolverFault{Engine: out.Engine, Err: fmt.Errorf("invalid schedule: %w", err)})
		}
		res.Schedule = sched
	}

	s.bus.Publish(events.SolveFinished{RunID: res.RunID, Instance: name, Engine: out.Engine, Fragmentation: frag, Stats: res.Stats})

	rec := runlog.Record{
		RunID:         res.RunID,
		Timestamp:     time.Now().UTC(),
		Instance:      name,
		Engine:        out.Engine,
		Fragmentation: frag,
		Options:       opts,
		Stats:         res.Stats,
	}
	if err := s.store.Append(ctx, rec); err != nil {
		s.log.Errorf("run log append %s: %v", res.RunID, err)
	}

	if s.pub != nil && res.Schedule != nil {
		ids := make([]int, len(inst.Machines))
		for i, m := range inst.Machines {
			ids[i] = m.ID
		}
		plans := coremqtt.PlansFrom(res.RunID, res.Schedule, ids, inst.TimeResolution, origin)
		res.PlanIDs, err = mqtt.PublishAll(s.pub, plans)
		if err != nil {
			s.log.Errorf("publish plans of %s: %v", res.RunID, err)
		}
	}

	s.log.Infof("run %s on %s: %s in %s", res.RunID, name, res.Stats.Status, res.Stats.WallTime)
	return res, nil
}

func (s *Service) fault(runID, instance string, err error) error {
	var sf *solver.SolverFault
	engine := s.engine.Name()
	if errors.As(err, &sf) {
		engine = sf.Engine
	}
	s.monitor.CaptureException(err, map[string]string{"run_id": runID, "instance": instance})
	s.bus.Publish(events.SolverFaulted{RunID: runID, Engine: engine, Err: err})
	s.log.Errorf("run %s on %s: %v", runID, instance, err)
	return err
}

// Close stops background tasks and releases resources. Pending metric
// events are recorded before it returns.
func (s *Service) Close() error {
	if s.bus != nil {
		s.bus.Close()
	}
	if s.collected != nil {
		<-s.collected
	}
	if s.stop != nil {
		s.stop()
	}
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.paho != nil {
		s.paho.Disconnect()
	}
	if s.monitor != nil {
		s.monitor.Flush(2 * time.Second)
	}
	return errors.Join(errs...)
}

// deltaSampler reports CPU time consumed since its creation.
type deltaSampler struct {
	s    report.CPUSampler
	base float64
}

func newDeltaSampler(s report.CPUSampler) report.CPUSampler {
	if s == nil {
		return nil
	}
	base, err := s.CPUTime()
	if err != nil {
		return nil
	}
	return &deltaSampler{s: s, base: base}
}

func (d *deltaSampler) CPUTime() (float64, error) {
	t, err := d.s.CPUTime()
	if err != nil {
		return 0, err
	}
	return max(t-d.base, 0), nil
}
