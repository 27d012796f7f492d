package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/ecas/core/metrics"
)

// PromSink records run metrics in Prometheus collectors.
type PromSink struct {
	solves    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	effort    *prometheus.HistogramVec
	objective *prometheus.GaugeVec
	intervals *prometheus.GaugeVec
	faults    *prometheus.CounterVec
}

// NewPromSink registers run metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.solves, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecas_solves_total",
		Help: "Number of completed solves by engine and status",
	}, []string{"engine", "status"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ecas_solve_duration_seconds",
		Help:    "Wall-clock time spent in the engine",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"engine"})); err != nil {
		return nil, err
	}
	if s.effort, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ecas_search_effort_nodes",
		Help:    "Search nodes explored per solve",
		Buckets: prometheus.ExponentialBuckets(1, 10, 8),
	}, []string{"engine"})); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecas_objective_value",
		Help: "Objective value of the last feasible solve per instance",
	}, []string{"instance"})); err != nil {
		return nil, err
	}
	if s.intervals, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecas_model_intervals",
		Help: "Interval variables declared for the last model of an instance",
	}, []string{"instance", "fragmentation"})); err != nil {
		return nil, err
	}
	if s.faults, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecas_solver_faults_total",
		Help: "Number of solver faults by engine",
	}, []string{"engine"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSolveResult updates the solve counters and histograms.
func (s *PromSink) RecordSolveResult(r coremetrics.SolveResult) error {
	s.solves.WithLabelValues(r.Engine, r.Status.String()).Inc()
	s.duration.WithLabelValues(r.Engine).Observe(r.WallTime.Seconds())
	s.effort.WithLabelValues(r.Engine).Observe(float64(r.SearchEffort))
	if r.Objective != nil {
		s.objective.WithLabelValues(r.Instance).Set(*r.Objective)
	}
	return nil
}

// RecordModelSize sets the interval gauge of the instance.
func (s *PromSink) RecordModelSize(ev coremetrics.ModelSizeEvent) error {
	s.intervals.WithLabelValues(ev.Instance, ev.Fragmentation).Set(float64(ev.Size.Intervals))
	return nil
}

// RecordFault increments the fault counter.
func (s *PromSink) RecordFault(ev coremetrics.FaultEvent) error {
	s.faults.WithLabelValues(ev.Engine).Inc()
	return nil
}
