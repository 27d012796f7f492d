package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ecas/config"
	"github.com/kilianp07/ecas/core/cp"
	coremetrics "github.com/kilianp07/ecas/core/metrics"
	"github.com/kilianp07/ecas/core/model"
	"github.com/kilianp07/ecas/core/solver"
	"github.com/kilianp07/ecas/infra/mqtt"
	"github.com/kilianp07/ecas/infra/runlog"
)

type sinkRecorder struct {
	mu     sync.Mutex
	solves []coremetrics.SolveResult
	sizes  int
	faults int
}

func (r *sinkRecorder) RecordSolveResult(res coremetrics.SolveResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solves = append(r.solves, res)
	return nil
}

func (r *sinkRecorder) RecordModelSize(coremetrics.ModelSizeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes++
	return nil
}

func (r *sinkRecorder) RecordFault(coremetrics.FaultEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faults++
	return nil
}

type monitorRecorder struct {
	errs []error
	tags []map[string]string
}

func (m *monitorRecorder) CaptureException(err error, tags map[string]string) {
	m.errs = append(m.errs, err)
	m.tags = append(m.tags, tags)
}
func (m *monitorRecorder) Recover()            {}
func (m *monitorRecorder) Flush(time.Duration) {}

type fixedCPU struct{ t float64 }

func (f *fixedCPU) CPUTime() (float64, error) {
	f.t += 0.5
	return f.t, nil
}

type brokenEngine struct{}

func (brokenEngine) Name() string                  { return "broken" }
func (brokenEngine) Open() (solver.Session, error) { return brokenSession{}, nil }

type brokenSession struct{}

func (brokenSession) Solve(context.Context, *cp.Model, solver.Params) (solver.Result, error) {
	return solver.Result{}, errors.New("segfault in engine")
}
func (brokenSession) Close() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{RunLog: runlog.Config{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "runs.db")}}
	cfg.Solver.Threads = 1
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func smallInstance() *model.Instance {
	return &model.Instance{
		TimeResolution: 60,
		Machines: []model.Machine{
			{ID: 1, ResourceCapacity: []int{4, 4, 4}},
			{ID: 2, ResourceCapacity: []int{4, 4, 4}},
		},
		Tasks: []model.Task{
			{ID: 1, EarliestStart: 1, LatestEnd: 5, Duration: 2, PowerConsumption: 2, ResourceUsage: []int{1, 1, 1}},
		},
		Prices: model.Flat(24, 1),
	}
}

func TestServiceRun(t *testing.T) {
	sink := &sinkRecorder{}
	pub := mqtt.NewMockPublisher()
	svc, err := New(context.Background(), testConfig(t),
		WithSink(sink), WithPublisher(pub), WithMonitor(&monitorRecorder{}), WithCPUSampler(&fixedCPU{}))
	require.NoError(t, err)

	origin := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	res, err := svc.Run(context.Background(), "small", smallInstance(), origin)
	require.NoError(t, err)
	assert.Equal(t, solver.Optimal, res.Stats.Status)
	require.NotNil(t, res.Stats.ObjectiveValue)
	assert.InDelta(t, 4.0, *res.Stats.ObjectiveValue, 1e-9)
	assert.InDelta(t, 0.5, res.Stats.CPUTime, 1e-9)
	require.NotNil(t, res.Schedule)
	assert.Len(t, res.PlanIDs, 2)
	assert.Len(t, pub.Plans, 2)
	assert.Equal(t, origin, pub.Plans[1].Origin)

	recs, err := svc.Store().Query(context.Background(), runlog.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.RunID, recs[0].RunID)
	assert.Equal(t, "atomic", recs[0].Fragmentation)
	assert.Equal(t, 1, recs[0].Options.Threads)

	require.NoError(t, svc.Close())
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.solves, 1)
	assert.Equal(t, "small", sink.solves[0].Instance)
	assert.Equal(t, 1, sink.sizes)
}

func TestServiceRun_Infeasible(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	svc, err := New(context.Background(), testConfig(t), WithPublisher(pub), WithMonitor(&monitorRecorder{}))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	inst := smallInstance()
	inst.Machines = inst.Machines[:1]
	inst.Machines[0].ResourceCapacity = []int{1, 1, 1}
	inst.Tasks = []model.Task{
		{ID: 1, EarliestStart: 2, LatestEnd: 4, Duration: 2, PowerConsumption: 1, ResourceUsage: []int{1, 0, 0}},
		{ID: 2, EarliestStart: 2, LatestEnd: 4, Duration: 2, PowerConsumption: 1, ResourceUsage: []int{1, 0, 0}},
	}
	res, err := svc.Run(context.Background(), "overlap", inst, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, solver.Infeasible, res.Stats.Status)
	assert.Nil(t, res.Stats.ObjectiveValue)
	assert.Nil(t, res.Schedule)
	assert.Empty(t, pub.Plans)

	recs, err := svc.Store().Query(context.Background(), runlog.Query{Statuses: []solver.Status{solver.Infeasible}})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

// countingEngine counts the sessions opened against it.
type countingEngine struct{ opened int }

func (e *countingEngine) Name() string { return "counting" }
func (e *countingEngine) Open() (solver.Session, error) {
	e.opened++
	return brokenSession{}, nil
}

func TestServiceRun_Malformed(t *testing.T) {
	engine := &countingEngine{}
	svc, err := New(context.Background(), testConfig(t), WithEngine(engine), WithMonitor(&monitorRecorder{}))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	cases := map[string]func(*model.Instance){
		"short window": func(in *model.Instance) { in.Tasks[0].LatestEnd = in.Tasks[0].EarliestStart + 1 },
		"short prices": func(in *model.Instance) { in.Prices = in.Prices[:10] },
		"capacities":   func(in *model.Instance) { in.Machines[1].ResourceCapacity = []int{4, 4} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			inst := smallInstance()
			mutate(inst)
			_, err := svc.Run(context.Background(), "bad", inst, time.Time{})
			assert.ErrorIs(t, err, model.ErrMalformedInstance)
		})
	}
	assert.Zero(t, engine.opened)
}

func TestServiceRun_Fault(t *testing.T) {
	sink := &sinkRecorder{}
	mon := &monitorRecorder{}
	svc, err := New(context.Background(), testConfig(t), WithEngine(brokenEngine{}), WithSink(sink), WithMonitor(mon))
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), "small", smallInstance(), time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, err, solver.ErrSolverFault)
	require.Len(t, mon.errs, 1)
	assert.Equal(t, "small", mon.tags[0]["instance"])

	require.NoError(t, svc.Close())
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 1, sink.faults)
	assert.Empty(t, sink.solves)
}

func TestNew_UnknownEngine(t *testing.T) {
	cfg := testConfig(t)
	cfg.Solver.Engine.Type = "cplex"
	_, err := New(context.Background(), cfg, WithMonitor(&monitorRecorder{}))
	assert.Error(t, err)
}
