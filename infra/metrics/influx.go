package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/ecas/core/metrics"
	"github.com/kilianp07/ecas/infra/logger"
)

// InfluxSink writes run records to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSolveResult writes a solve_result point.
func (s *InfluxSink) RecordSolveResult(r coremetrics.SolveResult) error {
	p := write.NewPointWithMeasurement("solve_result").
		AddTag("run_id", r.RunID).
		AddTag("instance", r.Instance).
		AddTag("engine", r.Engine).
		AddTag("fragmentation", r.Fragmentation).
		AddTag("status", r.Status.String()).
		AddField("cpu_time", round3(r.CPUTime)).
		AddField("wall_time_ms", r.WallTime.Milliseconds()).
		AddField("search_effort", r.SearchEffort).
		SetTime(r.Time)
	if r.Objective != nil {
		p.AddField("objective", round3(*r.Objective))
	}
	if r.BestBound != nil {
		p.AddField("best_bound", round3(*r.BestBound))
	}
	return s.write(p)
}

// RecordModelSize writes a model_size point.
func (s *InfluxSink) RecordModelSize(ev coremetrics.ModelSizeEvent) error {
	p := write.NewPointWithMeasurement("model_size").
		AddTag("run_id", ev.RunID).
		AddTag("instance", ev.Instance).
		AddTag("fragmentation", ev.Fragmentation).
		AddField("intervals", ev.Size.Intervals).
		AddField("optional", ev.Size.Optional).
		AddField("constraints", ev.Size.Constraints).
		AddField("terms", ev.Size.Terms).
		AddField("build_time_ms", ev.BuildTime.Milliseconds()).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordFault writes a solver_fault point.
func (s *InfluxSink) RecordFault(ev coremetrics.FaultEvent) error {
	p := write.NewPointWithMeasurement("solver_fault").
		AddTag("run_id", ev.RunID).
		AddTag("engine", ev.Engine).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
