package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/ecas/core/events"
	coremetrics "github.com/kilianp07/ecas/core/metrics"
	"github.com/kilianp07/ecas/infra/logger"
	"github.com/kilianp07/ecas/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// lifecycle events. It stops when the context is canceled or the bus is
// closed; the returned channel is closed once it has stopped.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev, time.Now()); err != nil {
					log.Warnf("record %T for run %s: %v", ev, ev.Run(), err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.MetricsSink, ev events.Event, now time.Time) error {
	switch e := ev.(type) {
	case events.ModelBuilt:
		if r, ok := sink.(coremetrics.ModelSizeRecorder); ok {
			return r.RecordModelSize(coremetrics.ModelSizeEvent{
				RunID:         e.RunID,
				Instance:      e.Instance,
				Fragmentation: e.Fragmentation,
				Size:          e.Size,
				BuildTime:     e.BuildTime,
				Time:          now,
			})
		}
	case events.SolveFinished:
		st := e.Stats
		return sink.RecordSolveResult(coremetrics.SolveResult{
			RunID:         e.RunID,
			Instance:      e.Instance,
			Engine:        e.Engine,
			Fragmentation: e.Fragmentation,
			Status:        st.Status,
			Objective:     st.ObjectiveValue,
			BestBound:     st.BestBound,
			CPUTime:       st.CPUTime,
			WallTime:      st.WallTime,
			SearchEffort:  st.SearchEffort,
			Time:          now,
		})
	case events.SolverFaulted:
		if r, ok := sink.(coremetrics.FaultRecorder); ok {
			msg := ""
			if e.Err != nil {
				msg = e.Err.Error()
			}
			return r.RecordFault(coremetrics.FaultEvent{RunID: e.RunID, Engine: e.Engine, Error: msg, Time: now})
		}
	}
	return nil
}
