package metrics

import (
	"context"

	"github.com/kilianp07/districtsched/core/events"
	"github.com/kilianp07/districtsched/core/metrics"
	"github.com/kilianp07/districtsched/infra/logger"
	"github.com/kilianp07/districtsched/internal/eventbus"
)

// StartCollector subscribes to the event bus and records telemetry into the
// sink. It stops when the context is canceled.
func StartCollector(ctx context.Context, bus eventbus.EventBus, sink metrics.Sink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil && log != nil {
					log.Warnf("metrics record failed: %v", err)
				}
			}
		}
	}()
}

func record(sink metrics.Sink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.IterationEvent:
		return sink.RecordIteration(metrics.IterationRecord{
			RunID:     e.RunID,
			Algorithm: e.Algorithm,
			Index:     e.Index,
			RNorm:     e.RNorm,
			SNorm:     e.SNorm,
			Objective: e.Objective,
		})
	case events.RunEvent:
		return sink.RecordRun(metrics.RunRecord{
			RunID:      e.RunID,
			Algorithm:  e.Algorithm,
			Iterations: e.Iterations,
			Converged:  e.Converged,
			Failed:     e.Err != nil,
			Duration:   e.Duration,
		})
	}
	return nil
}
