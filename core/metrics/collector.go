package metrics

import (
	"context"

	"github.com/kilianp07/unitcommit/core/events"
	"github.com/kilianp07/unitcommit/core/logger"
	"github.com/kilianp07/unitcommit/internal/eventbus"
)

// StartEventCollector subscribes to the planner bus and records finished
// runs in sink. It stops when ctx is canceled or the bus is closed; the
// returned channel is closed at that point.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.PlanEvent], sink MetricsSink, log logger.Logger) <-chan struct{} {
	if bus == nil || sink == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	log = logger.OrNop(log)
	return bus.Handle(ctx, func(e events.PlanEvent) {
		if e.Stage == events.StageBuilt {
			return
		}
		if err := sink.RecordSolve(SolveEventFrom(e)); err != nil {
			log.Errorf("metrics: record solve %s: %v", e.RunID, err)
		}
		if e.Stage != events.StageSolved || e.Schedule == nil {
			return
		}
		if rec, ok := sink.(ScheduleRecorder); ok {
			if err := rec.RecordSchedule(e.Schedule); err != nil {
				log.Errorf("metrics: record schedule %s: %v", e.RunID, err)
			}
		}
	})
}

// SolveEventFrom converts a planner event into a metrics record.
func SolveEventFrom(e events.PlanEvent) SolveEvent {
	return SolveEvent{
		RunID:        e.RunID,
		Case:         e.Case,
		Solver:       e.Solver,
		Status:       e.Status,
		Objective:    e.Objective,
		Vars:         e.Vars,
		Rows:         e.Rows,
		Nodes:        e.Nodes,
		LPIterations: e.LPIterations,
		Duration:     e.Duration,
		Time:         e.Time,
	}
}
