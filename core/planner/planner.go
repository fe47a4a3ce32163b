// Package planner runs the unit commitment pipeline: formulate, solve,
// extract the schedule, and report the outcome to the configured side
// channels.
package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/unitcommit/core/events"
	"github.com/kilianp07/unitcommit/core/formulation"
	"github.com/kilianp07/unitcommit/core/logger"
	"github.com/kilianp07/unitcommit/core/model"
	"github.com/kilianp07/unitcommit/core/monitoring"
	"github.com/kilianp07/unitcommit/core/mqtt"
	"github.com/kilianp07/unitcommit/core/runlog"
	"github.com/kilianp07/unitcommit/core/schedule"
	"github.com/kilianp07/unitcommit/core/solver"
	"github.com/kilianp07/unitcommit/internal/eventbus"
)

// sideChannelTimeout bounds run log and publish calls after a solve.
const sideChannelTimeout = 10 * time.Second

// Planner solves instances with one backend. It holds no per-run state and
// may be shared between goroutines.
type Planner struct {
	solver    solver.Solver
	timeLimit time.Duration
	logger    logger.Logger
	bus       *eventbus.Bus[events.PlanEvent]
	store     runlog.Store
	publisher mqtt.Publisher
	monitor   monitoring.Monitor
	now       func() time.Time
	newID     func() string
}

// Option configures a Planner.
type Option func(*Planner)

// WithTimeLimit bounds each solve. Zero means no limit.
func WithTimeLimit(d time.Duration) Option { return func(p *Planner) { p.timeLimit = d } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(p *Planner) { p.logger = logger.OrNop(l) } }

// WithEventBus publishes lifecycle events on bus.
func WithEventBus(bus *eventbus.Bus[events.PlanEvent]) Option {
	return func(p *Planner) { p.bus = bus }
}

// WithRunLog records every run in store.
func WithRunLog(store runlog.Store) Option { return func(p *Planner) { p.store = store } }

// WithPublisher publishes optimal schedules.
func WithPublisher(pub mqtt.Publisher) Option { return func(p *Planner) { p.publisher = pub } }

// WithMonitor reports failed runs.
func WithMonitor(m monitoring.Monitor) Option {
	return func(p *Planner) { p.monitor = monitoring.OrNop(m) }
}

// New returns a planner solving with s.
func New(s solver.Solver, opts ...Option) *Planner {
	p := &Planner{
		solver:  s,
		logger:  logger.NopLogger{},
		store:   runlog.NopStore{},
		monitor: monitoring.NopMonitor{},
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Solver returns the backend in use.
func (p *Planner) Solver() solver.Solver { return p.solver }

// Plan formulates inst, solves it and returns the schedule. Non-optimal
// outcomes return *solver.InfeasibleError, *solver.UnboundedError or
// *solver.StatusError and no schedule; backend failures are wrapped.
func (p *Planner) Plan(ctx context.Context, inst *model.Instance) (*schedule.Schedule, error) {
	run := events.PlanEvent{
		RunID:  p.newID(),
		Case:   inst.Name,
		Solver: p.solver.Name(),
	}

	f := formulation.Build(inst)
	prob := f.Problem
	run.Vars, run.Rows, run.IntegerVars = prob.NumVars(), prob.NumRows(), len(prob.IntegerCols())
	p.logger.Debugw("problem built", map[string]any{
		"run_id": run.RunID, "case": run.Case, "vars": run.Vars, "integer_vars": run.IntegerVars, "rows": run.Rows,
	})
	p.emit(run, events.StageBuilt)

	solveCtx := ctx
	if p.timeLimit > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, p.timeLimit)
		defer cancel()
	}
	start := p.now()
	sol, err := p.solver.Solve(solveCtx, prob)
	run.Duration = p.now().Sub(start)
	if err != nil {
		run.Status = solver.StatusFailed.String()
		err = fmt.Errorf("planner: %s solve: %w", run.Solver, err)
		p.fail(ctx, inst, run, err)
		return nil, err
	}
	run.Status = sol.Status.String()
	run.Nodes, run.LPIterations = sol.Stats.Nodes, sol.Stats.LPIterations
	if err := sol.Err(run.Solver); err != nil {
		p.fail(ctx, inst, run, err)
		return nil, err
	}
	if len(sol.Values) != prob.NumVars() {
		run.Status = solver.StatusFailed.String()
		err := &solver.StatusError{Solver: run.Solver, Status: solver.StatusFailed,
			Message: fmt.Sprintf("solution has %d values for %d columns", len(sol.Values), prob.NumVars())}
		p.fail(ctx, inst, run, err)
		return nil, err
	}

	sch := Extract(f, sol.Values)
	sch.RunID = run.RunID
	sch.Case = run.Case
	sch.Solver = run.Solver
	sch.SolvedAt = p.now().UTC()
	sch.TotalCost = sol.Objective
	run.Objective = sol.Objective
	run.Schedule = sch

	p.logger.Infof("planner: run %s case %q solved by %s: cost %.2f, %d nodes in %s",
		run.RunID, run.Case, run.Solver, sol.Objective, run.Nodes, run.Duration.Round(time.Millisecond))
	p.record(ctx, inst, run, nil)
	p.emit(run, events.StageSolved)
	p.publish(ctx, sch)
	return sch, nil
}

func (p *Planner) fail(ctx context.Context, inst *model.Instance, run events.PlanEvent, err error) {
	run.Err = err
	p.logger.Errorf("planner: run %s case %q failed: %v", run.RunID, run.Case, err)
	p.monitor.CaptureException(err, monitoring.RunTags(run.RunID, run.Case, run.Solver, run.Status))
	p.record(ctx, inst, run, err)
	p.emit(run, events.StageFailed)
}

func (p *Planner) emit(run events.PlanEvent, stage events.Stage) {
	if p.bus == nil {
		return
	}
	run.Stage = stage
	run.Time = p.now()
	p.bus.Publish(run)
}

func (p *Planner) record(ctx context.Context, inst *model.Instance, run events.PlanEvent, runErr error) {
	rec := runlog.Record{
		RunID:           run.RunID,
		Timestamp:       p.now().UTC(),
		Case:            run.Case,
		Solver:          run.Solver,
		Status:          run.Status,
		Objective:       run.Objective,
		Periods:         inst.Periods,
		ShiftMaxPercent: inst.Shift.MaxPercent,
		ShiftMaxHours:   inst.Shift.MaxHours,
		Vars:            run.Vars,
		IntegerVars:     run.IntegerVars,
		Rows:            run.Rows,
		Nodes:           run.Nodes,
		LPIterations:    run.LPIterations,
		DurationMS:      run.Duration.Milliseconds(),
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideChannelTimeout)
	defer cancel()
	if err := p.store.Append(rctx, rec); err != nil {
		p.logger.Errorf("planner: run log append %s: %v", run.RunID, err)
	}
}

func (p *Planner) publish(ctx context.Context, sch *schedule.Schedule) {
	if p.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideChannelTimeout)
	defer cancel()
	if _, err := p.publisher.PublishSchedule(pctx, sch); err != nil {
		p.logger.Errorf("planner: publish schedule %s: %v", sch.RunID, err)
	}
}
