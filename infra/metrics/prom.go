package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/unitcommit/core/metrics"
	"github.com/kilianp07/unitcommit/core/schedule"
)

// PromSink records planning runs in Prometheus metrics.
type PromSink struct {
	solves    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	objective *prometheus.GaugeVec
	nodes     *prometheus.GaugeVec
	size      *prometheus.GaugeVec
	startups  *prometheus.GaugeVec
	shifted   *prometheus.GaugeVec
}

// solveBuckets cover sub-second toy cases up to the default five minute limit.
var solveBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300}

// NewPromSink registers planner metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	s, err := NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uc_solves_total",
			Help: "Total number of unit commitment solves by solver and status",
		}, []string{"solver", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uc_solve_duration_seconds",
			Help:    "Wall time spent in the solver",
			Buckets: solveBuckets,
		}, []string{"solver"}),
		objective: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uc_objective_cost",
			Help: "Total cost of the last optimal schedule",
		}, []string{"case"}),
		nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uc_solve_nodes",
			Help: "Branch and bound nodes explored by the last solve",
		}, []string{"case", "solver"}),
		size: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uc_problem_size",
			Help: "Columns and rows of the last assembled problem",
		}, []string{"case", "kind"}),
		startups: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uc_schedule_startups",
			Help: "Unit starts in the last optimal schedule",
		}, []string{"case"}),
		shifted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "uc_schedule_shifted_mwh",
			Help: "Demand moved to other periods in the last optimal schedule",
		}, []string{"case"}),
	}
	var err error
	if s.solves, err = register(reg, s.solves); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	for _, g := range []**prometheus.GaugeVec{&s.objective, &s.nodes, &s.size, &s.startups, &s.shifted} {
		if *g, err = register(reg, *g); err != nil {
			return nil, err
		}
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

// RecordSolve counts the solve and records its duration and size.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(ev.Solver, ev.Status).Inc()
	s.duration.WithLabelValues(ev.Solver).Observe(ev.Duration.Seconds())
	s.nodes.WithLabelValues(ev.Case, ev.Solver).Set(float64(ev.Nodes))
	// events from runs that never built a problem carry no size
	if ev.Vars > 0 {
		s.size.WithLabelValues(ev.Case, "vars").Set(float64(ev.Vars))
		s.size.WithLabelValues(ev.Case, "rows").Set(float64(ev.Rows))
	}
	if ev.Status == "optimal" {
		s.objective.WithLabelValues(ev.Case).Set(ev.Objective)
	}
	return nil
}

// RecordSchedule sets the schedule summary gauges.
func (s *PromSink) RecordSchedule(sch *schedule.Schedule) error {
	if sch == nil {
		return nil
	}
	s.startups.WithLabelValues(sch.Case).Set(float64(sch.Startups()))
	s.shifted.WithLabelValues(sch.Case).Set(sch.ShiftedEnergy())
	return nil
}
