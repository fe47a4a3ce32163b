// Package app wires configuration into a ready-to-use planning service.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/unitcommit/config"
	"github.com/kilianp07/unitcommit/core/events"
	coremetrics "github.com/kilianp07/unitcommit/core/metrics"
	"github.com/kilianp07/unitcommit/core/model"
	coremon "github.com/kilianp07/unitcommit/core/monitoring"
	"github.com/kilianp07/unitcommit/core/planner"
	"github.com/kilianp07/unitcommit/core/runlog"
	"github.com/kilianp07/unitcommit/core/schedule"
	coresolver "github.com/kilianp07/unitcommit/core/solver"
	"github.com/kilianp07/unitcommit/infra/casefile"
	"github.com/kilianp07/unitcommit/infra/logger"
	"github.com/kilianp07/unitcommit/infra/metrics"
	"github.com/kilianp07/unitcommit/infra/monitoring"
	"github.com/kilianp07/unitcommit/infra/mqtt"
	_ "github.com/kilianp07/unitcommit/infra/solver"
	"github.com/kilianp07/unitcommit/internal/eventbus"
)

const flushTimeout = 2 * time.Second

// Service owns the planner and its side channels.
type Service struct {
	Planner *planner.Planner

	cfg       *config.Config
	bus       *eventbus.Bus[events.PlanEvent]
	sink      coremetrics.MetricsSink
	store     runlog.Store
	publisher *mqtt.PahoPublisher
	monitor   coremon.Monitor
	log       logger.Logger
	collector <-chan struct{}
}

// New creates a Service from the configuration. The MQTT publisher is only
// connected when a broker is configured.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	s, err := coresolver.New(cfg.Solver)
	if err != nil {
		return nil, err
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		coremetrics.CloseSinks(sink)
		return nil, err
	}

	svc := &Service{cfg: cfg, sink: sink, store: store, monitor: mon, log: logg}
	opts := []planner.Option{
		planner.WithTimeLimit(cfg.Solver.TimeLimit()),
		planner.WithLogger(logger.New("planner")),
		planner.WithRunLog(store),
		planner.WithMonitor(mon),
	}
	if cfg.MQTT.Enabled() {
		pub, err := mqtt.NewPahoPublisher(cfg.MQTT, mon)
		if err != nil {
			coremetrics.CloseSinks(sink)
			_ = store.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
		opts = append(opts, planner.WithPublisher(pub))
	}

	svc.bus = eventbus.New[events.PlanEvent]()
	opts = append(opts, planner.WithEventBus(svc.bus))
	svc.collector = coremetrics.StartEventCollector(context.Background(), svc.bus, sink, logger.New("metrics"))
	svc.Planner = planner.New(s, opts...)
	logg.Infof("service ready: solver %s, run log %s", s.Name(), cfg.RunLog.Backend)
	return svc, nil
}

// Instance applies the configured planning defaults to c and validates it.
func (s *Service) Instance(c model.Case) (*model.Instance, error) {
	return model.Build(s.cfg.Planning.Apply(c))
}

// Plan validates c and solves it.
func (s *Service) Plan(ctx context.Context, c model.Case) (*schedule.Schedule, error) {
	inst, err := s.Instance(c)
	if err != nil {
		return nil, err
	}
	return s.Planner.Plan(ctx, inst)
}

// Run serves Prometheus metrics when an address is configured, solves the
// case at casePath once when it is set, and blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context, casePath string) error {
	serveErr := make(chan error, 1)
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			serveErr <- metrics.StartPromServer(ctx, addr, prometheus.DefaultGatherer, s.log)
		}()
	}
	if casePath != "" {
		c, err := casefile.Load(casePath)
		if err != nil {
			return err
		}
		if _, err := s.Plan(ctx, c); err != nil {
			s.log.Errorf("plan %s: %v", casePath, err)
		}
	}
	select {
	case <-ctx.Done():
		return nil
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("prom server: %w", err)
		}
		<-ctx.Done()
		return nil
	}
}

// Close drains pending metrics and releases every side channel.
func (s *Service) Close() error {
	s.bus.Close()
	<-s.collector
	coremetrics.CloseSinks(s.sink)
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	s.monitor.Flush(flushTimeout)
	return s.store.Close()
}
