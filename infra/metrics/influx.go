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

	coremetrics "github.com/kilianp07/unitcommit/core/metrics"
	"github.com/kilianp07/unitcommit/core/schedule"
	"github.com/kilianp07/unitcommit/infra/logger"
)

// InfluxSink writes solve summaries and per-period schedules to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	// Step is the duration of one period. Period t of a schedule is stamped
	// at the hour of SolvedAt plus (t-1)*Step.
	Step time.Duration
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
		Step:     time.Hour,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
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

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordSolve writes one uc_solve point.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts := ev.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	p := write.NewPointWithMeasurement("uc_solve").
		AddTag("case", ev.Case).
		AddTag("solver", ev.Solver).
		AddTag("status", ev.Status).
		AddTag("run_id", ev.RunID).
		AddField("objective", round3(ev.Objective)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		AddField("nodes", ev.Nodes).
		AddField("lp_iterations", ev.LPIterations).
		AddField("vars", ev.Vars).
		AddField("rows", ev.Rows).
		SetTime(ts)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSchedule writes one point per entity and period in a single batch.
func (s *InfluxSink) RecordSchedule(sch *schedule.Schedule) error {
	if sch == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, s.schedulePoints(sch)...)
}

func (s *InfluxSink) schedulePoints(sch *schedule.Schedule) []*write.Point {
	origin := sch.SolvedAt
	if origin.IsZero() {
		origin = time.Now()
	}
	origin = origin.Truncate(time.Hour)
	step := s.Step
	if step <= 0 {
		step = time.Hour
	}
	at := func(t int) time.Time { return origin.Add(time.Duration(t) * step) }
	base := func(measurement, key, id string, t int) *write.Point {
		return write.NewPointWithMeasurement(measurement).
			AddTag("case", sch.Case).
			AddTag("run_id", sch.RunID).
			AddTag(key, id).
			SetTime(at(t))
	}

	var pts []*write.Point
	for _, id := range schedule.Keys(sch.Generators) {
		g := sch.Generators[id]
		for t := 0; t < sch.Periods; t++ {
			pts = append(pts, base("uc_generator", "generator", id, t).
				AddTag("bus", g.ConnectedBus).
				AddField("power_mw", round3(valueAt(g.PowerOutput, t))).
				AddField("on", valueAt(g.OnOffStatus, t)).
				AddField("startup", valueAt(g.Startup, t)).
				AddField("shutdown", valueAt(g.Shutdown, t)))
		}
	}
	for _, id := range schedule.Keys(sch.Buses) {
		b := sch.Buses[id]
		for t := 0; t < sch.Periods; t++ {
			pts = append(pts, base("uc_bus", "bus", id, t).
				AddField("demand_mw", round3(valueAt(b.Demand, t))).
				AddField("shift_mw", round3(valueAt(b.Shift, t))))
		}
	}
	for _, id := range schedule.Keys(sch.Lines) {
		l := sch.Lines[id]
		for t := 0; t < sch.Periods; t++ {
			pts = append(pts, base("uc_line", "line", id, t).
				AddTag("from_bus", l.FromBus).
				AddTag("to_bus", l.ToBus).
				AddField("flow_mw", round3(valueAt(l.Flow, t))))
		}
	}
	for _, id := range schedule.Keys(sch.Renewables) {
		r := sch.Renewables[id]
		for t := 0; t < sch.Periods; t++ {
			pts = append(pts, base("uc_renewable", "renewable", id, t).
				AddTag("bus", r.ConnectedBus).
				AddField("power_mw", round3(valueAt(r.PowerOutput, t))))
		}
	}
	for _, id := range schedule.Keys(sch.Storage) {
		st := sch.Storage[id]
		for t := 0; t < sch.Periods; t++ {
			pts = append(pts, base("uc_storage", "storage", id, t).
				AddTag("bus", st.ConnectedBus).
				AddField("charge_mw", round3(valueAt(st.Charge, t))).
				AddField("discharge_mw", round3(valueAt(st.Discharge, t))).
				AddField("soc", round3(valueAt(st.SoC, t))))
		}
	}
	return pts
}

func valueAt(s []float64, t int) float64 {
	if t < len(s) {
		return s[t]
	}
	return 0
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
