package metrics

import (
	"time"

	"github.com/kilianp07/unitcommit/core/schedule"
)

// SolveEvent summarises one finished solve.
type SolveEvent struct {
	RunID        string
	Case         string
	Solver       string
	Status       string
	Objective    float64
	Vars         int
	Rows         int
	Nodes        int
	LPIterations int
	Duration     time.Duration
	Time         time.Time
}

// MetricsSink records solve outcomes for observability purposes.
type MetricsSink interface {
	RecordSolve(ev SolveEvent) error
}

// ScheduleRecorder is implemented by sinks able to store the solved schedule
// period by period.
type ScheduleRecorder interface {
	RecordSchedule(s *schedule.Schedule) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error            { return nil }
func (NopSink) RecordSchedule(*schedule.Schedule) error { return nil }
