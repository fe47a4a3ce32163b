package metrics

import (
	"errors"

	"github.com/kilianp07/unitcommit/core/schedule"
)

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the event to every sink. All sinks are tried; their
// errors are joined.
func (m *MultiSink) RecordSolve(ev SolveEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordSchedule forwards the schedule to sinks implementing ScheduleRecorder.
func (m *MultiSink) RecordSchedule(sch *schedule.Schedule) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ScheduleRecorder); ok {
			if err := rec.RecordSchedule(sch); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
