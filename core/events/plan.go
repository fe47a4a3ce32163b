package events

import (
	"time"

	"github.com/kilianp07/unitcommit/core/schedule"
)

// Stage is a step of a planning run.
type Stage string

const (
	StageBuilt  Stage = "built"
	StageSolved Stage = "solved"
	StageFailed Stage = "failed"
)

// PlanEvent describes one stage of a planning run.
type PlanEvent struct {
	RunID  string
	Case   string
	Solver string
	Stage  Stage

	// Problem size, set from StageBuilt on.
	Vars        int
	IntegerVars int
	Rows        int

	// Solve outcome, set on StageSolved and StageFailed.
	Status       string
	Objective    float64
	Nodes        int
	LPIterations int
	Duration     time.Duration
	Err          error

	// Schedule is set on StageSolved only.
	Schedule *schedule.Schedule
	Time     time.Time
}
