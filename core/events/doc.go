// Package events defines the planner lifecycle events emitted on the event bus.
//
// A run publishes StageBuilt once the problem is assembled, then either
// StageSolved with the extracted schedule or StageFailed with the error.
package events
