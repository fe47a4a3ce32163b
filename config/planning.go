package config

import (
	"fmt"

	"github.com/kilianp07/unitcommit/core/model"
)

// Planning defaults applied when neither the case nor the config sets them.
const (
	DefaultShiftMaxPercent = 0.2
	DefaultShiftMaxHours   = 4
)

// PlanningConfig holds the horizon and demand-shift knobs used for cases that
// omit them. The shift knobs are pointers so that an explicit zero survives
// defaulting.
type PlanningConfig struct {
	Periods         int      `json:"periods"`
	ShiftMaxPercent *float64 `json:"shift_max_percent"`
	ShiftMaxHours   *int     `json:"shift_max_hours"`
}

// SetDefaults fills missing values.
func (c *PlanningConfig) SetDefaults() {
	if c.Periods == 0 {
		c.Periods = model.DefaultPeriods
	}
	if c.ShiftMaxPercent == nil {
		v := DefaultShiftMaxPercent
		c.ShiftMaxPercent = &v
	}
	if c.ShiftMaxHours == nil {
		v := DefaultShiftMaxHours
		c.ShiftMaxHours = &v
	}
}

// Validate checks the ranges. Call SetDefaults first.
func (c PlanningConfig) Validate() error {
	if c.Periods < 1 {
		return fmt.Errorf("planning.periods must be >= 1, got %d", c.Periods)
	}
	if p := c.ShiftMaxPercent; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("planning.shift_max_percent must be in [0,1], got %g", *p)
	}
	if h := c.ShiftMaxHours; h != nil && *h < 0 {
		return fmt.Errorf("planning.shift_max_hours must be >= 0, got %d", *h)
	}
	return nil
}

// Apply fills the horizon and shift knobs c leaves unset.
func (c PlanningConfig) Apply(cs model.Case) model.Case {
	c.SetDefaults()
	return cs.WithDefaults(c.Periods, *c.ShiftMaxPercent, *c.ShiftMaxHours)
}
