// Package runlog persists one record per planning run and answers simple
// queries over them.
package runlog

import (
	"context"
	"time"
)

// Record captures the outcome of one planning run.
type Record struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Case      string    `json:"case"`
	Solver    string    `json:"solver"`
	Status    string    `json:"status"`
	// Objective is the total cost. It is zero unless Status is optimal.
	Objective       float64 `json:"objective"`
	Periods         int     `json:"periods"`
	ShiftMaxPercent float64 `json:"shift_max_percent"`
	ShiftMaxHours   int     `json:"shift_max_hours"`
	Vars            int     `json:"vars"`
	IntegerVars     int     `json:"integer_vars"`
	Rows            int     `json:"rows"`
	Nodes           int     `json:"nodes"`
	LPIterations    int     `json:"lp_iterations"`
	DurationMS      int64   `json:"duration_ms"`
	Error           string  `json:"error,omitempty"`
}

// Query filters records. Zero fields match everything.
type Query struct {
	Status string
	Case   string
	Since  time.Time
	Until  time.Time
	// Limit keeps only the most recent records.
	Limit int
}

// Match reports whether r passes the filters.
func (q Query) Match(r Record) bool {
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.Case != "" && r.Case != q.Case {
		return false
	}
	if !q.Since.IsZero() && r.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && r.Timestamp.After(q.Until) {
		return false
	}
	return true
}

func (q Query) limit(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists Records and supports querying. Records come back in append
// order.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
