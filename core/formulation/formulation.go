// Package formulation turns a validated model.Instance into a MILP.
package formulation

import (
	"github.com/kilianp07/unitcommit/core/milp"
	"github.com/kilianp07/unitcommit/core/model"
)

// Formulation is an assembled problem together with the column map needed to
// read a solution back.
type Formulation struct {
	Problem  *milp.Problem
	Vars     Vars
	Instance *model.Instance
}

// Build declares variables, constraints and the objective for in. It has no
// side effects and may be called concurrently.
func Build(in *model.Instance) *Formulation {
	name := in.Name
	if name == "" {
		name = "unit_commitment"
	}
	p := milp.New(name)
	v := declareVariables(p, in)
	b := &builder{p: p, in: in, v: &v}
	b.addConstraints()
	p.SetObjective(b.objective())
	return &Formulation{Problem: p, Vars: v, Instance: in}
}

// Series reads one row of a per-entity column table from x.
func Series(x []float64, cols []int) []float64 {
	out := make([]float64, len(cols))
	for t, c := range cols {
		out[t] = x[c]
	}
	return out
}

// NetShift returns shift_in - shift_out for bus b in every period.
func (f *Formulation) NetShift(x []float64, b int) []float64 {
	out := make([]float64, f.Instance.Periods)
	for t := range out {
		for _, c := range f.Vars.ShiftIn(b, t) {
			out[t] += x[c]
		}
		for _, c := range f.Vars.ShiftOut(b, t) {
			out[t] -= x[c]
		}
	}
	return out
}
