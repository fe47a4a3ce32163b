package formulation

import (
	"fmt"

	"github.com/kilianp07/unitcommit/core/milp"
	"github.com/kilianp07/unitcommit/core/model"
)

// Vars maps every decision variable to its column. Per-entity tables are
// indexed [entity][period].
type Vars struct {
	Y, U, V, P        [][]int
	Flow              [][]int
	Renewable         [][]int
	Charge, Discharge [][]int
	SOC               [][]int
	Pairs             []model.ShiftPair
	Shift             [][]int // [bus][pair]

	pairsFrom [][]int // [period] -> pair indices with From == period
	pairsTo   [][]int // [period] -> pair indices with To == period
}

// ShiftOut returns the shift columns moving demand out of period t at bus b.
func (v *Vars) ShiftOut(b, t int) []int {
	out := make([]int, 0, len(v.pairsFrom[t]))
	for _, k := range v.pairsFrom[t] {
		out = append(out, v.Shift[b][k])
	}
	return out
}

// ShiftIn returns the shift columns moving demand into period t at bus b.
func (v *Vars) ShiftIn(b, t int) []int {
	out := make([]int, 0, len(v.pairsTo[t]))
	for _, k := range v.pairsTo[t] {
		out = append(out, v.Shift[b][k])
	}
	return out
}

func grid(p *milp.Problem, n, periods int, d milp.Domain, name func(i, t int) string) [][]int {
	out := make([][]int, n)
	for i := range out {
		out[i] = make([]int, periods)
		for t := 0; t < periods; t++ {
			out[i][t] = p.AddVar(name(i, t), d)
		}
	}
	return out
}

func declareVariables(p *milp.Problem, in *model.Instance) Vars {
	T := in.Periods
	var v Vars

	gen := func(prefix string) func(i, t int) string {
		return func(i, t int) string { return fmt.Sprintf("%s[%s,%d]", prefix, in.Generators[i].ID, t+1) }
	}
	nG := len(in.Generators)
	v.Y = grid(p, nG, T, milp.Binary, gen("y"))
	v.U = grid(p, nG, T, milp.Binary, gen("u"))
	v.V = grid(p, nG, T, milp.Binary, gen("v"))
	v.P = grid(p, nG, T, milp.NonNegative, gen("P"))

	v.Flow = grid(p, len(in.Lines), T, milp.Free, func(i, t int) string {
		return fmt.Sprintf("Flow[%s,%d]", in.Lines[i].ID, t+1)
	})
	v.Renewable = grid(p, len(in.Renewables), T, milp.NonNegative, func(i, t int) string {
		return fmt.Sprintf("P_renewables[%s,%d]", in.Renewables[i].ID, t+1)
	})

	stor := func(prefix string) func(i, t int) string {
		return func(i, t int) string { return fmt.Sprintf("%s[%s,%d]", prefix, in.Storage[i].ID, t+1) }
	}
	nS := len(in.Storage)
	v.Charge = grid(p, nS, T, milp.NonNegative, stor("Charge"))
	v.Discharge = grid(p, nS, T, milp.NonNegative, stor("Discharge"))
	v.SOC = grid(p, nS, T, milp.NonNegative, stor("SOC"))

	v.Pairs = in.Shift.Pairs(T)
	v.pairsFrom = make([][]int, T)
	v.pairsTo = make([][]int, T)
	for k, pr := range v.Pairs {
		v.pairsFrom[pr.From] = append(v.pairsFrom[pr.From], k)
		v.pairsTo[pr.To] = append(v.pairsTo[pr.To], k)
	}
	v.Shift = make([][]int, len(in.Buses))
	for b := range in.Buses {
		v.Shift[b] = make([]int, len(v.Pairs))
		for k, pr := range v.Pairs {
			v.Shift[b][k] = p.AddVar(fmt.Sprintf("shift[%s,%d,%d]", in.Buses[b].ID, pr.From+1, pr.To+1), milp.NonNegative)
		}
	}
	return v
}
