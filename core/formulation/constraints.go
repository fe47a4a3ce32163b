package formulation

import (
	"fmt"

	"github.com/kilianp07/unitcommit/core/milp"
	"github.com/kilianp07/unitcommit/core/model"
)

// Row-name prefixes of every constraint family.
const (
	RowPowerBalance  = "power_balance"
	RowShiftLimit    = "shift_limit"
	RowShiftWindow   = "shift_window"
	RowGenMin        = "gen_min"
	RowGenMax        = "gen_max"
	RowFlowMin       = "flow_min"
	RowFlowMax       = "flow_max"
	RowCommitment    = "commitment"
	RowMinUp         = "min_up"
	RowMinDown       = "min_down"
	RowRampUp        = "ramp_up"
	RowRampDown      = "ramp_down"
	RowInitialStatus = "initial_status"
	RowRenewableCap  = "renewable_cap"
	RowSOC           = "soc"
	RowChargeMax     = "charge_max"
	RowDischargeMax  = "discharge_max"
	RowSOCMax        = "soc_max"
)

func rowName(family string, id fmt.Stringer, t int) string {
	return fmt.Sprintf("%s[%s,%d]", family, id, t+1)
}

type builder struct {
	p  *milp.Problem
	in *model.Instance
	v  *Vars
}

func (b *builder) addConstraints() {
	b.powerBalance()
	b.demandShift()
	b.generatorLimits()
	b.flowLimits()
	b.commitment()
	b.minUpDown()
	b.ramping()
	b.initialStatus()
	b.renewableLimits()
	b.storage()
}

// powerBalance: local supply plus net inflow equals demand plus net shift.
func (b *builder) powerBalance() {
	in, v := b.in, b.v
	for bus := range in.Buses {
		for t := 0; t < in.Periods; t++ {
			var e milp.Expr
			for _, g := range in.GeneratorsAt(bus) {
				e = e.Plus(v.P[g][t], 1)
			}
			for _, r := range in.RenewablesAt(bus) {
				e = e.Plus(v.Renewable[r][t], 1)
			}
			for _, s := range in.StorageAt(bus) {
				e = e.Plus(v.Discharge[s][t], 1).Plus(v.Charge[s][t], -1)
			}
			for _, l := range in.LinesTo(bus) {
				e = e.Plus(v.Flow[l][t], 1)
			}
			for _, l := range in.LinesFrom(bus) {
				e = e.Plus(v.Flow[l][t], -1)
			}
			for _, c := range v.ShiftIn(bus, t) {
				e = e.Plus(c, -1)
			}
			for _, c := range v.ShiftOut(bus, t) {
				e = e.Plus(c, 1)
			}
			b.p.AddRow(rowName(RowPowerBalance, in.Buses[bus].ID, t), e, milp.EQ, in.Buses[bus].Demand[t])
		}
	}
}

func (b *builder) demandShift() {
	in, v := b.in, b.v
	for bus := range in.Buses {
		for t := 0; t < in.Periods; t++ {
			out := v.ShiftOut(bus, t)
			if len(out) == 0 {
				continue
			}
			var e milp.Expr
			for _, c := range out {
				e = e.Plus(c, 1)
			}
			b.p.AddRow(rowName(RowShiftLimit, in.Buses[bus].ID, t), e, milp.LE,
				in.Shift.MaxPercent*in.Buses[bus].Demand[t])
		}
		for k, pr := range v.Pairs {
			if in.Shift.InWindow(pr.From, pr.To) {
				continue
			}
			name := fmt.Sprintf("%s[%s,%d,%d]", RowShiftWindow, in.Buses[bus].ID, pr.From+1, pr.To+1)
			b.p.AddRow(name, milp.Expr{}.Plus(v.Shift[bus][k], 1), milp.EQ, 0)
		}
	}
}

func (b *builder) generatorLimits() {
	in, v := b.in, b.v
	for g, gen := range in.Generators {
		for t := 0; t < in.Periods; t++ {
			b.p.AddRow(rowName(RowGenMin, gen.ID, t),
				milp.Expr{}.Plus(v.P[g][t], 1).Plus(v.Y[g][t], -gen.Pmin), milp.GE, 0)
			b.p.AddRow(rowName(RowGenMax, gen.ID, t),
				milp.Expr{}.Plus(v.P[g][t], 1).Plus(v.Y[g][t], -gen.Pmax), milp.LE, 0)
		}
	}
}

func (b *builder) flowLimits() {
	in, v := b.in, b.v
	for l, line := range in.Lines {
		for t := 0; t < in.Periods; t++ {
			f := milp.Expr{}.Plus(v.Flow[l][t], 1)
			b.p.AddRow(rowName(RowFlowMin, line.ID, t), f, milp.GE, -line.Max)
			b.p.AddRow(rowName(RowFlowMax, line.ID, t), f, milp.LE, line.Max)
		}
	}
}

// commitment links status changes to startup and shutdown indicators.
func (b *builder) commitment() {
	in, v := b.in, b.v
	for g, gen := range in.Generators {
		for t := 0; t < in.Periods; t++ {
			e := milp.Expr{}.Plus(v.Y[g][t], 1).Plus(v.U[g][t], -1).Plus(v.V[g][t], 1)
			rhs := 0.0
			if t == 0 {
				rhs = float64(gen.InitialStatus)
			} else {
				e = e.Plus(v.Y[g][t-1], -1)
			}
			b.p.AddRow(rowName(RowCommitment, gen.ID, t), e, milp.EQ, rhs)
		}
	}
}

// minUpDown emits windows only once a full window fits in the horizon.
func (b *builder) minUpDown() {
	in, v := b.in, b.v
	for g, gen := range in.Generators {
		for t := gen.MinUp - 1; t < in.Periods; t++ {
			var e milp.Expr
			for k := t - gen.MinUp + 1; k <= t; k++ {
				e = e.Plus(v.U[g][k], 1)
			}
			b.p.AddRow(rowName(RowMinUp, gen.ID, t), e.Plus(v.Y[g][t], -1), milp.LE, 0)
		}
		for t := gen.MinDown - 1; t < in.Periods; t++ {
			var e milp.Expr
			for k := t - gen.MinDown + 1; k <= t; k++ {
				e = e.Plus(v.V[g][k], 1)
			}
			b.p.AddRow(rowName(RowMinDown, gen.ID, t), e.Plus(v.Y[g][t], 1), milp.LE, 1)
		}
	}
}

func (b *builder) ramping() {
	in, v := b.in, b.v
	for g, gen := range in.Generators {
		for t := 1; t < in.Periods; t++ {
			b.p.AddRow(rowName(RowRampUp, gen.ID, t),
				milp.Expr{}.Plus(v.P[g][t], 1).Plus(v.P[g][t-1], -1), milp.LE, gen.RampUp)
			b.p.AddRow(rowName(RowRampDown, gen.ID, t),
				milp.Expr{}.Plus(v.P[g][t-1], 1).Plus(v.P[g][t], -1), milp.LE, gen.RampDown)
		}
	}
}

func (b *builder) initialStatus() {
	in, v := b.in, b.v
	for g, gen := range in.Generators {
		b.p.AddRow(fmt.Sprintf("%s[%s]", RowInitialStatus, gen.ID),
			milp.Expr{}.Plus(v.Y[g][0], 1), milp.EQ, float64(gen.InitialStatus))
	}
}

func (b *builder) renewableLimits() {
	in, v := b.in, b.v
	for r, ren := range in.Renewables {
		for t := 0; t < in.Periods; t++ {
			b.p.AddRow(rowName(RowRenewableCap, ren.ID, t),
				milp.Expr{}.Plus(v.Renewable[r][t], 1), milp.LE, ren.Available(t))
		}
	}
}

// storage tracks the state of charge as a fraction of energy capacity.
// Charging is derated by the efficiency and discharging inflated by it.
func (b *builder) storage() {
	in, v := b.in, b.v
	for s, st := range in.Storage {
		E := st.EnergyCapacity()
		for t := 0; t < in.Periods; t++ {
			e := milp.Expr{}.
				Plus(v.SOC[s][t], 1).
				Plus(v.Charge[s][t], -st.Efficiency/E).
				Plus(v.Discharge[s][t], 1/(st.Efficiency*E))
			rhs := 0.0
			if t == 0 {
				rhs = st.SOCInit
			} else {
				e = e.Plus(v.SOC[s][t-1], -1)
			}
			b.p.AddRow(rowName(RowSOC, st.ID, t), e, milp.EQ, rhs)
			b.p.AddRow(rowName(RowChargeMax, st.ID, t), milp.Expr{}.Plus(v.Charge[s][t], 1), milp.LE, st.Pmax)
			b.p.AddRow(rowName(RowDischargeMax, st.ID, t), milp.Expr{}.Plus(v.Discharge[s][t], 1), milp.LE, st.Pmax)
			b.p.AddRow(rowName(RowSOCMax, st.ID, t), milp.Expr{}.Plus(v.SOC[s][t], 1), milp.LE, 1)
		}
	}
}
