package planner

import (
	"math"

	"github.com/kilianp07/unitcommit/core/formulation"
	"github.com/kilianp07/unitcommit/core/schedule"
)

// zeroTol is the magnitude below which solver noise is reported as zero.
const zeroTol = 1e-9

// Extract reads every variable of f from x into a schedule. Commitment
// variables are rounded to 0 or 1.
func Extract(f *formulation.Formulation, x []float64) *schedule.Schedule {
	in := f.Instance
	v := f.Vars
	s := schedule.New(in.Periods)

	for g, gen := range in.Generators {
		s.Generators[gen.ID.String()] = schedule.Generator{
			PowerOutput:  clean(formulation.Series(x, v.P[g])),
			OnOffStatus:  binary(formulation.Series(x, v.Y[g])),
			Startup:      binary(formulation.Series(x, v.U[g])),
			Shutdown:     binary(formulation.Series(x, v.V[g])),
			MaxCapacity:  gen.Pmax,
			ConnectedBus: in.Buses[gen.Bus].ID.String(),
		}
	}
	for b, bus := range in.Buses {
		s.Buses[bus.ID.String()] = schedule.Bus{
			Demand: append([]float64(nil), bus.Demand...),
			Shift:  clean(f.NetShift(x, b)),
		}
	}
	for l, line := range in.Lines {
		s.Lines[line.ID.String()] = schedule.Line{
			Flow:    clean(formulation.Series(x, v.Flow[l])),
			FromBus: in.Buses[line.From].ID.String(),
			ToBus:   in.Buses[line.To].ID.String(),
		}
	}
	for r, ren := range in.Renewables {
		s.Renewables[ren.ID.String()] = schedule.Renewable{
			PowerOutput:  clean(formulation.Series(x, v.Renewable[r])),
			MaxCapacity:  ren.Pmax,
			ConnectedBus: in.Buses[ren.Bus].ID.String(),
		}
	}
	for i, st := range in.Storage {
		charge := clean(formulation.Series(x, v.Charge[i]))
		discharge := clean(formulation.Series(x, v.Discharge[i]))
		net := make([]float64, in.Periods)
		for t := range net {
			net[t] = charge[t] - discharge[t]
		}
		s.Storage[st.ID.String()] = schedule.Storage{
			ChargeDischarge: net,
			Charge:          charge,
			Discharge:       discharge,
			SoC:             clean(formulation.Series(x, v.SOC[i])),
			ConnectedBus:    in.Buses[st.Bus].ID.String(),
		}
	}
	return s
}

func clean(s []float64) []float64 {
	for i, v := range s {
		if math.Abs(v) < zeroTol {
			s[i] = 0
		}
	}
	return s
}

func binary(s []float64) []float64 {
	for i, v := range s {
		s[i] = math.Round(v)
	}
	return s
}
