// Package schedule holds the read-only result of a planning run. Its JSON
// encoding is the results-file layout consumed by plotting tools.
package schedule

import (
	"sort"
	"time"
)

// Schedule is a dispatch plan over Periods periods. Every series has length
// Periods, indexed from period 1 at position 0.
type Schedule struct {
	RunID     string    `json:"run_id,omitempty"`
	Case      string    `json:"case,omitempty"`
	Solver    string    `json:"solver,omitempty"`
	SolvedAt  time.Time `json:"solved_at"`
	Periods   int       `json:"periods"`
	TotalCost float64   `json:"total_cost"`

	Generators map[string]Generator `json:"generators"`
	Buses      map[string]Bus       `json:"buses"`
	Lines      map[string]Line      `json:"transmission_lines"`
	Renewables map[string]Renewable `json:"renewables_generators"`
	Storage    map[string]Storage   `json:"storage"`
}

// Generator is the plan of one thermal unit. Status series hold 0 or 1.
type Generator struct {
	PowerOutput  []float64 `json:"power_output"`
	OnOffStatus  []float64 `json:"on_off_status"`
	Startup      []float64 `json:"startup"`
	Shutdown     []float64 `json:"shutdown"`
	MaxCapacity  float64   `json:"max_capacity"`
	ConnectedBus string    `json:"connected_bus"`
}

// Bus reports demand and net shift (shift in minus shift out).
type Bus struct {
	Demand []float64 `json:"demand"`
	Shift  []float64 `json:"shift"`
}

// Line reports the flow; positive values run from FromBus to ToBus.
type Line struct {
	Flow    []float64 `json:"flow"`
	FromBus string    `json:"from_bus"`
	ToBus   string    `json:"to_bus"`
}

// Renewable is the plan of one renewable generator.
type Renewable struct {
	PowerOutput  []float64 `json:"power_output"`
	MaxCapacity  float64   `json:"max_capacity"`
	ConnectedBus string    `json:"connected_bus"`
}

// Storage is the plan of one storage device. ChargeDischarge is charge minus
// discharge; SoC is a fraction of energy capacity.
type Storage struct {
	ChargeDischarge []float64 `json:"charge_discharge"`
	Charge          []float64 `json:"charge"`
	Discharge       []float64 `json:"discharge"`
	SoC             []float64 `json:"SoC"`
	ConnectedBus    string    `json:"connected_bus"`
}

// New returns an empty schedule with allocated maps.
func New(periods int) *Schedule {
	return &Schedule{
		Periods:    periods,
		Generators: map[string]Generator{},
		Buses:      map[string]Bus{},
		Lines:      map[string]Line{},
		Renewables: map[string]Renewable{},
		Storage:    map[string]Storage{},
	}
}

// Keys returns the sorted keys of an entity map.
func Keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ThermalOutput returns total thermal generation per period.
func (s *Schedule) ThermalOutput() []float64 {
	out := make([]float64, s.Periods)
	for _, g := range s.Generators {
		add(out, g.PowerOutput)
	}
	return out
}

// RenewableOutput returns total renewable generation per period.
func (s *Schedule) RenewableOutput() []float64 {
	out := make([]float64, s.Periods)
	for _, r := range s.Renewables {
		add(out, r.PowerOutput)
	}
	return out
}

// Demand returns total demand per period before shifting.
func (s *Schedule) Demand() []float64 {
	out := make([]float64, s.Periods)
	for _, b := range s.Buses {
		add(out, b.Demand)
	}
	return out
}

// Startups counts unit starts over the horizon.
func (s *Schedule) Startups() int {
	n := 0
	for _, g := range s.Generators {
		for _, u := range g.Startup {
			if u > 0.5 {
				n++
			}
		}
	}
	return n
}

// ShiftedEnergy returns the demand moved into other periods, in MWh.
func (s *Schedule) ShiftedEnergy() float64 {
	var e float64
	for _, b := range s.Buses {
		for _, v := range b.Shift {
			if v > 0 {
				e += v
			}
		}
	}
	return e
}

func add(dst, src []float64) {
	for i := range dst {
		if i < len(src) {
			dst[i] += src[i]
		}
	}
}
