package model

// Instance is a validated planning problem. All fields are read-only once
// Build returns; slices are owned by the instance and never alias the Case.
// Periods are 0-based internally.
type Instance struct {
	Name       string
	Periods    int
	Shift      ShiftPolicy
	Buses      []Bus
	Generators []Generator
	Renewables []Renewable
	Storage    []Storage
	Lines      []Line

	busIndex map[BusID]int
	genAt    [][]int
	renAt    [][]int
	storAt   [][]int
	lineFrom [][]int
	lineTo   [][]int
}

// Bus is a network node with a demand series.
type Bus struct {
	ID     BusID
	Demand []float64
}

// Generator is a thermal unit. Bus is the index into Instance.Buses.
type Generator struct {
	ID            GeneratorID
	Bus           int
	Pmin          float64
	Pmax          float64
	Cost          float64
	StartupCost   float64
	ShutdownCost  float64
	MinUp         int
	MinDown       int
	RampUp        float64
	RampDown      float64
	InitialStatus int
}

// Renewable is a renewable generator with a percentage availability profile.
type Renewable struct {
	ID      RenewableID
	Bus     int
	Pmax    float64
	Profile []float64
}

// Available returns the MW available in period t.
func (r Renewable) Available(t int) float64 {
	return r.Pmax * r.Profile[t] / 100
}

// Storage is a storage device.
type Storage struct {
	ID         StorageID
	Bus        int
	Pmax       float64
	Duration   float64
	Efficiency float64
	SOCInit    float64
}

// EnergyCapacity returns the energy capacity in MWh.
func (s Storage) EnergyCapacity() float64 { return s.Pmax * s.Duration }

// Line is a transmission line. Positive flow runs From -> To.
type Line struct {
	ID   LineID
	From int
	To   int
	Max  float64
}

// BusIndex resolves a bus id.
func (in *Instance) BusIndex(id BusID) (int, bool) {
	i, ok := in.busIndex[id]
	return i, ok
}

// GeneratorsAt returns the indices of generators connected to bus b.
func (in *Instance) GeneratorsAt(b int) []int { return in.genAt[b] }

// RenewablesAt returns the indices of renewables connected to bus b.
func (in *Instance) RenewablesAt(b int) []int { return in.renAt[b] }

// StorageAt returns the indices of storage devices connected to bus b.
func (in *Instance) StorageAt(b int) []int { return in.storAt[b] }

// LinesFrom returns the indices of lines leaving bus b.
func (in *Instance) LinesFrom(b int) []int { return in.lineFrom[b] }

// LinesTo returns the indices of lines arriving at bus b.
func (in *Instance) LinesTo(b int) []int { return in.lineTo[b] }

// ShiftPolicy bounds demand shifting.
type ShiftPolicy struct {
	// MaxPercent is the share of a period's demand that may leave it.
	MaxPercent float64
	// MaxHours is the largest allowed distance between origin and target.
	MaxHours int
}

// ShiftPair moves demand from period From to period To (0-based).
type ShiftPair struct {
	From int
	To   int
}

// InWindow reports whether a shift between t1 and t2 is allowed.
func (s ShiftPolicy) InWindow(t1, t2 int) bool {
	d := t1 - t2
	if d < 0 {
		d = -d
	}
	return d > 0 && d <= s.MaxHours
}

// Pairs returns every in-window pair over the horizon ordered by origin then
// target.
func (s ShiftPolicy) Pairs(periods int) []ShiftPair {
	var out []ShiftPair
	for t1 := 0; t1 < periods; t1++ {
		for t2 := 0; t2 < periods; t2++ {
			if s.InWindow(t1, t2) {
				out = append(out, ShiftPair{From: t1, To: t2})
			}
		}
	}
	return out
}
