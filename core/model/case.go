package model

// DefaultPeriods is the day-ahead horizon length in hours.
const DefaultPeriods = 24

// Case is the raw planning input as read from a case file. It is not trusted:
// Build validates it and produces an Instance.
type Case struct {
	Name    string `json:"name"`
	Periods int    `json:"periods"`
	// Shift knobs are optional in the file; WithDefaults fills them.
	ShiftMaxPercent *float64 `json:"shift_max_percent"`
	ShiftMaxHours   *int     `json:"shift_max_hours"`

	Buses      []BusSpec       `json:"buses"`
	Generators []GeneratorSpec `json:"generators"`
	Renewables []RenewableSpec `json:"renewables"`
	Storage    []StorageSpec   `json:"storage"`
	Lines      []LineSpec      `json:"lines"`
}

// BusSpec declares a bus and its demand series (MW per period).
type BusSpec struct {
	ID     string    `json:"id"`
	Demand []float64 `json:"demand"`
}

// GeneratorSpec declares a thermal generator.
type GeneratorSpec struct {
	ID            string  `json:"id"`
	Bus           string  `json:"bus"`
	Pmin          float64 `json:"pmin"`
	Pmax          float64 `json:"pmax"`
	Cost          float64 `json:"cost"`
	StartupCost   float64 `json:"startup_cost"`
	ShutdownCost  float64 `json:"shutdown_cost"`
	MinUp         int     `json:"min_up"`
	MinDown       int     `json:"min_down"`
	RampUp        float64 `json:"ramp_up"`
	RampDown      float64 `json:"ramp_down"`
	InitialStatus int     `json:"initial_status"`
}

// RenewableSpec declares a renewable generator. Profile holds the available
// share of Pmax per period, in percent.
type RenewableSpec struct {
	ID      string    `json:"id"`
	Bus     string    `json:"bus"`
	Pmax    float64   `json:"pmax"`
	Profile []float64 `json:"profile"`
}

// StorageSpec declares a storage device. Duration is in hours of discharge at
// Pmax; SOCInit is a fraction of the energy capacity.
type StorageSpec struct {
	ID         string  `json:"id"`
	Bus        string  `json:"bus"`
	Pmax       float64 `json:"pmax"`
	Duration   float64 `json:"duration"`
	Efficiency float64 `json:"efficiency"`
	SOCInit    float64 `json:"soc_init"`
}

// LineSpec declares a transmission line with a symmetric flow limit.
type LineSpec struct {
	ID   string  `json:"id"`
	From string  `json:"from"`
	To   string  `json:"to"`
	Max  float64 `json:"max"`
}

// WithDefaults returns a copy of c with missing horizon and shift knobs set.
func (c Case) WithDefaults(periods int, shiftMaxPercent float64, shiftMaxHours int) Case {
	if c.Periods == 0 {
		c.Periods = periods
	}
	if c.ShiftMaxPercent == nil {
		v := shiftMaxPercent
		c.ShiftMaxPercent = &v
	}
	if c.ShiftMaxHours == nil {
		v := shiftMaxHours
		c.ShiftMaxHours = &v
	}
	return c
}
