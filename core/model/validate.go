package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCase matches any *ValidationError via errors.Is.
var ErrInvalidCase = errors.New("invalid case")

// ValidationError lists every problem found in a case.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid case: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidCase }

type checker struct {
	problems []string
}

func (c *checker) addf(format string, args ...any) {
	c.problems = append(c.problems, fmt.Sprintf(format, args...))
}

// nonNegative also rejects NaN.
func (c *checker) nonNegative(what string, v float64) {
	if !(v >= 0) {
		c.addf("%s must be >= 0, got %g", what, v)
	}
}

func (c *checker) ids(kind string, ids []string) {
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		if id == "" {
			c.addf("%s #%d has an empty id", kind, i+1)
			continue
		}
		if _, dup := seen[id]; dup {
			c.addf("duplicate %s id %q", kind, id)
		}
		seen[id] = struct{}{}
	}
}

// Build validates c and returns an immutable Instance. Every problem found is
// reported in a single *ValidationError.
func Build(c Case) (*Instance, error) {
	var ck checker
	T := c.Periods
	if T < 1 {
		ck.addf("periods must be >= 1, got %d", T)
	}
	if len(c.Buses) == 0 {
		ck.addf("no buses declared")
	}

	shift := ShiftPolicy{}
	if c.ShiftMaxPercent == nil {
		ck.addf("shift_max_percent is not set")
	} else {
		shift.MaxPercent = *c.ShiftMaxPercent
		if !(shift.MaxPercent >= 0 && shift.MaxPercent <= 1) {
			ck.addf("shift_max_percent must be in [0,1], got %g", shift.MaxPercent)
		}
	}
	if c.ShiftMaxHours == nil {
		ck.addf("shift_max_hours is not set")
	} else {
		shift.MaxHours = *c.ShiftMaxHours
		if shift.MaxHours < 0 {
			ck.addf("shift_max_hours must be >= 0, got %d", shift.MaxHours)
		}
	}

	busIDs := make([]string, len(c.Buses))
	for i, b := range c.Buses {
		busIDs[i] = b.ID
	}
	ck.ids("bus", busIDs)
	busIndex := make(map[BusID]int, len(c.Buses))
	for i, id := range busIDs {
		if _, ok := busIndex[BusID(id)]; !ok && id != "" {
			busIndex[BusID(id)] = i
		}
	}
	resolve := func(kind, id, field, ref string) int {
		b, ok := busIndex[BusID(ref)]
		if !ok {
			ck.addf("%s %q: %s references unknown bus %q", kind, id, field, ref)
			return -1
		}
		return b
	}

	in := &Instance{
		Name:     c.Name,
		Periods:  T,
		Shift:    shift,
		busIndex: busIndex,
	}

	for _, b := range c.Buses {
		if T >= 1 && len(b.Demand) != T {
			ck.addf("bus %q: demand has %d values, want %d", b.ID, len(b.Demand), T)
		}
		for t, d := range b.Demand {
			if !(d >= 0) {
				ck.addf("bus %q: demand[%d] must be >= 0, got %g", b.ID, t+1, d)
			}
		}
		in.Buses = append(in.Buses, Bus{ID: BusID(b.ID), Demand: append([]float64(nil), b.Demand...)})
	}

	ids := make([]string, len(c.Generators))
	for i, g := range c.Generators {
		ids[i] = g.ID
	}
	ck.ids("generator", ids)
	for _, g := range c.Generators {
		what := func(f string) string { return fmt.Sprintf("generator %q: %s", g.ID, f) }
		ck.nonNegative(what("pmin"), g.Pmin)
		ck.nonNegative(what("pmax"), g.Pmax)
		ck.nonNegative(what("cost"), g.Cost)
		ck.nonNegative(what("startup_cost"), g.StartupCost)
		ck.nonNegative(what("shutdown_cost"), g.ShutdownCost)
		ck.nonNegative(what("ramp_up"), g.RampUp)
		ck.nonNegative(what("ramp_down"), g.RampDown)
		if g.Pmin > g.Pmax {
			ck.addf("generator %q: pmin %g exceeds pmax %g", g.ID, g.Pmin, g.Pmax)
		}
		if g.MinUp < 1 {
			ck.addf("generator %q: min_up must be >= 1, got %d", g.ID, g.MinUp)
		}
		if g.MinDown < 1 {
			ck.addf("generator %q: min_down must be >= 1, got %d", g.ID, g.MinDown)
		}
		if g.InitialStatus != 0 && g.InitialStatus != 1 {
			ck.addf("generator %q: initial_status must be 0 or 1, got %d", g.ID, g.InitialStatus)
		}
		in.Generators = append(in.Generators, Generator{
			ID:            GeneratorID(g.ID),
			Bus:           resolve("generator", g.ID, "bus", g.Bus),
			Pmin:          g.Pmin,
			Pmax:          g.Pmax,
			Cost:          g.Cost,
			StartupCost:   g.StartupCost,
			ShutdownCost:  g.ShutdownCost,
			MinUp:         g.MinUp,
			MinDown:       g.MinDown,
			RampUp:        g.RampUp,
			RampDown:      g.RampDown,
			InitialStatus: g.InitialStatus,
		})
	}

	ids = make([]string, len(c.Renewables))
	for i, r := range c.Renewables {
		ids[i] = r.ID
	}
	ck.ids("renewable", ids)
	for _, r := range c.Renewables {
		ck.nonNegative(fmt.Sprintf("renewable %q: pmax", r.ID), r.Pmax)
		if T >= 1 && len(r.Profile) != T {
			ck.addf("renewable %q: profile has %d values, want %d", r.ID, len(r.Profile), T)
		}
		for t, p := range r.Profile {
			if !(p >= 0 && p <= 100) {
				ck.addf("renewable %q: profile[%d] must be in [0,100], got %g", r.ID, t+1, p)
			}
		}
		in.Renewables = append(in.Renewables, Renewable{
			ID:      RenewableID(r.ID),
			Bus:     resolve("renewable", r.ID, "bus", r.Bus),
			Pmax:    r.Pmax,
			Profile: append([]float64(nil), r.Profile...),
		})
	}

	ids = make([]string, len(c.Storage))
	for i, s := range c.Storage {
		ids[i] = s.ID
	}
	ck.ids("storage", ids)
	for _, s := range c.Storage {
		if !(s.Pmax > 0) {
			ck.addf("storage %q: pmax must be > 0, got %g", s.ID, s.Pmax)
		}
		if !(s.Duration > 0) {
			ck.addf("storage %q: duration must be > 0, got %g", s.ID, s.Duration)
		}
		if !(s.Efficiency > 0 && s.Efficiency <= 1) {
			ck.addf("storage %q: efficiency must be in (0,1], got %g", s.ID, s.Efficiency)
		}
		if !(s.SOCInit >= 0 && s.SOCInit <= 1) {
			ck.addf("storage %q: soc_init must be in [0,1], got %g", s.ID, s.SOCInit)
		}
		in.Storage = append(in.Storage, Storage{
			ID:         StorageID(s.ID),
			Bus:        resolve("storage", s.ID, "bus", s.Bus),
			Pmax:       s.Pmax,
			Duration:   s.Duration,
			Efficiency: s.Efficiency,
			SOCInit:    s.SOCInit,
		})
	}

	ids = make([]string, len(c.Lines))
	for i, l := range c.Lines {
		ids[i] = l.ID
	}
	ck.ids("line", ids)
	for _, l := range c.Lines {
		ck.nonNegative(fmt.Sprintf("line %q: max", l.ID), l.Max)
		if l.From == l.To {
			ck.addf("line %q: from and to are the same bus %q", l.ID, l.From)
		}
		in.Lines = append(in.Lines, Line{
			ID:   LineID(l.ID),
			From: resolve("line", l.ID, "from", l.From),
			To:   resolve("line", l.ID, "to", l.To),
			Max:  l.Max,
		})
	}

	if len(ck.problems) > 0 {
		return nil, &ValidationError{Problems: ck.problems}
	}
	in.index()
	return in, nil
}

func (in *Instance) index() {
	n := len(in.Buses)
	in.genAt = make([][]int, n)
	in.renAt = make([][]int, n)
	in.storAt = make([][]int, n)
	in.lineFrom = make([][]int, n)
	in.lineTo = make([][]int, n)
	for i, g := range in.Generators {
		in.genAt[g.Bus] = append(in.genAt[g.Bus], i)
	}
	for i, r := range in.Renewables {
		in.renAt[r.Bus] = append(in.renAt[r.Bus], i)
	}
	for i, s := range in.Storage {
		in.storAt[s.Bus] = append(in.storAt[s.Bus], i)
	}
	for i, l := range in.Lines {
		in.lineFrom[l.From] = append(in.lineFrom[l.From], i)
		in.lineTo[l.To] = append(in.lineTo[l.To], i)
	}
}
