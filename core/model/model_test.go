package model

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func validCase() Case {
	c := Case{
		Name:    "two-bus",
		Periods: 3,
		Buses: []BusSpec{
			{ID: "b1", Demand: flat(3, 10)},
			{ID: "b2", Demand: flat(3, 20)},
		},
		Generators: []GeneratorSpec{{
			ID: "g1", Bus: "b1", Pmax: 100, Cost: 5, MinUp: 1, MinDown: 1,
			RampUp: 100, RampDown: 100, InitialStatus: 1,
		}},
		Renewables: []RenewableSpec{{ID: "pv", Bus: "b2", Pmax: 10, Profile: []float64{0, 50, 100}}},
		Storage:    []StorageSpec{{ID: "bat", Bus: "b2", Pmax: 5, Duration: 2, Efficiency: 0.9, SOCInit: 0.5}},
		Lines:      []LineSpec{{ID: "l1", From: "b1", To: "b2", Max: 50}},
	}
	return c.WithDefaults(DefaultPeriods, 0.2, 1)
}

func TestBuildValid(t *testing.T) {
	in, err := Build(validCase())
	require.NoError(t, err)

	assert.Equal(t, 3, in.Periods)
	b2, ok := in.BusIndex("b2")
	require.True(t, ok)
	assert.Equal(t, 1, b2)
	assert.Equal(t, []int{0}, in.GeneratorsAt(0))
	assert.Empty(t, in.GeneratorsAt(1))
	assert.Equal(t, []int{0}, in.RenewablesAt(b2))
	assert.Equal(t, []int{0}, in.StorageAt(b2))
	assert.Equal(t, []int{0}, in.LinesFrom(0))
	assert.Equal(t, []int{0}, in.LinesTo(b2))
	assert.InDelta(t, 5.0, in.Renewables[0].Available(1), 1e-12)
	assert.InDelta(t, 10.0, in.Storage[0].EnergyCapacity(), 1e-12)
}

func TestBuildDoesNotAliasCase(t *testing.T) {
	c := validCase()
	in, err := Build(c)
	require.NoError(t, err)
	c.Buses[0].Demand[0] = 999
	c.Renewables[0].Profile[0] = 99
	assert.Equal(t, 10.0, in.Buses[0].Demand[0])
	assert.Equal(t, 0.0, in.Renewables[0].Profile[0])
}

func TestWithDefaultsKeepsExplicitValues(t *testing.T) {
	pct, hours := 0.0, 0
	c := Case{ShiftMaxPercent: &pct, ShiftMaxHours: &hours}.WithDefaults(24, 0.2, 4)
	assert.Equal(t, 24, c.Periods)
	assert.Equal(t, 0.0, *c.ShiftMaxPercent)
	assert.Equal(t, 0, *c.ShiftMaxHours)
}

func TestBuildReportsEveryProblem(t *testing.T) {
	c := validCase()
	c.Generators[0].Pmin = 200
	c.Generators[0].MinUp = 0
	c.Generators[0].InitialStatus = 2
	c.Lines[0].To = "b1"
	c.Storage[0].Efficiency = 1.5
	c.Renewables[0].Bus = "nowhere"
	c.Renewables[0].Profile = []float64{0, 120}
	c.Buses[1].Demand[2] = -1
	pct := 1.5
	c.ShiftMaxPercent = &pct

	_, err := Build(c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCase))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	joined := strings.Join(ve.Problems, "\n")
	for _, want := range []string{
		`pmin 200 exceeds pmax 100`,
		`min_up must be >= 1`,
		`initial_status must be 0 or 1`,
		`line "l1": from and to are the same bus`,
		`efficiency must be in (0,1]`,
		`unknown bus "nowhere"`,
		`profile has 2 values, want 3`,
		`profile[2] must be in [0,100]`,
		`demand[3] must be >= 0`,
		`shift_max_percent must be in [0,1]`,
	} {
		assert.Contains(t, joined, want)
	}
}

func TestBuildRejectsStructuralProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Case)
		want   string
	}{
		{"no buses", func(c *Case) { c.Buses = nil; c.Generators = nil; c.Renewables = nil; c.Storage = nil; c.Lines = nil }, "no buses declared"},
		{"zero periods", func(c *Case) { c.Periods = -1 }, "periods must be >= 1"},
		{"duplicate bus", func(c *Case) { c.Buses[1].ID = "b1" }, `duplicate bus id "b1"`},
		{"empty generator id", func(c *Case) { c.Generators[0].ID = "" }, "generator #1 has an empty id"},
		{"negative hours", func(c *Case) { h := -1; c.ShiftMaxHours = &h }, "shift_max_hours must be >= 0"},
		{"zero duration", func(c *Case) { c.Storage[0].Duration = 0 }, "duration must be > 0"},
		{"soc init", func(c *Case) { c.Storage[0].SOCInit = 2 }, "soc_init must be in [0,1]"},
		{"negative line max", func(c *Case) { c.Lines[0].Max = -5 }, `line "l1": max must be >= 0`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCase()
			tt.mutate(&c)
			_, err := Build(c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildRejectsNaN(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		mutate func(*Case)
		want   string
	}{
		{"pmin", func(c *Case) { c.Generators[0].Pmin = nan }, `generator "g1": pmin must be >= 0`},
		{"cost", func(c *Case) { c.Generators[0].Cost = nan }, `generator "g1": cost must be >= 0`},
		{"demand", func(c *Case) { c.Buses[0].Demand[1] = nan }, `bus "b1": demand[2] must be >= 0`},
		{"profile", func(c *Case) { c.Renewables[0].Profile[0] = nan }, "profile[1] must be in [0,100]"},
		{"efficiency", func(c *Case) { c.Storage[0].Efficiency = nan }, "efficiency must be in (0,1]"},
		{"soc init", func(c *Case) { c.Storage[0].SOCInit = nan }, "soc_init must be in [0,1]"},
		{"storage pmax", func(c *Case) { c.Storage[0].Pmax = nan }, `storage "bat": pmax must be > 0`},
		{"duration", func(c *Case) { c.Storage[0].Duration = nan }, "duration must be > 0"},
		{"line max", func(c *Case) { c.Lines[0].Max = nan }, `line "l1": max must be >= 0`},
		{"shift percent", func(c *Case) { c.ShiftMaxPercent = &nan }, "shift_max_percent must be in [0,1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCase()
			tt.mutate(&c)
			_, err := Build(c)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCase)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestShiftPairs(t *testing.T) {
	p := ShiftPolicy{MaxPercent: 0.2, MaxHours: 1}
	assert.Equal(t, []ShiftPair{{0, 1}, {1, 0}, {1, 2}, {2, 1}}, p.Pairs(3))
	assert.False(t, p.InWindow(0, 0))
	assert.False(t, p.InWindow(0, 2))
	assert.True(t, p.InWindow(2, 1))

	assert.Empty(t, ShiftPolicy{MaxHours: 0}.Pairs(24))
	assert.Len(t, ShiftPolicy{MaxHours: 30}.Pairs(4), 12)
}
