// Package export writes schedules for downstream tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/unitcommit/core/schedule"
)

// CSVHeader is the header row written by WriteCSV.
var CSVHeader = []string{"kind", "id", "field", "period", "value"}

// WriteJSON writes the schedule to w in the results-file layout.
func WriteJSON(w io.Writer, s *schedule.Schedule) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteCSV writes the schedule to w in long format, one row per entity,
// field and period. Periods are 1-based. Entities are sorted by id.
func WriteCSV(w io.Writer, s *schedule.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	write := func(kind, id, field string, values []float64) error {
		for t, v := range values {
			rec := []string{kind, id, field, strconv.Itoa(t + 1), strconv.FormatFloat(v, 'f', -1, 64)}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	}
	type series struct {
		field  string
		values []float64
	}
	rows := func(kind, id string, ss ...series) error {
		for _, x := range ss {
			if err := write(kind, id, x.field, x.values); err != nil {
				return err
			}
		}
		return nil
	}

	for _, id := range schedule.Keys(s.Generators) {
		g := s.Generators[id]
		if err := rows("generator", id,
			series{"power_output", g.PowerOutput},
			series{"on_off_status", g.OnOffStatus},
			series{"startup", g.Startup},
			series{"shutdown", g.Shutdown}); err != nil {
			return err
		}
	}
	for _, id := range schedule.Keys(s.Buses) {
		b := s.Buses[id]
		if err := rows("bus", id, series{"demand", b.Demand}, series{"shift", b.Shift}); err != nil {
			return err
		}
	}
	for _, id := range schedule.Keys(s.Lines) {
		if err := rows("line", id, series{"flow", s.Lines[id].Flow}); err != nil {
			return err
		}
	}
	for _, id := range schedule.Keys(s.Renewables) {
		if err := rows("renewable", id, series{"power_output", s.Renewables[id].PowerOutput}); err != nil {
			return err
		}
	}
	for _, id := range schedule.Keys(s.Storage) {
		st := s.Storage[id]
		if err := rows("storage", id,
			series{"charge_discharge", st.ChargeDischarge},
			series{"charge", st.Charge},
			series{"discharge", st.Discharge},
			series{"soc", st.SoC}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
