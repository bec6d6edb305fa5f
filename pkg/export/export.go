// Package export renders solved schedules and iteration traces for files and
// pipes.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/districtsched/core/coordinator"
	"github.com/kilianp07/districtsched/core/entity"
)

// ScheduleEntry is one entity's full schedule.
type ScheduleEntry struct {
	Entity  string    `json:"entity"`
	PowerKW []float64 `json:"power_kw"`
}

// Report bundles everything a run produced.
type Report struct {
	Schedules []ScheduleEntry       `json:"schedules"`
	Windows   []*coordinator.Result `json:"windows"`
}

// NewReport collects the schedules of the given entities and the
// per-window results into a Report.
func NewReport(entities []entity.Entity, windows []*coordinator.Result) Report {
	r := Report{Windows: windows}
	for _, e := range entities {
		r.Schedules = append(r.Schedules, ScheduleEntry{Entity: e.ID(), PowerKW: e.Schedule()})
	}
	return r
}

// WriteJSON writes the report to w in JSON format.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteSchedulesCSV writes the schedules to w in CSV format, one row per
// entity and timestep.
func WriteSchedulesCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"entity", "step", "power_kw"}); err != nil {
		return err
	}
	for _, s := range r.Schedules {
		for t, p := range s.PowerKW {
			rec := []string{
				s.Entity,
				strconv.Itoa(t),
				strconv.FormatFloat(p, 'f', -1, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTraceCSV writes the iteration traces to w in CSV format, one row per
// iteration.
func WriteTraceCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"run_id", "algorithm", "iteration", "r_norm", "s_norm", "objective"}); err != nil {
		return err
	}
	for _, res := range r.Windows {
		for _, it := range res.Iterations {
			rec := []string{
				res.RunID,
				res.Algorithm,
				strconv.Itoa(it.Index),
				strconv.FormatFloat(it.RNorm, 'f', -1, 64),
				strconv.FormatFloat(it.SNorm, 'f', -1, 64),
				strconv.FormatFloat(it.Objective, 'f', -1, 64),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
