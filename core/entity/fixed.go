package entity

import (
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// FixedLoad consumes a fixed demand curve. Its power variables exist so the
// coupling signal sees it, but their bounds pin them to the curve.
type FixedLoad struct {
	base
	demand []float64
}

// NewFixedLoad creates a fixed load from a demand curve covering the full
// simulation horizon, in kW.
func NewFixedLoad(id string, demand []float64) (*FixedLoad, error) {
	if len(demand) == 0 {
		return nil, &ConfigError{Entity: id, Reason: "empty demand curve"}
	}
	return &FixedLoad{base: newBase(id, len(demand)), demand: demand}, nil
}

func (f *FixedLoad) Populate(m *solve.Model, grid *model.TimeGrid) error {
	f.vars = make([]solve.VarID, grid.OpHorizon)
	for t := range f.vars {
		f.vars[t] = m.AddVar(0, 0)
	}
	return f.Update(m, grid)
}

func (f *FixedLoad) Update(m *solve.Model, grid *model.TimeGrid) error {
	for t, v := range f.vars {
		d := 0.0
		if g := grid.GlobalStep(t); g < len(f.demand) {
			d = f.demand[g]
		}
		m.SetVarBounds(v, d, d)
	}
	return nil
}
