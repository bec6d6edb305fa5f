package entity

import (
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// Photovoltaic feeds in up to a generation curve. Power is negative by the
// load sign convention; the unit may curtail down to zero.
type Photovoltaic struct {
	base
	generation []float64
}

// NewPhotovoltaic creates a PV unit from a per-timestep generation curve in
// kW covering the full simulation horizon.
func NewPhotovoltaic(id string, generation []float64) (*Photovoltaic, error) {
	if len(generation) == 0 {
		return nil, &ConfigError{Entity: id, Reason: "empty generation curve"}
	}
	for _, g := range generation {
		if g < 0 {
			return nil, &ConfigError{Entity: id, Reason: "generation curve must be nonnegative"}
		}
	}
	return &Photovoltaic{base: newBase(id, len(generation)), generation: generation}, nil
}

func (p *Photovoltaic) Populate(m *solve.Model, grid *model.TimeGrid) error {
	p.vars = make([]solve.VarID, grid.OpHorizon)
	for t := range p.vars {
		p.vars[t] = m.AddVar(0, 0)
	}
	return p.Update(m, grid)
}

func (p *Photovoltaic) Update(m *solve.Model, grid *model.TimeGrid) error {
	for t, v := range p.vars {
		gen := 0.0
		if g := grid.GlobalStep(t); g < len(p.generation) {
			gen = p.generation[g]
		}
		m.SetVarBounds(v, -gen, 0)
	}
	return nil
}
