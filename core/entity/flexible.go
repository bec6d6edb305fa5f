package entity

import (
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// FlexibleLoad draws between MinPower and MaxPower at every step and pays the
// spot price for what it draws.
type FlexibleLoad struct {
	base
	minPower float64
	maxPower float64
	prices   []float64
}

// NewFlexibleLoad creates a flexible load. prices may be nil for a load that
// is indifferent to when it runs; otherwise it must cover the simulation
// horizon.
func NewFlexibleLoad(id string, simuHorizon int, minPower, maxPower float64, prices []float64) (*FlexibleLoad, error) {
	if maxPower < minPower {
		return nil, &ConfigError{Entity: id, Reason: "max power below min power"}
	}
	if prices != nil && len(prices) < simuHorizon {
		return nil, &ConfigError{Entity: id, Reason: "price curve shorter than simulation horizon"}
	}
	return &FlexibleLoad{
		base:     newBase(id, simuHorizon),
		minPower: minPower,
		maxPower: maxPower,
		prices:   prices,
	}, nil
}

func (f *FlexibleLoad) Populate(m *solve.Model, grid *model.TimeGrid) error {
	f.vars = make([]solve.VarID, grid.OpHorizon)
	for t := range f.vars {
		f.vars[t] = m.AddVar(f.minPower, f.maxPower)
	}
	return f.Update(m, grid)
}

func (f *FlexibleLoad) Update(m *solve.Model, grid *model.TimeGrid) error {
	for t, v := range f.vars {
		price := 0.0
		if f.prices != nil {
			if g := grid.GlobalStep(t); g < len(f.prices) {
				price = f.prices[g]
			}
		}
		m.SetBaseCost(v, 0, price*grid.Hours())
	}
	return nil
}
