package entity

import (
	"fmt"

	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// DistrictObjective selects the system-level objective of the district.
type DistrictObjective int

const (
	// ObjectivePeakShaving penalizes the squared district net load.
	ObjectivePeakShaving DistrictObjective = iota
	// ObjectivePrice charges the district net load at the spot price.
	ObjectivePrice
)

// ParseDistrictObjective maps a configuration string onto an objective.
func ParseDistrictObjective(s string) (DistrictObjective, error) {
	switch s {
	case "", "peak-shaving":
		return ObjectivePeakShaving, nil
	case "price":
		return ObjectivePrice, nil
	default:
		return 0, fmt.Errorf("entity: unknown district objective %q", s)
	}
}

// District is the coordinating entity. By protocol convention it is always
// entity index 0 and its power carries the opposite sign in the consensus
// coupling: district net load equals the negative sum of member loads.
type District struct {
	base
	objective DistrictObjective
	maxPower  float64
	prices    []float64
}

// NewDistrict creates the district entity. maxPower bounds the net exchange
// with the upstream grid in both directions.
func NewDistrict(id string, simuHorizon int, objective DistrictObjective, maxPower float64, prices []float64) (*District, error) {
	if maxPower <= 0 {
		return nil, &ConfigError{Entity: id, Reason: "max power must be positive"}
	}
	if objective == ObjectivePrice && len(prices) < simuHorizon {
		return nil, &ConfigError{Entity: id, Reason: "price objective requires a price curve over the simulation horizon"}
	}
	return &District{
		base:      newBase(id, simuHorizon),
		objective: objective,
		maxPower:  maxPower,
		prices:    prices,
	}, nil
}

func (d *District) Populate(m *solve.Model, grid *model.TimeGrid) error {
	d.vars = make([]solve.VarID, grid.OpHorizon)
	for t := range d.vars {
		d.vars[t] = m.AddVar(-d.maxPower, d.maxPower)
	}
	return d.Update(m, grid)
}

func (d *District) Update(m *solve.Model, grid *model.TimeGrid) error {
	for t, v := range d.vars {
		switch d.objective {
		case ObjectivePeakShaving:
			m.SetBaseCost(v, 1, 0)
		case ObjectivePrice:
			price := 0.0
			if g := grid.GlobalStep(t); g < len(d.prices) {
				price = d.prices[g]
			}
			m.SetBaseCost(v, 0, price*grid.Hours())
		}
	}
	return nil
}
