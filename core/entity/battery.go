package entity

import (
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// Battery is an electrical storage with charge/discharge limits and a
// state-of-charge trajectory. The state of charge at the window start is
// derived from the realized schedule, so the first balance row's bound is
// rewritten every re-optimization.
type Battery struct {
	base
	capacityKWh  float64
	maxChargeKW  float64
	maxDischarge float64
	eta          float64
	socInit      float64

	chargeVars    []solve.VarID
	dischargeVars []solve.VarID
	socVars       []solve.VarID
	balanceRows   []solve.ConstrID
	socRows       []solve.ConstrID
	hist          map[solve.ConstrID]float64
}

// NewBattery creates a battery. socInit is the initial stored energy as a
// fraction of capacity; eta is the one-way conversion efficiency.
func NewBattery(id string, simuHorizon int, capacityKWh, maxChargeKW, maxDischargeKW, eta, socInit float64) (*Battery, error) {
	switch {
	case capacityKWh <= 0:
		return nil, &ConfigError{Entity: id, Reason: "capacity must be positive"}
	case maxChargeKW < 0 || maxDischargeKW < 0:
		return nil, &ConfigError{Entity: id, Reason: "charge limits must be nonnegative"}
	case eta <= 0 || eta > 1:
		return nil, &ConfigError{Entity: id, Reason: "efficiency must be in (0, 1]"}
	case socInit < 0 || socInit > 1:
		return nil, &ConfigError{Entity: id, Reason: "initial soc must be in [0, 1]"}
	}
	return &Battery{
		base:         newBase(id, simuHorizon),
		capacityKWh:  capacityKWh,
		maxChargeKW:  maxChargeKW,
		maxDischarge: maxDischargeKW,
		eta:          eta,
		socInit:      socInit,
	}, nil
}

func (b *Battery) Populate(m *solve.Model, grid *model.TimeGrid) error {
	op := grid.OpHorizon
	b.vars = make([]solve.VarID, op)
	b.chargeVars = make([]solve.VarID, op)
	b.dischargeVars = make([]solve.VarID, op)
	b.socVars = make([]solve.VarID, op)
	b.balanceRows = make([]solve.ConstrID, op)
	b.socRows = make([]solve.ConstrID, op)

	dt := grid.Hours()
	for t := 0; t < op; t++ {
		b.vars[t] = m.AddVar(-b.maxDischarge, b.maxChargeKW)
		b.chargeVars[t] = m.AddVar(0, b.maxChargeKW)
		b.dischargeVars[t] = m.AddVar(0, b.maxDischarge)
		b.socVars[t] = m.AddVar(0, b.capacityKWh)

		// net power = charge - discharge
		b.balanceRows[t] = m.AddRow(
			[]solve.VarID{b.vars[t], b.chargeVars[t], b.dischargeVars[t]},
			[]float64{1, -1, 1}, 0, 0,
		)
		if t == 0 {
			// e_0 - dt*(eta*pc_0 - pd_0/eta) = soc at window start; the
			// bound is rewritten by Update
			b.socRows[t] = m.AddRow(
				[]solve.VarID{b.socVars[t], b.chargeVars[t], b.dischargeVars[t]},
				[]float64{1, -dt * b.eta, dt / b.eta}, 0, 0,
			)
		} else {
			b.socRows[t] = m.AddRow(
				[]solve.VarID{b.socVars[t], b.socVars[t-1], b.chargeVars[t], b.dischargeVars[t]},
				[]float64{1, -1, -dt * b.eta, dt / b.eta}, 0, 0,
			)
		}
	}
	return b.Update(m, grid)
}

func (b *Battery) Update(m *solve.Model, grid *model.TimeGrid) error {
	soc := b.socAt(grid, grid.CurrentStep())
	m.SetRowBounds(b.socRows[0], soc, soc)
	if b.hist == nil {
		b.hist = make(map[solve.ConstrID]float64, 1)
	}
	b.hist[b.socRows[0]] = soc
	return nil
}

// HistoryBounds returns the handle table of history-derived row bounds.
func (b *Battery) HistoryBounds() map[solve.ConstrID]float64 { return b.hist }

// socAt walks the realized schedule up to (excluding) step and returns the
// stored energy in kWh at that point.
func (b *Battery) socAt(grid *model.TimeGrid, step int) float64 {
	soc := b.socInit * b.capacityKWh
	dt := grid.Hours()
	for s := 0; s < step; s++ {
		p := b.sched[s]
		if p >= 0 {
			soc += b.eta * p * dt
		} else {
			soc += p * dt / b.eta
		}
		if soc < 0 {
			soc = 0
		}
		if soc > b.capacityKWh {
			soc = b.capacityKWh
		}
	}
	return soc
}
