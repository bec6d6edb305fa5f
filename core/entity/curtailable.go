package entity

import (
	"fmt"

	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// CurtailableLoad runs between a curtailed and a nominal power level under
// two run-length rules: it may stay below nominal for at most maxLow
// consecutive steps, and once at nominal it must stay there for at least
// minFull consecutive steps. The rules reach across window boundaries, so
// part of the feasible region derives from realized history. All rows are
// created once at populate; every re-optimization only rewrites their bounds,
// which costs O(window) regardless of how much history has accumulated.
type CurtailableLoad struct {
	base
	nominal   float64
	curtailed float64
	maxLow    int
	minFull   int
	runLimits bool
	enc       Encoding
	prices    []float64

	// realized full-output states, derived from the power schedule
	stateSched []bool

	stateVars []solve.VarID

	// rows whose bounds encode history, by overlap length
	energyOverlapRows []solve.ConstrID
	stateOverlapRows  []solve.ConstrID
	startRow          solve.ConstrID
	hasStartRow       bool

	hist map[solve.ConstrID]float64
}

// NewCurtailableLoad creates a curtailable load without run-length rules: it
// may stay at the curtailed level indefinitely.
func NewCurtailableLoad(id string, simuHorizon int, nominal, maxCurtailment float64, enc Encoding, prices []float64) (*CurtailableLoad, error) {
	return newCurtailable(id, simuHorizon, nominal, maxCurtailment, enc, prices, false, 0, 0)
}

// NewCurtailableLoadWithRunLimits creates a curtailable load constrained by
// maxLow and minFull.
func NewCurtailableLoadWithRunLimits(id string, simuHorizon int, nominal, maxCurtailment float64, enc Encoding, prices []float64, maxLow, minFull int) (*CurtailableLoad, error) {
	return newCurtailable(id, simuHorizon, nominal, maxCurtailment, enc, prices, true, maxLow, minFull)
}

func newCurtailable(id string, simuHorizon int, nominal, maxCurtailment float64, enc Encoding, prices []float64, runLimits bool, maxLow, minFull int) (*CurtailableLoad, error) {
	switch {
	case simuHorizon < 1:
		return nil, &ConfigError{Entity: id, Reason: "simulation horizon must be at least 1"}
	case nominal <= 0:
		return nil, &ConfigError{Entity: id, Reason: "nominal power must be positive"}
	case maxCurtailment < 0 || maxCurtailment > 1:
		return nil, &ConfigError{Entity: id, Reason: "max curtailment must be in [0, 1]"}
	}
	if runLimits {
		if minFull < 1 {
			return nil, &ConfigError{Entity: id, Reason: fmt.Sprintf("min full run %d must be at least 1", minFull)}
		}
		if maxLow < 0 {
			return nil, &ConfigError{Entity: id, Reason: fmt.Sprintf("max low run %d must be nonnegative", maxLow)}
		}
	}
	return &CurtailableLoad{
		base:       newBase(id, simuHorizon),
		nominal:    nominal,
		curtailed:  nominal * maxCurtailment,
		maxLow:     maxLow,
		minFull:    minFull,
		runLimits:  runLimits,
		enc:        enc,
		prices:     prices,
		stateSched: make([]bool, simuHorizon),
	}, nil
}

func (c *CurtailableLoad) Populate(m *solve.Model, grid *model.TimeGrid) error {
	op := grid.OpHorizon
	lower := c.curtailed
	if c.runLimits && c.maxLow == 0 {
		// never allowed below nominal; the bound alone encodes the rule
		lower = c.nominal
	}
	c.vars = make([]solve.VarID, op)
	for t := range c.vars {
		c.vars[t] = m.AddVar(lower, c.nominal)
	}

	if c.runLimits && c.maxLow > 0 {
		switch c.enc {
		case EncodingRelaxed:
			c.populateRelaxed(m, op)
		case EncodingDiscrete:
			c.populateDiscrete(m, op)
		}
	}
	return c.Update(m, grid)
}

// populateRelaxed adds sliding-window energy rows: every window of
// minFull+maxLow steps must deliver at least the energy of one full run plus
// maxLow curtailed steps. Overlap rows cover the window prefixes that reach
// into realized history; their bounds are rewritten by Update.
func (c *CurtailableLoad) populateRelaxed(m *solve.Model, op int) {
	width := c.minFull + c.maxLow
	required := c.nominal*float64(c.minFull) + c.curtailed*float64(c.maxLow)
	ones := func(n int) []float64 {
		cs := make([]float64, n)
		for i := range cs {
			cs[i] = 1
		}
		return cs
	}
	for t := 0; t+width <= op; t++ {
		m.AddRow(c.vars[t:t+width], ones(width), required, solve.Inf)
	}

	maxOverlap := width - 1
	if maxOverlap > op {
		maxOverlap = op
	}
	c.energyOverlapRows = make([]solve.ConstrID, maxOverlap)
	for overlap := 1; overlap <= maxOverlap; overlap++ {
		c.energyOverlapRows[overlap-1] = m.AddRow(c.vars[:overlap], ones(overlap), -solve.Inf, solve.Inf)
	}
}

// populateDiscrete adds a binary full-output indicator per step, linked to
// the power variable one-directionally: running infinitesimally below
// nominal lets the indicator drop, so one inequality suffices.
func (c *CurtailableLoad) populateDiscrete(m *solve.Model, op int) {
	c.stateVars = make([]solve.VarID, op)
	for t := 0; t < op; t++ {
		c.stateVars[t] = m.AddBinary()
		m.AddRow(
			[]solve.VarID{c.stateVars[t], c.vars[t]},
			[]float64{c.nominal, -1}, -solve.Inf, 0,
		)
	}

	ones := func(n int) []float64 {
		cs := make([]float64, n)
		for i := range cs {
			cs[i] = 1
		}
		return cs
	}

	maxOverlap := c.maxLow
	if c.minFull-1 > maxOverlap {
		maxOverlap = c.minFull - 1
	}
	if maxOverlap > op {
		maxOverlap = op
	}
	c.stateOverlapRows = make([]solve.ConstrID, maxOverlap)
	for t := 1; t <= maxOverlap; t++ {
		c.stateOverlapRows[t-1] = m.AddRow(c.stateVars[:t], ones(t), -solve.Inf, solve.Inf)
	}

	// at least one full-output step in every maxLow+1 stretch
	for t := 0; t+c.maxLow+1 <= op; t++ {
		m.AddRow(c.stateVars[t:t+c.maxLow+1], ones(c.maxLow+1), 1, solve.Inf)
	}

	// a switch to full output must be sustained for minFull steps
	if c.minFull > 1 {
		n := c.minFull
		if n > op {
			n = op
		}
		if n > 1 {
			vars := make([]solve.VarID, 0, n)
			coeffs := make([]float64, 0, n)
			vars = append(vars, c.stateVars[0])
			coeffs = append(coeffs, float64(n-1))
			for t := 1; t < n; t++ {
				vars = append(vars, c.stateVars[t])
				coeffs = append(coeffs, -1)
			}
			// upper bound rewritten by Update from the previous step's state
			c.startRow = m.AddRow(vars, coeffs, -solve.Inf, solve.Inf)
			c.hasStartRow = true
		}
		for t := 0; t+2 < op; t++ {
			end := t + c.minFull + 1
			if end > op {
				end = op
			}
			next := c.stateVars[t+2 : end]
			if len(next) == 0 {
				continue
			}
			l := float64(len(next))
			vars := make([]solve.VarID, 0, len(next)+2)
			coeffs := make([]float64, 0, len(next)+2)
			vars = append(vars, c.stateVars[t+1], c.stateVars[t])
			coeffs = append(coeffs, l, -l)
			for _, v := range next {
				vars = append(vars, v)
				coeffs = append(coeffs, -1)
			}
			m.AddRow(vars, coeffs, -solve.Inf, 0)
		}
	}
}

func (c *CurtailableLoad) Update(m *solve.Model, grid *model.TimeGrid) error {
	for t, v := range c.vars {
		price := 0.0
		if c.prices != nil {
			if g := grid.GlobalStep(t); g < len(c.prices) {
				price = c.prices[g]
			}
		}
		m.SetBaseCost(v, 0, price*grid.Hours())
	}

	c.hist = make(map[solve.ConstrID]float64)
	ts := grid.CurrentStep()
	if len(c.stateOverlapRows) > 0 {
		if err := c.updateDiscreteHistory(m, grid, ts); err != nil {
			return err
		}
	}
	if len(c.energyOverlapRows) > 0 {
		c.updateRelaxedHistory(m, ts)
	}
	return nil
}

// updateDiscreteHistory re-imposes the run-length rules from the realized
// state trail immediately before the window. At timestep zero a perfect
// initial state is assumed and no bound is imposed.
func (c *CurtailableLoad) updateDiscreteHistory(m *solve.Model, grid *model.TimeGrid, ts int) error {
	for _, r := range c.stateOverlapRows {
		m.SetRowLower(r, -solve.Inf)
		c.hist[r] = -solve.Inf
	}
	if ts == 0 {
		if c.hasStartRow {
			m.SetRowUpper(c.startRow, solve.Inf)
			c.hist[c.startRow] = solve.Inf
		}
		return nil
	}
	op := grid.OpHorizon

	if c.hasStartRow {
		if c.stateSched[ts-1] {
			m.SetRowUpper(c.startRow, solve.Inf)
			c.hist[c.startRow] = solve.Inf
		} else {
			m.SetRowUpper(c.startRow, 0)
			c.hist[c.startRow] = 0
		}
	}

	if c.stateSched[ts-1] {
		// count the trailing full-output run
		fullTs := 1
		for ts-fullTs-1 >= 0 && c.stateSched[ts-fullTs-1] {
			fullTs++
		}
		if ts-fullTs-1 < 0 {
			// the run reaches back to the simulation start: perfect initial
			// state, nothing owed
			return nil
		}
		remaining := c.minFull - fullTs
		switch {
		case remaining <= 0:
		case remaining > op:
			last := c.stateOverlapRows[len(c.stateOverlapRows)-1]
			m.SetRowLower(last, float64(op))
			c.hist[last] = float64(op)
		default:
			r := c.stateOverlapRows[remaining-1]
			m.SetRowLower(r, float64(remaining))
			c.hist[r] = float64(remaining)
		}
		return nil
	}

	// count the trailing below-nominal run
	lowTs := 1
	for ts-lowTs-1 >= 0 && !c.stateSched[ts-lowTs-1] {
		if lowTs > c.maxLow {
			return fmt.Errorf("entity %s: realized low run %d exceeds max low run %d at timestep %d", c.id, lowTs, c.maxLow, ts)
		}
		lowTs++
	}
	if lowTs > c.maxLow {
		return fmt.Errorf("entity %s: realized low run %d exceeds max low run %d at timestep %d", c.id, lowTs, c.maxLow, ts)
	}
	overlap := c.maxLow - lowTs + 1
	if op >= overlap {
		r := c.stateOverlapRows[overlap-1]
		m.SetRowLower(r, 1)
		c.hist[r] = 1
	}
	return nil
}

// updateRelaxedHistory rewrites the energy bound of every overlap row: the
// energy a window straddling the boundary still requires, minus what the
// fixed past already delivered. Steps before the simulation start count as
// nominal.
func (c *CurtailableLoad) updateRelaxedHistory(m *solve.Model, ts int) {
	width := c.minFull + c.maxLow
	for i, r := range c.energyOverlapRows {
		overlap := i + 1
		keep := width
		startT := ts - (width - overlap)
		if startT < 0 {
			keep = width + startT
			startT = 0
		}
		// the first maxLow slots of the requirement profile are curtailed,
		// the rest nominal; truncation drops nominal slots
		nCurt := keep
		if nCurt > c.maxLow {
			nCurt = c.maxLow
		}
		required := float64(nCurt)*c.curtailed + float64(keep-nCurt)*c.nominal
		var done float64
		for s := startT; s < ts; s++ {
			done += c.sched[s]
		}
		bound := required - done
		m.SetRowLower(r, bound)
		c.hist[r] = bound
	}
}

// UpdateSchedule records the realized window and derives the full-output
// state trail from it.
func (c *CurtailableLoad) UpdateSchedule(grid *model.TimeGrid, window []float64) {
	c.base.UpdateSchedule(grid, window)
	start := grid.CurrentStep()
	for i := range window {
		if start+i >= len(c.stateSched) {
			break
		}
		c.stateSched[start+i] = window[i] > 0.99*c.nominal
	}
}

// HistoryBounds returns the handle table of history-derived row bounds as of
// the last Update.
func (c *CurtailableLoad) HistoryBounds() map[solve.ConstrID]float64 { return c.hist }
