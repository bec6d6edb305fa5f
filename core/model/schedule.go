package model

// Schedule holds one value per global timestep over the full simulation
// horizon. Values outside the currently optimized window are realized history
// and must only change through an explicit window write.
type Schedule []float64

// NewSchedule returns a zero-initialized schedule covering n timesteps.
func NewSchedule(n int) Schedule { return make(Schedule, n) }

// Window returns a copy of the schedule slice starting at the grid's current
// timestep, one entry per window step.
func (s Schedule) Window(g *TimeGrid) []float64 {
	start := g.CurrentStep()
	out := make([]float64, g.WindowSteps())
	copy(out, s[start:start+len(out)])
	return out
}

// SetWindow writes vals into the schedule starting at the grid's current
// timestep. Extra values beyond the simulation horizon are ignored.
func (s Schedule) SetWindow(g *TimeGrid, vals []float64) {
	start := g.CurrentStep()
	for i, v := range vals {
		if start+i >= len(s) {
			break
		}
		s[start+i] = v
	}
}

// Clone returns an independent copy of the schedule.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}
