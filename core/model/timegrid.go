package model

import (
	"fmt"
	"time"
)

// TimeGrid describes the discretization of a scheduling run: a simulation
// horizon of SimuHorizon steps of StepSize each, of which a rolling window of
// OpHorizon steps is optimized at a time. The window starts at the current
// timestep; everything before it is realized history and immutable.
type TimeGrid struct {
	StepSize    time.Duration
	SimuHorizon int
	OpHorizon   int

	current int
}

// NewTimeGrid validates the horizon parameters and returns a grid positioned
// at timestep zero.
func NewTimeGrid(step time.Duration, simuHorizon, opHorizon int) (*TimeGrid, error) {
	if step <= 0 {
		return nil, fmt.Errorf("timegrid: step size must be positive, got %v", step)
	}
	if opHorizon < 1 {
		return nil, fmt.Errorf("timegrid: op horizon must be at least 1, got %d", opHorizon)
	}
	if simuHorizon < opHorizon {
		return nil, fmt.Errorf("timegrid: simulation horizon %d shorter than op horizon %d", simuHorizon, opHorizon)
	}
	return &TimeGrid{StepSize: step, SimuHorizon: simuHorizon, OpHorizon: opHorizon}, nil
}

// CurrentStep returns the global timestep at which the current window starts.
func (g *TimeGrid) CurrentStep() int { return g.current }

// GlobalStep maps a window-relative index t in [0, OpHorizon) to the global
// timestep it addresses.
func (g *TimeGrid) GlobalStep(t int) int { return g.current + t }

// WindowSteps returns how many steps of the current window lie inside the
// simulation horizon. Equals OpHorizon except possibly for the final window.
func (g *TimeGrid) WindowSteps() int {
	if n := g.SimuHorizon - g.current; n < g.OpHorizon {
		return n
	}
	return g.OpHorizon
}

// Advance moves the window start forward by n steps.
func (g *TimeGrid) Advance(n int) error {
	if n < 1 {
		return fmt.Errorf("timegrid: advance step count must be positive, got %d", n)
	}
	if g.current+n > g.SimuHorizon {
		return fmt.Errorf("timegrid: advance past simulation horizon (%d+%d > %d)", g.current, n, g.SimuHorizon)
	}
	g.current += n
	return nil
}

// Reset moves the window start back to timestep zero.
func (g *TimeGrid) Reset() { g.current = 0 }

// Hours returns the step size expressed in hours, the unit used for
// power-to-energy conversion.
func (g *TimeGrid) Hours() float64 { return g.StepSize.Hours() }
