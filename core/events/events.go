package events

import "time"

// IterationEvent is published after every coordinator iteration.
type IterationEvent struct {
	RunID     string
	Algorithm string
	Index     int
	RNorm     float64
	SNorm     float64
	Objective float64
}

// RunEvent is published once a scheduling run terminates.
type RunEvent struct {
	RunID      string
	Algorithm  string
	Iterations int
	Converged  bool
	Duration   time.Duration
	Err        error
}
