package metrics

import "time"

// IterationRecord is one optimization iteration to be recorded.
type IterationRecord struct {
	RunID     string
	Algorithm string
	Index     int
	RNorm     float64
	SNorm     float64
	Objective float64
}

// RunRecord is one finished optimization run to be recorded.
type RunRecord struct {
	RunID      string
	Algorithm  string
	Iterations int
	Converged  bool
	Failed     bool
	Duration   time.Duration
}

// Sink records optimization telemetry for observability purposes.
type Sink interface {
	RecordIteration(IterationRecord) error
	RecordRun(RunRecord) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordIteration(IterationRecord) error { return nil }
func (NopSink) RecordRun(RunRecord) error             { return nil }
