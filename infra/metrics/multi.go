package metrics

import "github.com/kilianp07/districtsched/core/metrics"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []metrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...metrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordIteration forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordIteration(rec metrics.IterationRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordIteration(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun forwards the record to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordRun(rec metrics.RunRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(rec); err != nil {
			return err
		}
	}
	return nil
}
