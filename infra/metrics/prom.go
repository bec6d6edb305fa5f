package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/districtsched/core/metrics"
)

// PromSink records optimization telemetry in Prometheus metrics.
type PromSink struct {
	iterations *prometheus.CounterVec
	residuals  *prometheus.GaugeVec
	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewPromSink registers the scheduling metrics on the provided Prometheus
// registerer. If reg is nil, the default registerer is used. If the
// collectors are already registered, the existing ones are reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	iterations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_iterations_total",
		Help: "Total number of optimization iterations",
	}, []string{"algorithm"})
	residuals := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scheduling_residual",
		Help: "Residual norms of the most recent iteration",
	}, []string{"algorithm", "kind"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_runs_total",
		Help: "Total number of optimization runs",
	}, []string{"algorithm", "converged"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduling_run_duration_seconds",
		Help:    "Wall time of an optimization run",
		Buckets: prometheus.DefBuckets,
	}, []string{"algorithm"})

	if err := reg.Register(iterations); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			iterations = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(residuals); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			residuals = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(runs); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			runs = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{iterations: iterations, residuals: residuals, runs: runs, duration: duration}, nil
}

// RecordIteration counts the iteration and refreshes the residual gauges.
func (s *PromSink) RecordIteration(rec metrics.IterationRecord) error {
	s.iterations.WithLabelValues(rec.Algorithm).Inc()
	s.residuals.WithLabelValues(rec.Algorithm, "primal").Set(rec.RNorm)
	s.residuals.WithLabelValues(rec.Algorithm, "dual").Set(rec.SNorm)
	return nil
}

// RecordRun counts the run outcome and observes its wall time.
func (s *PromSink) RecordRun(rec metrics.RunRecord) error {
	s.runs.WithLabelValues(rec.Algorithm, strconv.FormatBool(rec.Converged)).Inc()
	s.duration.WithLabelValues(rec.Algorithm).Observe(rec.Duration.Seconds())
	return nil
}
