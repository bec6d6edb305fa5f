package coordinator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/districtsched/core/events"
	"github.com/kilianp07/districtsched/core/logger"
	"github.com/kilianp07/districtsched/internal/eventbus"
)

// Iteration is one entry of the iteration trace.
type Iteration struct {
	Index     int     `json:"index"`
	RNorm     float64 `json:"r_norm"`
	SNorm     float64 `json:"s_norm"`
	Objective float64 `json:"objective"`
}

// Result accumulates per-iteration diagnostics. It is append-only: exactly
// one entry per executed iteration, kept even when the run aborts.
type Result struct {
	RunID      string      `json:"run_id"`
	Algorithm  string      `json:"algorithm"`
	Iterations []Iteration `json:"iterations"`
	Converged  bool        `json:"converged"`
}

// Count returns the number of executed iterations.
func (r *Result) Count() int { return len(r.Iterations) }

// Strategy is one concrete iteration scheme driven by the Loop.
type Strategy interface {
	Name() string
	// Presolve snapshots run parameters and resets iteration state. Called
	// once per Run before the first iteration.
	Presolve(ctx context.Context) error
	// Iterate executes one iteration and appends exactly one entry to res.
	Iterate(ctx context.Context, res *Result) error
	// Converged reports whether the last appended entry satisfies the
	// strategy's stopping rule.
	Converged(res *Result) bool
}

// Loop drives a Strategy to a fixed point. The iteration cap is checked
// before the convergence test and always wins; reaching it without
// convergence is not an error, the result just carries Converged == false.
type Loop struct {
	strategy Strategy
	log      logger.Logger
	bus      eventbus.EventBus
}

// NewLoop creates a Loop. bus may be nil when nothing subscribes to
// iteration events.
func NewLoop(strategy Strategy, log logger.Logger, bus eventbus.EventBus) *Loop {
	return &Loop{strategy: strategy, log: log, bus: bus}
}

// Run iterates until convergence or maxIterations. On a subordinate solve
// failure the partial result is returned alongside the error for
// diagnostics.
func (l *Loop) Run(ctx context.Context, maxIterations int) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Algorithm: l.strategy.Name()}
	start := time.Now()
	if err := l.strategy.Presolve(ctx); err != nil {
		return res, err
	}
	for {
		if res.Count() >= maxIterations {
			break
		}
		if err := l.strategy.Iterate(ctx, res); err != nil {
			var ie *InfeasibleError
			if errors.As(err, &ie) {
				ie.Iteration = res.Count()
			}
			l.publishRun(res, start, err)
			return res, err
		}
		if last := res.Iterations[len(res.Iterations)-1]; l.bus != nil {
			l.bus.Publish(events.IterationEvent{
				RunID:     res.RunID,
				Algorithm: res.Algorithm,
				Index:     last.Index,
				RNorm:     last.RNorm,
				SNorm:     last.SNorm,
				Objective: last.Objective,
			})
		}
		if l.strategy.Converged(res) {
			res.Converged = true
			break
		}
	}
	if !res.Converged {
		l.log.Warnf("%s: no convergence after %d iterations", res.Algorithm, res.Count())
	} else {
		l.log.Infof("%s: converged after %d iterations", res.Algorithm, res.Count())
	}
	l.publishRun(res, start, nil)
	return res, nil
}

func (l *Loop) publishRun(res *Result, start time.Time, err error) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(events.RunEvent{
		RunID:      res.RunID,
		Algorithm:  res.Algorithm,
		Iterations: res.Count(),
		Converged:  res.Converged,
		Duration:   time.Since(start),
		Err:        err,
	})
}
