package coordinator

import (
	"fmt"

	"github.com/kilianp07/districtsched/core/solve"
)

// InfeasibleError reports that a node's solve came back infeasible or
// unbounded. It is fatal to the run: coefficients are operator-supplied, so a
// retry cannot change feasibility.
type InfeasibleError struct {
	Node      string
	Iteration int
	Status    solve.Status
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("coordinator: node %s %s at iteration %d", e.Node, e.Status, e.Iteration)
}

// WorkerError reports a failed execution worker. The synchronous barrier has
// no defined behavior for a missing contributor, so the run aborts.
type WorkerError struct {
	Worker int
	Err    error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("coordinator: worker %d failed: %v", e.Worker, e.Err)
}

func (e *WorkerError) Unwrap() error { return e.Err }
