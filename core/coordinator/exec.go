package coordinator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/districtsched/core/logger"
)

// Execution fans one iteration's node solves out to workers. SolveAll is
// order-preserving and semantically equivalent to solving each node in a
// plain loop: no node's solve may depend on another's result within the same
// call, so parallelism is purely a performance property.
type Execution interface {
	SolveAll(ctx context.Context, nodes []*Node) ([]NodeSolution, error)
}

// Sequential solves every node in order on the calling goroutine.
type Sequential struct{}

func (Sequential) SolveAll(ctx context.Context, nodes []*Node) ([]NodeSolution, error) {
	out := make([]NodeSolution, len(nodes))
	for i, n := range nodes {
		sol, err := n.Solve(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = sol
	}
	return out, nil
}

// Pool partitions the node list across Workers goroutines in contiguous
// chunks and gathers results back in original order. Each worker gets its
// own logger at construction instead of sharing mutable logging state. With
// one worker or fewer the sequential code path runs unchanged, so
// single-worker behavior is identical to Sequential by construction.
type Pool struct {
	Workers int
	Log     logger.Logger
}

// NewPool creates a Pool with the given worker count.
func NewPool(workers int, log logger.Logger) *Pool {
	return &Pool{Workers: workers, Log: log}
}

func (p *Pool) SolveAll(ctx context.Context, nodes []*Node) ([]NodeSolution, error) {
	if p.Workers <= 1 {
		return Sequential{}.SolveAll(ctx, nodes)
	}
	workers := p.Workers
	if workers > len(nodes) {
		workers = len(nodes)
	}

	out := make([]NodeSolution, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(nodes) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(nodes) {
			hi = len(nodes)
		}
		if lo >= hi {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &WorkerError{Worker: w, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			for i := lo; i < hi; i++ {
				sol, serr := nodes[i].Solve(gctx)
				if serr != nil {
					return serr
				}
				out[i] = sol
			}
			return nil
		})
	}
	// the barrier: no result is visible until every worker has finished
	if err := g.Wait(); err != nil {
		if p.Log != nil {
			p.Log.Errorf("parallel solve failed: %v", err)
		}
		return nil, err
	}
	return out, nil
}
