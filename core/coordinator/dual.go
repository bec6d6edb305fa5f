package coordinator

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/districtsched/core/entity"
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// DualConfig carries the tunables of the dual decomposition scheme.
type DualConfig struct {
	// Rho is the price ascent step size.
	Rho float64
	// EpsPrimal bounds the norm of the power mismatch at convergence.
	EpsPrimal float64
}

// DualDecomposition coordinates one node per entity through price ascent.
// Each entity trades its window power against a per-timestep price; the
// aggregator at index 0 sees the price with opposite sign. The price moves
// proportionally to the power mismatch until supply and demand meet.
//
// Subproblem objectives stay linear for entities with linear cost, which is
// the appeal of this scheme over the consensus one; the flip side is that
// purely linear entities can oscillate between bound-attained solutions.
type DualDecomposition struct {
	grid     *model.TimeGrid
	entities []entity.Entity
	nodes    []*Node
	exec     Execution
	cfg      DualConfig

	lambda []float64
}

// NewDualDecomposition builds the strategy over the given entities, giving
// each its own node on the shared backend. The first entity is the
// aggregator.
func NewDualDecomposition(grid *model.TimeGrid, backend solve.Backend, exec Execution, cfg DualConfig, entities ...entity.Entity) (*DualDecomposition, error) {
	if len(entities) < 2 {
		return nil, fmt.Errorf("coordinator: dual decomposition needs an aggregator and at least one member, got %d entities", len(entities))
	}
	if cfg.Rho <= 0 {
		return nil, fmt.Errorf("coordinator: dual decomposition: rho must be positive, got %g", cfg.Rho)
	}
	if cfg.EpsPrimal < 0 {
		return nil, fmt.Errorf("coordinator: dual decomposition: eps_primal must be non-negative")
	}
	s := &DualDecomposition{grid: grid, entities: entities, exec: exec, cfg: cfg}
	for _, e := range entities {
		s.nodes = append(s.nodes, NewNode(e.ID(), backend, e))
	}
	return s, nil
}

func (s *DualDecomposition) Name() string { return "dual-decomposition" }

// Presolve populates the nodes on first use, rewrites every window-dependent
// bound, and resets the prices to zero.
func (s *DualDecomposition) Presolve(ctx context.Context) error {
	for _, n := range s.nodes {
		if err := n.Populate(s.grid); err != nil {
			return err
		}
		if err := n.Update(s.grid); err != nil {
			return err
		}
	}
	s.lambda = make([]float64, s.grid.OpHorizon)
	return nil
}

// Iterate prices every node's power, solves all nodes, then moves the prices
// along the resulting power mismatch.
func (s *DualDecomposition) Iterate(ctx context.Context, res *Result) error {
	op := s.grid.OpHorizon
	quad := make([]float64, op)

	for i, node := range s.nodes {
		lin := make([]float64, op)
		for t := 0; t < op; t++ {
			if i == 0 {
				lin[t] = -s.lambda[t]
			} else {
				lin[t] = s.lambda[t]
			}
		}
		node.ApplyPenalty(s.entities[i], quad, lin)
	}

	sols, err := s.exec.SolveAll(ctx, s.nodes)
	if err != nil {
		return err
	}

	p := make([][]float64, len(s.entities))
	var objective float64
	for i, e := range s.entities {
		p[i] = sols[i].Power[e.ID()]
		objective += sols[i].Objective
		e.UpdateSchedule(s.grid, p[i])
	}

	resid := make([]float64, op)
	for t := 0; t < op; t++ {
		v := -p[0][t]
		for i := 1; i < len(p); i++ {
			v += p[i][t]
		}
		resid[t] = v
	}
	rNorm := floats.Norm(resid, 2)
	for t := 0; t < op; t++ {
		s.lambda[t] += s.cfg.Rho * resid[t]
	}

	res.Iterations = append(res.Iterations, Iteration{
		Index:     res.Count(),
		RNorm:     rNorm,
		SNorm:     s.cfg.Rho * rNorm,
		Objective: objective,
	})
	return nil
}

// Converged checks the power mismatch against the primal tolerance. The
// first iteration never converges: it solves against zero prices and a
// matching mismatch there is coincidence, not a fixed point.
func (s *DualDecomposition) Converged(res *Result) bool {
	if res.Count() < 2 {
		return false
	}
	return res.Iterations[len(res.Iterations)-1].RNorm <= s.cfg.EpsPrimal
}
