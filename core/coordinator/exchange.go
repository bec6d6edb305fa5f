package coordinator

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/districtsched/core/entity"
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// ExchangeConfig carries the tunables of the exchange consensus scheme.
type ExchangeConfig struct {
	// Rho is the penalty weight. Larger values pull the iterates toward
	// consensus faster at the cost of fighting the entity objectives.
	Rho float64
	// EpsPrimal bounds the scaled norm of the mean power mismatch.
	EpsPrimal float64
	// EpsDual bounds the norm of the stacked dual residuals.
	EpsDual float64
}

// ExchangeConsensus coordinates one node per entity through exchange-form
// consensus iterations. Entity index 0 is the aggregating side and carries
// its power with opposite sign in the balance, so a zero mean mismatch means
// the remaining entities exactly cover what the aggregator sources.
type ExchangeConsensus struct {
	grid     *model.TimeGrid
	entities []entity.Entity
	nodes    []*Node
	exec     Execution
	cfg      ExchangeConfig

	x     []float64   // mean mismatch of the previous iteration, length one window
	u     []float64   // scaled price accumulator
	lastP [][]float64 // previous power trajectory per entity
}

// NewExchangeConsensus builds the strategy over the given entities, giving
// each its own node on the shared backend. The first entity is the
// aggregator.
func NewExchangeConsensus(grid *model.TimeGrid, backend solve.Backend, exec Execution, cfg ExchangeConfig, entities ...entity.Entity) (*ExchangeConsensus, error) {
	if len(entities) < 2 {
		return nil, fmt.Errorf("coordinator: exchange consensus needs an aggregator and at least one member, got %d entities", len(entities))
	}
	if cfg.Rho <= 0 {
		return nil, fmt.Errorf("coordinator: exchange consensus: rho must be positive, got %g", cfg.Rho)
	}
	if cfg.EpsPrimal < 0 || cfg.EpsDual < 0 {
		return nil, fmt.Errorf("coordinator: exchange consensus: tolerances must be non-negative")
	}
	s := &ExchangeConsensus{grid: grid, entities: entities, exec: exec, cfg: cfg}
	for _, e := range entities {
		s.nodes = append(s.nodes, NewNode(e.ID(), backend, e))
	}
	return s, nil
}

func (s *ExchangeConsensus) Name() string { return "exchange-consensus" }

// Presolve populates the nodes on first use, rewrites every window-dependent
// bound, and resets the iteration state. Prices are deliberately not carried
// across windows; each window starts cold.
func (s *ExchangeConsensus) Presolve(ctx context.Context) error {
	for _, n := range s.nodes {
		if err := n.Populate(s.grid); err != nil {
			return err
		}
		if err := n.Update(s.grid); err != nil {
			return err
		}
	}
	op := s.grid.OpHorizon
	s.x = make([]float64, op)
	s.u = make([]float64, op)
	s.lastP = make([][]float64, len(s.entities))
	for i := range s.lastP {
		s.lastP[i] = make([]float64, op)
	}
	return nil
}

// Iterate runs one consensus round: augment each node's objective with the
// current prices, solve all nodes, then refresh the mean mismatch and the
// price accumulator from the fresh trajectories.
func (s *ExchangeConsensus) Iterate(ctx context.Context, res *Result) error {
	op := s.grid.OpHorizon
	n := float64(len(s.entities))

	quad := make([]float64, op)
	for t := range quad {
		quad[t] = s.cfg.Rho / 2
	}
	for i, node := range s.nodes {
		lin := make([]float64, op)
		for t := 0; t < op; t++ {
			if i == 0 {
				lin[t] = s.cfg.Rho * (-s.lastP[0][t] - s.x[t] - s.u[t])
			} else {
				lin[t] = s.cfg.Rho * (-s.lastP[i][t] + s.x[t] + s.u[t])
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

	xNew := make([]float64, op)
	for t := 0; t < op; t++ {
		v := -p[0][t]
		for i := 1; i < len(p); i++ {
			v += p[i][t]
		}
		xNew[t] = v / n
	}
	rNorm := math.Sqrt(n) * floats.Norm(xNew, 2)

	var sSq float64
	for i := range p {
		for t := 0; t < op; t++ {
			var d float64
			if i == 0 {
				d = -s.cfg.Rho * (-p[0][t] + s.lastP[0][t] + s.x[t] - xNew[t])
			} else {
				d = -s.cfg.Rho * (p[i][t] - s.lastP[i][t] + s.x[t] - xNew[t])
			}
			sSq += d * d
		}
	}
	sNorm := math.Sqrt(sSq)

	floats.Add(s.u, xNew)
	copy(s.x, xNew)
	s.lastP = p

	res.Iterations = append(res.Iterations, Iteration{
		Index:     res.Count(),
		RNorm:     rNorm,
		SNorm:     sNorm,
		Objective: objective,
	})
	return nil
}

// Converged checks both residual norms against their tolerances. The first
// iteration never converges: its dual residual is measured against the cold
// start and carries no information.
func (s *ExchangeConsensus) Converged(res *Result) bool {
	if res.Count() < 2 {
		return false
	}
	last := res.Iterations[len(res.Iterations)-1]
	return last.RNorm <= s.cfg.EpsPrimal && last.SNorm <= s.cfg.EpsDual
}
