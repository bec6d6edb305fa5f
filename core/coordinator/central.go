package coordinator

import (
	"context"
	"fmt"

	"github.com/kilianp07/districtsched/core/entity"
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// Central solves the whole district as one program with hard balance rows,
// no decomposition. It is the reference optimum the iterative schemes are
// measured against, and the practical choice for small districts.
type Central struct {
	grid     *model.TimeGrid
	entities []entity.Entity
	node     *Node
	coupled  bool
}

// NewCentral builds the strategy with every entity in a single node. The
// first entity is the aggregator.
func NewCentral(grid *model.TimeGrid, backend solve.Backend, entities ...entity.Entity) (*Central, error) {
	if len(entities) < 2 {
		return nil, fmt.Errorf("coordinator: central needs an aggregator and at least one member, got %d entities", len(entities))
	}
	return &Central{grid: grid, entities: entities, node: NewNode("district", backend, entities...)}, nil
}

func (s *Central) Name() string { return "central" }

// Presolve populates the shared model and, once per run, adds the balance
// rows tying the aggregator's power to the sum of the members' at every
// window step. The row handles are stable across windows because the power
// variables are.
func (s *Central) Presolve(ctx context.Context) error {
	if err := s.node.Populate(s.grid); err != nil {
		return err
	}
	if !s.coupled {
		op := s.grid.OpHorizon
		m := s.node.Model()
		for t := 0; t < op; t++ {
			vars := make([]solve.VarID, 0, len(s.entities))
			coeffs := make([]float64, 0, len(s.entities))
			for i, e := range s.entities {
				vars = append(vars, e.PowerVars()[t])
				if i == 0 {
					coeffs = append(coeffs, -1)
				} else {
					coeffs = append(coeffs, 1)
				}
			}
			m.AddRow(vars, coeffs, 0, 0)
		}
		s.coupled = true
	}
	return s.node.Update(s.grid)
}

// Iterate performs the single solve and records it as one trace entry with
// zero residuals, since the balance is enforced exactly.
func (s *Central) Iterate(ctx context.Context, res *Result) error {
	sol, err := s.node.Solve(ctx)
	if err != nil {
		return err
	}
	for _, e := range s.entities {
		e.UpdateSchedule(s.grid, sol.Power[e.ID()])
	}
	res.Iterations = append(res.Iterations, Iteration{
		Index:     res.Count(),
		Objective: sol.Objective,
	})
	return nil
}

// Converged is true after the first iteration.
func (s *Central) Converged(res *Result) bool { return res.Count() >= 1 }
