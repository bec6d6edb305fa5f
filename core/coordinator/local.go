package coordinator

import (
	"context"
	"fmt"

	"github.com/kilianp07/districtsched/core/entity"
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// Local schedules every member entity in isolation with no coordination at
// all, then books the plain sum onto the aggregator. It is the baseline the
// coordinated schemes are meant to beat.
type Local struct {
	grid     *model.TimeGrid
	entities []entity.Entity
	nodes    []*Node
	exec     Execution
}

// NewLocal builds the strategy with one node per member entity. The first
// entity is the aggregator and gets no node of its own.
func NewLocal(grid *model.TimeGrid, backend solve.Backend, exec Execution, entities ...entity.Entity) (*Local, error) {
	if len(entities) < 2 {
		return nil, fmt.Errorf("coordinator: local needs an aggregator and at least one member, got %d entities", len(entities))
	}
	s := &Local{grid: grid, entities: entities, exec: exec}
	for _, e := range entities[1:] {
		s.nodes = append(s.nodes, NewNode(e.ID(), backend, e))
	}
	return s, nil
}

func (s *Local) Name() string { return "local" }

func (s *Local) Presolve(ctx context.Context) error {
	for _, n := range s.nodes {
		if err := n.Populate(s.grid); err != nil {
			return err
		}
		if err := n.Update(s.grid); err != nil {
			return err
		}
	}
	return nil
}

// Iterate solves every member once and writes the aggregated trajectory into
// the aggregator's schedule.
func (s *Local) Iterate(ctx context.Context, res *Result) error {
	sols, err := s.exec.SolveAll(ctx, s.nodes)
	if err != nil {
		return err
	}
	op := s.grid.OpHorizon
	total := make([]float64, op)
	var objective float64
	for i, e := range s.entities[1:] {
		p := sols[i].Power[e.ID()]
		objective += sols[i].Objective
		e.UpdateSchedule(s.grid, p)
		for t := 0; t < op; t++ {
			total[t] += p[t]
		}
	}
	s.entities[0].UpdateSchedule(s.grid, total)
	res.Iterations = append(res.Iterations, Iteration{
		Index:     res.Count(),
		Objective: objective,
	})
	return nil
}

// Converged is true after the first iteration.
func (s *Local) Converged(res *Result) bool { return res.Count() >= 1 }
