package coordinator

import (
	"context"
	"fmt"

	"github.com/kilianp07/districtsched/core/entity"
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
)

// Node wraps one or more entities into a single solvable program. It owns the
// model instance for its whole lifetime: populated once, then only
// coefficients and bounds change between solves. Grouping entities into nodes
// is the strategy's decision; the node itself is indifferent to whether it
// carries one entity or the whole district.
type Node struct {
	id        string
	model     *solve.Model
	entities  []entity.Entity
	backend   solve.Backend
	populated bool
}

// NewNode creates a node over the given entities.
func NewNode(id string, backend solve.Backend, entities ...entity.Entity) *Node {
	return &Node{id: id, model: solve.NewModel(), entities: entities, backend: backend}
}

// ID returns the node identity used in error reporting.
func (n *Node) ID() string { return n.id }

// Entities returns the entities grouped into this node.
func (n *Node) Entities() []entity.Entity { return n.entities }

// Model exposes the node's model to the owning strategy for objective
// augmentation and coupling rows.
func (n *Node) Model() *solve.Model { return n.model }

// Populate creates all variables and rows. Calling it again is a no-op: the
// topology is fixed after the first call, which is what keeps iterating
// cheap.
func (n *Node) Populate(grid *model.TimeGrid) error {
	if n.populated {
		return nil
	}
	for _, e := range n.entities {
		if err := e.Populate(n.model, grid); err != nil {
			return fmt.Errorf("node %s: populate %s: %w", n.id, e.ID(), err)
		}
	}
	n.populated = true
	return nil
}

// Update rewrites per-window coefficients and history-derived bounds for the
// window starting at the grid's current timestep.
func (n *Node) Update(grid *model.TimeGrid) error {
	for _, e := range n.entities {
		if err := e.Update(n.model, grid); err != nil {
			return fmt.Errorf("node %s: update %s: %w", n.id, e.ID(), err)
		}
	}
	return nil
}

// ApplyPenalty overwrites the coordinator-owned objective part of every power
// variable of e. quad and lin are per-window-step coefficients.
func (n *Node) ApplyPenalty(e entity.Entity, quad, lin []float64) {
	for t, v := range e.PowerVars() {
		n.model.SetPenalty(v, quad[t], lin[t])
	}
}

// NodeSolution is one node's outcome for a single solve: the power
// trajectory of each of its entities over the window, and the entity-owned
// objective value at the solution (coordinator penalties excluded, so
// summing across nodes gives the district cost being minimized).
type NodeSolution struct {
	Power     map[string][]float64
	Objective float64
}

// Solve re-solves the node with its current coefficients. A non-optimal
// status is returned as an *InfeasibleError carrying the node identity;
// iteration tagging is the caller's concern.
func (n *Node) Solve(ctx context.Context) (NodeSolution, error) {
	res, err := n.backend.Solve(ctx, n.model)
	if err != nil {
		return NodeSolution{}, fmt.Errorf("node %s: %w", n.id, err)
	}
	if res.Status != solve.StatusOptimal {
		return NodeSolution{}, &InfeasibleError{Node: n.id, Status: res.Status}
	}
	out := NodeSolution{
		Power:     make(map[string][]float64, len(n.entities)),
		Objective: n.model.BaseObjectiveValue(res.Values),
	}
	for _, e := range n.entities {
		vars := e.PowerVars()
		p := make([]float64, len(vars))
		for t, v := range vars {
			p[t] = res.Values[v]
		}
		out.Power[e.ID()] = p
	}
	return out, nil
}
