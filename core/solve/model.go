package solve

import (
	"context"
	"fmt"
	"math"
)

// Inf marks an absent row bound.
var Inf = math.Inf(1)

// VarID is a handle to a decision variable in a Model.
type VarID int

// ConstrID is a handle to a linear row in a Model. Rows are created once
// during populate; afterwards only their bounds may change.
type ConstrID int

// Status reports the outcome of a backend solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusTimeLimit
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimeLimit:
		return "time_limit"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result carries the variable assignment returned by a backend.
type Result struct {
	Status    Status
	Values    []float64
	Objective float64
}

// Backend is the opaque optimization collaborator: it solves the model with
// its current coefficients and bounds and returns a variable assignment.
// Solve must be safe to call repeatedly on the same model.
type Backend interface {
	Solve(ctx context.Context, m *Model) (Result, error)
}

type row struct {
	vars   []VarID
	coeffs []float64
	lower  float64
	upper  float64
}

// Model is one solvable mathematical program: box-bounded variables, linear
// rows with adjustable bounds, and a separable objective
// sum_i (quad_i*x_i^2 + lin_i*x_i). The objective splits into a base part
// owned by the entities and a penalty part overwritten by the coordinator
// each iteration; variable count and row topology are fixed after populate.
type Model struct {
	lower  []float64
	upper  []float64
	binary []bool

	baseQuad []float64
	baseLin  []float64
	penQuad  []float64
	penLin   []float64

	rows []row
}

// NewModel returns an empty model.
func NewModel() *Model { return &Model{} }

// AddVar creates a continuous variable with the given bounds.
func (m *Model) AddVar(lower, upper float64) VarID {
	m.lower = append(m.lower, lower)
	m.upper = append(m.upper, upper)
	m.binary = append(m.binary, false)
	m.baseQuad = append(m.baseQuad, 0)
	m.baseLin = append(m.baseLin, 0)
	m.penQuad = append(m.penQuad, 0)
	m.penLin = append(m.penLin, 0)
	return VarID(len(m.lower) - 1)
}

// AddBinary creates a binary variable.
func (m *Model) AddBinary() VarID {
	id := m.AddVar(0, 1)
	m.binary[id] = true
	return id
}

// NumVars returns the number of variables in the model.
func (m *Model) NumVars() int { return len(m.lower) }

// SetVarBounds rewrites the box bounds of v.
func (m *Model) SetVarBounds(v VarID, lower, upper float64) {
	m.lower[v] = lower
	m.upper[v] = upper
}

// VarBounds returns the current box bounds of v.
func (m *Model) VarBounds(v VarID) (lower, upper float64) {
	return m.lower[v], m.upper[v]
}

// IsBinary reports whether v was created as a binary variable.
func (m *Model) IsBinary(v VarID) bool { return m.binary[v] }

// SetBaseCost rewrites the entity-owned objective contribution of v.
func (m *Model) SetBaseCost(v VarID, quad, lin float64) {
	m.baseQuad[v] = quad
	m.baseLin[v] = lin
}

// SetPenalty rewrites the coordinator-owned objective contribution of v.
// It is overwritten wholesale every iteration.
func (m *Model) SetPenalty(v VarID, quad, lin float64) {
	m.penQuad[v] = quad
	m.penLin[v] = lin
}

// Cost returns the effective objective coefficients of v.
func (m *Model) Cost(v VarID) (quad, lin float64) {
	return m.baseQuad[v] + m.penQuad[v], m.baseLin[v] + m.penLin[v]
}

// AddRow creates a linear row lower <= sum coeffs[i]*vars[i] <= upper and
// returns its handle. Use -Inf/Inf for absent sides.
func (m *Model) AddRow(vars []VarID, coeffs []float64, lower, upper float64) ConstrID {
	if len(vars) != len(coeffs) {
		panic(fmt.Sprintf("solve: row with %d vars but %d coeffs", len(vars), len(coeffs)))
	}
	vs := append([]VarID(nil), vars...)
	cs := append([]float64(nil), coeffs...)
	m.rows = append(m.rows, row{vars: vs, coeffs: cs, lower: lower, upper: upper})
	return ConstrID(len(m.rows) - 1)
}

// NumRows returns the number of rows in the model.
func (m *Model) NumRows() int { return len(m.rows) }

// SetRowBounds rewrites both bounds of row c.
func (m *Model) SetRowBounds(c ConstrID, lower, upper float64) {
	m.rows[c].lower = lower
	m.rows[c].upper = upper
}

// SetRowLower rewrites only the lower bound of row c.
func (m *Model) SetRowLower(c ConstrID, lower float64) { m.rows[c].lower = lower }

// SetRowUpper rewrites only the upper bound of row c.
func (m *Model) SetRowUpper(c ConstrID, upper float64) { m.rows[c].upper = upper }

// RowBounds returns the current bounds of row c.
func (m *Model) RowBounds(c ConstrID) (lower, upper float64) {
	return m.rows[c].lower, m.rows[c].upper
}

// Row returns the variables and coefficients of row c. The returned slices
// are the model's own storage and must not be modified.
func (m *Model) Row(c ConstrID) (vars []VarID, coeffs []float64) {
	return m.rows[c].vars, m.rows[c].coeffs
}

// RowValue evaluates row c at the given assignment.
func (m *Model) RowValue(c ConstrID, x []float64) float64 {
	r := m.rows[c]
	var v float64
	for i, id := range r.vars {
		v += r.coeffs[i] * x[id]
	}
	return v
}

// ObjectiveValue evaluates the effective objective at the given assignment.
func (m *Model) ObjectiveValue(x []float64) float64 {
	var v float64
	for i := range x {
		q, l := m.Cost(VarID(i))
		v += q*x[i]*x[i] + l*x[i]
	}
	return v
}

// BaseObjectiveValue evaluates only the entity-owned objective part,
// excluding any coordinator penalty.
func (m *Model) BaseObjectiveValue(x []float64) float64 {
	var v float64
	for i := range x {
		v += m.baseQuad[i]*x[i]*x[i] + m.baseLin[i]*x[i]
	}
	return v
}
