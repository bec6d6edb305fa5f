package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/districtsched/core/solve"
)

func TestSolveLP_Basic(t *testing.T) {
	// minimize -x1 - x2 s.t. x1 <= 3, x2 <= 4, x1 + x2 <= 5
	m := solve.NewModel()
	a := m.AddVar(0, 3)
	c := m.AddVar(0, 4)
	m.SetBaseCost(a, 0, -1)
	m.SetBaseCost(c, 0, -1)
	m.AddRow([]solve.VarID{a, c}, []float64{1, 1}, math.Inf(-1), 5)

	res, err := New().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != solve.StatusOptimal {
		t.Fatalf("status %v", res.Status)
	}
	if got := res.Values[a] + res.Values[c]; math.Abs(got-5) > 1e-6 {
		t.Fatalf("expected sum 5 got %v", got)
	}
}

func TestSolveLP_Infeasible(t *testing.T) {
	m := solve.NewModel()
	a := m.AddVar(0, 1)
	m.SetBaseCost(a, 0, 1)
	m.AddRow([]solve.VarID{a}, []float64{1}, 2, math.Inf(1))

	res, err := New().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != solve.StatusInfeasible {
		t.Fatalf("expected infeasible got %v", res.Status)
	}
}

func TestSolveLP_SimplexError(t *testing.T) {
	old := simplexSolve
	simplexSolve = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		return 0, nil, errors.New("boom")
	}
	defer func() { simplexSolve = old }()

	m := solve.NewModel()
	a := m.AddVar(0, 1)
	m.SetBaseCost(a, 0, 1)
	if _, err := New().Solve(context.Background(), m); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSolveQP_BoxOnly(t *testing.T) {
	// minimize (x-2)^2 = x^2 - 4x + 4 over [0, 10]
	m := solve.NewModel()
	a := m.AddVar(0, 10)
	m.SetBaseCost(a, 1, -4)

	res, err := New().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(res.Values[a]-2) > 1e-6 {
		t.Fatalf("expected 2 got %v", res.Values[a])
	}
}

func TestSolveQP_ActiveRow(t *testing.T) {
	// minimize x1^2 + x2^2 s.t. x1 + x2 >= 4; optimum x1 = x2 = 2
	m := solve.NewModel()
	a := m.AddVar(0, 10)
	c := m.AddVar(0, 10)
	m.SetBaseCost(a, 1, 0)
	m.SetBaseCost(c, 1, 0)
	m.AddRow([]solve.VarID{a, c}, []float64{1, 1}, 4, math.Inf(1))

	res, err := New().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != solve.StatusOptimal {
		t.Fatalf("status %v", res.Status)
	}
	if math.Abs(res.Values[a]-2) > 1e-3 || math.Abs(res.Values[c]-2) > 1e-3 {
		t.Fatalf("expected (2,2) got %v", res.Values)
	}
}

func TestSolveQP_EqualityRow(t *testing.T) {
	// minimize x1^2 + 2 x2^2 s.t. x1 + x2 = 3; optimum x1 = 2, x2 = 1
	m := solve.NewModel()
	a := m.AddVar(-10, 10)
	c := m.AddVar(-10, 10)
	m.SetBaseCost(a, 1, 0)
	m.SetBaseCost(c, 2, 0)
	m.AddRow([]solve.VarID{a, c}, []float64{1, 1}, 3, 3)

	res, err := New().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(res.Values[a]-2) > 1e-3 || math.Abs(res.Values[c]-1) > 1e-3 {
		t.Fatalf("expected (2,1) got %v", res.Values)
	}
}

func TestSolveQP_MixedLinearVariables(t *testing.T) {
	// only the first variable carries curvature; the others are pinned or
	// purely linear and coupled through an equality row
	m := solve.NewModel()
	p := m.AddVar(-100, 100)
	f := m.AddVar(10, 10)
	fl := m.AddVar(0, 20)
	m.SetBaseCost(p, 1, 0)
	m.AddRow([]solve.VarID{p, f, fl}, []float64{-1, 1, 1}, 0, 0)

	res, err := New().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != solve.StatusOptimal {
		t.Fatalf("status %v", res.Status)
	}
	if math.Abs(res.Values[p]-10) > 1e-4 || math.Abs(res.Values[fl]) > 1e-4 {
		t.Fatalf("expected p=10 fl=0 got %v", res.Values)
	}
}

func TestSolveQP_Infeasible(t *testing.T) {
	m := solve.NewModel()
	a := m.AddVar(0, 1)
	m.SetBaseCost(a, 1, 0)
	m.AddRow([]solve.VarID{a}, []float64{1}, 5, math.Inf(1))

	res, err := New().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != solve.StatusInfeasible {
		t.Fatalf("expected infeasible got %v", res.Status)
	}
}

func TestBranchAndBound_Knapsack(t *testing.T) {
	// maximize 3 b1 + 2 b2 subject to b1 + b2 <= 1: pick b1
	m := solve.NewModel()
	b1 := m.AddBinary()
	b2 := m.AddBinary()
	m.SetBaseCost(b1, 0, -3)
	m.SetBaseCost(b2, 0, -2)
	m.AddRow([]solve.VarID{b1, b2}, []float64{1, 1}, math.Inf(-1), 1)

	res, err := New().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != solve.StatusOptimal {
		t.Fatalf("status %v", res.Status)
	}
	if math.Abs(res.Values[b1]-1) > 1e-6 || math.Abs(res.Values[b2]) > 1e-6 {
		t.Fatalf("expected (1,0) got %v", res.Values)
	}
}

func TestBranchAndBound_LinkedContinuous(t *testing.T) {
	// nominal*state <= power with power in [1, 10] and a cost pushing power
	// down: state can stay off, power rests at its lower bound.
	m := solve.NewModel()
	st := m.AddBinary()
	p := m.AddVar(1, 10)
	m.SetBaseCost(p, 0.01, 1)
	m.AddRow([]solve.VarID{st, p}, []float64{10, -1}, math.Inf(-1), 0)

	res, err := New().Solve(context.Background(), m)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(res.Values[st]) > 1e-6 {
		t.Fatalf("expected state off got %v", res.Values[st])
	}
	if math.Abs(res.Values[p]-1) > 1e-3 {
		t.Fatalf("expected power at lower bound got %v", res.Values[p])
	}
}
