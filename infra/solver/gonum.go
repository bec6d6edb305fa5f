package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/districtsched/core/solve"
)

// Backend solves the models produced by the scheduling core. Linear programs
// go through gonum's simplex implementation. Convex separable quadratic
// programs are solved by an augmented Lagrangian method with exact
// coordinate descent on the inner minimization. Binary variables are handled
// by branch and bound on the continuous relaxation. A model is declared
// infeasible when the method cannot close the constraint residual within the
// iteration budget.
type Backend struct {
	maxIters   int
	tol        float64
	feasTol    float64
	simplexTol float64
	intTol     float64
}

// Option configures a Backend.
type Option func(*Backend)

// WithMaxIters sets the coordinate sweep budget of the quadratic path.
func WithMaxIters(n int) Option { return func(b *Backend) { b.maxIters = n } }

// WithTolerance sets the residual tolerance of the quadratic path.
func WithTolerance(tol float64) Option { return func(b *Backend) { b.tol = tol } }

// New returns a Backend with default tolerances.
func New(opts ...Option) *Backend {
	b := &Backend{
		maxIters:   50000,
		tol:        1e-7,
		feasTol:    1e-4,
		simplexTol: 1e-7,
		intTol:     1e-6,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// simplexSolve points to the LP routine. It can be overridden in tests to
// simulate solver failures.
var simplexSolve = lp.Simplex

// Solve implements solve.Backend.
func (b *Backend) Solve(ctx context.Context, m *solve.Model) (solve.Result, error) {
	var bins []solve.VarID
	for i := 0; i < m.NumVars(); i++ {
		if m.IsBinary(solve.VarID(i)) {
			bins = append(bins, solve.VarID(i))
		}
	}
	if len(bins) == 0 {
		return b.solveContinuous(ctx, m)
	}
	return b.branchAndBound(ctx, m, bins)
}

func (b *Backend) solveContinuous(ctx context.Context, m *solve.Model) (solve.Result, error) {
	quadratic := false
	for i := 0; i < m.NumVars(); i++ {
		if q, _ := m.Cost(solve.VarID(i)); q != 0 {
			quadratic = true
			break
		}
	}
	if quadratic {
		return b.solveQP(ctx, m)
	}
	return b.solveLP(m)
}

// solveLP converts the model to gonum's general form and runs the simplex.
func (b *Backend) solveLP(m *solve.Model) (solve.Result, error) {
	n := m.NumVars()
	c := make([]float64, n)
	for i := 0; i < n; i++ {
		_, c[i] = m.Cost(solve.VarID(i))
	}

	// Box bounds and rows all become G x <= h; a two-sided row contributes
	// one inequality per finite side.
	var g [][]float64
	var h []float64
	addIneq := func(coeffs []float64, rhs float64) {
		g = append(g, coeffs)
		h = append(h, rhs)
	}
	for i := 0; i < n; i++ {
		lo, up := m.VarBounds(solve.VarID(i))
		if !math.IsInf(up, 1) {
			rc := make([]float64, n)
			rc[i] = 1
			addIneq(rc, up)
		}
		if !math.IsInf(lo, -1) {
			rc := make([]float64, n)
			rc[i] = -1
			addIneq(rc, -lo)
		}
	}
	for j := 0; j < m.NumRows(); j++ {
		vars, coeffs := m.Row(solve.ConstrID(j))
		lo, up := m.RowBounds(solve.ConstrID(j))
		if !math.IsInf(up, 1) {
			rc := make([]float64, n)
			for k, v := range vars {
				rc[v] += coeffs[k]
			}
			addIneq(rc, up)
		}
		if !math.IsInf(lo, -1) {
			rc := make([]float64, n)
			for k, v := range vars {
				rc[v] -= coeffs[k]
			}
			addIneq(rc, -lo)
		}
	}

	var gm mat.Matrix
	if len(h) > 0 {
		flat := make([]float64, 0, len(h)*n)
		for _, rc := range g {
			flat = append(flat, rc...)
		}
		gm = mat.NewDense(len(h), n, flat)
	}

	cStd, aStd, bStd := lp.Convert(c, gm, h, nil, nil)
	_, sol, err := simplexSolve(cStd, aStd, bStd, b.simplexTol, nil)
	switch err {
	case nil:
	case lp.ErrInfeasible:
		return solve.Result{Status: solve.StatusInfeasible}, nil
	case lp.ErrUnbounded:
		return solve.Result{Status: solve.StatusUnbounded}, nil
	default:
		return solve.Result{}, err
	}

	// Convert splits each free variable into a positive and a negative part.
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = sol[i]
		if len(sol) >= 2*n {
			x[i] -= sol[n+i]
		}
		lo, up := m.VarBounds(solve.VarID(i))
		x[i] = clamp(x[i], lo, up)
	}
	return solve.Result{Status: solve.StatusOptimal, Values: x, Objective: m.ObjectiveValue(x)}, nil
}

// solveQP runs an augmented Lagrangian method. Every row gets a slack
// variable boxed by the row bounds, turning the model into minimization of a
// separable quadratic over boxes subject to equalities a_j.x - s_j = 0. The
// inner minimization is exact cyclic coordinate descent: each coordinate of
// the augmented objective is a one-dimensional quadratic over an interval,
// so the update is a closed-form clamp. Variables with no curvature of their
// own pick it up from the penalty term as soon as they appear in a row;
// un-rowed linear variables resolve to a box endpoint directly.
func (b *Backend) solveQP(ctx context.Context, m *solve.Model) (solve.Result, error) {
	n := m.NumVars()
	nr := m.NumRows()

	quad := make([]float64, n)
	lin := make([]float64, n)
	for i := 0; i < n; i++ {
		quad[i], lin[i] = m.Cost(solve.VarID(i))
	}

	type rowRef struct {
		row   int
		coeff float64
	}
	byVar := make([][]rowRef, n)
	rowSq := make([]float64, n) // sum of squared coefficients per variable
	rowLo := make([]float64, nr)
	rowUp := make([]float64, nr)
	for j := 0; j < nr; j++ {
		vars, coeffs := m.Row(solve.ConstrID(j))
		for k, v := range vars {
			byVar[v] = append(byVar[v], rowRef{row: j, coeff: coeffs[k]})
			rowSq[v] += coeffs[k] * coeffs[k]
		}
		rowLo[j], rowUp[j] = m.RowBounds(solve.ConstrID(j))
	}

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		lo, up := m.VarBounds(solve.VarID(i))
		x[i] = clamp(0, lo, up)
	}
	s := make([]float64, nr) // row slack, boxed by the row bounds
	r := make([]float64, nr) // residual a_j.x - s_j, zero at feasibility
	for j := 0; j < nr; j++ {
		dot := m.RowValue(solve.ConstrID(j), x)
		s[j] = clamp(dot, rowLo[j], rowUp[j])
		r[j] = dot - s[j]
	}
	y := make([]float64, nr) // equality multipliers
	pen := 1.0

	sweeps := 0
	resid := residNorm(r)
	for sweeps < b.maxIters {
		select {
		case <-ctx.Done():
			return solve.Result{Status: solve.StatusTimeLimit}, nil
		default:
		}

		// inner: minimize the augmented objective to coordinate precision
		for ; sweeps < b.maxIters; sweeps++ {
			maxMove := 0.0
			for i := 0; i < n; i++ {
				kappa := 2*quad[i] + pen*rowSq[i]
				g := 2*quad[i]*x[i] + lin[i]
				for _, ref := range byVar[i] {
					g += (y[ref.row] + pen*r[ref.row]) * ref.coeff
				}
				lo, up := m.VarBounds(solve.VarID(i))
				var next float64
				if kappa == 0 {
					// linear coordinate outside every row: a box endpoint
					switch {
					case g > 0:
						next = lo
					case g < 0:
						next = up
					default:
						next = x[i]
					}
					if math.IsInf(next, 0) {
						return solve.Result{Status: solve.StatusUnbounded}, nil
					}
				} else {
					next = clamp(x[i]-g/kappa, lo, up)
				}
				if d := next - x[i]; d != 0 {
					x[i] = next
					for _, ref := range byVar[i] {
						r[ref.row] += ref.coeff * d
					}
					maxMove = math.Max(maxMove, math.Abs(d))
				}
			}
			for j := 0; j < nr; j++ {
				dot := r[j] + s[j]
				next := clamp(dot+y[j]/pen, rowLo[j], rowUp[j])
				if d := next - s[j]; d != 0 {
					s[j] = next
					r[j] = dot - next
					maxMove = math.Max(maxMove, math.Abs(d))
				}
			}
			if maxMove <= b.tol {
				sweeps++
				break
			}
		}

		prev := resid
		resid = residNorm(r)
		if resid <= b.tol {
			break
		}
		for j := 0; j < nr; j++ {
			y[j] += pen * r[j]
		}
		// standard penalty schedule: tighten when the residual stalls
		if resid > 0.25*prev {
			pen = math.Min(pen*4, 1e8)
		}
	}

	if resid > b.feasTol {
		return solve.Result{Status: solve.StatusInfeasible}, nil
	}
	out := make([]float64, n)
	copy(out, x)
	return solve.Result{Status: solve.StatusOptimal, Values: out, Objective: m.ObjectiveValue(out)}, nil
}

func residNorm(r []float64) float64 {
	v := 0.0
	for _, rj := range r {
		v = math.Max(v, math.Abs(rj))
	}
	return v
}

// branchAndBound explores binary fixings depth first, pruning on the
// continuous relaxation bound. Variable bounds are narrowed in place and
// restored on the way back up; the model's topology never changes.
func (b *Backend) branchAndBound(ctx context.Context, m *solve.Model, bins []solve.VarID) (solve.Result, error) {
	best := solve.Result{Status: solve.StatusInfeasible}
	bestObj := math.Inf(1)
	timedOut := false

	var walk func() error
	walk = func() error {
		select {
		case <-ctx.Done():
			timedOut = true
			return nil
		default:
		}
		rel, err := b.solveContinuous(ctx, m)
		if err != nil {
			return err
		}
		if rel.Status == solve.StatusTimeLimit {
			timedOut = true
			return nil
		}
		if rel.Status != solve.StatusOptimal {
			return nil
		}
		if rel.Objective >= bestObj {
			return nil
		}

		branch := solve.VarID(-1)
		frac := b.intTol
		for _, v := range bins {
			f := math.Abs(rel.Values[v] - math.Round(rel.Values[v]))
			if f > frac {
				frac = f
				branch = v
			}
		}
		if branch < 0 {
			// integral: fix the binaries exactly and resolve the continuous part
			saved := make([][2]float64, len(bins))
			for i, v := range bins {
				lo, up := m.VarBounds(v)
				saved[i] = [2]float64{lo, up}
				r := math.Round(rel.Values[v])
				m.SetVarBounds(v, r, r)
			}
			fixed, ferr := b.solveContinuous(ctx, m)
			for i, v := range bins {
				m.SetVarBounds(v, saved[i][0], saved[i][1])
			}
			if ferr != nil {
				return ferr
			}
			if fixed.Status == solve.StatusOptimal && fixed.Objective < bestObj {
				best = fixed
				bestObj = fixed.Objective
			}
			return nil
		}

		lo, up := m.VarBounds(branch)
		for _, fix := range []float64{0, 1} {
			m.SetVarBounds(branch, fix, fix)
			if err := walk(); err != nil {
				m.SetVarBounds(branch, lo, up)
				return err
			}
		}
		m.SetVarBounds(branch, lo, up)
		return nil
	}

	if err := walk(); err != nil {
		return solve.Result{}, err
	}
	if timedOut && best.Status != solve.StatusOptimal {
		return solve.Result{Status: solve.StatusTimeLimit}, nil
	}
	return best, nil
}

func clamp(v, lo, up float64) float64 {
	if v < lo {
		return lo
	}
	if v > up {
		return up
	}
	return v
}
