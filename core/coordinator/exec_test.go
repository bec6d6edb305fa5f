package coordinator

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kilianp07/districtsched/core/entity"
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/core/solve"
	"github.com/kilianp07/districtsched/infra/logger"
	"github.com/kilianp07/districtsched/infra/solver"
)

const timeStep = 15 * time.Minute

func testNodes(t *testing.T, count int) ([]*Node, *model.TimeGrid) {
	t.Helper()
	grid, err := model.NewTimeGrid(timeStep, 4, 4)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	backend := solver.New()
	nodes := make([]*Node, count)
	for i := 0; i < count; i++ {
		prices := []float64{4, 1, 3, 2}
		fl, err := entity.NewFlexibleLoad(flexID(i), 4, float64(i), float64(i)+5, prices)
		if err != nil {
			t.Fatalf("flexible load: %v", err)
		}
		nodes[i] = NewNode(fl.ID(), backend, fl)
		if err := nodes[i].Populate(grid); err != nil {
			t.Fatalf("populate: %v", err)
		}
	}
	return nodes, grid
}

func flexID(i int) string {
	return string(rune('a'+i)) + "-load"
}

func TestSequentialAndSingleWorkerPoolAgree(t *testing.T) {
	nodes, _ := testNodes(t, 5)
	seq, err := Sequential{}.SolveAll(context.Background(), nodes)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	pool, err := NewPool(1, logger.NopLogger{}).SolveAll(context.Background(), nodes)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if !reflect.DeepEqual(seq, pool) {
		t.Fatalf("single-worker pool diverged from sequential:\n%v\n%v", seq, pool)
	}
}

func TestPoolMatchesSequentialAcrossWorkerCounts(t *testing.T) {
	nodes, _ := testNodes(t, 7)
	seq, err := Sequential{}.SolveAll(context.Background(), nodes)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	for _, workers := range []int{2, 3, 16} {
		pool, err := NewPool(workers, logger.NopLogger{}).SolveAll(context.Background(), nodes)
		if err != nil {
			t.Fatalf("pool with %d workers: %v", workers, err)
		}
		if !reflect.DeepEqual(seq, pool) {
			t.Fatalf("pool with %d workers diverged from sequential", workers)
		}
	}
}

type panicBackend struct{}

func (panicBackend) Solve(context.Context, *solve.Model) (solve.Result, error) {
	panic("solver blew up")
}

func TestPoolReportsPanickingWorker(t *testing.T) {
	nodes, grid := testNodes(t, 4)
	fl, err := entity.NewFlexibleLoad("z-load", 4, 0, 5, nil)
	if err != nil {
		t.Fatalf("flexible load: %v", err)
	}
	// last chunk of a 2-worker split, so the panic belongs to worker 1
	nodes[3] = NewNode(fl.ID(), panicBackend{}, fl)
	if err := nodes[3].Populate(grid); err != nil {
		t.Fatalf("populate: %v", err)
	}

	_, err = NewPool(2, logger.NopLogger{}).SolveAll(context.Background(), nodes)
	var we *WorkerError
	if !errors.As(err, &we) {
		t.Fatalf("expected WorkerError, got %v", err)
	}
	if we.Worker != 1 {
		t.Fatalf("expected worker 1 in error, got %d", we.Worker)
	}
}

func TestPoolSurfacesInfeasibleNode(t *testing.T) {
	nodes, _ := testNodes(t, 4)
	// a row the box bounds can never satisfy
	v := nodes[2].Entities()[0].PowerVars()[0]
	nodes[2].Model().AddRow([]solve.VarID{v}, []float64{1}, 100, solve.Inf)

	_, err := NewPool(2, logger.NopLogger{}).SolveAll(context.Background(), nodes)
	if err == nil {
		t.Fatalf("expected an error")
	}
	var ie *InfeasibleError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InfeasibleError, got %v", err)
	}
	if ie.Node != nodes[2].ID() {
		t.Fatalf("expected node %q in error, got %q", nodes[2].ID(), ie.Node)
	}
}
