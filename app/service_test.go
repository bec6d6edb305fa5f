package app

import (
	"context"
	"math"
	"testing"

	"github.com/kilianp07/districtsched/config"
	"github.com/kilianp07/districtsched/core/entity"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Run: config.RunConfig{Algorithm: "central"},
		Scenario: config.ScenarioConfig{
			StepMinutes: 60,
			SimuHorizon: 4,
			OpHorizon:   2,
			District:    config.DistrictConfig{Objective: "peak-shaving", MaxPowerKW: 100},
			Entities: []config.EntityConfig{
				{ID: "house-1", Type: "fixed", Demand: []float64{5, 6, 7, 8}},
				{ID: "flex-1", Type: "flexible", MinPowerKW: 0, MaxPowerKW: 10},
			},
		},
	}
	cfg.Run.SetDefaults()
	cfg.Solver.SetDefaults()
	cfg.Logging.SetDefaults()
	return cfg
}

func TestServiceRollingHorizon(t *testing.T) {
	svc, err := New(testConfig())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer svc.Close()

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	// four steps in windows of two
	if got := len(svc.Results()); got != 2 {
		t.Fatalf("expected 2 windows, got %d", got)
	}
	for i, res := range svc.Results() {
		if !res.Converged {
			t.Fatalf("window %d did not converge", i)
		}
	}
	// flexible demand has no incentive to run, so the aggregator tracks the
	// fixed demand exactly
	district := svc.Entities()[0]
	want := []float64{5, 6, 7, 8}
	for i, p := range district.Schedule() {
		if math.Abs(p-want[i]) > 1e-3 {
			t.Fatalf("district schedule %v, want %v", district.Schedule(), want)
		}
	}
}

func TestServiceExchangeRollingHorizon(t *testing.T) {
	cfg := testConfig()
	cfg.Run.Algorithm = "exchange-consensus"
	cfg.Run.Rho = 2
	cfg.Run.EpsPrimal = 1e-4
	cfg.Run.EpsDual = 1e-4
	cfg.Run.MaxIterations = 500
	cfg.Run.Workers = 2

	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer svc.Close()

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	district := svc.Entities()[0]
	want := []float64{5, 6, 7, 8}
	for i, p := range district.Schedule() {
		if math.Abs(p-want[i]) > 1e-2 {
			t.Fatalf("district schedule %v, want %v", district.Schedule(), want)
		}
	}
}

func TestServiceTracksHistoryBoundsAcrossWindows(t *testing.T) {
	cfg := testConfig()
	cfg.Scenario.Entities = append(cfg.Scenario.Entities, config.EntityConfig{
		ID:             "furnace-1",
		Type:           "curtailable",
		NominalKW:      10,
		MaxCurtailment: 0.5,
		MaxLow:         1,
		MinFull:        2,
	})

	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	defer svc.Close()

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	// the second window's update derives run-length bounds from the realized
	// first window; the handle table must expose them
	for _, e := range svc.Entities() {
		if e.ID() != "furnace-1" {
			continue
		}
		hd, ok := e.(entity.HistoryDependent)
		if !ok {
			t.Fatalf("curtailable load does not expose history bounds")
		}
		if len(hd.HistoryBounds()) == 0 {
			t.Fatalf("no history-derived bounds recorded after the final window")
		}
		return
	}
	t.Fatalf("furnace-1 not built")
}

func TestBuildEntitiesRejectsUnknownType(t *testing.T) {
	cfg := testConfig()
	cfg.Scenario.Entities[0].Type = "chp"
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected an error for unknown entity type")
	}
}

func TestBuildStrategyRejectsUnknownAlgorithm(t *testing.T) {
	cfg := testConfig()
	cfg.Run.Algorithm = "genetic"
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected an error for unknown algorithm")
	}
}
