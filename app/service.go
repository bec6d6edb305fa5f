package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/districtsched/config"
	"github.com/kilianp07/districtsched/core/coordinator"
	"github.com/kilianp07/districtsched/core/entity"
	coremetrics "github.com/kilianp07/districtsched/core/metrics"
	"github.com/kilianp07/districtsched/core/model"
	"github.com/kilianp07/districtsched/infra/logger"
	"github.com/kilianp07/districtsched/infra/metrics"
	"github.com/kilianp07/districtsched/infra/publish"
	"github.com/kilianp07/districtsched/infra/solver"
	"github.com/kilianp07/districtsched/internal/eventbus"
)

// Service wires the scenario, the coordination strategy and the telemetry
// plumbing, and drives the rolling horizon over the simulation.
type Service struct {
	cfg      *config.Config
	grid     *model.TimeGrid
	entities []entity.Entity
	loop     *coordinator.Loop
	bus      eventbus.EventBus
	sink     coremetrics.Sink
	pub      *publish.Publisher
	log      logger.Logger

	results []*coordinator.Result
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")

	grid, err := model.NewTimeGrid(
		time.Duration(cfg.Scenario.StepMinutes)*time.Minute,
		cfg.Scenario.SimuHorizon,
		cfg.Scenario.OpHorizon,
	)
	if err != nil {
		return nil, fmt.Errorf("time grid: %w", err)
	}

	entities, err := buildEntities(cfg.Scenario)
	if err != nil {
		return nil, err
	}

	backend := solver.New(
		solver.WithMaxIters(cfg.Solver.MaxIters),
		solver.WithTolerance(cfg.Solver.Tolerance),
	)
	var exec coordinator.Execution = coordinator.Sequential{}
	if cfg.Run.Workers > 1 {
		exec = coordinator.NewPool(cfg.Run.Workers, logger.New("solve-pool"))
	}

	strategy, err := buildStrategy(cfg.Run, grid, backend, exec, entities)
	if err != nil {
		return nil, err
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PromAddr != "" {
		sink, err := metrics.NewPromSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics.Influx))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	var pub *publish.Publisher
	if cfg.MQTT.Enabled {
		pub, err = publish.NewPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
	}

	bus := eventbus.New()
	return &Service{
		cfg:      cfg,
		grid:     grid,
		entities: entities,
		loop:     coordinator.NewLoop(strategy, logger.New(cfg.Run.Algorithm), bus),
		bus:      bus,
		sink:     sink,
		pub:      pub,
		log:      logg,
	}, nil
}

// Run drives the rolling horizon: solve the current window, publish it, then
// advance to the next window until the simulation horizon is covered.
func (s *Service) Run(ctx context.Context) error {
	if addr := s.cfg.Metrics.PromAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	metrics.StartCollector(ctx, s.bus, s.sink, s.log)

	s.grid.Reset()
	for {
		steps := s.grid.WindowSteps()
		s.log.Infof("scheduling window at step %d/%d (%d steps)",
			s.grid.CurrentStep(), s.grid.SimuHorizon, steps)

		res, err := s.loop.Run(ctx, s.cfg.Run.MaxIterations)
		if res != nil {
			s.results = append(s.results, res)
		}
		if err != nil {
			return fmt.Errorf("window at step %d: %w", s.grid.CurrentStep(), err)
		}
		if s.pub != nil {
			if perr := s.pub.PublishWindow(res.RunID, s.grid, s.entities); perr != nil {
				s.log.Errorf("publish window: %v", perr)
			}
		}
		s.logHistoryBounds()

		if s.grid.CurrentStep()+steps >= s.grid.SimuHorizon {
			return nil
		}
		if err := s.grid.Advance(steps); err != nil {
			return fmt.Errorf("advance horizon: %w", err)
		}
	}
}

// logHistoryBounds reports, per history-dependent entity, the row bounds the
// window's update derived from realized operating history. Debug-level only;
// the handle tables are the primary trail when a window comes back infeasible.
func (s *Service) logHistoryBounds() {
	for _, e := range s.entities {
		hd, ok := e.(entity.HistoryDependent)
		if !ok {
			continue
		}
		bounds := hd.HistoryBounds()
		if len(bounds) == 0 {
			continue
		}
		s.log.Debugw("history-derived row bounds", map[string]any{
			"entity": e.ID(),
			"step":   s.grid.CurrentStep(),
			"bounds": bounds,
		})
	}
}

// Entities returns the scheduled entities, aggregator first.
func (s *Service) Entities() []entity.Entity { return s.entities }

// Grid returns the time grid.
func (s *Service) Grid() *model.TimeGrid { return s.grid }

// Results returns one result per scheduled window, in order.
func (s *Service) Results() []*coordinator.Result { return s.results }

// Close releases the external connections.
func (s *Service) Close() error {
	if s.pub != nil {
		s.pub.Close()
	}
	s.bus.Close()
	return nil
}

func buildStrategy(run config.RunConfig, grid *model.TimeGrid, backend *solver.Backend, exec coordinator.Execution, entities []entity.Entity) (coordinator.Strategy, error) {
	switch run.Algorithm {
	case "central":
		return coordinator.NewCentral(grid, backend, entities...)
	case "local":
		return coordinator.NewLocal(grid, backend, exec, entities...)
	case "exchange-consensus":
		return coordinator.NewExchangeConsensus(grid, backend, exec, coordinator.ExchangeConfig{
			Rho:       run.Rho,
			EpsPrimal: run.EpsPrimal,
			EpsDual:   run.EpsDual,
		}, entities...)
	case "dual-decomposition":
		return coordinator.NewDualDecomposition(grid, backend, exec, coordinator.DualConfig{
			Rho:       run.Rho,
			EpsPrimal: run.EpsPrimal,
		}, entities...)
	default:
		return nil, fmt.Errorf("unknown algorithm %s", run.Algorithm)
	}
}

func buildEntities(sc config.ScenarioConfig) ([]entity.Entity, error) {
	objective, err := entity.ParseDistrictObjective(sc.District.Objective)
	if err != nil {
		return nil, err
	}
	district, err := entity.NewDistrict("district", sc.SimuHorizon, objective, sc.District.MaxPowerKW, sc.Prices)
	if err != nil {
		return nil, err
	}
	out := []entity.Entity{district}
	for _, ec := range sc.Entities {
		e, err := buildEntity(ec, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func buildEntity(ec config.EntityConfig, sc config.ScenarioConfig) (entity.Entity, error) {
	switch ec.Type {
	case "fixed":
		return entity.NewFixedLoad(ec.ID, ec.Demand)
	case "pv":
		return entity.NewPhotovoltaic(ec.ID, ec.Generation)
	case "flexible":
		return entity.NewFlexibleLoad(ec.ID, sc.SimuHorizon, ec.MinPowerKW, ec.MaxPowerKW, sc.Prices)
	case "battery":
		return entity.NewBattery(ec.ID, sc.SimuHorizon, ec.CapacityKWh, ec.MaxChargeKW, ec.MaxDischargeKW, ec.Eta, ec.SocInit)
	case "curtailable":
		enc, err := entity.ParseEncoding(ec.Encoding)
		if err != nil {
			return nil, err
		}
		if ec.MaxLow > 0 || ec.MinFull > 0 {
			return entity.NewCurtailableLoadWithRunLimits(ec.ID, sc.SimuHorizon, ec.NominalKW, ec.MaxCurtailment, enc, sc.Prices, ec.MaxLow, ec.MinFull)
		}
		return entity.NewCurtailableLoad(ec.ID, sc.SimuHorizon, ec.NominalKW, ec.MaxCurtailment, enc, sc.Prices)
	default:
		return nil, fmt.Errorf("unknown entity type %s", ec.Type)
	}
}
