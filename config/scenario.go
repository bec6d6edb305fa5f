package config

import "fmt"

// ScenarioConfig describes the district being scheduled: the time grid, the
// aggregator and the member entities.
type ScenarioConfig struct {
	// StepMinutes is the timestep length.
	StepMinutes int `json:"step_minutes"`
	// SimuHorizon is the total number of timesteps.
	SimuHorizon int `json:"simu_horizon"`
	// OpHorizon is the optimization window length in timesteps.
	OpHorizon int `json:"op_horizon"`
	// Prices is the spot price curve over the simulation horizon, in
	// currency per kWh. Entities that charge for energy read it.
	Prices []float64 `json:"prices"`

	District DistrictConfig `json:"district"`
	Entities []EntityConfig `json:"entities"`
}

// DistrictConfig describes the aggregator.
type DistrictConfig struct {
	// Objective is "peak-shaving" or "price".
	Objective string `json:"objective"`
	// MaxPowerKW bounds the net grid exchange in both directions.
	MaxPowerKW float64 `json:"max_power_kw"`
}

// EntityConfig describes one member entity. Type selects which of the
// remaining fields matter.
type EntityConfig struct {
	ID string `json:"id"`
	// Type is "fixed", "flexible", "pv", "battery" or "curtailable".
	Type string `json:"type"`

	// fixed
	Demand []float64 `json:"demand"`

	// pv
	Generation []float64 `json:"generation"`

	// flexible
	MinPowerKW float64 `json:"min_power_kw"`
	MaxPowerKW float64 `json:"max_power_kw"`

	// battery
	CapacityKWh    float64 `json:"capacity_kwh"`
	MaxChargeKW    float64 `json:"max_charge_kw"`
	MaxDischargeKW float64 `json:"max_discharge_kw"`
	Eta            float64 `json:"eta"`
	SocInit        float64 `json:"soc_init"`

	// curtailable
	NominalKW float64 `json:"nominal_kw"`
	// MaxCurtailment is the curtailed level as a fraction of nominal.
	MaxCurtailment float64 `json:"max_curtailment"`
	Encoding       string  `json:"encoding"`
	MaxLow         int     `json:"max_low"`
	MinFull        int     `json:"min_full"`
}

// Validate checks the grid dimensions and that every entity names a known
// type. Per-entity parameter checks happen at entity construction.
func (c ScenarioConfig) Validate() error {
	if c.StepMinutes <= 0 {
		return fmt.Errorf("step_minutes must be positive")
	}
	if c.SimuHorizon <= 0 {
		return fmt.Errorf("simu_horizon must be positive")
	}
	if c.OpHorizon <= 0 || c.OpHorizon > c.SimuHorizon {
		return fmt.Errorf("op_horizon must be in [1, simu_horizon]")
	}
	if c.District.MaxPowerKW <= 0 {
		return fmt.Errorf("district max_power_kw must be positive")
	}
	if len(c.Entities) == 0 {
		return fmt.Errorf("scenario needs at least one entity")
	}
	seen := map[string]bool{}
	for i, e := range c.Entities {
		if e.ID == "" {
			return fmt.Errorf("entity %d: missing id", i)
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate entity id %s", e.ID)
		}
		seen[e.ID] = true
		switch e.Type {
		case "fixed", "flexible", "pv", "battery", "curtailable":
		default:
			return fmt.Errorf("entity %s: unknown type %s", e.ID, e.Type)
		}
	}
	return nil
}
