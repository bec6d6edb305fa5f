package config

import (
	"fmt"

	"github.com/kilianp07/districtsched/infra/metrics"
)

// RunConfig selects the coordination algorithm and its tunables.
type RunConfig struct {
	// Algorithm is one of "central", "local", "exchange-consensus" or
	// "dual-decomposition".
	Algorithm string `json:"algorithm"`
	// Rho is the penalty weight or price step of the iterative schemes.
	Rho float64 `json:"rho"`
	// EpsPrimal is the primal residual tolerance.
	EpsPrimal float64 `json:"eps_primal"`
	// EpsDual is the dual residual tolerance of the consensus scheme.
	EpsDual float64 `json:"eps_dual"`
	// MaxIterations caps every run regardless of convergence.
	MaxIterations int `json:"max_iterations"`
	// Workers sets the parallel solve fan-out; 0 or 1 solves sequentially.
	Workers int `json:"workers"`
}

// SetDefaults applies sane defaults.
func (c *RunConfig) SetDefaults() {
	if c.Algorithm == "" {
		c.Algorithm = "exchange-consensus"
	}
	if c.Rho == 0 {
		c.Rho = 2
	}
	if c.EpsPrimal == 0 {
		c.EpsPrimal = 1e-3
	}
	if c.EpsDual == 0 {
		c.EpsDual = 1e-3
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 200
	}
}

// Validate checks mandatory fields.
func (c RunConfig) Validate() error {
	switch c.Algorithm {
	case "central", "local", "exchange-consensus", "dual-decomposition":
	default:
		return fmt.Errorf("unknown algorithm %s", c.Algorithm)
	}
	if c.Rho <= 0 {
		return fmt.Errorf("rho must be positive")
	}
	if c.EpsPrimal < 0 || c.EpsDual < 0 {
		return fmt.Errorf("tolerances must be non-negative")
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}
	return nil
}

// SolverConfig tunes the optimization backend.
type SolverConfig struct {
	// MaxIters is the iteration budget of the quadratic path.
	MaxIters int `json:"max_iters"`
	// Tolerance is the residual tolerance of the quadratic path.
	Tolerance float64 `json:"tolerance"`
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.MaxIters == 0 {
		c.MaxIters = 50000
	}
	if c.Tolerance == 0 {
		c.Tolerance = 1e-7
	}
}

// LoggingConfig defines the log level of the service.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn" or "error".
	Level string `json:"level"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %s", c.Level)
	}
}

// MetricsConfig selects the telemetry sinks.
type MetricsConfig struct {
	// PromAddr exposes Prometheus metrics on this address when non-empty.
	PromAddr string `json:"prom_addr"`
	// InfluxEnabled switches the InfluxDB sink on.
	InfluxEnabled bool `json:"influx_enabled"`
	// Influx holds the InfluxDB connection parameters.
	Influx metrics.InfluxConfig `json:"influx"`
}
