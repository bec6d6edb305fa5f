package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration to the --config path",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// sampleConfig is a small two-house district that converges quickly with
// every algorithm. Keys follow the json field tags the loader expects.
func sampleConfig() map[string]any {
	return map[string]any{
		"run": map[string]any{
			"algorithm":      "exchange-consensus",
			"rho":            2.0,
			"eps_primal":     1e-3,
			"eps_dual":       1e-3,
			"max_iterations": 200,
			"workers":        4,
		},
		"scenario": map[string]any{
			"step_minutes": 60,
			"simu_horizon": 24,
			"op_horizon":   12,
			"district": map[string]any{
				"objective":    "peak-shaving",
				"max_power_kw": 100.0,
			},
			"entities": []map[string]any{
				{
					"id":     "house-1",
					"type":   "fixed",
					"demand": flatDemand(24, 5),
				},
				{
					"id":           "house-2",
					"type":         "flexible",
					"min_power_kw": 0.0,
					"max_power_kw": 10.0,
				},
			},
		},
	}
}

func flatDemand(n int, kw float64) []float64 {
	d := make([]float64, n)
	for i := range d {
		d[i] = kw
	}
	return d
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}
	f, err := os.Create(cfgPath)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(sampleConfig()); err != nil {
		return fmt.Errorf("encode sample config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote sample configuration to %s\n", cfgPath)
	return nil
}
