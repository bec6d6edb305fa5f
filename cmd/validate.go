package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/districtsched/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without scheduling",
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "configuration ok: %s over %d steps, %d entities\n",
		cfg.Run.Algorithm, cfg.Scenario.SimuHorizon, len(cfg.Scenario.Entities))
	return nil
}
