package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/districtsched/app"
	"github.com/kilianp07/districtsched/config"
	"github.com/kilianp07/districtsched/infra/logger"
	"github.com/kilianp07/districtsched/pkg/export"
)

var (
	cfgPath    string
	exportPath string
	exportFmt  string
)

var rootCmd = &cobra.Command{
	Use:   "districtsched",
	Short: "District energy scheduling service",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.Flags().StringVarP(&exportPath, "export", "o", "", "write the schedules and iteration traces to this file")
	rootCmd.Flags().StringVar(&exportFmt, "format", "json", "export format: json or csv")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	if err := svc.Run(ctx); err != nil {
		return err
	}
	if exportPath == "" {
		return nil
	}
	return writeReport(export.NewReport(svc.Entities(), svc.Results()))
}

func writeReport(r export.Report) error {
	f, err := os.Create(exportPath)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	switch exportFmt {
	case "json":
		return export.WriteJSON(f, r)
	case "csv":
		return export.WriteSchedulesCSV(f, r)
	default:
		return fmt.Errorf("unknown export format %s", exportFmt)
	}
}
