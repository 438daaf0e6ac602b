// Command simulate is the CLI entrypoint for the rolling-maintenance
// simulator (spec.md §6, the "external collaborator" the core spec
// doesn't otherwise cover): it loads a dataset, runs a named maintenance
// strategy to completion, and writes the resulting metrics.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	_ "github.com/joho/godotenv/autoload"

	"github.com/patchwave/maintsim/internal/config"
	"github.com/patchwave/maintsim/internal/dataset"
	"github.com/patchwave/maintsim/internal/maintenance"
	"github.com/patchwave/maintsim/internal/report"
	"github.com/patchwave/maintsim/internal/sched"
	"github.com/patchwave/maintsim/internal/shared/zlog"
)

var (
	datasetPath     string
	strategyName    string
	outputFile      string
	simulationType  string
	logLevel        string
	noProgressAfter int
)

func main() {
	root := &cobra.Command{
		Use:   "simulate",
		Short: "Run a data-center rolling maintenance simulation",
		RunE:  run,
	}

	root.Flags().StringVar(&datasetPath, "dataset", "", "path to the input dataset JSON file (required)")
	root.Flags().StringVar(&strategyName, "maintenance-strategy", "best_fit",
		fmt.Sprintf("maintenance strategy to run (%v)", maintenance.Names()))
	root.Flags().StringVar(&outputFile, "output-file", "results.xlsx", "path to write the results spreadsheet")
	root.Flags().StringVar(&simulationType, "simulation-type", "virtual", "simulation clock mode: virtual or real_time")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.Flags().IntVar(&noProgressAfter, "no-progress-after", 0,
		"abort if this many consecutive steps make zero progress (0 disables the check)")
	_ = root.MarkFlagRequired("dataset")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	logger := zlog.New(zlog.Config{Level: logLevel, Service: "simulate", Pretty: isatty.IsTerminal(os.Stdout.Fd())})
	slog.SetDefault(logger)

	constants, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading constants: %w", err)
	}

	strategy, err := maintenance.Lookup(strategyName)
	if err != nil {
		return err
	}

	world, err := dataset.LoadFile(datasetPath, constants)
	if err != nil {
		return err
	}
	logger.Info("dataset loaded", "servers", world.Servers.Count(), "vms", world.VMs.Count())

	var opts []maintenance.Option
	if noProgressAfter > 0 {
		opts = append(opts, maintenance.WithNoProgressDetection(noProgressAfter))
	}
	if simulationType == "real_time" {
		opts = append(opts, maintenance.WithRealtime(1))
	} else if simulationType != "virtual" {
		return fmt.Errorf("unknown simulation type %q (want virtual or real_time)", simulationType)
	}

	env := sched.NewEnv()
	result, err := maintenance.Run(world, env, strategy, opts...)
	if err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}
	logger.Info("simulation complete", "steps", len(result.Steps), "maintenance_duration", result.Overall.MaintenanceDuration)

	if err := report.WriteXLSX(outputFile, strategy.Name(), result); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	report.Summarize(cmd.OutOrStdout(), strategy.Name(), result)

	return nil
}
