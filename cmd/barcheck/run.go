package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/barcheck/internal/common"
	"github.com/ternarybob/barcheck/internal/interfaces"
	"github.com/ternarybob/barcheck/internal/report"
	"github.com/ternarybob/barcheck/internal/runner"
	"github.com/ternarybob/barcheck/internal/storage"
)

func runCommand(args []string, stdout io.Writer) (int, error) {
	fs := newFlagSet("run", stdout)
	var (
		cfg       configFlags
		overrides common.FlagOverrides
		scenarios stringList
		port      int
	)
	cfg.register(fs)
	fs.StringVar(&overrides.Host, "host", "", "Static server host (overrides config)")
	fs.IntVar(&port, "port", 0, "Static server port, 0 for ephemeral (overrides config)")
	fs.IntVar(&port, "p", 0, "Static server port (shorthand)")
	fs.BoolVar(&overrides.Headed, "headed", false, "Show the browser window")
	fs.Var(&scenarios, "scenario", "Scenario to run (repeatable or comma-separated; default all)")
	fs.Var(&scenarios, "s", "Scenario to run (shorthand)")
	fs.StringVar(&overrides.ScenariosDir, "scenarios-dir", "", "Directory of declarative *.yaml scenarios")
	fs.IntVar(&overrides.Concurrency, "concurrency", 0, "Scenarios run in parallel (overrides config)")
	fs.StringVar(&overrides.Schedule, "schedule", "", "Cron expression; repeat the run until interrupted")
	if err := parseFlags(fs, args); err != nil {
		return exitUsage, err
	}
	overrides.Scenarios = scenarios
	overrides.Port = explicitInt(fs, &port, "port", "p")

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> files -> env -> flags)
	// 2. Initialize logger
	// 3. Print banner
	config, err := cfg.load(overrides)
	if err != nil {
		return exitUsage, err
	}
	logger := common.InitLogger(config)
	common.PrintBanner(config, logger)

	registry, err := loadRegistry(config.Runner.ScenariosDir, logger)
	if err != nil {
		return exitUsage, err
	}
	selected, err := registry.Select(config.Runner.Scenarios)
	if err != nil {
		return exitUsage, usageError{err}
	}

	var history interfaces.RunStorage
	if config.Storage.Badger.Enabled {
		manager, err := storage.NewStorageManager(logger, config)
		if err != nil {
			return exitFail, err
		}
		defer manager.Close()
		history = manager.RunStorage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(config, logger, stdout, history)

	if config.Runner.Schedule != "" {
		err := runner.Schedule(ctx, config.Runner.Schedule, logger, func(ctx context.Context) {
			record, err := r.Run(ctx, selected)
			if err != nil {
				logger.Error().Err(err).Msg("Scheduled run failed")
				return
			}
			logger.Info().
				Str("run_id", record.ID).
				Bool("passed", record.Passed).
				Strs("failed", record.Failed()).
				Msg("Scheduled run finished")
		})
		if err != nil {
			return exitUsage, usageError{err}
		}
		return exitPass, nil
	}

	record, err := r.Run(ctx, selected)
	if err != nil {
		logger.Error().Err(err).Msg("Run did not complete")
		return exitFail, nil
	}

	logger.Info().
		Str("run_id", record.ID).
		Str("results_dir", record.ResultsDir).
		Msg("Results written")
	return report.ExitCode(record.Scenarios), nil
}
