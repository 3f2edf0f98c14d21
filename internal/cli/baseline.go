package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/cybertec-postgresql/schemaloader/internal/logger"
	"github.com/cybertec-postgresql/schemaloader/internal/runner"
)

// Baseline marks the migrations up to the configured baseline version as
// applied without running them. Without a baseline version the newest
// migration is used. It returns the process exit code.
func Baseline(ctx context.Context, config *Config, format string) (int, error) {
	f, err := formatter(format)
	if err != nil {
		return exitCode(err), err
	}

	scripts, err := loadScripts(ctx, config)
	if err != nil {
		return 1, err
	}

	db, journal, err := connect(ctx, config)
	if err != nil {
		return exitCode(err), err
	}
	defer db.Close()

	target := config.BaselineVersion
	if target == "" {
		target = runner.BaselineLatest
	}

	executor := runner.NewExecutor(db, runner.Options{
		Journal: journal,
		DryRun:  config.DryRun,
	})
	logger.Debug("run %s: baseline %s", executor.RunID(), target)

	runs, err := executor.Baseline(ctx, scripts, target)
	if err != nil {
		return 1, fmt.Errorf("baseline failed: %w", err)
	}

	if err := f.FormatRuns(runs, os.Stdout); err != nil {
		return 1, fmt.Errorf("failed to format results: %w", err)
	}
	return 0, nil
}
