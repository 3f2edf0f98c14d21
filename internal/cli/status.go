package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/cybertec-postgresql/schemaloader/internal/runner"
)

// Status compares the configured scripts with the journal and reports which
// are pending, applied or modified. Nothing is executed and the journal is
// not created. Modified scripts make the exit code 1.
func Status(ctx context.Context, config *Config, format string) (int, error) {
	f, err := formatter(format)
	if err != nil {
		return exitCode(err), err
	}
	if err := requireConnection(config); err != nil {
		return 2, err
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

	executor := runner.NewExecutor(db, runner.Options{
		Journal:       journal,
		DryRun:        true,
		AllowModified: config.AllowModified,
	})

	runs, err := executor.Plan(ctx, scripts)
	if err != nil {
		return 1, err
	}

	if err := f.FormatRuns(runs, os.Stdout); err != nil {
		return 1, fmt.Errorf("failed to format status: %w", err)
	}

	return runner.Summarize(runs).ExitCode(), nil
}
