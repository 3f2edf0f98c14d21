package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/cybertec-postgresql/schemaloader/internal/logger"
	"github.com/cybertec-postgresql/schemaloader/internal/runner"
)

// Install clears the journal, drops the objects created by the plain
// scripts and runs drop and plain scripts again. Migrations are baselined
// when a baseline version is configured. It returns the process exit code.
func Install(ctx context.Context, config *Config, format string) (int, error) {
	f, err := formatter(format)
	if err != nil {
		return exitCode(err), err
	}
	policy, err := runner.ParseErrorPolicy(config.OnError)
	if err != nil {
		return 2, &ConfigError{Field: "on_error", Message: err.Error()}
	}

	scripts, err := loadScripts(ctx, config)
	if err != nil {
		return 1, err
	}
	if len(scripts) == 0 {
		fmt.Println("No scripts found (*.sql)")
		return 0, nil
	}

	db, journal, err := connect(ctx, config)
	if err != nil {
		return exitCode(err), err
	}
	defer db.Close()

	executor := runner.NewExecutor(db, runner.Options{
		Journal: journal,
		Policy:  policy,
		Timeout: config.Timeout,
		DryRun:  config.DryRun,
	})
	logger.Debug("run %s: install %d script(s), baseline %q", executor.RunID(), len(scripts), config.BaselineVersion)

	runs, err := executor.Install(ctx, scripts, config.BaselineVersion)
	if err != nil {
		return 1, fmt.Errorf("install failed: %w", err)
	}

	if err := f.FormatRuns(runs, os.Stdout); err != nil {
		return 1, fmt.Errorf("failed to format results: %w", err)
	}
	return runner.Summarize(runs).ExitCode(), nil
}
