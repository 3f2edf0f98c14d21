package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cybertec-postgresql/schemaloader/internal/database"
	"github.com/cybertec-postgresql/schemaloader/internal/logger"
	"github.com/cybertec-postgresql/schemaloader/internal/runner"
)

// Apply runs the configured scripts against the database and records them
// in the journal. It returns the process exit code.
func Apply(ctx context.Context, config *Config, format string) (int, error) {
	startTime := time.Now()

	f, err := formatter(format)
	if err != nil {
		return exitCode(err), err
	}
	policy, err := runner.ParseErrorPolicy(config.OnError)
	if err != nil {
		return 1, err
	}

	scripts, err := loadScripts(ctx, config)
	if err != nil {
		return 1, err
	}
	if len(scripts) == 0 {
		fmt.Println("No scripts found (*.sql)")
		return 0, nil
	}

	var db database.DB
	if !config.DryRun || config.ConnectionString != "" {
		if err := requireConnection(config); err != nil {
			return 2, err
		}
		db, err = database.Open(ctx, config)
		if err != nil {
			return 1, fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()
		logger.Debug("connected to %s database", db.Dialect())
	}

	opts := runner.Options{
		Policy:        policy,
		Timeout:       config.Timeout,
		DryRun:        config.DryRun,
		AllowModified: config.AllowModified,
	}
	if db != nil {
		opts.Journal, err = database.NewJournal(config.JournalTable, db.Dialect())
		if err != nil {
			return 2, err
		}
	}

	executor := runner.NewExecutor(db, opts)
	logger.Debug("run %s: %d script(s), on error %s", executor.RunID(), len(scripts), policy)

	runs, err := executor.ExecuteBatch(ctx, scripts)
	if err != nil {
		return 1, fmt.Errorf("script execution failed: %w", err)
	}

	if err := f.FormatRuns(runs, os.Stdout); err != nil {
		return 1, fmt.Errorf("failed to format results: %w", err)
	}

	summary := runner.Summarize(runs)
	if len(runs) < len(scripts) {
		logger.Warn("stopped after %d of %d scripts", len(runs), len(scripts))
	}
	logger.Debug("finished in %v", time.Since(startTime).Round(time.Millisecond))

	return summary.ExitCode(), nil
}
