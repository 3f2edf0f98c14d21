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

// cleanupTimeout bounds dropping the scratch database once verification ended
const cleanupTimeout = 30 * time.Second

// Verify loads every configured script into a freshly created PostgreSQL
// database and drops it afterwards. The target database is only used to
// create the scratch one. It returns the process exit code.
func Verify(ctx context.Context, config *Config, format string) (int, error) {
	if config.Dialect != string(database.DialectPostgres) {
		return 2, &ConfigError{Field: "dialect", Message: "verify needs a PostgreSQL server"}
	}

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

	admin, err := database.NewPool(ctx, config)
	if err != nil {
		return 1, fmt.Errorf("database connection failed: %w", err)
	}
	defer admin.Close()

	temp, err := database.CreateTempDatabase(ctx, admin)
	if err != nil {
		return 1, err
	}
	logger.Debug("created scratch database %s", temp.Pool.Config().ConnConfig.Database)
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if err := database.DestroyTempDatabase(cleanupCtx, admin, temp); err != nil {
			logger.Warn("failed to drop scratch database: %v", err)
		}
	}()

	journal, err := database.NewJournal(config.JournalTable, database.DialectPostgres)
	if err != nil {
		return 2, err
	}

	executor := runner.NewExecutor(temp, runner.Options{
		Journal: journal,
		Policy:  policy,
		Timeout: config.Timeout,
	})

	runs, err := executor.ExecuteBatch(ctx, scripts)
	if err != nil {
		return 1, fmt.Errorf("script execution failed: %w", err)
	}

	if err := f.FormatRuns(runs, os.Stdout); err != nil {
		return 1, fmt.Errorf("failed to format results: %w", err)
	}

	return runner.Summarize(runs).ExitCode(), nil
}
