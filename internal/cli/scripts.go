package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/cybertec-postgresql/schemaloader/internal/database"
	"github.com/cybertec-postgresql/schemaloader/internal/discovery"
	"github.com/cybertec-postgresql/schemaloader/internal/logger"
	"github.com/cybertec-postgresql/schemaloader/internal/parser"
	"github.com/cybertec-postgresql/schemaloader/internal/report"
	"github.com/cybertec-postgresql/schemaloader/internal/runner"
)

// loadScripts discovers, orders and splits the scripts named by the configuration
func loadScripts(ctx context.Context, config *Config) ([]*parser.ParsedScript, error) {
	logger.Debug("discovering scripts in %v", config.Locations)

	files, err := discovery.ResolveFrom(config.BaseDir, config.Locations...)
	if err != nil {
		return nil, fmt.Errorf("failed to discover scripts: %w", err)
	}

	if !config.WithDrops {
		files = discovery.Filter(files, discovery.FileTypeMigration, discovery.FileTypeScript)
	}

	if len(files) == 0 {
		return nil, nil
	}
	logger.Debug("found %d script(s)", len(files))

	scripts, err := runner.ParseParallel(ctx, files, runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	for _, s := range scripts {
		if s.Unterminated() {
			logger.Warn("%s ends inside %s", s.File.RelativePath, s.FinalState)
		}
	}
	return scripts, nil
}

// openOutput returns stdout for "" or "-", otherwise a new file
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func formatter(format string) (report.Formatter, error) {
	if !report.ValidFormat(format) {
		return nil, &ConfigError{
			Field:   "format",
			Message: fmt.Sprintf("unsupported format %s (supported: %v)", format, report.SupportedFormats()),
		}
	}
	return report.GetFormatter(report.FormatType(format))
}

// connect opens the configured database together with its journal
func connect(ctx context.Context, config *Config) (database.DB, *database.Journal, error) {
	if err := requireConnection(config); err != nil {
		return nil, nil, err
	}

	db, err := database.Open(ctx, config)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	journal, err := database.NewJournal(config.JournalTable, db.Dialect())
	if err != nil {
		db.Close()
		return nil, nil, &ConfigError{Field: "journal_table", Message: err.Error()}
	}
	logger.Debug("connected to %s database, journal %s", db.Dialect(), journal.Table())
	return db, journal, nil
}

// exitCode is 2 for invalid configuration and 1 for every other error
func exitCode(err error) int {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return 2
	}
	return 1
}
