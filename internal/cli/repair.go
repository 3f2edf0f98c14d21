package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cybertec-postgresql/schemaloader/internal/runner"
)

// Repair removes failed scripts from the journal and records the current
// checksum of applied scripts that changed since. It returns the process
// exit code.
func Repair(ctx context.Context, config *Config, format string) (int, error) {
	if _, err := formatter(format); err != nil {
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

	executor := runner.NewExecutor(db, runner.Options{
		Journal: journal,
		DryRun:  config.DryRun,
	})

	result, err := executor.Repair(ctx, scripts)
	if err != nil {
		return 1, fmt.Errorf("repair failed: %w", err)
	}

	if err := writeRepair(result, format, os.Stdout); err != nil {
		return 1, fmt.Errorf("failed to format results: %w", err)
	}
	return 0, nil
}

func writeRepair(result *runner.RepairResult, format string, w io.Writer) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Removed   []string `json:"removed"`
			Realigned []string `json:"realigned"`
		}{result.Removed, result.Realigned})
	}

	for _, script := range result.Removed {
		if _, err := fmt.Fprintf(w, "removed   %s\n", script); err != nil {
			return err
		}
	}
	for _, script := range result.Realigned {
		if _, err := fmt.Fprintf(w, "realigned %s\n", script); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d removed, %d realigned\n", len(result.Removed), len(result.Realigned))
	return err
}
