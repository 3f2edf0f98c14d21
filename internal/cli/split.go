package cli

import (
	"context"
	"fmt"
	"os"
)

// Split discovers the configured scripts and writes their statements in the
// given format without touching a database
func Split(ctx context.Context, config *Config, format, output string) error {
	f, err := formatter(format)
	if err != nil {
		return err
	}

	scripts, err := loadScripts(ctx, config)
	if err != nil {
		return err
	}

	writer, closeOutput, err := openOutput(output)
	if err != nil {
		return err
	}

	if err := f.FormatScripts(scripts, writer); err != nil {
		closeOutput()
		return fmt.Errorf("failed to format scripts: %w", err)
	}
	if err := closeOutput(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	// Print to stderr so it doesn't interfere with stdout output
	if output != "-" && output != "" {
		fmt.Fprintf(os.Stderr, "Statements written to %s\n", output)
	}
	return nil
}
