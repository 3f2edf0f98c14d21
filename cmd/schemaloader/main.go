package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/cybertec-postgresql/schemaloader/internal/cli"
	"github.com/cybertec-postgresql/schemaloader/internal/logger"
	urfavecli "github.com/urfave/cli/v3"
)

const version = "1.0.0"

func main() {
	app := &urfavecli.Command{
		Name:    "schemaloader",
		Usage:   "Split SQL scripts into statements and load them into a database",
		Version: version,
		Commands: []*urfavecli.Command{
			{
				Name:      "split",
				Usage:     "Split scripts into statements without connecting to a database",
				ArgsUsage: "[location ...]",
				Action:    splitCommand,
				Flags: append(scriptFlags(),
					&urfavecli.StringFlag{
						Name:  "format",
						Usage: "Output format (text, json, or sql)",
						Value: "text",
					},
					&urfavecli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (use - for stdout)",
						Value:   "-",
					},
				),
			},
			{
				Name:      "apply",
				Usage:     "Run pending scripts and record them in the journal",
				ArgsUsage: "[location ...]",
				Action:    applyCommand,
				Flags: append(databaseFlags(),
					&urfavecli.StringFlag{
						Name:  "on-error",
						Usage: "What to do when a statement fails (stop or continue)",
					},
					&urfavecli.DurationFlag{
						Name:  "timeout",
						Usage: "Per-script timeout",
					},
					&urfavecli.BoolFlag{
						Name:  "allow-modified",
						Usage: "Re-run scripts whose content changed since they were applied",
					},
					&urfavecli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would run without executing anything",
					},
				),
			},
			{
				Name:      "status",
				Usage:     "Compare scripts with the journal",
				ArgsUsage: "[location ...]",
				Action:    statusCommand,
				Flags:     databaseFlags(),
			},
			{
				Name:      "verify",
				Usage:     "Load scripts into a scratch PostgreSQL database and drop it again",
				ArgsUsage: "[location ...]",
				Action:    verifyCommand,
				Flags: append(databaseFlags(),
					&urfavecli.StringFlag{
						Name:  "on-error",
						Usage: "What to do when a statement fails (stop or continue)",
					},
					&urfavecli.DurationFlag{
						Name:  "timeout",
						Usage: "Per-script timeout",
					},
				),
			},
			{
				Name:      "baseline",
				Usage:     "Mark migrations up to a version as applied without running them",
				ArgsUsage: "[location ...]",
				Action:    baselineCommand,
				Flags: append(databaseFlags(),
					baselineFlag("Version to baseline at: latest, latest-major, latest-minor or a version (default: latest)"),
					&urfavecli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would be baselined without writing the journal",
					},
				),
			},
			{
				Name:      "repair",
				Usage:     "Remove failed scripts from the journal and realign changed checksums",
				ArgsUsage: "[location ...]",
				Action:    repairCommand,
				Flags: append(databaseFlags(),
					&urfavecli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would be repaired without writing the journal",
					},
				),
			},
			{
				Name:      "install",
				Usage:     "Clear the journal, drop the created objects and run all plain scripts again",
				ArgsUsage: "[location ...]",
				Action:    installCommand,
				Flags: append(databaseFlags(),
					baselineFlag("Baseline migrations after installing: latest, latest-major, latest-minor or a version"),
					&urfavecli.StringFlag{
						Name:  "on-error",
						Usage: "What to do when a statement fails (stop or continue)",
					},
					&urfavecli.DurationFlag{
						Name:  "timeout",
						Usage: "Per-script timeout",
					},
					&urfavecli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would run without executing anything",
					},
				),
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// scriptFlags are shared by every command
func scriptFlags() []urfavecli.Flag {
	return []urfavecli.Flag{
		&urfavecli.StringFlag{
			Name:  "config",
			Usage: "Config file path (default: " + cli.DefaultConfigFile + " if present)",
		},
		&urfavecli.StringFlag{
			Name:  "base-dir",
			Usage: "Directory journal keys are relative to (default: working directory)",
		},
		&urfavecli.BoolFlag{
			Name:  "with-drops",
			Usage: "Include *_drop.sql scripts, ordered before all others",
		},
		&urfavecli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug output",
		},
	}
}

// databaseFlags are shared by the commands that connect to a database
func databaseFlags() []urfavecli.Flag {
	return append(scriptFlags(),
		&urfavecli.StringFlag{
			Name:    "connection",
			Aliases: []string{"c"},
			Usage:   "Connection string: PostgreSQL URI or key=value, or a SQLite file. Supports standard PG* environment variables.",
		},
		&urfavecli.StringFlag{
			Name:  "dialect",
			Usage: "Database dialect (postgres or sqlite, default: detected from the connection string)",
		},
		&urfavecli.StringFlag{
			Name:  "journal-table",
			Usage: "Table recording applied scripts",
		},
		&urfavecli.StringFlag{
			Name:  "format",
			Usage: "Output format (text or json)",
			Value: "text",
		},
	)
}

func baselineFlag(usage string) urfavecli.Flag {
	return &urfavecli.StringFlag{
		Name:  "baseline-version",
		Usage: usage,
	}
}

// loadConfig merges config file, environment and flags. Invalid
// configuration ends the process with exit code 2.
func loadConfig(cmd *urfavecli.Command) *cli.Config {
	config, err := cli.LoadConfig(cmd.String("config"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Flags missing from a command read as zero values
	cli.ApplyFlagsToConfig(config, cli.Flags{
		Connection:      cmd.String("connection"),
		Dialect:         cmd.String("dialect"),
		Locations:       cmd.Args().Slice(),
		BaseDir:         cmd.String("base-dir"),
		JournalTable:    cmd.String("journal-table"),
		BaselineVersion: cmd.String("baseline-version"),
		OnError:         cmd.String("on-error"),
		Timeout:         cmd.Duration("timeout"),
		WithDrops:       boolFlag(cmd, "with-drops"),
		AllowModified:   boolFlag(cmd, "allow-modified"),
		DryRun:          boolFlag(cmd, "dry-run"),
		Verbose:         boolFlag(cmd, "verbose"),
	})

	if err := cli.Validate(config); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger.SetVerbose(config.Verbose)
	return config
}

// boolFlag returns the flag value when it was given on the command line, so
// that --name=false can switch off a config file setting
func boolFlag(cmd *urfavecli.Command, name string) *bool {
	if !cmd.IsSet(name) {
		return nil
	}
	v := cmd.Bool(name)
	return &v
}

// exit ends the process with code unless it is 0. Configuration errors
// always end it with code 2.
func exit(code int, err error) error {
	if err != nil {
		var cfgErr *cli.ConfigError
		if code == 2 || errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

// splitCommand handles the 'schemaloader split' command
func splitCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config := loadConfig(cmd)
	return exit(0, cli.Split(ctx, config, cmd.String("format"), cmd.String("output")))
}

// applyCommand handles the 'schemaloader apply' command
func applyCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config := loadConfig(cmd)
	return exit(cli.Apply(ctx, config, cmd.String("format")))
}

// statusCommand handles the 'schemaloader status' command
func statusCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config := loadConfig(cmd)
	return exit(cli.Status(ctx, config, cmd.String("format")))
}

// verifyCommand handles the 'schemaloader verify' command
func verifyCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config := loadConfig(cmd)
	return exit(cli.Verify(ctx, config, cmd.String("format")))
}

// baselineCommand handles the 'schemaloader baseline' command
func baselineCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config := loadConfig(cmd)
	return exit(cli.Baseline(ctx, config, cmd.String("format")))
}

// repairCommand handles the 'schemaloader repair' command
func repairCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config := loadConfig(cmd)
	return exit(cli.Repair(ctx, config, cmd.String("format")))
}

// installCommand handles the 'schemaloader install' command
func installCommand(ctx context.Context, cmd *urfavecli.Command) error {
	config := loadConfig(cmd)
	return exit(cli.Install(ctx, config, cmd.String("format")))
}
