package types

import (
	"fmt"
	"time"
)

// Config holds runtime configuration combining config file, environment variables, flags and defaults
type Config struct {
	// Database connection
	ConnectionString string // URI or key=value for postgres, file path or DSN for sqlite
	Dialect          string // postgres or sqlite

	// Scripts
	Locations []string // Directories, files or glob patterns, optionally prefixed with filesystem:
	BaseDir   string   // Journal keys are relative to this directory, the working directory when empty
	Encoding  string   // Script encoding, only UTF-8 is supported
	WithDrops bool     // Run *_drop.sql scripts before everything else

	// Journal
	JournalTable    string // Table recording applied scripts
	AllowModified   bool   // Re-apply journaled scripts whose checksum changed
	BaselineVersion string // latest, latest-major, latest-minor or a version; install baselines when set

	// Execution
	OnError string        // stop or continue
	Timeout time.Duration // Per-script timeout
	DryRun  bool          // Parse and report without executing

	// Output
	Verbose bool // Enable debug logging
}

// ConfigError reports an invalid configuration value
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Message)
}
