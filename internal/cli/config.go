package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cybertec-postgresql/schemaloader/internal/database"
	"github.com/cybertec-postgresql/schemaloader/internal/runner"
	"github.com/cybertec-postgresql/schemaloader/pkg/types"
	"gopkg.in/yaml.v3"
)

// Config is an alias for the shared Config type
type Config = types.Config

// ConfigError is an alias for the shared ConfigError type
type ConfigError = types.ConfigError

// DefaultConfigFile is read from the working directory when no config file is given
const DefaultConfigFile = "schemaloader.yaml"

// Environment variables that override the config file
const (
	EnvConnection   = "SCHEMALOADER_CONNECTION"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvDialect      = "SCHEMALOADER_DIALECT"
	EnvLocations    = "SCHEMALOADER_LOCATIONS"
	EnvBaseDir      = "SCHEMALOADER_BASE_DIR"
	EnvJournalTable = "SCHEMALOADER_JOURNAL_TABLE"
)

// DefaultConfig returns the default configuration values
func DefaultConfig() *Config {
	return &Config{
		Locations:    []string{"."},
		Encoding:     "UTF-8",
		JournalTable: database.DefaultJournalTable,
		OnError:      runner.StopOnError.String(),
		Timeout:      5 * time.Minute,
	}
}

// fileConfig mirrors the YAML config file. Pointers tell unset from false.
type fileConfig struct {
	Connection      string   `yaml:"connection"`
	Dialect         string   `yaml:"dialect"`
	Locations       []string `yaml:"locations"`
	BaseDir         string   `yaml:"base_dir"`
	Encoding        string   `yaml:"encoding"`
	WithDrops       *bool    `yaml:"with_drops"`
	JournalTable    string   `yaml:"journal_table"`
	AllowModified   *bool    `yaml:"allow_modified"`
	BaselineVersion string   `yaml:"baseline_version"`
	OnError         string   `yaml:"on_error"`
	Timeout         string   `yaml:"timeout"`
	Verbose         *bool    `yaml:"verbose"`
}

// LoadConfig builds the configuration from defaults, the config file and
// the environment, in that order of precedence. An empty path reads
// DefaultConfigFile if it exists; an explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := applyFile(c, path, data); err != nil {
			return nil, err
		}
	case explicit || !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(c)
	return c, nil
}

func applyFile(c *Config, path string, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Connection != "" {
		c.ConnectionString = fc.Connection
	}
	if fc.Dialect != "" {
		c.Dialect = fc.Dialect
	}
	if len(fc.Locations) > 0 {
		c.Locations = fc.Locations
	}
	if fc.BaseDir != "" {
		c.BaseDir = fc.BaseDir
	}
	if fc.Encoding != "" {
		c.Encoding = fc.Encoding
	}
	if fc.WithDrops != nil {
		c.WithDrops = *fc.WithDrops
	}
	if fc.JournalTable != "" {
		c.JournalTable = fc.JournalTable
	}
	if fc.AllowModified != nil {
		c.AllowModified = *fc.AllowModified
	}
	if fc.BaselineVersion != "" {
		c.BaselineVersion = fc.BaselineVersion
	}
	if fc.OnError != "" {
		c.OnError = fc.OnError
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return &ConfigError{Field: "timeout", Message: fmt.Sprintf("%q is not a duration", fc.Timeout)}
		}
		c.Timeout = d
	}
	if fc.Verbose != nil {
		c.Verbose = *fc.Verbose
	}
	return nil
}

func applyEnv(c *Config) {
	if v := os.Getenv(EnvConnection); v != "" {
		c.ConnectionString = v
	} else if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.ConnectionString = v
	}
	if v := os.Getenv(EnvDialect); v != "" {
		c.Dialect = v
	}
	if v := os.Getenv(EnvLocations); v != "" {
		c.Locations = splitList(v)
	}
	if v := os.Getenv(EnvBaseDir); v != "" {
		c.BaseDir = v
	}
	if v := os.Getenv(EnvJournalTable); v != "" {
		c.JournalTable = v
	}
}

// Flags holds command-line flag values. Zero values and nil pointers mean
// "not given"; a non-nil bool overrides the config file either way.
type Flags struct {
	Connection      string
	Dialect         string
	Locations       []string
	BaseDir         string
	JournalTable    string
	BaselineVersion string
	OnError         string
	Timeout         time.Duration
	WithDrops       *bool
	AllowModified   *bool
	DryRun          *bool
	Verbose         *bool
}

// ApplyFlagsToConfig applies command-line flag values to configuration
func ApplyFlagsToConfig(c *Config, f Flags) {
	if f.Connection != "" {
		c.ConnectionString = f.Connection
	}
	if f.Dialect != "" {
		c.Dialect = f.Dialect
	}
	if len(f.Locations) > 0 {
		c.Locations = f.Locations
	}
	if f.BaseDir != "" {
		c.BaseDir = f.BaseDir
	}
	if f.JournalTable != "" {
		c.JournalTable = f.JournalTable
	}
	if f.BaselineVersion != "" {
		c.BaselineVersion = f.BaselineVersion
	}
	if f.OnError != "" {
		c.OnError = f.OnError
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if f.WithDrops != nil {
		c.WithDrops = *f.WithDrops
	}
	if f.AllowModified != nil {
		c.AllowModified = *f.AllowModified
	}
	if f.DryRun != nil {
		c.DryRun = *f.DryRun
	}
	if f.Verbose != nil {
		c.Verbose = *f.Verbose
	}
}

// Validate checks the configuration and fills in the dialect when it can be
// derived from the connection string
func Validate(c *Config) error {
	if len(c.Locations) == 0 {
		return &ConfigError{Field: "locations", Message: "at least one script location is required"}
	}

	switch strings.ToUpper(strings.ReplaceAll(c.Encoding, "-", "")) {
	case "", "UTF8":
		c.Encoding = "UTF-8"
	default:
		return &ConfigError{Field: "encoding", Message: fmt.Sprintf("unsupported encoding %q, scripts must be UTF-8", c.Encoding)}
	}

	if _, err := runner.ParseErrorPolicy(c.OnError); err != nil {
		return &ConfigError{Field: "on_error", Message: err.Error()}
	}

	if c.Timeout < 0 {
		return &ConfigError{Field: "timeout", Message: "must not be negative"}
	}

	if c.BaselineVersion != "" {
		if _, err := runner.ResolveBaseline(c.BaselineVersion, nil); err != nil {
			return &ConfigError{Field: "baseline_version", Message: err.Error()}
		}
	}

	if c.Dialect == "" {
		c.Dialect = string(database.DetectDialect(c.ConnectionString))
	}
	dialect, err := database.ParseDialect(c.Dialect)
	if err != nil {
		return &ConfigError{Field: "dialect", Message: err.Error()}
	}
	c.Dialect = string(dialect)

	if _, err := database.NewJournal(c.JournalTable, dialect); err != nil {
		return &ConfigError{Field: "journal_table", Message: err.Error()}
	}

	return nil
}

// requireConnection fails when a SQLite database is not named. PostgreSQL
// may connect with an empty string, pgx then reads the PG* variables.
func requireConnection(c *Config) error {
	if c.ConnectionString == "" && c.Dialect == string(database.DialectSQLite) {
		return &ConfigError{
			Field:   "connection",
			Message: fmt.Sprintf("no database file given (use --connection, %s or %s)", EnvConnection, EnvDatabaseURL),
		}
	}
	return nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
