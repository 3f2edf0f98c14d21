package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cybertec-postgresql/schemaloader/internal/errors"
)

// DefaultJournalTable is used when no journal table is configured
const DefaultJournalTable = "schema_loader_log"

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Journal entry types
const (
	EntryScript   = "script"   // The script ran
	EntryBaseline = "baseline" // The script was marked as applied without running
)

// JournalEntry is one row of the journal table
type JournalEntry struct {
	Script      string // Relative path of the script
	Version     string // Dotted migration version, empty for other scripts
	Type        string // EntryScript or EntryBaseline, EntryScript when empty
	Checksum    string
	Statements  int
	Success     bool
	RunID       string
	InstalledBy string
	InstalledAt time.Time
	Duration    time.Duration
}

// Journal records which scripts were applied to a database. Its methods run
// on a caller provided session.
type Journal struct {
	table   string
	dialect Dialect
}

// NewJournal validates the table name and returns a journal for dialect
func NewJournal(table string, dialect Dialect) (*Journal, error) {
	if table == "" {
		table = DefaultJournalTable
	}
	if !identifierRegex.MatchString(table) {
		return nil, fmt.Errorf("invalid journal table name %q: use letters, digits and underscores, optionally schema qualified", table)
	}
	return &Journal{table: table, dialect: dialect}, nil
}

// Table returns the journal table name
func (j *Journal) Table() string {
	return j.table
}

// Ensure creates the journal table if it does not exist
func (j *Journal) Ensure(ctx context.Context, s Session) error {
	successType := "BOOLEAN"
	if j.dialect == DialectSQLite {
		successType = "INTEGER"
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		script       TEXT PRIMARY KEY,
		version      BIGINT NOT NULL DEFAULT 0,
		checksum     TEXT NOT NULL,
		statements   INTEGER NOT NULL,
		success      %s NOT NULL,
		run_id       TEXT NOT NULL,
		installed_by TEXT NOT NULL,
		installed_at TEXT NOT NULL,
		execution_ms BIGINT NOT NULL
	)`, j.table, successType)

	if err := s.Exec(ctx, ddl); err != nil {
		return errors.NewJournalError(j.table, "create", err)
	}
	return nil
}

// Applied returns the journal rows keyed by script path
func (j *Journal) Applied(ctx context.Context, s Session) (map[string]JournalEntry, error) {
	rows, err := s.Query(ctx, fmt.Sprintf(
		"SELECT script, version, type, checksum, statements, success, run_id, installed_by, installed_at, execution_ms FROM %s", j.table))
	if err != nil {
		return nil, errors.NewJournalError(j.table, "query", err)
	}
	defer rows.Close()

	applied := make(map[string]JournalEntry)
	for rows.Next() {
		var (
			e           JournalEntry
			installedAt string
			executionMS int64
		)
		if err := rows.Scan(&e.Script, &e.Version, &e.Type, &e.Checksum, &e.Statements, &e.Success,
			&e.RunID, &e.InstalledBy, &installedAt, &executionMS); err != nil {
			return nil, errors.NewJournalError(j.table, "scan", err)
		}
		e.Duration = time.Duration(executionMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, installedAt); err == nil {
			e.InstalledAt = t
		}
		applied[e.Script] = e
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewJournalError(j.table, "iterate", err)
	}

	return applied, nil
}

// Record inserts or replaces the journal row of a script
func (j *Journal) Record(ctx context.Context, s Session, e JournalEntry) error {
	query := fmt.Sprintf(`INSERT INTO %s
		(script, version, type, checksum, statements, success, run_id, installed_by, installed_at, execution_ms)
		VALUES (%s)
		ON CONFLICT (script) DO UPDATE SET
			version = excluded.version,
			type = excluded.type,
			checksum = excluded.checksum,
			statements = excluded.statements,
			success = excluded.success,
			run_id = excluded.run_id,
			installed_by = excluded.installed_by,
			installed_at = excluded.installed_at,
			execution_ms = excluded.execution_ms`, j.table, j.placeholders(10))

	entryType := e.Type
	if entryType == "" {
		entryType = EntryScript
	}

	err := s.Exec(ctx, query,
		e.Script,
		e.Version,
		entryType,
		e.Checksum,
		e.Statements,
		e.Success,
		e.RunID,
		e.InstalledBy,
		e.InstalledAt.UTC().Format(time.RFC3339Nano),
		e.Duration.Milliseconds(),
	)
	if err != nil {
		return errors.NewJournalError(j.table, "record "+e.Script, err)
	}
	return nil
}

// Delete removes the journal rows of the given scripts
func (j *Journal) Delete(ctx context.Context, s Session, scripts ...string) error {
	for _, script := range scripts {
		query := fmt.Sprintf("DELETE FROM %s WHERE script = %s", j.table, j.placeholders(1))
		if err := s.Exec(ctx, query, script); err != nil {
			return errors.NewJournalError(j.table, "delete "+script, err)
		}
	}
	return nil
}

// Drop removes the journal table with all its rows
func (j *Journal) Drop(ctx context.Context, s Session) error {
	if err := s.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", j.table)); err != nil {
		return errors.NewJournalError(j.table, "drop", err)
	}
	return nil
}

// placeholders returns n bind parameters in the dialect's syntax
func (j *Journal) placeholders(n int) string {
	params := make([]string, n)
	for i := range params {
		if j.dialect == DialectSQLite {
			params[i] = "?"
		} else {
			params[i] = fmt.Sprintf("$%d", i+1)
		}
	}
	return strings.Join(params, ", ")
}
