// Package database connects to the target database and records applied
// scripts in a journal table. PostgreSQL is served through pgx, SQLite
// through modernc.org/sqlite.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/cybertec-postgresql/schemaloader/pkg/types"
)

const applicationName = "schemaloader"

// Dialect names a supported database
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseDialect validates a dialect name; "postgresql", "pg" and "sqlite3"
// are accepted as aliases.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported dialect: %s (supported: postgres, sqlite)", name)
	}
}

// DetectDialect guesses the dialect of a connection string. URIs with a
// postgres scheme and key=value strings are PostgreSQL; "file:" DSNs,
// ":memory:" and paths ending in a SQLite extension are SQLite.
func DetectDialect(conn string) Dialect {
	lower := strings.ToLower(conn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres
	case strings.HasPrefix(lower, "file:"), lower == ":memory:":
		return DialectSQLite
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		return DialectSQLite
	default:
		return DialectPostgres
	}
}

// DB is a connected database that hands out sessions
type DB interface {
	Dialect() Dialect
	// Acquire reserves one connection. Statements of a script must run on
	// the same connection so that SET, BEGIN and COMMIT keep their meaning.
	Acquire(ctx context.Context) (Session, error)
	Close()
}

// Session is a single reserved connection
type Session interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Release()
}

// Rows is the common subset of pgx.Rows and *sql.Rows
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Open connects to the database named by the configuration
func Open(ctx context.Context, config *types.Config) (DB, error) {
	dialect, err := ParseDialect(config.Dialect)
	if err != nil {
		return nil, err
	}

	// Return untyped nils so that callers can compare the DB with nil.
	if dialect == DialectSQLite {
		db, err := OpenSQLite(ctx, config.ConnectionString)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	pool, err := NewPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return pool, nil
}
