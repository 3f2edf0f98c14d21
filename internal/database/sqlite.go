package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cybertec-postgresql/schemaloader/internal/errors"
	_ "modernc.org/sqlite"
)

// SQLite is a SQLite database opened through database/sql
type SQLite struct {
	db   *sql.DB
	path string
}

var _ DB = (*SQLite)(nil)

// OpenSQLite opens (and creates if needed) the SQLite database at path. A
// "file:" DSN is passed to the driver unchanged.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, &errors.ConnectionError{
			Message:    "no SQLite database given",
			Suggestion: "Pass the database file path as connection string",
		}
	}

	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &errors.ConnectionError{
			Message: fmt.Sprintf("open sqlite: %v", err),
		}
	}

	// An in-memory database lives in its connection, so never open a second one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &errors.ConnectionError{
			Message:    fmt.Sprintf("failed to open SQLite database %s: %v", path, err),
			Suggestion: "Check that the path is writable",
		}
	}

	return &SQLite{db: db, path: path}, nil
}

// Dialect returns DialectSQLite
func (s *SQLite) Dialect() Dialect {
	return DialectSQLite
}

// Path returns the path or DSN the database was opened with
func (s *SQLite) Path() string {
	return s.path
}

// Acquire reserves the connection
func (s *SQLite) Acquire(ctx context.Context) (Session, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &sqlSession{conn: conn}, nil
}

// Close closes the underlying database
func (s *SQLite) Close() {
	_ = s.db.Close()
}

type sqlSession struct {
	conn *sql.Conn
}

func (s *sqlSession) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.conn.ExecContext(ctx, query, args...)
	return err
}

func (s *sqlSession) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

func (s *sqlSession) Release() {
	_ = s.conn.Close()
}

// sqlRows adapts *sql.Rows to Rows
type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() {
	_ = r.Rows.Close()
}
