package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cybertec-postgresql/schemaloader/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		name    string
		want    Dialect
		wantErr bool
	}{
		{"postgres", DialectPostgres, false},
		{"PostgreSQL", DialectPostgres, false},
		{"pg", DialectPostgres, false},
		{"sqlite", DialectSQLite, false},
		{"sqlite3", DialectSQLite, false},
		{"mysql", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDialect(tt.name)
		if tt.wantErr {
			assert.Error(t, err, tt.name)
			continue
		}
		assert.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestDetectDialect(t *testing.T) {
	tests := []struct {
		conn string
		want Dialect
	}{
		{"postgres://user@localhost/db", DialectPostgres},
		{"postgresql://localhost:5433/db?sslmode=disable", DialectPostgres},
		{"host=localhost dbname=app", DialectPostgres},
		{"", DialectPostgres},
		{"file:test.db?cache=shared", DialectSQLite},
		{":memory:", DialectSQLite},
		{"/var/lib/app/data.db", DialectSQLite},
		{"app.SQLITE3", DialectSQLite},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectDialect(tt.conn), tt.conn)
	}
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.db")

	db, err := Open(context.Background(), &types.Config{
		ConnectionString: path,
		Dialect:          "sqlite",
	})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DialectSQLite, db.Dialect())
	assert.FileExists(t, path)
}

func TestOpen_UnknownDialect(t *testing.T) {
	db, err := Open(context.Background(), &types.Config{Dialect: "oracle"})
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestOpenSQLite_NoPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	assert.Error(t, err)
}

func TestSQLiteSession(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer db.Close()

	s, err := db.Acquire(ctx)
	require.NoError(t, err)
	defer s.Release()

	require.NoError(t, s.Exec(ctx, "CREATE TABLE t (id INTEGER, name TEXT);"))
	require.NoError(t, s.Exec(ctx, "INSERT INTO t VALUES (?, ?)", 1, "a;b"))

	rows, err := s.Query(ctx, "SELECT id, name FROM t")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	var (
		id   int
		name string
	)
	require.NoError(t, rows.Scan(&id, &name))
	assert.Equal(t, 1, id)
	assert.Equal(t, "a;b", name)
	assert.False(t, rows.Next())
	assert.NoError(t, rows.Err())

	assert.Error(t, s.Exec(ctx, "SELEC 1"))
}
