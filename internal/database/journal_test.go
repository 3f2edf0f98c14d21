package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlerrors "github.com/cybertec-postgresql/schemaloader/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestNewJournal(t *testing.T) {
	j, err := NewJournal("", DialectPostgres)
	require.NoError(t, err)
	assert.Equal(t, DefaultJournalTable, j.Table())

	j, err = NewJournal("admin.applied_scripts", DialectPostgres)
	require.NoError(t, err)
	assert.Equal(t, "admin.applied_scripts", j.Table())

	for _, bad := range []string{"log; DROP TABLE x", "1log", "a.b.c", `"quoted"`} {
		_, err := NewJournal(bad, DialectPostgres)
		assert.Error(t, err, bad)
	}
}

func TestJournal_Placeholders(t *testing.T) {
	pg := &Journal{dialect: DialectPostgres}
	lite := &Journal{dialect: DialectSQLite}

	assert.Equal(t, "$1, $2, $3", pg.placeholders(3))
	assert.Equal(t, "?, ?, ?", lite.placeholders(3))
}

func TestJournal_SQLite(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	j, err := NewJournal("", DialectSQLite)
	require.NoError(t, err)

	s, err := db.Acquire(ctx)
	require.NoError(t, err)
	defer s.Release()

	// Ensure is idempotent
	require.NoError(t, j.Ensure(ctx, s))
	require.NoError(t, j.Ensure(ctx, s))

	applied, err := j.Applied(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, applied)

	installed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	entry := JournalEntry{
		Script:      "V1__init.sql",
		Version:     "1",
		Checksum:    "abc",
		Statements:  3,
		Success:     false,
		RunID:       "run-1",
		InstalledBy: "tester",
		InstalledAt: installed,
		Duration:    1500 * time.Millisecond,
	}
	require.NoError(t, j.Record(ctx, s, entry))

	entry.Success = true
	entry.Checksum = "def"
	entry.RunID = "run-2"
	require.NoError(t, j.Record(ctx, s, entry))

	applied, err = j.Applied(ctx, s)
	require.NoError(t, err)
	require.Len(t, applied, 1)

	got := applied["V1__init.sql"]
	assert.Equal(t, "1", got.Version)
	assert.Equal(t, EntryScript, got.Type)
	assert.Equal(t, "def", got.Checksum)
	assert.Equal(t, 3, got.Statements)
	assert.True(t, got.Success)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, "tester", got.InstalledBy)
	assert.True(t, installed.Equal(got.InstalledAt))
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
}

func TestJournal_MissingTable(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	j, err := NewJournal("never_created", DialectSQLite)
	require.NoError(t, err)

	s, err := db.Acquire(ctx)
	require.NoError(t, err)
	defer s.Release()

	_, err = j.Applied(ctx, s)
	var journalErr *sqlerrors.JournalError
	require.ErrorAs(t, err, &journalErr)
	assert.Equal(t, "never_created", journalErr.Table)
	assert.Equal(t, "query", journalErr.Op)
}

func TestJournal_DeleteAndDrop(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	j, err := NewJournal("", DialectSQLite)
	require.NoError(t, err)

	s, err := db.Acquire(ctx)
	require.NoError(t, err)
	defer s.Release()

	require.NoError(t, j.Ensure(ctx, s))
	for _, e := range []JournalEntry{
		{Script: "V1.2__base.sql", Version: "1.2", Type: EntryBaseline, Checksum: "a", Success: true},
		{Script: "V2__next.sql", Version: "2", Checksum: "b"},
		{Script: "data.sql", Checksum: "c", Success: true},
	} {
		require.NoError(t, j.Record(ctx, s, e))
	}

	applied, err := j.Applied(ctx, s)
	require.NoError(t, err)
	require.Len(t, applied, 3)
	assert.Equal(t, EntryBaseline, applied["V1.2__base.sql"].Type)
	assert.Equal(t, "1.2", applied["V1.2__base.sql"].Version)
	assert.Equal(t, "", applied["data.sql"].Version)

	require.NoError(t, j.Delete(ctx, s, "V2__next.sql", "not-recorded.sql"))
	applied, err = j.Applied(ctx, s)
	require.NoError(t, err)
	assert.Len(t, applied, 2)
	assert.NotContains(t, applied, "V2__next.sql")

	require.NoError(t, j.Drop(ctx, s))
	require.NoError(t, j.Drop(ctx, s))
	_, err = j.Applied(ctx, s)
	assert.Error(t, err)
}
