package ddl

import (
	"testing"

	"github.com/cybertec-postgresql/schemaloader/internal/database"
	"github.com/cybertec-postgresql/schemaloader/internal/parser"
	"github.com/stretchr/testify/assert"
)

func TestCreated(t *testing.T) {
	tests := []struct {
		sql  string
		want Object
		ok   bool
	}{
		{"CREATE TABLE users (id INT);", Object{Kind: KindTable, Name: "users"}, true},
		{"create table if not exists app.orders (id int)", Object{Kind: KindTable, Name: "app.orders"}, true},
		{"CREATE UNLOGGED TABLE cache(k text)", Object{Kind: KindTable, Name: "cache"}, true},
		{`CREATE TABLE "Mixed Case" (id int)`, Object{Kind: KindTable, Name: `"Mixed Case"`}, true},
		{"CREATE OR REPLACE VIEW active_users AS SELECT 1", Object{Kind: KindView, Name: "active_users"}, true},
		{"CREATE SEQUENCE order_seq START 1", Object{Kind: KindSequence, Name: "order_seq"}, true},
		{"CREATE OR REPLACE FUNCTION audit() RETURNS trigger AS $$ BEGIN RETURN NEW; END $$ LANGUAGE plpgsql", Object{Kind: KindFunction, Name: "audit"}, true},
		{"CREATE TRIGGER users_tr AFTER INSERT ON users FOR EACH ROW EXECUTE FUNCTION audit()", Object{Kind: KindTrigger, Name: "users_tr", Table: "users"}, true},
		{"CREATE TRIGGER IF NOT EXISTS t1\nAFTER UPDATE OF name ON app.users\nBEGIN SELECT 1; END", Object{Kind: KindTrigger, Name: "t1", Table: "app.users"}, true},
		{"  \n  CREATE TABLE padded (id int)", Object{Kind: KindTable, Name: "padded"}, true},
		{"CREATE INDEX users_idx ON users (id)", Object{}, false},
		{"INSERT INTO users VALUES (1)", Object{}, false},
		{"ALTER TABLE users ADD COLUMN name text", Object{}, false},
	}

	for _, tt := range tests {
		got, ok := Created(tt.sql)
		assert.Equal(t, tt.ok, ok, tt.sql)
		assert.Equal(t, tt.want, got, tt.sql)
	}
}

func TestCreatedObjects(t *testing.T) {
	script := &parser.ParsedScript{Statements: parser.ParseStatements(`
-- CREATE TABLE commented_out (id int);
CREATE TABLE users (id INT);
CREATE VIEW v AS SELECT * FROM users;
INSERT INTO users VALUES (1);
CREATE OR REPLACE VIEW v AS SELECT id FROM users;
`)}
	other := &parser.ParsedScript{Statements: parser.ParseStatements("CREATE SEQUENCE s;")}

	assert.Equal(t, []Object{
		{Kind: KindTable, Name: "users"},
		{Kind: KindView, Name: "v"},
		{Kind: KindSequence, Name: "s"},
	}, CreatedObjects(script, other))
}

func TestDropStatements(t *testing.T) {
	objects := []Object{
		{Kind: KindSequence, Name: "s"},
		{Kind: KindTable, Name: "users"},
		{Kind: KindFunction, Name: "audit"},
		{Kind: KindTrigger, Name: "users_tr", Table: "users"},
		{Kind: KindView, Name: "v"},
	}

	assert.Equal(t, []string{
		"DROP VIEW IF EXISTS v CASCADE",
		"DROP TRIGGER IF EXISTS users_tr ON users CASCADE",
		"DROP FUNCTION IF EXISTS audit CASCADE",
		"DROP TABLE IF EXISTS users CASCADE",
		"DROP SEQUENCE IF EXISTS s",
	}, DropStatements(objects, database.DialectPostgres))

	assert.Equal(t, []string{
		"DROP VIEW IF EXISTS v",
		"DROP TRIGGER IF EXISTS users_tr",
		"DROP TABLE IF EXISTS users",
	}, DropStatements(objects, database.DialectSQLite))

	assert.Empty(t, DropStatements(nil, database.DialectPostgres))
}
