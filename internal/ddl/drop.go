// Package ddl derives DROP statements from the CREATE statements of scripts,
// so an install can remove the objects of a previous install first.
package ddl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cybertec-postgresql/schemaloader/internal/database"
	"github.com/cybertec-postgresql/schemaloader/internal/parser"
)

// Kind is the type of a database object
type Kind string

const (
	KindTable    Kind = "TABLE"
	KindView     Kind = "VIEW"
	KindSequence Kind = "SEQUENCE"
	KindFunction Kind = "FUNCTION"
	KindTrigger  Kind = "TRIGGER"
)

// Object is a database object created by a script
type Object struct {
	Kind  Kind
	Name  string // As written, possibly schema qualified or quoted
	Table string // Table a trigger belongs to
}

const objectName = `((?:"[^"]+"|[\w$]+)(?:\.(?:"[^"]+"|[\w$]+))?)`

var createPatterns = []struct {
	kind Kind
	re   *regexp.Regexp
}{
	{KindTable, regexp.MustCompile(`(?is)^create\s+(?:(?:global|local)\s+)?(?:(?:temp|temporary|unlogged)\s+)?table\s+(?:if\s+not\s+exists\s+)?` + objectName)},
	{KindView, regexp.MustCompile(`(?is)^create\s+(?:or\s+replace\s+)?(?:(?:temp|temporary)\s+)?(?:recursive\s+)?view\s+(?:if\s+not\s+exists\s+)?` + objectName)},
	{KindSequence, regexp.MustCompile(`(?is)^create\s+(?:(?:temp|temporary|unlogged)\s+)?sequence\s+(?:if\s+not\s+exists\s+)?` + objectName)},
	{KindFunction, regexp.MustCompile(`(?is)^create\s+(?:or\s+replace\s+)?function\s+` + objectName + `\s*\(`)},
	{KindTrigger, regexp.MustCompile(`(?is)^create\s+(?:or\s+replace\s+)?(?:constraint\s+)?(?:(?:temp|temporary)\s+)?trigger\s+(?:if\s+not\s+exists\s+)?` + objectName + `\s.*?\bon\s+` + objectName)},
}

// CreatedObjects returns the objects created by the statements of scripts,
// in creation order. An object created twice is listed once.
func CreatedObjects(scripts ...*parser.ParsedScript) []Object {
	var objects []Object
	seen := make(map[Object]bool)
	for _, script := range scripts {
		for _, stmt := range script.Executable() {
			obj, ok := Created(stmt.SQL)
			if !ok || seen[obj] {
				continue
			}
			seen[obj] = true
			objects = append(objects, obj)
		}
	}
	return objects
}

// Created reports the object a single CREATE statement creates
func Created(sql string) (Object, bool) {
	sql = strings.TrimSpace(sql)
	for _, p := range createPatterns {
		m := p.re.FindStringSubmatch(sql)
		if m == nil {
			continue
		}
		obj := Object{Kind: p.kind, Name: m[1]}
		if p.kind == KindTrigger {
			obj.Table = m[2]
		}
		return obj, true
	}
	return Object{}, false
}

// DropStatements returns one DROP ... IF EXISTS per object in reverse order,
// so dependents go before what they depend on. SQLite has neither sequences
// nor functions, those objects are left out for it.
func DropStatements(objects []Object, dialect database.Dialect) []string {
	var stmts []string
	for i := len(objects) - 1; i >= 0; i-- {
		if stmt, ok := dropStatement(objects[i], dialect); ok {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func dropStatement(obj Object, dialect database.Dialect) (string, bool) {
	if dialect == database.DialectSQLite {
		switch obj.Kind {
		case KindTable, KindView, KindTrigger:
			return fmt.Sprintf("DROP %s IF EXISTS %s", obj.Kind, obj.Name), true
		default:
			return "", false
		}
	}

	switch obj.Kind {
	case KindSequence:
		return fmt.Sprintf("DROP SEQUENCE IF EXISTS %s", obj.Name), true
	case KindTrigger:
		return fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s CASCADE", obj.Name, obj.Table), true
	default:
		return fmt.Sprintf("DROP %s IF EXISTS %s CASCADE", obj.Kind, obj.Name), true
	}
}
