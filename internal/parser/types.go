package parser

import (
	"strings"

	"github.com/cybertec-postgresql/schemaloader/internal/discovery"
)

// ParsedScript represents a SQL script split into its statements
type ParsedScript struct {
	File       *discovery.DiscoveredFile
	Statements []*Statement
	Checksum   string    // hex encoded SHA-256 of the file content
	FinalState ScanState // Scanner state at end of input
}

// Unterminated reports whether the script ended inside a literal or block comment
func (p *ParsedScript) Unterminated() bool {
	r := SplitResult{Final: p.FinalState}
	return r.Unterminated()
}

// Executable returns the statements worth sending to a database, i.e. all
// statements except the blank ones.
func (p *ParsedScript) Executable() []*Statement {
	var stmts []*Statement
	for _, s := range p.Statements {
		if !s.Blank() {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// Statement represents a single SQL statement with location information
type Statement struct {
	Index     int           // 0-indexed position in the script
	SQL       string        // Statement text, comments removed, delimiter kept
	StartLine int           // 1-indexed line number in the script
	Kind      StatementKind // Statement classification
}

// Blank reports whether the statement holds nothing but whitespace and an
// optional delimiter.
func (s *Statement) Blank() bool {
	trimmed := strings.TrimSpace(s.SQL)
	return trimmed == "" || trimmed == string(delimiter)
}

// StatementKind classifies SQL statements by their leading keyword
type StatementKind int

const (
	KindOther StatementKind = iota
	KindEmpty
	KindDDL
	KindDML
	KindQuery
	KindTransaction
)

// String returns a string representation of StatementKind
func (k StatementKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindDDL:
		return "ddl"
	case KindDML:
		return "dml"
	case KindQuery:
		return "query"
	case KindTransaction:
		return "transaction"
	default:
		return "other"
	}
}

// MarshalText lets reports render the kind by name
func (k StatementKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
