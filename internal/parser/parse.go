package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/cybertec-postgresql/schemaloader/internal/discovery"
	"github.com/cybertec-postgresql/schemaloader/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads a SQL script and returns ParsedScript with statements
func Parse(file *discovery.DiscoveredFile) (*ParsedScript, error) {
	content, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	sum := sha256.Sum256(content)

	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return nil, errors.NewScriptError(file.RelativePath, "script is not valid UTF-8")
	}

	sql := string(content)
	result := Split(sql)

	return &ParsedScript{
		File:       file,
		Statements: classify(sql, result),
		Checksum:   hex.EncodeToString(sum[:]),
		FinalState: result.Final,
	}, nil
}

// ParseFile is a convenience function that parses a file path directly
func ParseFile(filePath string) (*ParsedScript, error) {
	file := &discovery.DiscoveredFile{
		Path:         filePath,
		RelativePath: filePath,
		Type:         discovery.ClassifyPath(filePath),
	}
	return Parse(file)
}

// ParseStatements splits SQL text directly and returns statements
func ParseStatements(sql string) []*Statement {
	return classify(sql, Split(sql))
}

func classify(sql string, result *SplitResult) []*Statement {
	statements := make([]*Statement, 0, len(result.Statements))

	// Offsets are increasing, so line numbers are counted incrementally.
	line, pos := 1, 0
	for i, text := range result.Statements {
		offset := result.Offsets[i]
		line += strings.Count(sql[pos:offset], "\n")
		pos = offset

		statements = append(statements, &Statement{
			Index:     i,
			SQL:       text,
			StartLine: line,
			Kind:      classifyStatement(text),
		})
	}

	return statements
}

var leadingKeywords = map[string]StatementKind{
	"CREATE":    KindDDL,
	"ALTER":     KindDDL,
	"DROP":      KindDDL,
	"TRUNCATE":  KindDDL,
	"COMMENT":   KindDDL,
	"GRANT":     KindDDL,
	"REVOKE":    KindDDL,
	"INSERT":    KindDML,
	"UPDATE":    KindDML,
	"DELETE":    KindDML,
	"MERGE":     KindDML,
	"COPY":      KindDML,
	"SELECT":    KindQuery,
	"WITH":      KindQuery,
	"VALUES":    KindQuery,
	"SHOW":      KindQuery,
	"EXPLAIN":   KindQuery,
	"BEGIN":     KindTransaction,
	"COMMIT":    KindTransaction,
	"ROLLBACK":  KindTransaction,
	"START":     KindTransaction,
	"SAVEPOINT": KindTransaction,
	"RELEASE":   KindTransaction,
	"END":       KindTransaction,
}

// classifyStatement determines the statement kind from its first keyword.
// Opening parentheses are skipped so that "(SELECT ...) UNION ..." is a query.
func classifyStatement(sql string) StatementKind {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" || trimmed == string(delimiter) {
		return KindEmpty
	}

	trimmed = strings.TrimLeft(trimmed, "( \t\r\n")
	end := strings.IndexFunc(trimmed, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_')
	})
	if end < 0 {
		end = len(trimmed)
	}

	if kind, ok := leadingKeywords[strings.ToUpper(trimmed[:end])]; ok {
		return kind
	}
	return KindOther
}
