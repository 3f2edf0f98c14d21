package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ScriptError represents a script that cannot be loaded at all
type ScriptError struct {
	File    string
	Message string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// NewScriptError creates a new ScriptError
func NewScriptError(file, message string) *ScriptError {
	return &ScriptError{
		File:    file,
		Message: message,
	}
}

// ConnectionError represents database connection failure
type ConnectionError struct {
	Message    string
	Suggestion string
}

func (e *ConnectionError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// NewConnectionError creates a new ConnectionError
func NewConnectionError(message, suggestion string) *ConnectionError {
	return &ConnectionError{
		Message:    message,
		Suggestion: suggestion,
	}
}

// StatementError represents the failure of a single statement of a script
type StatementError struct {
	File  string
	Index int // 0-indexed statement position
	Line  int // 1-indexed line the statement starts on
	SQL   string
	Err   error
}

func (e *StatementError) Error() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return fmt.Sprintf("%s:%d: statement %d failed: [%s] %s (%s)",
			e.File, e.Line, e.Index+1, pgErr.Code, pgErr.Message, abbreviate(e.SQL))
	}
	return fmt.Sprintf("%s:%d: statement %d failed: %v (%s)", e.File, e.Line, e.Index+1, e.Err, abbreviate(e.SQL))
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// NewStatementError creates a new StatementError
func NewStatementError(file string, index, line int, sql string, err error) *StatementError {
	return &StatementError{
		File:  file,
		Index: index,
		Line:  line,
		SQL:   sql,
		Err:   err,
	}
}

// SQLState returns the SQLSTATE code of a PostgreSQL error in err's chain,
// or an empty string.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// JournalError represents a failure reading or writing the migration journal
type JournalError struct {
	Table string
	Op    string
	Err   error
}

func (e *JournalError) Error() string {
	return fmt.Sprintf("journal %s: %s: %v", e.Table, e.Op, e.Err)
}

func (e *JournalError) Unwrap() error {
	return e.Err
}

// NewJournalError creates a new JournalError
func NewJournalError(table, op string, err error) *JournalError {
	return &JournalError{
		Table: table,
		Op:    op,
		Err:   err,
	}
}

// ModifiedScriptError reports a journaled script whose content changed
type ModifiedScriptError struct {
	File         string
	RecordedHash string
	CurrentHash  string
}

func (e *ModifiedScriptError) Error() string {
	return fmt.Sprintf("%s was modified after it was applied (checksum %s, recorded %s)",
		e.File, short(e.CurrentHash), short(e.RecordedHash))
}

const maxSQLInError = 60

// abbreviate collapses whitespace and trims sql for error messages
func abbreviate(sql string) string {
	s := strings.Join(strings.Fields(sql), " ")
	if r := []rune(s); len(r) > maxSQLInError {
		return string(r[:maxSQLInError]) + "..."
	}
	return s
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
