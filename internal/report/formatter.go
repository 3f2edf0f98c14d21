package report

import (
	"fmt"
	"io"

	"github.com/cybertec-postgresql/schemaloader/internal/parser"
	"github.com/cybertec-postgresql/schemaloader/internal/runner"
)

// Formatter is an interface for report formatters
type Formatter interface {
	// FormatScripts writes split scripts to the writer
	FormatScripts(scripts []*parser.ParsedScript, writer io.Writer) error

	// FormatRuns writes the outcome of executed scripts to the writer
	FormatRuns(runs []*runner.ScriptRun, writer io.Writer) error

	// Name returns the name of this formatter
	Name() string
}

// FormatType represents supported report formats
type FormatType string

const (
	FormatText FormatType = "text"
	FormatJSON FormatType = "json"
	FormatSQL  FormatType = "sql"
)

// GetFormatter returns a formatter for the specified format type
func GetFormatter(format FormatType) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextReporter(), nil
	case FormatJSON:
		return NewJSONReporter(), nil
	case FormatSQL:
		return NewSQLReporter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: text, json, sql)", format)
	}
}

// ValidFormat checks if a format string is valid
func ValidFormat(format string) bool {
	switch FormatType(format) {
	case FormatText, FormatJSON, FormatSQL:
		return true
	default:
		return false
	}
}

// SupportedFormats returns a list of supported format names
func SupportedFormats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatSQL)}
}
