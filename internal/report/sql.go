package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/cybertec-postgresql/schemaloader/internal/parser"
	"github.com/cybertec-postgresql/schemaloader/internal/runner"
)

// SQLReporter writes scripts back as SQL with comments stripped. Each
// statement is preceded by a comment naming its source location, so the
// output can be fed to psql or sqlite3 as is.
type SQLReporter struct{}

// NewSQLReporter creates a new SQL reporter
func NewSQLReporter() *SQLReporter {
	return &SQLReporter{}
}

// FormatScripts writes the executable statements of every script
func (r *SQLReporter) FormatScripts(scripts []*parser.ParsedScript, writer io.Writer) error {
	for i, s := range scripts {
		if i > 0 {
			if _, err := fmt.Fprintln(writer); err != nil {
				return err
			}
		}
		for _, stmt := range s.Executable() {
			text := strings.TrimSpace(stmt.SQL)
			if !strings.HasSuffix(text, ";") {
				text += ";"
			}
			if _, err := fmt.Fprintf(writer, "-- %s:%d\n%s\n", s.File.RelativePath, stmt.StartLine, text); err != nil {
				return err
			}
		}
	}
	return nil
}

// FormatRuns is not supported; run results have no SQL representation
func (r *SQLReporter) FormatRuns(runs []*runner.ScriptRun, writer io.Writer) error {
	return fmt.Errorf("format %s does not support run results (use text or json)", r.Name())
}

// Name returns the name of this reporter
func (r *SQLReporter) Name() string {
	return "sql"
}
