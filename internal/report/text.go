package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/cybertec-postgresql/schemaloader/internal/parser"
	"github.com/cybertec-postgresql/schemaloader/internal/runner"
)

const (
	// previewWidth is the number of characters of a statement shown per line
	previewWidth = 72

	// timeResolution is the precision of durations in human readable output
	timeResolution = time.Millisecond
)

// statusColors highlights the status column; color.NoColor turns it off
// when stdout is not a terminal.
var statusColors = map[runner.ScriptStatus]*color.Color{
	runner.ScriptApplied:   color.New(color.FgGreen),
	runner.ScriptFailed:    color.New(color.FgRed, color.Bold),
	runner.ScriptTimeout:   color.New(color.FgRed),
	runner.ScriptModified:  color.New(color.FgYellow),
	runner.ScriptPending:   color.New(color.FgCyan),
	runner.ScriptBaselined: color.New(color.FgBlue),
}

// TextReporter formats scripts and runs for a terminal
type TextReporter struct{}

// NewTextReporter creates a new text reporter
func NewTextReporter() *TextReporter {
	return &TextReporter{}
}

// FormatScripts lists every script with one line per statement
func (r *TextReporter) FormatScripts(scripts []*parser.ParsedScript, writer io.Writer) error {
	total := 0
	for _, s := range scripts {
		header := fmt.Sprintf("%s (%s, %d statements)", s.File.RelativePath, s.File.Type, len(s.Statements))
		if s.Unterminated() {
			header += fmt.Sprintf(" [unterminated: %s]", s.FinalState)
		}
		if _, err := fmt.Fprintln(writer, header); err != nil {
			return err
		}

		for _, stmt := range s.Statements {
			if _, err := fmt.Fprintf(writer, "  %4d  %-11s %s\n", stmt.StartLine, stmt.Kind, preview(stmt.SQL)); err != nil {
				return err
			}
		}
		total += len(s.Statements)
	}

	_, err := fmt.Fprintf(writer, "\n%d scripts, %d statements\n", len(scripts), total)
	return err
}

// FormatRuns prints one line per script followed by a summary
func (r *TextReporter) FormatRuns(runs []*runner.ScriptRun, writer io.Writer) error {
	for _, run := range runs {
		line := status(run.Status) + " " + run.File().RelativePath
		if n := len(run.Statements); n > 0 {
			line += fmt.Sprintf(" (%d statements", n)
			if failed := run.Failed(); failed > 0 {
				line += fmt.Sprintf(", %d failed", failed)
			}
			line += ")"
		}
		if d := run.Duration(); d > 0 {
			line += fmt.Sprintf(" %v", d.Round(timeResolution))
		}
		if _, err := fmt.Fprintln(writer, line); err != nil {
			return err
		}

		if run.Error != nil {
			for _, msg := range strings.Split(run.Error.Error(), "\n") {
				if msg = strings.TrimSpace(msg); msg == "" {
					continue
				}
				if _, err := fmt.Fprintf(writer, "          %s\n", msg); err != nil {
					return err
				}
			}
		}
	}

	summary := runner.Summarize(runs)
	_, err := fmt.Fprintf(writer, "\n%d scripts: %d applied, %d skipped, %d failed, %d timed out (%d/%d statements failed) in %v\n",
		summary.TotalScripts,
		summary.AppliedScripts,
		summary.SkippedScripts,
		summary.FailedScripts,
		summary.TimedOutScripts,
		summary.FailedStmts,
		summary.Statements,
		summary.TotalDuration.Round(timeResolution),
	)
	return err
}

// Name returns the name of this reporter
func (r *TextReporter) Name() string {
	return "text"
}

func status(s runner.ScriptStatus) string {
	padded := fmt.Sprintf("%-9s", s)
	if c, ok := statusColors[s]; ok {
		return c.Sprint(padded)
	}
	return padded
}

// preview collapses whitespace and cuts the statement to previewWidth runes
func preview(sql string) string {
	s := strings.Join(strings.Fields(sql), " ")
	runes := []rune(s)
	if len(runes) <= previewWidth {
		return s
	}
	return string(runes[:previewWidth-3]) + "..."
}
