package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cybertec-postgresql/schemaloader/internal/parser"
	"github.com/cybertec-postgresql/schemaloader/internal/runner"
)

// JSONReporter formats scripts and runs as JSON
type JSONReporter struct{}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{}
}

type scriptDoc struct {
	File         string         `json:"file"`
	Type         string         `json:"type"`
	Version      string         `json:"version,omitempty"`
	Checksum     string         `json:"checksum"`
	Unterminated bool           `json:"unterminated,omitempty"`
	Statements   []statementDoc `json:"statements"`
}

type statementDoc struct {
	Index int                  `json:"index"`
	Line  int                  `json:"line"`
	Kind  parser.StatementKind `json:"kind"`
	SQL   string               `json:"sql"`
}

type runDoc struct {
	File       string               `json:"file"`
	Status     runner.ScriptStatus  `json:"status"`
	DurationMS int64                `json:"duration_ms"`
	Error      string               `json:"error,omitempty"`
	Statements []statementResultDoc `json:"statements,omitempty"`
}

type statementResultDoc struct {
	Index      int                     `json:"index"`
	Line       int                     `json:"line"`
	Outcome    runner.StatementOutcome `json:"outcome"`
	DurationMS int64                   `json:"duration_ms"`
	Error      string                  `json:"error,omitempty"`
}

// FormatScripts writes one JSON document listing every script and its statements
func (r *JSONReporter) FormatScripts(scripts []*parser.ParsedScript, writer io.Writer) error {
	docs := make([]scriptDoc, 0, len(scripts))
	for _, s := range scripts {
		doc := scriptDoc{
			File:         s.File.RelativePath,
			Type:         s.File.Type.String(),
			Version:      s.File.Version.String(),
			Checksum:     s.Checksum,
			Unterminated: s.Unterminated(),
			Statements:   make([]statementDoc, 0, len(s.Statements)),
		}
		for _, stmt := range s.Statements {
			doc.Statements = append(doc.Statements, statementDoc{
				Index: stmt.Index,
				Line:  stmt.StartLine,
				Kind:  stmt.Kind,
				SQL:   stmt.SQL,
			})
		}
		docs = append(docs, doc)
	}
	return writeJSON(docs, writer)
}

// FormatRuns writes one JSON document listing every run
func (r *JSONReporter) FormatRuns(runs []*runner.ScriptRun, writer io.Writer) error {
	docs := make([]runDoc, 0, len(runs))
	for _, run := range runs {
		doc := runDoc{
			File:       run.File().RelativePath,
			Status:     run.Status,
			DurationMS: run.Duration().Milliseconds(),
			Error:      errString(run.Error),
		}
		for _, res := range run.Statements {
			doc.Statements = append(doc.Statements, statementResultDoc{
				Index:      res.Statement.Index,
				Line:       res.Statement.StartLine,
				Outcome:    res.Outcome,
				DurationMS: res.Duration.Milliseconds(),
				Error:      errString(res.Error),
			})
		}
		docs = append(docs, doc)
	}
	return writeJSON(docs, writer)
}

// Name returns the name of this reporter
func (r *JSONReporter) Name() string {
	return "json"
}

func writeJSON(v any, writer io.Writer) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	_, err = writer.Write([]byte("\n"))
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
