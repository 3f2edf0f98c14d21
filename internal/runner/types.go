package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/cybertec-postgresql/schemaloader/internal/discovery"
	"github.com/cybertec-postgresql/schemaloader/internal/parser"
)

// ErrorPolicy decides what happens after a statement fails
type ErrorPolicy int

const (
	// StopOnError aborts the script and the rest of the batch at the first failure
	StopOnError ErrorPolicy = iota
	// ContinueOnError records the failure and goes on with the next statement
	ContinueOnError
)

// ParseErrorPolicy converts a configuration value into an ErrorPolicy
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(s) {
	case "", "stop":
		return StopOnError, nil
	case "continue":
		return ContinueOnError, nil
	default:
		return StopOnError, fmt.Errorf("unknown error policy %q (supported: stop, continue)", s)
	}
}

// String returns a string representation of ErrorPolicy
func (p ErrorPolicy) String() string {
	if p == ContinueOnError {
		return "continue"
	}
	return "stop"
}

// ScriptStatus represents the state of a script within a run
type ScriptStatus int

const (
	ScriptPending ScriptStatus = iota
	ScriptRunning
	ScriptApplied
	ScriptFailed
	ScriptTimeout
	ScriptSkipped  // already applied with the same checksum
	ScriptModified // applied before, content changed since
	ScriptDryRun
	ScriptBaselined // covered by a baseline, never run
)

// String returns a string representation of ScriptStatus
func (s ScriptStatus) String() string {
	switch s {
	case ScriptPending:
		return "pending"
	case ScriptRunning:
		return "running"
	case ScriptApplied:
		return "applied"
	case ScriptFailed:
		return "failed"
	case ScriptTimeout:
		return "timeout"
	case ScriptSkipped:
		return "skipped"
	case ScriptModified:
		return "modified"
	case ScriptDryRun:
		return "dry-run"
	case ScriptBaselined:
		return "baselined"
	default:
		return "unknown"
	}
}

// MarshalText lets reports render the status by name
func (s ScriptStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StatementOutcome is the result of one statement
type StatementOutcome int

const (
	StatementNotRun StatementOutcome = iota
	StatementSucceeded
	StatementFailed
)

// String returns a string representation of StatementOutcome
func (o StatementOutcome) String() string {
	switch o {
	case StatementSucceeded:
		return "succeeded"
	case StatementFailed:
		return "failed"
	default:
		return "not-run"
	}
}

// MarshalText lets reports render the outcome by name
func (o StatementOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// StatementResult records the execution of one statement
type StatementResult struct {
	Statement *parser.Statement
	Outcome   StatementOutcome
	Duration  time.Duration
	Error     error
}

// ScriptRun represents the execution of a single script
type ScriptRun struct {
	Script     *parser.ParsedScript
	StartTime  time.Time
	EndTime    time.Time
	Status     ScriptStatus
	Error      error // Non-nil if the script failed or was refused
	Statements []StatementResult
}

// File returns the discovered file behind the run
func (sr *ScriptRun) File() *discovery.DiscoveredFile {
	return sr.Script.File
}

// Duration returns the script execution duration
func (sr *ScriptRun) Duration() time.Duration {
	if sr.StartTime.IsZero() {
		return 0
	}
	if sr.EndTime.IsZero() {
		return time.Since(sr.StartTime)
	}
	return sr.EndTime.Sub(sr.StartTime)
}

// Failed returns the number of failed statements
func (sr *ScriptRun) Failed() int {
	n := 0
	for _, r := range sr.Statements {
		if r.Outcome == StatementFailed {
			n++
		}
	}
	return n
}

// RunSummary summarizes all script executions
type RunSummary struct {
	TotalScripts    int
	AppliedScripts  int
	SkippedScripts  int
	FailedScripts   int
	TimedOutScripts int
	Statements      int
	FailedStmts     int
	TotalDuration   time.Duration
}

// AllApplied returns true if no script failed
func (s *RunSummary) AllApplied() bool {
	return s.FailedScripts == 0 && s.TimedOutScripts == 0
}

// ExitCode returns the appropriate exit code based on run results
func (s *RunSummary) ExitCode() int {
	if s.AllApplied() {
		return 0
	}
	return 1
}

// Summarize creates a summary of a batch of script runs
func Summarize(runs []*ScriptRun) *RunSummary {
	summary := &RunSummary{
		TotalScripts: len(runs),
	}

	for _, run := range runs {
		summary.TotalDuration += run.Duration()

		switch run.Status {
		case ScriptApplied, ScriptDryRun:
			summary.AppliedScripts++
		case ScriptSkipped, ScriptBaselined:
			summary.SkippedScripts++
		case ScriptFailed, ScriptModified:
			summary.FailedScripts++
		case ScriptTimeout:
			summary.TimedOutScripts++
		}

		for _, r := range run.Statements {
			if r.Outcome != StatementNotRun {
				summary.Statements++
			}
			if r.Outcome == StatementFailed {
				summary.FailedStmts++
			}
		}
	}

	return summary
}
