package runner

import (
	"context"
	"fmt"
	"os/user"
	"time"

	"github.com/cybertec-postgresql/schemaloader/internal/database"
	"github.com/cybertec-postgresql/schemaloader/internal/discovery"
	"github.com/cybertec-postgresql/schemaloader/internal/errors"
	"github.com/cybertec-postgresql/schemaloader/internal/logger"
	"github.com/cybertec-postgresql/schemaloader/internal/parser"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// journalTimeout bounds journal writes issued after a script timed out
const journalTimeout = 5 * time.Second

// Options configures an Executor
type Options struct {
	Journal       *database.Journal // nil disables journaling
	Policy        ErrorPolicy
	Timeout       time.Duration // Per-script timeout, 0 for none
	DryRun        bool
	AllowModified bool
	Logger        *logger.Logger
}

// Executor runs parsed scripts statement by statement
type Executor struct {
	db          database.DB
	opts        Options
	runID       string
	installedBy string
	log         *logger.Logger
}

// NewExecutor creates a new script executor. db may be nil in dry-run mode.
func NewExecutor(db database.DB, opts Options) *Executor {
	return &Executor{
		db:          db,
		opts:        opts,
		runID:       uuid.NewString(),
		installedBy: installedBy(),
		log:         logger.OrDefault(opts.Logger),
	}
}

// RunID identifies this executor's runs in the journal
func (e *Executor) RunID() string {
	return e.runID
}

// ExecuteBatch runs scripts sequentially in the given order. Scripts already
// in the journal with the same checksum are skipped. Under StopOnError the
// batch ends with the first failing script. The returned error reports
// infrastructure problems only; script failures are carried by the runs.
func (e *Executor) ExecuteBatch(ctx context.Context, scripts []*parser.ParsedScript) ([]*ScriptRun, error) {
	applied, err := e.loadJournal(ctx)
	if err != nil {
		return nil, err
	}

	var runs []*ScriptRun
	for _, script := range scripts {
		run := e.plan(script, applied)
		if run.Status == ScriptPending {
			e.log.Debug("Running script: %s", script.File.RelativePath)
			if err := e.Execute(ctx, run); err != nil {
				return runs, err
			}
		} else {
			e.log.Debug("Script %s: %s", script.File.RelativePath, run.Status)
		}

		runs = append(runs, run)

		if ctx.Err() != nil {
			break
		}
		if e.opts.Policy == StopOnError && (run.Status == ScriptFailed || run.Status == ScriptTimeout || run.Status == ScriptModified) {
			break
		}
	}

	return runs, nil
}

// Plan reports, without executing anything, what ExecuteBatch would do with each script
func (e *Executor) Plan(ctx context.Context, scripts []*parser.ParsedScript) ([]*ScriptRun, error) {
	applied, err := e.loadJournal(ctx)
	if err != nil {
		return nil, err
	}

	runs := make([]*ScriptRun, 0, len(scripts))
	for _, script := range scripts {
		runs = append(runs, e.plan(script, applied))
	}
	return runs, nil
}

func (e *Executor) plan(script *parser.ParsedScript, applied journalState) *ScriptRun {
	run := &ScriptRun{
		Script: script,
		Status: ScriptPending,
	}

	entry, ok := applied.entries[script.File.RelativePath]
	if ok && entry.Success && entry.Type == database.EntryBaseline {
		run.Status = ScriptBaselined
		return run
	}
	if !ok && applied.covers(script.File) {
		run.Status = ScriptBaselined
		return run
	}
	if !ok || !entry.Success {
		return run
	}

	if entry.Checksum == script.Checksum {
		run.Status = ScriptSkipped
		return run
	}

	if !e.opts.AllowModified {
		run.Status = ScriptModified
		run.Error = &errors.ModifiedScriptError{
			File:         script.File.RelativePath,
			RecordedHash: entry.Checksum,
			CurrentHash:  script.Checksum,
		}
	}
	return run
}

// Execute runs a single pending script and records it in the journal
func (e *Executor) Execute(ctx context.Context, run *ScriptRun) error {
	script := run.Script
	run.StartTime = time.Now()
	run.Statements = make([]StatementResult, 0, len(script.Statements))
	for _, stmt := range script.Executable() {
		run.Statements = append(run.Statements, StatementResult{Statement: stmt})
	}

	if script.Unterminated() {
		e.log.Warn("%s ends inside %s, the last statement is incomplete", script.File.RelativePath, script.FinalState)
	}

	if e.opts.DryRun {
		run.Status = ScriptDryRun
		run.EndTime = time.Now()
		return nil
	}

	if e.db == nil {
		return fmt.Errorf("no database connection")
	}

	session, err := e.db.Acquire(ctx)
	if err != nil {
		return err
	}

	run.Status = ScriptRunning

	scriptCtx := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		scriptCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	run.Error = e.executeStatements(scriptCtx, session, run)
	run.EndTime = time.Now()
	// pgx closes a connection whose query was cancelled, so the journal gets its own.
	session.Release()

	switch {
	case run.Error == nil:
		run.Status = ScriptApplied
	case scriptCtx.Err() == context.DeadlineExceeded:
		run.Status = ScriptTimeout
	default:
		run.Status = ScriptFailed
	}

	if e.opts.Journal == nil {
		return nil
	}

	// The script context may be done already; the journal row is still written.
	journalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	journalSession, err := e.db.Acquire(journalCtx)
	if err != nil {
		return err
	}
	defer journalSession.Release()

	return e.opts.Journal.Record(journalCtx, journalSession, database.JournalEntry{
		Script:      script.File.RelativePath,
		Version:     script.File.Version.String(),
		Checksum:    script.Checksum,
		Statements:  len(run.Statements),
		Success:     run.Status == ScriptApplied,
		RunID:       e.runID,
		InstalledBy: e.installedBy,
		InstalledAt: run.StartTime,
		Duration:    run.Duration(),
	})
}

// executeStatements sends the statements of run one at a time. It returns
// the first failure under StopOnError and all failures under ContinueOnError.
func (e *Executor) executeStatements(ctx context.Context, session database.Session, run *ScriptRun) error {
	var result *multierror.Error
	file := run.Script.File.RelativePath

	for i := range run.Statements {
		res := &run.Statements[i]
		stmt := res.Statement

		start := time.Now()
		err := session.Exec(ctx, stmt.SQL)
		res.Duration = time.Since(start)

		if err == nil {
			res.Outcome = StatementSucceeded
			e.log.Debug("%s:%d: statement %d ok (%v)", file, stmt.StartLine, stmt.Index+1, res.Duration.Round(time.Millisecond))
			continue
		}

		stmtErr := errors.NewStatementError(file, stmt.Index, stmt.StartLine, stmt.SQL, err)
		res.Outcome = StatementFailed
		res.Error = stmtErr
		e.log.Debug("%v", stmtErr)

		if e.opts.Policy == StopOnError {
			return stmtErr
		}
		result = multierror.Append(result, stmtErr)
		if ctx.Err() != nil {
			break
		}
	}

	return result.ErrorOrNil()
}

func (e *Executor) loadJournal(ctx context.Context) (journalState, error) {
	if e.opts.Journal == nil || e.db == nil {
		return journalState{}, nil
	}

	session, err := e.db.Acquire(ctx)
	if err != nil {
		return journalState{}, err
	}
	defer session.Release()

	if e.opts.DryRun {
		// Never create the table in dry-run mode; a missing table means nothing was applied.
		applied, err := e.opts.Journal.Applied(ctx, session)
		if err != nil {
			e.log.Debug("journal not readable, treating all scripts as pending: %v", err)
			return journalState{}, nil
		}
		return newJournalState(applied), nil
	}

	if err := e.opts.Journal.Ensure(ctx, session); err != nil {
		return journalState{}, err
	}
	applied, err := e.opts.Journal.Applied(ctx, session)
	if err != nil {
		return journalState{}, err
	}
	return newJournalState(applied), nil
}

// journalState is the journal as read at the start of a batch
type journalState struct {
	entries  map[string]database.JournalEntry
	baseline discovery.Version // Highest baseline version, nil without baseline
}

func newJournalState(entries map[string]database.JournalEntry) journalState {
	st := journalState{entries: entries}
	for _, entry := range entries {
		if entry.Type != database.EntryBaseline || !entry.Success {
			continue
		}
		v, err := discovery.ParseVersion(entry.Version)
		if err != nil {
			continue
		}
		if st.baseline == nil || v.Compare(st.baseline) > 0 {
			st.baseline = v
		}
	}
	return st
}

// covers reports whether a migration without journal row lies at or below the baseline
func (st journalState) covers(file *discovery.DiscoveredFile) bool {
	return st.baseline != nil && file.Type == discovery.FileTypeMigration && file.Version.Compare(st.baseline) <= 0
}

func installedBy() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "schemaloader"
}
