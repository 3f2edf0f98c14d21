package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cybertec-postgresql/schemaloader/internal/database"
	"github.com/cybertec-postgresql/schemaloader/internal/ddl"
	"github.com/cybertec-postgresql/schemaloader/internal/discovery"
	"github.com/cybertec-postgresql/schemaloader/internal/parser"
)

// Baseline targets derived from the newest migration
const (
	BaselineLatest      = "latest"       // the newest migration
	BaselineLatestMajor = "latest-major" // its major version, 2.3.1 becomes 2
	BaselineLatestMinor = "latest-minor" // its minor version, 2.3.1 becomes 2.3
)

// baselineMarker is the journal row holding the baseline version itself
const baselineMarker = "<< baseline >>"

// ResolveBaseline turns a baseline target into a version. latest is the
// newest migration, nil when there is none, which counts as version 0.
func ResolveBaseline(target string, latest discovery.Version) (discovery.Version, error) {
	if latest == nil {
		latest = discovery.Version{0}
	}

	switch strings.ToLower(target) {
	case BaselineLatest:
		return latest, nil
	case BaselineLatestMajor:
		return latest.Truncate(1), nil
	case BaselineLatestMinor:
		return latest.Truncate(2), nil
	}

	v, err := discovery.ParseVersion(strings.TrimLeft(target, "vV"))
	if err != nil {
		return nil, fmt.Errorf("invalid baseline version %q (use %s, %s, %s or a version such as 1.2)",
			target, BaselineLatest, BaselineLatestMajor, BaselineLatestMinor)
	}
	return v, nil
}

// Baseline records the migrations at or below target as applied without
// running them. Later batches report them as baselined, migrations above
// the baseline stay pending. A journal that already records applied
// migrations is refused.
func (e *Executor) Baseline(ctx context.Context, scripts []*parser.ParsedScript, target string) ([]*ScriptRun, error) {
	if e.opts.Journal == nil || e.db == nil {
		return nil, fmt.Errorf("baseline needs a database journal")
	}

	applied, err := e.loadJournal(ctx)
	if err != nil {
		return nil, err
	}
	if applied.baseline != nil {
		return nil, fmt.Errorf("journal %s is already baselined at version %s", e.opts.Journal.Table(), applied.baseline)
	}
	for _, entry := range applied.entries {
		if entry.Success && entry.Version != "" {
			return nil, fmt.Errorf("journal %s already records migration %s, baseline refused", e.opts.Journal.Table(), entry.Script)
		}
	}

	return e.baseline(ctx, scripts, target)
}

func (e *Executor) baseline(ctx context.Context, scripts []*parser.ParsedScript, target string) ([]*ScriptRun, error) {
	var (
		migrations []*parser.ParsedScript
		latest     discovery.Version
	)
	for _, script := range scripts {
		if script.File.Type != discovery.FileTypeMigration {
			continue
		}
		migrations = append(migrations, script)
		if latest == nil || script.File.Version.Compare(latest) > 0 {
			latest = script.File.Version
		}
	}

	version, err := ResolveBaseline(target, latest)
	if err != nil {
		return nil, err
	}
	e.log.Info("Baseline at version %s", version)

	now := time.Now()
	entries := []database.JournalEntry{{
		Script:  baselineMarker,
		Version: version.String(),
		Type:    database.EntryBaseline,
	}}

	runs := make([]*ScriptRun, 0, len(migrations))
	for _, script := range migrations {
		run := &ScriptRun{Script: script, Status: ScriptPending}
		if script.File.Version.Compare(version) <= 0 {
			run.Status = ScriptBaselined
			entries = append(entries, database.JournalEntry{
				Script:   script.File.RelativePath,
				Version:  script.File.Version.String(),
				Type:     database.EntryBaseline,
				Checksum: script.Checksum,
			})
		}
		runs = append(runs, run)
	}

	if e.opts.DryRun {
		return runs, nil
	}

	session, err := e.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Release()

	for _, entry := range entries {
		entry.Success = true
		entry.RunID = e.runID
		entry.InstalledBy = e.installedBy
		entry.InstalledAt = now
		if err := e.opts.Journal.Record(ctx, session, entry); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// RepairResult lists the journal rows changed by a repair
type RepairResult struct {
	Removed   []string // Unsuccessful entries, deleted so the scripts run again
	Realigned []string // Applied scripts whose recorded checksum now matches the file
}

// Repair deletes the journal rows of failed and timed out scripts and
// records the current checksum of applied scripts that changed since. In
// dry-run mode it only reports what it would change.
func (e *Executor) Repair(ctx context.Context, scripts []*parser.ParsedScript) (*RepairResult, error) {
	if e.opts.Journal == nil || e.db == nil {
		return nil, fmt.Errorf("repair needs a database journal")
	}

	applied, err := e.loadJournal(ctx)
	if err != nil {
		return nil, err
	}

	result := &RepairResult{}
	for script, entry := range applied.entries {
		if !entry.Success {
			result.Removed = append(result.Removed, script)
		}
	}
	sort.Strings(result.Removed)

	var realign []database.JournalEntry
	for _, script := range scripts {
		entry, ok := applied.entries[script.File.RelativePath]
		if !ok || !entry.Success || entry.Checksum == script.Checksum {
			continue
		}
		entry.Checksum = script.Checksum
		realign = append(realign, entry)
		result.Realigned = append(result.Realigned, entry.Script)
	}

	if e.opts.DryRun {
		return result, nil
	}

	session, err := e.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Release()

	if err := e.opts.Journal.Delete(ctx, session, result.Removed...); err != nil {
		return nil, err
	}
	for _, entry := range realign {
		if err := e.opts.Journal.Record(ctx, session, entry); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Install rebuilds a schema from scratch. It clears the journal, drops every
// object the plain scripts create, then runs drop scripts and plain scripts.
// Migrations are baselined when baseline is not empty; the ones above the
// baseline, or all of them without one, are left pending.
func (e *Executor) Install(ctx context.Context, scripts []*parser.ParsedScript, baseline string) ([]*ScriptRun, error) {
	if e.db == nil {
		return nil, fmt.Errorf("no database connection")
	}

	var install, plain, migrations []*parser.ParsedScript
	for _, script := range scripts {
		switch script.File.Type {
		case discovery.FileTypeMigration:
			migrations = append(migrations, script)
		case discovery.FileTypeScript:
			plain = append(plain, script)
			install = append(install, script)
		default:
			install = append(install, script)
		}
	}

	drops := ddl.DropStatements(ddl.CreatedObjects(plain...), e.db.Dialect())
	if e.opts.DryRun {
		for _, stmt := range drops {
			e.log.Info("Would run: %s", stmt)
		}
	} else if err := e.reset(ctx, drops); err != nil {
		return nil, err
	}

	var runs []*ScriptRun
	for _, script := range install {
		run := &ScriptRun{Script: script, Status: ScriptPending}
		e.log.Debug("Installing script: %s", script.File.RelativePath)
		if err := e.Execute(ctx, run); err != nil {
			return runs, err
		}
		runs = append(runs, run)

		if ctx.Err() != nil {
			return runs, nil
		}
		if e.opts.Policy == StopOnError && (run.Status == ScriptFailed || run.Status == ScriptTimeout) {
			return runs, nil
		}
	}

	if baseline == "" || e.opts.Journal == nil {
		for _, script := range migrations {
			runs = append(runs, &ScriptRun{Script: script, Status: ScriptPending})
		}
		return runs, nil
	}

	baselined, err := e.baseline(ctx, migrations, baseline)
	if err != nil {
		return runs, err
	}
	return append(runs, baselined...), nil
}

// reset clears the journal and runs the generated drop statements. Drops
// that fail are logged and skipped.
func (e *Executor) reset(ctx context.Context, drops []string) error {
	session, err := e.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer session.Release()

	if e.opts.Journal != nil {
		e.log.Info("Clearing journal %s", e.opts.Journal.Table())
		if err := e.opts.Journal.Drop(ctx, session); err != nil {
			return err
		}
		if err := e.opts.Journal.Ensure(ctx, session); err != nil {
			return err
		}
	}

	for _, stmt := range drops {
		if err := session.Exec(ctx, stmt); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Warn("%s: %v", stmt, err)
			continue
		}
		e.log.Debug("%s", stmt)
	}
	return nil
}
