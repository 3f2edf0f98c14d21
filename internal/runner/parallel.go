package runner

import (
	"context"
	"fmt"

	"github.com/cybertec-postgresql/schemaloader/internal/discovery"
	"github.com/cybertec-postgresql/schemaloader/internal/parser"
	"golang.org/x/sync/errgroup"
)

// ParseParallel reads and splits files with at most workers goroutines.
// Splitting keeps no shared state, so scripts are independent jobs; results
// are returned in input order. The first read error cancels the rest.
func ParseParallel(ctx context.Context, files []discovery.DiscoveredFile, workers int) ([]*parser.ParsedScript, error) {
	if workers < 1 {
		workers = 1
	}

	scripts := make([]*parser.ParsedScript, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range files {
		file := &files[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parsed, err := parser.Parse(file)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", file.RelativePath, err)
			}
			scripts[i] = parsed
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scripts, nil
}
