package runner_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/cybertec-postgresql/schemaloader/internal/discovery"
	"github.com/cybertec-postgresql/schemaloader/internal/runner"
	"github.com/cybertec-postgresql/schemaloader/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParallel_KeepsOrder(t *testing.T) {
	files := make(map[string]string)
	for i := 1; i <= 40; i++ {
		files[fmt.Sprintf("V%d__step.sql", i)] = fmt.Sprintf("SELECT %d; SELECT '%d;';", i, i)
	}
	dir := testutil.WriteScripts(t, files)

	discovered, err := discovery.Resolve(dir)
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 4, 64} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			scripts, err := runner.ParseParallel(context.Background(), discovered, workers)
			require.NoError(t, err)
			require.Len(t, scripts, len(discovered))

			for i, s := range scripts {
				assert.Equal(t, discovered[i].RelativePath, s.File.RelativePath)
				assert.Len(t, s.Statements, 2)
			}
		})
	}
}

func TestParseParallel_ReadError(t *testing.T) {
	files := []discovery.DiscoveredFile{
		{Path: "/nonexistent/a.sql", RelativePath: "a.sql"},
	}

	_, err := runner.ParseParallel(context.Background(), files, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse a.sql")
}

func TestParseParallel_Cancelled(t *testing.T) {
	dir := testutil.WriteScripts(t, map[string]string{"a.sql": "SELECT 1;"})
	discovered, err := discovery.Resolve(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = runner.ParseParallel(ctx, discovered, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
