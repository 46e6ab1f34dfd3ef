package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dukex/opsplan/pkg/persistence/sqldb"
	"github.com/dukex/opsplan/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `
version: 1
nodes:
  - ref: cut
    kind: operation
    operation: CUT
    x: 10
    y: 20
    estimated_time: 30
  - ref: gate
    kind: or
    x: 200
    y: 20
edges:
  - from: cut
    to: gate
    label: done
`

// newDatabase returns the URL of a migrated SQLite database holding project-1 of org-1.
func newDatabase(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "opsplan.db")

	store, err := sqldb.NewPersistence(ctx, testutil.Logger(), "sqlite3", path)
	require.NoError(t, err)

	testutil.SeedProject(t, store, "org-1", "project-1")
	require.NoError(t, store.Close(ctx))

	return "sqlite3:" + path
}

func run(t *testing.T, databaseURL string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := newRootCommand()
	root.Writer = &out

	err := root.Run(context.Background(), append([]string{"opsplan", "--database-url", databaseURL, "--log-level", "error"}, args...))

	return out.String(), err
}

func TestCommands_CatalogAndWorkflowRoundTrip(t *testing.T) {
	databaseURL := newDatabase(t)

	out, err := run(t, databaseURL, "catalog", "add", "--organization", "org-1", "--name", "Cutting", "--code", "CUT", "--icon", "scissors")
	require.NoError(t, err)

	operationID := strings.TrimSpace(out)
	require.NotEmpty(t, operationID)

	_, err = run(t, databaseURL, "catalog", "link", "--project", "project-1", "--operation", operationID)
	require.NoError(t, err)

	out, err = run(t, databaseURL, "catalog", "list", "--organization", "org-1", "--search", "cut")
	require.NoError(t, err)
	assert.Contains(t, out, "CUT")

	out, err = run(t, databaseURL, "workflow", "show", "--project", "project-1")
	require.NoError(t, err)
	assert.Contains(t, out, "has no workflow")

	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))

	out, err = run(t, databaseURL, "workflow", "import", "--project", "project-1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 nodes and 1 edges")

	out, err = run(t, databaseURL, "workflow", "show", "--project", "project-1")
	require.NoError(t, err)
	assert.Contains(t, out, "CUT")
	assert.Equal(t, 2, strings.Count(out, "node "))
	assert.Equal(t, 1, strings.Count(out, "edge "))

	out, err = run(t, databaseURL, "workflow", "export", "--project", "project-1")
	require.NoError(t, err)
	assert.Contains(t, out, "operation: CUT")
	assert.Contains(t, out, "label: done")
}

func TestCommands_ImportRejectsUnknownOperation(t *testing.T) {
	databaseURL := newDatabase(t)

	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))

	_, err := run(t, databaseURL, "workflow", "import", "--project", "project-1", path)
	require.Error(t, err)

	out, err := run(t, databaseURL, "workflow", "show", "--project", "project-1")
	require.NoError(t, err)
	assert.Contains(t, out, "has no workflow")
}

func TestCommands_ProgressUnknownCommandProject(t *testing.T) {
	databaseURL := newDatabase(t)

	_, err := run(t, databaseURL, "progress", "report", "--command-project", "missing")
	assert.Error(t, err)
}
