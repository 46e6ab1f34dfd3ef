package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence/sqldb"
	"github.com/stretchr/testify/require"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenSQLite opens a migrated SQLite database in a temporary directory.
func OpenSQLite(t *testing.T) *sqldb.Persistence {
	t.Helper()

	store, err := sqldb.NewPersistence(context.Background(), Logger(), "sqlite3", filepath.Join(t.TempDir(), "opsplan.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	return store
}

// SeedProject stores a project of an organization without a workflow.
func SeedProject(t *testing.T, store *sqldb.Persistence, organizationID, projectID string) *models.Project {
	t.Helper()

	project := &models.Project{ID: projectID, OrganizationID: organizationID, Name: "Project " + projectID}
	require.NoError(t, store.Projects().Save(context.Background(), project))

	return project
}

// SeedOperation stores a catalog entry and links it to the given projects.
func SeedOperation(t *testing.T, store *sqldb.Persistence, operation *models.Operation, projectIDs ...string) *models.Operation {
	t.Helper()

	ctx := context.Background()

	require.NoError(t, store.Operations().Create(ctx, operation))

	for _, projectID := range projectIDs {
		require.NoError(t, store.Projects().AddOperation(ctx, projectID, operation.ID))
	}

	return operation
}
