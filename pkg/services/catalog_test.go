package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/opsplan/pkg/events"
	"github.com/dukex/opsplan/pkg/mocks"
	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalog_Create(t *testing.T) {
	store := testutil.OpenSQLite(t)
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "org-1", mock.AnythingOfType("events.OperationCreated")).Return(nil).Once()

	catalog := NewCatalog(store, bus, testutil.Logger())

	created, err := catalog.Create(t.Context(), &models.Operation{
		OrganizationID: "org-1",
		Name:           "  Cutting  ",
		Code:           "CUT",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Cutting", created.Name)
	assert.Equal(t, models.DefaultIcon, created.Icon)
	assert.False(t, created.CreatedAt.IsZero())

	fetched, err := catalog.Get(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "CUT", fetched.Code)

	bus.AssertExpectations(t)
}

func TestCatalog_Create_DuplicateCode(t *testing.T) {
	store := testutil.OpenSQLite(t)
	catalog := NewCatalog(store, nil, testutil.Logger())
	ctx := t.Context()

	_, err := catalog.Create(ctx, &models.Operation{OrganizationID: "org-1", Name: "Cutting", Code: "CUT"})
	require.NoError(t, err)

	_, err = catalog.Create(ctx, &models.Operation{OrganizationID: "org-1", Name: "Cutting again", Code: "CUT"})
	require.ErrorIs(t, err, ErrDuplicateCode)
	assert.True(t, IsConflictError(err))

	operations, err := catalog.List(ctx, "org-1", "")
	require.NoError(t, err)
	assert.Len(t, operations, 1)

	_, err = catalog.Create(ctx, &models.Operation{OrganizationID: "org-2", Name: "Cutting", Code: "CUT"})
	require.NoError(t, err, "codes are unique per organization only")
}

func TestCatalog_Create_Validation(t *testing.T) {
	store := testutil.OpenSQLite(t)
	catalog := NewCatalog(store, nil, testutil.Logger())

	testCases := []struct {
		name      string
		operation *models.Operation
	}{
		{"missing name", &models.Operation{OrganizationID: "org-1", Name: "   ", Code: "CUT"}},
		{"missing code", &models.Operation{OrganizationID: "org-1", Name: "Cutting"}},
		{"missing organization", &models.Operation{Name: "Cutting", Code: "CUT"}},
		{"unknown icon", &models.Operation{OrganizationID: "org-1", Name: "Cutting", Code: "CUT", Icon: "rocket"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := catalog.Create(t.Context(), tc.operation)
			require.ErrorIs(t, err, ErrValidation)
			assert.True(t, IsValidationError(err))
		})
	}

	operations, err := catalog.List(t.Context(), "org-1", "")
	require.NoError(t, err)
	assert.Empty(t, operations)
}

func TestCatalog_List(t *testing.T) {
	store := testutil.OpenSQLite(t)
	catalog := NewCatalog(store, nil, testutil.Logger())
	ctx := t.Context()

	for _, op := range []*models.Operation{
		{OrganizationID: "org-1", Name: "Sewing", Code: "SEW"},
		{OrganizationID: "org-1", Name: "Cutting", Code: "CUT"},
		{OrganizationID: "org-1", Name: "Recutting", Code: "RCT"},
		{OrganizationID: "org-2", Name: "Cutting", Code: "CUT"},
	} {
		_, err := catalog.Create(ctx, op)
		require.NoError(t, err)
	}

	all, err := catalog.List(ctx, "org-1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cutting", "Recutting", "Sewing"}, operationNames(all))

	matched, err := catalog.List(ctx, "org-1", "CUT")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cutting", "Recutting"}, operationNames(matched))

	_, err = catalog.List(ctx, "", "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestCatalog_List_FoldsNonASCIINames(t *testing.T) {
	store := testutil.OpenSQLite(t)
	catalog := NewCatalog(store, nil, testutil.Logger())
	ctx := t.Context()

	for _, op := range []*models.Operation{
		{OrganizationID: "org-1", Name: "ÉTIQUETAGE", Code: "ETQ"},
		{OrganizationID: "org-1", Name: "Sewing", Code: "SEW"},
	} {
		_, err := catalog.Create(ctx, op)
		require.NoError(t, err)
	}

	for _, search := range []string{"étiq", "ÉTIQ", "Étiquetage", "quet"} {
		t.Run(search, func(t *testing.T) {
			matched, err := catalog.List(ctx, "org-1", search)
			require.NoError(t, err)
			assert.Equal(t, []string{"ÉTIQUETAGE"}, operationNames(matched))
		})
	}
}

func TestCatalog_Update(t *testing.T) {
	store := testutil.OpenSQLite(t)
	catalog := NewCatalog(store, nil, testutil.Logger())
	ctx := t.Context()

	cutting, err := catalog.Create(ctx, &models.Operation{OrganizationID: "org-1", Name: "Cutting", Code: "CUT"})
	require.NoError(t, err)

	_, err = catalog.Create(ctx, &models.Operation{OrganizationID: "org-1", Name: "Sewing", Code: "SEW"})
	require.NoError(t, err)

	updated, err := catalog.Update(ctx, &models.Operation{ID: cutting.ID, OrganizationID: "org-other", Name: "Laser cutting", Code: "CUT", Icon: models.IconFlame})
	require.NoError(t, err)
	assert.Equal(t, "org-1", updated.OrganizationID, "organization is immutable")
	assert.Equal(t, models.IconFlame, updated.Icon)

	_, err = catalog.Update(ctx, &models.Operation{ID: cutting.ID, Name: "Cutting", Code: "SEW"})
	require.ErrorIs(t, err, ErrDuplicateCode)

	_, err = catalog.Update(ctx, &models.Operation{ID: "missing", Name: "Cutting", Code: "CUT"})
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFoundError(err))
}

func TestCatalog_Delete_BlockedWhileReferenced(t *testing.T) {
	store := testutil.OpenSQLite(t)
	catalog := NewCatalog(store, nil, testutil.Logger())
	workflows := NewWorkflow(store, defaultPolicy, nil, testutil.Logger())
	ctx := t.Context()

	testutil.SeedProject(t, store, "org-1", "project-1")

	cutting, err := catalog.Create(ctx, &models.Operation{OrganizationID: "org-1", Name: "Cutting", Code: "CUT"})
	require.NoError(t, err)

	workflow, err := workflows.EnsureWorkflow(ctx, "project-1")
	require.NoError(t, err)

	node, err := workflows.CreateNode(ctx, workflow.ID, testutil.CreateTestNode(cutting.ID, testutil.WithID("")))
	require.NoError(t, err)

	err = catalog.Delete(ctx, cutting.ID)
	require.ErrorIs(t, err, ErrOperationInUse)
	assert.True(t, IsConflictError(err))

	_, err = catalog.Get(ctx, cutting.ID)
	require.NoError(t, err)

	_, err = workflows.DeleteNode(ctx, workflow.ID, node.ID)
	require.NoError(t, err)

	require.NoError(t, catalog.Delete(ctx, cutting.ID))

	_, err = catalog.Get(ctx, cutting.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_ProjectOperations(t *testing.T) {
	store := testutil.OpenSQLite(t)
	catalog := NewCatalog(store, nil, testutil.Logger())
	ctx := t.Context()

	testutil.SeedProject(t, store, "org-1", "project-1")

	cutting := testutil.SeedOperation(t, store, testutil.CreateTestOperation("org-1", "Cutting", "CUT"))
	foreign := testutil.SeedOperation(t, store, testutil.CreateTestOperation("org-2", "Sewing", "SEW"))

	linked, err := catalog.AddProjectOperation(ctx, "project-1", cutting.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cutting", linked.Operation.Name)

	_, err = catalog.AddProjectOperation(ctx, "project-1", foreign.ID)
	require.ErrorIs(t, err, ErrUnknownOperation)

	operations, err := catalog.ProjectOperations(ctx, "project-1")
	require.NoError(t, err)
	require.Len(t, operations, 1)
	assert.Equal(t, cutting.ID, operations[0].Operation.ID)

	_, err = catalog.ProjectOperations(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_PersistenceFailure(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.OperationRepo.On("List", mock.Anything, "org-1", "").Return(nil, errors.New("connection reset"))

	catalog := NewCatalog(store, nil, testutil.Logger())

	_, err := catalog.List(context.Background(), "org-1", "")
	require.ErrorIs(t, err, ErrPersistenceFailure)
	assert.True(t, IsPersistenceFailure(err))
	assert.False(t, IsNotFoundError(err))
}

func TestCatalog_PublishFailureKeepsWrite(t *testing.T) {
	store := testutil.OpenSQLite(t)
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	catalog := NewCatalog(store, bus, testutil.Logger())

	created, err := catalog.Create(t.Context(), &models.Operation{OrganizationID: "org-1", Name: "Cutting", Code: "CUT"})
	require.NoError(t, err)

	_, err = store.Operations().GetByID(t.Context(), created.ID)
	require.NoError(t, err)
	bus.AssertCalled(t, "Publish", mock.Anything, "org-1", mock.MatchedBy(func(e events.OperationCreated) bool {
		return e.OperationID == created.ID
	}))
}

func operationNames(operations []*models.Operation) []string {
	names := make([]string, 0, len(operations))
	for _, operation := range operations {
		names = append(names, operation.Name)
	}

	return names
}
