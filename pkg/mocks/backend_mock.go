package mocks

import (
	"context"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockBackend is a mock implementation of the editor.Backend interface.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListOperations(ctx context.Context, organizationID, search string) ([]*models.Operation, error) {
	args := m.Called(ctx, organizationID, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Operation), args.Error(1)
}

func (m *MockBackend) CreateOperation(ctx context.Context, operation *models.Operation) (*models.Operation, error) {
	args := m.Called(ctx, operation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Operation), args.Error(1)
}

func (m *MockBackend) ProjectOperations(ctx context.Context, projectID string) ([]*models.ProjectOperation, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ProjectOperation), args.Error(1)
}

func (m *MockBackend) AddProjectOperation(ctx context.Context, projectID, operationID string) (*models.ProjectOperation, error) {
	args := m.Called(ctx, projectID, operationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ProjectOperation), args.Error(1)
}

func (m *MockBackend) WorkflowByProject(ctx context.Context, projectID string) (*models.Workflow, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockBackend) EnsureWorkflow(ctx context.Context, projectID string) (*models.Workflow, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockBackend) CreateNode(ctx context.Context, workflowID string, node *models.WorkflowNode) (*models.WorkflowNode, error) {
	args := m.Called(ctx, workflowID, node)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowNode), args.Error(1)
}

func (m *MockBackend) UpdateNode(ctx context.Context, workflowID string, node *models.WorkflowNode) (*models.WorkflowNode, error) {
	args := m.Called(ctx, workflowID, node)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowNode), args.Error(1)
}

func (m *MockBackend) DeleteNode(ctx context.Context, workflowID, nodeID string) ([]string, error) {
	args := m.Called(ctx, workflowID, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBackend) CreateEdge(ctx context.Context, workflowID string, edge *models.WorkflowEdge) (*models.WorkflowEdge, error) {
	args := m.Called(ctx, workflowID, edge)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowEdge), args.Error(1)
}

func (m *MockBackend) UpdateEdge(ctx context.Context, workflowID string, edge *models.WorkflowEdge) (*models.WorkflowEdge, error) {
	args := m.Called(ctx, workflowID, edge)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowEdge), args.Error(1)
}

func (m *MockBackend) DeleteEdge(ctx context.Context, workflowID, edgeID string) error {
	args := m.Called(ctx, workflowID, edgeID)

	return args.Error(0)
}
