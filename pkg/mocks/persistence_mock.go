package mocks

import (
	"context"
	"time"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock

	OperationRepo *MockOperationRepository
	ProjectRepo   *MockProjectRepository
	WorkflowRepo  *MockWorkflowRepository
	NodeRepo      *MockNodeRepository
	EdgeRepo      *MockEdgeRepository
	ProgressRepo  *MockProgressRepository
}

var _ persistence.Persistence = (*MockPersistence)(nil)

// NewMockPersistence returns a MockPersistence with every repository mock set.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		OperationRepo: &MockOperationRepository{},
		ProjectRepo:   &MockProjectRepository{},
		WorkflowRepo:  &MockWorkflowRepository{},
		NodeRepo:      &MockNodeRepository{},
		EdgeRepo:      &MockEdgeRepository{},
		ProgressRepo:  &MockProgressRepository{},
	}
}

func (m *MockPersistence) Operations() persistence.OperationRepository { return m.OperationRepo }
func (m *MockPersistence) Projects() persistence.ProjectRepository     { return m.ProjectRepo }
func (m *MockPersistence) Workflows() persistence.WorkflowRepository   { return m.WorkflowRepo }
func (m *MockPersistence) Nodes() persistence.NodeRepository           { return m.NodeRepo }
func (m *MockPersistence) Edges() persistence.EdgeRepository           { return m.EdgeRepo }
func (m *MockPersistence) Progress() persistence.ProgressRepository    { return m.ProgressRepo }

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockOperationRepository is a mock implementation of persistence.OperationRepository interface.
type MockOperationRepository struct {
	mock.Mock
}

func (m *MockOperationRepository) List(ctx context.Context, organizationID, search string) ([]*models.Operation, error) {
	args := m.Called(ctx, organizationID, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Operation), args.Error(1)
}

func (m *MockOperationRepository) GetByID(ctx context.Context, id string) (*models.Operation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Operation), args.Error(1)
}

func (m *MockOperationRepository) GetByCode(ctx context.Context, organizationID, code string) (*models.Operation, error) {
	args := m.Called(ctx, organizationID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Operation), args.Error(1)
}

func (m *MockOperationRepository) Create(ctx context.Context, operation *models.Operation) error {
	args := m.Called(ctx, operation)

	return args.Error(0)
}

func (m *MockOperationRepository) Update(ctx context.Context, operation *models.Operation) error {
	args := m.Called(ctx, operation)

	return args.Error(0)
}

func (m *MockOperationRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockProjectRepository is a mock implementation of persistence.ProjectRepository interface.
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectRepository) Save(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)

	return args.Error(0)
}

func (m *MockProjectRepository) Operations(ctx context.Context, projectID string) ([]*models.ProjectOperation, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ProjectOperation), args.Error(1)
}

func (m *MockProjectRepository) AddOperation(ctx context.Context, projectID, operationID string) error {
	args := m.Called(ctx, projectID, operationID)

	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByProject(ctx context.Context, projectID string) (*models.Workflow, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Create(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockNodeRepository is a mock implementation of persistence.NodeRepository interface.
type MockNodeRepository struct {
	mock.Mock
}

func (m *MockNodeRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowNode, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowNode), args.Error(1)
}

func (m *MockNodeRepository) GetByID(ctx context.Context, workflowID, nodeID string) (*models.WorkflowNode, error) {
	args := m.Called(ctx, workflowID, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowNode), args.Error(1)
}

func (m *MockNodeRepository) Create(ctx context.Context, node *models.WorkflowNode) error {
	args := m.Called(ctx, node)

	return args.Error(0)
}

func (m *MockNodeRepository) Update(ctx context.Context, node *models.WorkflowNode) error {
	args := m.Called(ctx, node)

	return args.Error(0)
}

func (m *MockNodeRepository) DeleteWithEdges(ctx context.Context, workflowID, nodeID string) ([]string, error) {
	args := m.Called(ctx, workflowID, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockNodeRepository) CountByOperation(ctx context.Context, operationID string) (int, error) {
	args := m.Called(ctx, operationID)

	return args.Int(0), args.Error(1)
}

// MockEdgeRepository is a mock implementation of persistence.EdgeRepository interface.
type MockEdgeRepository struct {
	mock.Mock
}

func (m *MockEdgeRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowEdge), args.Error(1)
}

func (m *MockEdgeRepository) GetByID(ctx context.Context, workflowID, edgeID string) (*models.WorkflowEdge, error) {
	args := m.Called(ctx, workflowID, edgeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowEdge), args.Error(1)
}

func (m *MockEdgeRepository) Create(ctx context.Context, edge *models.WorkflowEdge) error {
	args := m.Called(ctx, edge)

	return args.Error(0)
}

func (m *MockEdgeRepository) Update(ctx context.Context, edge *models.WorkflowEdge) error {
	args := m.Called(ctx, edge)

	return args.Error(0)
}

func (m *MockEdgeRepository) Delete(ctx context.Context, workflowID, edgeID string) error {
	args := m.Called(ctx, workflowID, edgeID)

	return args.Error(0)
}

// MockProgressRepository is a mock implementation of persistence.ProgressRepository interface.
type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) CommandProject(ctx context.Context, id string) (*models.CommandProject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.CommandProject), args.Error(1)
}

func (m *MockProgressRepository) CommandProjects(ctx context.Context) ([]*models.CommandProject, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.CommandProject), args.Error(1)
}

func (m *MockProgressRepository) SaveCommandProject(ctx context.Context, commandProject *models.CommandProject) error {
	args := m.Called(ctx, commandProject)

	return args.Error(0)
}

func (m *MockProgressRepository) SprintByCommandProject(ctx context.Context, commandProjectID string) (*models.Sprint, error) {
	args := m.Called(ctx, commandProjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Sprint), args.Error(1)
}

func (m *MockProgressRepository) SaveSprint(ctx context.Context, sprint *models.Sprint) error {
	args := m.Called(ctx, sprint)

	return args.Error(0)
}

func (m *MockProgressRepository) Planning(ctx context.Context, id string) (*models.Planning, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Planning), args.Error(1)
}

func (m *MockProgressRepository) SavePlanning(ctx context.Context, planning *models.Planning) error {
	args := m.Called(ctx, planning)

	return args.Error(0)
}

func (m *MockProgressRepository) RecordHistory(ctx context.Context, history *models.OperationHistory) error {
	args := m.Called(ctx, history)

	return args.Error(0)
}

func (m *MockProgressRepository) History(ctx context.Context, commandProjectID string, from, to time.Time) ([]*models.OperationHistory, error) {
	args := m.Called(ctx, commandProjectID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.OperationHistory), args.Error(1)
}
