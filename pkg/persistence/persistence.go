// Package persistence provides the data storage abstraction layer for catalogs, workflows and progress records.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/opsplan/pkg/models"
)

type Persistence interface {
	Operations() OperationRepository
	Projects() ProjectRepository
	Workflows() WorkflowRepository
	Nodes() NodeRepository
	Edges() EdgeRepository
	Progress() ProgressRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// OperationRepository stores the per-organization operation catalog.
type OperationRepository interface {
	// List returns the operations of an organization ordered by name. A non-empty search
	// filters by case-insensitive substring match on the name.
	List(ctx context.Context, organizationID, search string) ([]*models.Operation, error)
	GetByID(ctx context.Context, id string) (*models.Operation, error)
	GetByCode(ctx context.Context, organizationID, code string) (*models.Operation, error)
	Create(ctx context.Context, operation *models.Operation) error
	Update(ctx context.Context, operation *models.Operation) error
	Delete(ctx context.Context, id string) error
}

type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*models.Project, error)
	Save(ctx context.Context, project *models.Project) error
	// Operations returns the operations linked to a project, each with its catalog entry embedded.
	Operations(ctx context.Context, projectID string) ([]*models.ProjectOperation, error)
	AddOperation(ctx context.Context, projectID, operationID string) error
}

type WorkflowRepository interface {
	// GetByID returns a workflow with its nodes and edges.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// GetByProject returns the workflow of a project, or ErrWorkflowNotFound when none was created.
	GetByProject(ctx context.Context, projectID string) (*models.Workflow, error)
	// Create inserts an empty workflow and assigns it to its project in one transaction.
	Create(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// NodeRepository manages nodes scoped to a workflow.
type NodeRepository interface {
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowNode, error)
	GetByID(ctx context.Context, workflowID, nodeID string) (*models.WorkflowNode, error)
	Create(ctx context.Context, node *models.WorkflowNode) error
	Update(ctx context.Context, node *models.WorkflowNode) error
	// DeleteWithEdges removes the node's incident edges and then the node in one transaction.
	// It returns the ids of the removed edges.
	DeleteWithEdges(ctx context.Context, workflowID, nodeID string) ([]string, error)
	CountByOperation(ctx context.Context, operationID string) (int, error)
}

// EdgeRepository manages edges scoped to a workflow.
type EdgeRepository interface {
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowEdge, error)
	GetByID(ctx context.Context, workflowID, edgeID string) (*models.WorkflowEdge, error)
	Create(ctx context.Context, edge *models.WorkflowEdge) error
	Update(ctx context.Context, edge *models.WorkflowEdge) error
	Delete(ctx context.Context, workflowID, edgeID string) error
}

// ProgressRepository stores the command, sprint, planning and operation history records
// the progress reports are computed from.
type ProgressRepository interface {
	CommandProject(ctx context.Context, id string) (*models.CommandProject, error)
	CommandProjects(ctx context.Context) ([]*models.CommandProject, error)
	SaveCommandProject(ctx context.Context, commandProject *models.CommandProject) error
	SprintByCommandProject(ctx context.Context, commandProjectID string) (*models.Sprint, error)
	SaveSprint(ctx context.Context, sprint *models.Sprint) error
	Planning(ctx context.Context, id string) (*models.Planning, error)
	SavePlanning(ctx context.Context, planning *models.Planning) error
	RecordHistory(ctx context.Context, history *models.OperationHistory) error
	// History returns the history of every planning of a command project created in [from, to).
	History(ctx context.Context, commandProjectID string, from, to time.Time) ([]*models.OperationHistory, error)
}
