package services

import (
	"context"

	"github.com/dukex/opsplan/pkg/models"
)

// Backend serves an editing session in-process from the catalog and workflow services.
type Backend struct {
	catalog  *Catalog
	workflow *Workflow
}

func NewBackend(catalog *Catalog, workflow *Workflow) *Backend {
	return &Backend{catalog: catalog, workflow: workflow}
}

func (b *Backend) ListOperations(ctx context.Context, organizationID, search string) ([]*models.Operation, error) {
	return b.catalog.List(ctx, organizationID, search)
}

func (b *Backend) CreateOperation(ctx context.Context, operation *models.Operation) (*models.Operation, error) {
	return b.catalog.Create(ctx, operation)
}

func (b *Backend) ProjectOperations(ctx context.Context, projectID string) ([]*models.ProjectOperation, error) {
	return b.catalog.ProjectOperations(ctx, projectID)
}

func (b *Backend) AddProjectOperation(ctx context.Context, projectID, operationID string) (*models.ProjectOperation, error) {
	return b.catalog.AddProjectOperation(ctx, projectID, operationID)
}

func (b *Backend) WorkflowByProject(ctx context.Context, projectID string) (*models.Workflow, error) {
	return b.workflow.WorkflowByProject(ctx, projectID)
}

func (b *Backend) EnsureWorkflow(ctx context.Context, projectID string) (*models.Workflow, error) {
	return b.workflow.EnsureWorkflow(ctx, projectID)
}

func (b *Backend) CreateNode(ctx context.Context, workflowID string, node *models.WorkflowNode) (*models.WorkflowNode, error) {
	return b.workflow.CreateNode(ctx, workflowID, node)
}

func (b *Backend) UpdateNode(ctx context.Context, workflowID string, node *models.WorkflowNode) (*models.WorkflowNode, error) {
	return b.workflow.UpdateNode(ctx, workflowID, node)
}

func (b *Backend) DeleteNode(ctx context.Context, workflowID, nodeID string) ([]string, error) {
	return b.workflow.DeleteNode(ctx, workflowID, nodeID)
}

func (b *Backend) CreateEdge(ctx context.Context, workflowID string, edge *models.WorkflowEdge) (*models.WorkflowEdge, error) {
	return b.workflow.CreateEdge(ctx, workflowID, edge)
}

func (b *Backend) UpdateEdge(ctx context.Context, workflowID string, edge *models.WorkflowEdge) (*models.WorkflowEdge, error) {
	return b.workflow.UpdateEdge(ctx, workflowID, edge)
}

func (b *Backend) DeleteEdge(ctx context.Context, workflowID, edgeID string) error {
	return b.workflow.DeleteEdge(ctx, workflowID, edgeID)
}
