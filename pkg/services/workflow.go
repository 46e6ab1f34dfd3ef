package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/opsplan/pkg/eventbus"
	"github.com/dukex/opsplan/pkg/events"
	"github.com/dukex/opsplan/pkg/graph"
	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/google/uuid"
)

// Workflow manages the operation graph of projects. Every node and edge write is
// checked against the current persisted graph before it is stored.
type Workflow struct {
	persistence persistence.Persistence
	policy      graph.Policy
	publisher   publisher
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service. bus may be nil.
func NewWorkflow(persistence persistence.Persistence, policy graph.Policy, bus eventbus.EventPublisher, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: persistence,
		policy:      policy,
		publisher:   publisher{bus: bus, logger: logger},
		logger:      logger,
	}
}

// Policy returns the edge policy enforced on writes.
func (w *Workflow) Policy() graph.Policy {
	return w.policy
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// FetchByID returns a workflow with its nodes and edges.
func (w *Workflow) FetchByID(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, storageError("FetchByID", err)
	}

	return workflow, nil
}

// WorkflowByProject returns the workflow of a project, or nil when none was created yet.
// A missing project is an ErrNotFound error.
func (w *Workflow) WorkflowByProject(ctx context.Context, projectID string) (*models.Workflow, error) {
	project, err := w.persistence.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, storageError("WorkflowByProject", err)
	}

	if !project.HasWorkflow() {
		return nil, nil
	}

	workflow, err := w.persistence.Workflows().GetByProject(ctx, projectID)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return nil, nil
		}

		return nil, storageError("WorkflowByProject", err)
	}

	return workflow, nil
}

// EnsureWorkflow returns the workflow of a project, creating an empty one first if needed.
// Concurrent callers for the same project end up with the same workflow.
func (w *Workflow) EnsureWorkflow(ctx context.Context, projectID string) (*models.Workflow, error) {
	existing, err := w.WorkflowByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return existing, nil
	}

	workflow := &models.Workflow{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ProjectID: projectID,
		Nodes:     []*models.WorkflowNode{},
		Edges:     []*models.WorkflowEdge{},
	}

	if err := w.persistence.Workflows().Create(ctx, workflow); err != nil {
		if errors.Is(err, persistence.ErrWorkflowAlreadyExists) {
			return w.reloadByProject(ctx, projectID)
		}

		return nil, storageError("EnsureWorkflow", err)
	}

	w.logger.InfoContext(ctx, "Created workflow", "workflow_id", workflow.ID, "project_id", projectID)

	w.publisher.publish(ctx, workflow.ID, events.WorkflowCreated{
		BaseEvent:  events.NewBaseEvent(events.WorkflowCreatedEvent),
		WorkflowID: workflow.ID,
		ProjectID:  projectID,
	})

	return workflow, nil
}

func (w *Workflow) reloadByProject(ctx context.Context, projectID string) (*models.Workflow, error) {
	workflow, err := w.persistence.Workflows().GetByProject(ctx, projectID)
	if err != nil {
		return nil, storageError("EnsureWorkflow", err)
	}

	return workflow, nil
}

// loadGraph fetches a workflow and indexes it under the service policy.
func (w *Workflow) loadGraph(ctx context.Context, op, workflowID string) (*models.Workflow, *graph.Store, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, nil, storageError(op, err)
	}

	store, err := graph.FromWorkflow(w.policy, workflow)
	if err != nil {
		// The stored graph already violates the policy, e.g. after the policy was tightened.
		w.logger.WarnContext(ctx, "Stored workflow violates edge policy", "workflow_id", workflowID, "error", err)

		return nil, nil, &ServiceError{Op: op, Code: "invalid_graph", Err: err}
	}

	return workflow, store, nil
}

// graphError wraps a graph store rejection so it keeps its kind.
func graphError(op string, err error) error {
	code := "invalid_graph"

	switch {
	case errors.Is(err, graph.ErrDanglingReference):
		code = "dangling_reference"
	case errors.Is(err, graph.ErrDuplicateEdge):
		code = "duplicate_edge"
	case errors.Is(err, graph.ErrSelfLoop):
		code = "self_loop"
	case errors.Is(err, graph.ErrCycle):
		code = "cycle"
	case errors.Is(err, graph.ErrNodeNotFound), errors.Is(err, graph.ErrEdgeNotFound):
		return &ServiceError{Op: op, Code: "not_found", Err: errors.Join(ErrNotFound, err)}
	}

	return &ServiceError{Op: op, Code: code, Err: err}
}
