package services

import (
	"context"
	"fmt"

	"github.com/dukex/opsplan/pkg/events"
	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/google/uuid"
)

// CreateNode adds a node to a workflow. A node without id gets a fresh one; repeating a
// create with an id that already exists in the workflow returns the stored node.
func (w *Workflow) CreateNode(ctx context.Context, workflowID string, node *models.WorkflowNode) (*models.WorkflowNode, error) {
	workflow, store, err := w.loadGraph(ctx, "CreateNode", workflowID)
	if err != nil {
		return nil, err
	}

	if node.ID != "" {
		if existing := workflow.NodeByID(node.ID); existing != nil {
			return existing, nil
		}
	} else {
		node.ID = uuid.Must(uuid.NewV7()).String()
	}

	node.WorkflowID = workflowID

	if err := node.Validate(); err != nil {
		return nil, NewValidationError("CreateNode", "invalid_node", err.Error(), err)
	}

	if err := w.checkOperation(ctx, "CreateNode", workflow, node); err != nil {
		return nil, err
	}

	if err := store.AddNode(node); err != nil {
		return nil, graphError("CreateNode", err)
	}

	if err := w.persistence.Nodes().Create(ctx, node); err != nil {
		return nil, storageError("CreateNode", err)
	}

	w.publisher.publish(ctx, workflowID, events.NodeCreated{
		BaseEvent:   events.NewBaseEvent(events.NodeCreatedEvent),
		WorkflowID:  workflowID,
		NodeID:      node.ID,
		Kind:        string(node.Kind),
		OperationID: node.OperationID,
	})

	return node, nil
}

// UpdateNode stores the position, estimated time and operation of an existing node.
// The node kind cannot change.
func (w *Workflow) UpdateNode(ctx context.Context, workflowID string, node *models.WorkflowNode) (*models.WorkflowNode, error) {
	workflow, err := w.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, storageError("UpdateNode", err)
	}

	existing := workflow.NodeByID(node.ID)
	if existing == nil {
		return nil, storageError("UpdateNode", &persistence.NodeError{Op: "UpdateNode", WorkflowID: workflowID, NodeID: node.ID, Err: persistence.ErrNodeNotFound})
	}

	if node.Kind != "" && node.Kind != existing.Kind {
		return nil, NewValidationError("UpdateNode", "kind_immutable", fmt.Sprintf("node kind cannot change from %s to %s", existing.Kind, node.Kind), models.ErrInvalidNodeKind)
	}

	updated := existing.Clone()
	updated.Position = node.Position
	updated.EstimatedTime = node.EstimatedTime

	if node.OperationID != nil && !existing.IsBranch() {
		operationID := *node.OperationID
		updated.OperationID = &operationID
	}

	if err := updated.Validate(); err != nil {
		return nil, NewValidationError("UpdateNode", "invalid_node", err.Error(), err)
	}

	if !existing.References(derefOr(updated.OperationID, "")) {
		if err := w.checkOperation(ctx, "UpdateNode", workflow, updated); err != nil {
			return nil, err
		}
	}

	if err := w.persistence.Nodes().Update(ctx, updated); err != nil {
		return nil, storageError("UpdateNode", err)
	}

	w.publisher.publish(ctx, workflowID, events.NodeUpdated{
		BaseEvent:  events.NewBaseEvent(events.NodeUpdatedEvent),
		WorkflowID: workflowID,
		NodeID:     updated.ID,
	})

	return updated, nil
}

// DeleteNode removes a node and every edge touching it in one transaction and returns
// the ids of the removed edges.
func (w *Workflow) DeleteNode(ctx context.Context, workflowID, nodeID string) ([]string, error) {
	removed, err := w.persistence.Nodes().DeleteWithEdges(ctx, workflowID, nodeID)
	if err != nil {
		return nil, storageError("DeleteNode", err)
	}

	w.logger.InfoContext(ctx, "Deleted node", "workflow_id", workflowID, "node_id", nodeID, "removed_edges", len(removed))

	w.publisher.publish(ctx, workflowID, events.NodeDeleted{
		BaseEvent:      events.NewBaseEvent(events.NodeDeletedEvent),
		WorkflowID:     workflowID,
		NodeID:         nodeID,
		RemovedEdgeIDs: removed,
	})

	return removed, nil
}

// checkOperation verifies an operation node places an operation of the project's organization.
func (w *Workflow) checkOperation(ctx context.Context, op string, workflow *models.Workflow, node *models.WorkflowNode) error {
	if node.IsBranch() {
		return nil
	}

	operation, err := w.persistence.Operations().GetByID(ctx, *node.OperationID)
	if err != nil {
		if persistence.IsOperationNotFound(err) {
			return &ServiceError{Op: op, Code: "unknown_operation", Message: fmt.Sprintf("operation %s does not exist", *node.OperationID), Err: ErrUnknownOperation}
		}

		return storageError(op, err)
	}

	project, err := w.persistence.Projects().GetByID(ctx, workflow.ProjectID)
	if err != nil {
		return storageError(op, err)
	}

	if operation.OrganizationID != project.OrganizationID {
		return &ServiceError{Op: op, Code: "unknown_operation", Message: fmt.Sprintf("operation %s belongs to another organization", operation.ID), Err: ErrUnknownOperation}
	}

	return nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}

	return *s
}
