package services

import (
	"context"
	"errors"

	"github.com/dukex/opsplan/pkg/events"
	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/google/uuid"
)

// CreateEdge connects two nodes of a workflow. Dangling endpoints, a repeated
// (source, target) pair and policy violations are rejected before anything is stored.
// Repeating a create with an id that already exists in the workflow returns the stored edge.
func (w *Workflow) CreateEdge(ctx context.Context, workflowID string, edge *models.WorkflowEdge) (*models.WorkflowEdge, error) {
	workflow, store, err := w.loadGraph(ctx, "CreateEdge", workflowID)
	if err != nil {
		return nil, err
	}

	if edge.ID != "" {
		if existing := workflow.EdgeByID(edge.ID); existing != nil {
			return existing, nil
		}
	} else {
		edge.ID = uuid.Must(uuid.NewV7()).String()
	}

	edge.WorkflowID = workflowID

	if err := edge.Validate(); err != nil {
		return nil, NewValidationError("CreateEdge", "invalid_edge", err.Error(), err)
	}

	if err := store.AddEdge(edge); err != nil {
		return nil, graphError("CreateEdge", err)
	}

	if err := w.persistence.Edges().Create(ctx, edge); err != nil {
		if errors.Is(err, persistence.ErrDuplicateEdge) {
			return nil, &ServiceError{Op: "CreateEdge", Code: "duplicate_edge", Err: errors.Join(ErrDuplicateEdge, err)}
		}

		return nil, storageError("CreateEdge", err)
	}

	w.publisher.publish(ctx, workflowID, events.EdgeCreated{
		BaseEvent:  events.NewBaseEvent(events.EdgeCreatedEvent),
		WorkflowID: workflowID,
		EdgeID:     edge.ID,
		SourceID:   edge.SourceID,
		TargetID:   edge.TargetID,
	})

	return edge, nil
}

// UpdateEdge stores new endpoints, label, data or counter of an existing edge.
// Endpoint changes are checked like a new connection.
func (w *Workflow) UpdateEdge(ctx context.Context, workflowID string, edge *models.WorkflowEdge) (*models.WorkflowEdge, error) {
	workflow, store, err := w.loadGraph(ctx, "UpdateEdge", workflowID)
	if err != nil {
		return nil, err
	}

	existing := workflow.EdgeByID(edge.ID)
	if existing == nil {
		return nil, storageError("UpdateEdge", &persistence.EdgeError{Op: "UpdateEdge", WorkflowID: workflowID, EdgeID: edge.ID, Err: persistence.ErrEdgeNotFound})
	}

	updated := edge.Clone()
	updated.WorkflowID = workflowID
	updated.CreatedAt = existing.CreatedAt

	if err := updated.Validate(); err != nil {
		return nil, NewValidationError("UpdateEdge", "invalid_edge", err.Error(), err)
	}

	if err := store.UpdateEdge(updated); err != nil {
		return nil, graphError("UpdateEdge", err)
	}

	if err := w.persistence.Edges().Update(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrDuplicateEdge) {
			return nil, &ServiceError{Op: "UpdateEdge", Code: "duplicate_edge", Err: errors.Join(ErrDuplicateEdge, err)}
		}

		return nil, storageError("UpdateEdge", err)
	}

	w.publisher.publish(ctx, workflowID, events.EdgeUpdated{
		BaseEvent:  events.NewBaseEvent(events.EdgeUpdatedEvent),
		WorkflowID: workflowID,
		EdgeID:     updated.ID,
		SourceID:   updated.SourceID,
		TargetID:   updated.TargetID,
	})

	return updated, nil
}

func (w *Workflow) DeleteEdge(ctx context.Context, workflowID, edgeID string) error {
	if err := w.persistence.Edges().Delete(ctx, workflowID, edgeID); err != nil {
		return storageError("DeleteEdge", err)
	}

	w.publisher.publish(ctx, workflowID, events.EdgeDeleted{
		BaseEvent:  events.NewBaseEvent(events.EdgeDeletedEvent),
		WorkflowID: workflowID,
		EdgeID:     edgeID,
	})

	return nil
}
