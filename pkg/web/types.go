package web

import (
	"time"

	"github.com/dukex/opsplan/pkg/models"
)

// CreateOperationRequest represents the request body for adding a catalog operation.
type CreateOperationRequest struct {
	Name        string      `json:"name"         validate:"required"`
	Code        string      `json:"code"         validate:"required"`
	Icon        models.Icon `json:"icon"         validate:"omitempty,icon"`
	Description string      `json:"description"`
	IsFinal     bool        `json:"is_final"`
	ExpertiseID *string     `json:"expertise_id,omitempty"`
}

// UpdateOperationRequest represents a partial update of a catalog operation.
type UpdateOperationRequest struct {
	Name        *string      `json:"name,omitempty"        validate:"omitempty,min=1"`
	Code        *string      `json:"code,omitempty"        validate:"omitempty,min=1"`
	Icon        *models.Icon `json:"icon,omitempty"        validate:"omitempty,icon"`
	Description *string      `json:"description,omitempty"`
	IsFinal     *bool        `json:"is_final,omitempty"`
	ExpertiseID *string      `json:"expertise_id,omitempty"`
}

type LinkOperationRequest struct {
	OperationID string `json:"operation_id" validate:"required"`
}

// CreateNodeRequest represents the request body for placing a node. The id is optional;
// repeating a request with the same id returns the stored node.
type CreateNodeRequest struct {
	ID            string          `json:"id"`
	Kind          models.NodeKind `json:"kind"           validate:"required,oneof=operation and or"`
	OperationID   *string         `json:"operation_id"`
	Position      models.Position `json:"position"`
	EstimatedTime int             `json:"estimated_time" validate:"min=0"`
}

// UpdateNodeRequest represents a partial node update. The kind cannot change.
type UpdateNodeRequest struct {
	Position      *models.Position `json:"position,omitempty"`
	EstimatedTime *int             `json:"estimated_time,omitempty" validate:"omitempty,min=0"`
	OperationID   *string          `json:"operation_id,omitempty"`
}

type CreateEdgeRequest struct {
	ID       string         `json:"id"`
	SourceID string         `json:"source_id" validate:"required"`
	TargetID string         `json:"target_id" validate:"required"`
	Label    string         `json:"label"`
	Data     map[string]any `json:"data,omitempty"`
}

// UpdateEdgeRequest represents a partial edge update. Changing an endpoint reconnects the edge.
type UpdateEdgeRequest struct {
	SourceID *string        `json:"source_id,omitempty" validate:"omitempty,min=1"`
	TargetID *string        `json:"target_id,omitempty" validate:"omitempty,min=1"`
	Label    *string        `json:"label,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Count    *int           `json:"count,omitempty"     validate:"omitempty,min=0"`
}

type RecordHistoryRequest struct {
	Count int `json:"count" validate:"required,gt=0"`
}

type DeleteNodeResponse struct {
	NodeID         string   `json:"node_id"`
	RemovedEdgeIDs []string `json:"removed_edge_ids"`
}

// HealthResponse represents the health endpoint body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Checkers  map[string]string `json:"checkers"`
	Timestamp time.Time         `json:"timestamp"`
}
