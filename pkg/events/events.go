// Package events defines the change notifications published by the catalog, workflow and progress services.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const Topic = "opsplan.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Catalog events.
	OperationCreatedEvent EventType = "operation.created"
	OperationUpdatedEvent EventType = "operation.updated"
	OperationDeletedEvent EventType = "operation.deleted"

	// Workflow graph events.
	WorkflowCreatedEvent EventType = "workflow.created"
	NodeCreatedEvent     EventType = "node.created"
	NodeUpdatedEvent     EventType = "node.updated"
	NodeDeletedEvent     EventType = "node.deleted"
	EdgeCreatedEvent     EventType = "edge.created"
	EdgeUpdatedEvent     EventType = "edge.updated"
	EdgeDeletedEvent     EventType = "edge.deleted"

	// Progress events.
	OperationHistoryRecordedEvent EventType = "operation_history.recorded"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]any),
	}
}

type OperationCreated struct {
	BaseEvent

	OrganizationID string `json:"organization_id"`
	OperationID    string `json:"operation_id"`
	Code           string `json:"code"`
}

func (e OperationCreated) GetType() EventType {
	return OperationCreatedEvent
}

type OperationUpdated struct {
	BaseEvent

	OrganizationID string `json:"organization_id"`
	OperationID    string `json:"operation_id"`
	Code           string `json:"code"`
}

func (e OperationUpdated) GetType() EventType {
	return OperationUpdatedEvent
}

type OperationDeleted struct {
	BaseEvent

	OrganizationID string `json:"organization_id"`
	OperationID    string `json:"operation_id"`
}

func (e OperationDeleted) GetType() EventType {
	return OperationDeletedEvent
}

type WorkflowCreated struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	ProjectID  string `json:"project_id"`
}

func (e WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type NodeCreated struct {
	BaseEvent

	WorkflowID  string  `json:"workflow_id"`
	NodeID      string  `json:"node_id"`
	Kind        string  `json:"kind"`
	OperationID *string `json:"operation_id,omitempty"`
}

func (e NodeCreated) GetType() EventType {
	return NodeCreatedEvent
}

type NodeUpdated struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	NodeID     string `json:"node_id"`
}

func (e NodeUpdated) GetType() EventType {
	return NodeUpdatedEvent
}

// NodeDeleted is published once per compound delete, listing the edges removed with the node.
type NodeDeleted struct {
	BaseEvent

	WorkflowID     string   `json:"workflow_id"`
	NodeID         string   `json:"node_id"`
	RemovedEdgeIDs []string `json:"removed_edge_ids,omitempty"`
}

func (e NodeDeleted) GetType() EventType {
	return NodeDeletedEvent
}

type EdgeCreated struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	EdgeID     string `json:"edge_id"`
	SourceID   string `json:"source_id"`
	TargetID   string `json:"target_id"`
}

func (e EdgeCreated) GetType() EventType {
	return EdgeCreatedEvent
}

type EdgeUpdated struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	EdgeID     string `json:"edge_id"`
	SourceID   string `json:"source_id"`
	TargetID   string `json:"target_id"`
}

func (e EdgeUpdated) GetType() EventType {
	return EdgeUpdatedEvent
}

type EdgeDeleted struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	EdgeID     string `json:"edge_id"`
}

func (e EdgeDeleted) GetType() EventType {
	return EdgeDeletedEvent
}

// OperationHistoryRecorded signals new completed units; cached progress of the command project is stale.
type OperationHistoryRecorded struct {
	BaseEvent

	HistoryID        string `json:"history_id"`
	PlanningID       string `json:"planning_id"`
	CommandProjectID string `json:"command_project_id"`
	Count            int    `json:"count"`
}

func (e OperationHistoryRecorded) GetType() EventType {
	return OperationHistoryRecordedEvent
}
