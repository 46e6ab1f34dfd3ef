// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dukex/opsplan/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNode creates an operation WorkflowNode with default values that can be overridden.
func CreateTestNode(operationID string, overrides ...func(*models.WorkflowNode)) *models.WorkflowNode {
	node := &models.WorkflowNode{
		ID:            uuid.New().String(),
		Kind:          models.NodeKindOperation,
		OperationID:   &operationID,
		Position:      models.Position{X: 100, Y: 200},
		EstimatedTime: 15,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// CreateTestBranch creates a structural AND/OR node.
func CreateTestBranch(kind models.NodeKind, overrides ...func(*models.WorkflowNode)) *models.WorkflowNode {
	node := &models.WorkflowNode{
		ID:       uuid.New().String(),
		Kind:     kind,
		Position: models.Position{X: 300, Y: 200},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Position = models.Position{X: x, Y: y}
	}
}

// WithID sets the node ID.
func WithID(id string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.ID = id
	}
}

// WithWorkflow sets the owning workflow.
func WithWorkflow(workflowID string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.WorkflowID = workflowID
	}
}

// CreateTestEdge creates an edge between two nodes.
func CreateTestEdge(sourceID, targetID string) *models.WorkflowEdge {
	return &models.WorkflowEdge{
		ID:       uuid.New().String(),
		SourceID: sourceID,
		TargetID: targetID,
	}
}

// CreateTestOperation creates a catalog entry of an organization.
func CreateTestOperation(organizationID, name, code string) *models.Operation {
	return &models.Operation{
		ID:             uuid.New().String(),
		OrganizationID: organizationID,
		Name:           name,
		Code:           code,
		Icon:           models.IconWrench,
	}
}

// CreateTestWorkflowWithNodes creates a workflow with two operation nodes joined by one edge.
func CreateTestWorkflowWithNodes(projectID, operationID string) *models.Workflow {
	workflowID := uuid.New().String()

	first := CreateTestNode(operationID, WithID("node-1"), WithWorkflow(workflowID))
	second := CreateTestNode(operationID, WithID("node-2"), WithWorkflow(workflowID), WithPosition(400, 200))

	edge := CreateTestEdge(first.ID, second.ID)
	edge.ID = "edge-1"
	edge.WorkflowID = workflowID

	return &models.Workflow{
		ID:        workflowID,
		ProjectID: projectID,
		Nodes:     []*models.WorkflowNode{first, second},
		Edges:     []*models.WorkflowEdge{edge},
	}
}
