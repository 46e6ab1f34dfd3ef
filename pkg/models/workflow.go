// Package models defines the core domain models for project workflows and their operation graphs.
package models

import "time"

// Workflow is the operation graph of one project. A workflow with zero nodes is valid.
type Workflow struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id" validate:"required"`
	Nodes     []*WorkflowNode `json:"nodes"`
	Edges     []*WorkflowEdge `json:"edges"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NodeByID returns the node with the given id, or nil.
func (w *Workflow) NodeByID(id string) *WorkflowNode {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// EdgeByID returns the edge with the given id, or nil.
func (w *Workflow) EdgeByID(id string) *WorkflowEdge {
	for _, edge := range w.Edges {
		if edge.ID == id {
			return edge
		}
	}

	return nil
}
