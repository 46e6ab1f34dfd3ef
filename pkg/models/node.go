package models

import (
	"errors"
	"time"
)

// NodeKind tells operation placements apart from structural branch nodes.
type NodeKind string

const (
	NodeKindOperation NodeKind = "operation" // Placement of a catalog operation
	NodeKindAnd       NodeKind = "and"       // Fan-out/fan-in where every branch is taken
	NodeKindOr        NodeKind = "or"        // Fan-out/fan-in where any branch is taken
)

var (
	ErrInvalidNodeKind       = errors.New("invalid node kind")
	ErrOperationRequired     = errors.New("operation node requires an operation id")
	ErrBranchWithOperation   = errors.New("branch node cannot reference an operation")
	ErrNegativeEstimatedTime = errors.New("estimated time cannot be negative")
	ErrEdgeEndpointsRequired = errors.New("edge requires source and target ids")
	ErrNegativeEdgeCount     = errors.New("edge count cannot be negative")
)

// Valid reports whether k is a known node kind.
func (k NodeKind) Valid() bool {
	switch k {
	case NodeKindOperation, NodeKindAnd, NodeKindOr:
		return true
	default:
		return false
	}
}

// IsBranch reports whether k is a structural AND/OR kind.
func (k NodeKind) IsBranch() bool {
	return k == NodeKindAnd || k == NodeKindOr
}

// Position is the canvas placement of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WorkflowNode is a placement of one operation, or a structural AND/OR node, within a workflow.
type WorkflowNode struct {
	ID            string    `json:"id"`
	WorkflowID    string    `json:"workflow_id"`
	Kind          NodeKind  `json:"kind"`
	OperationID   *string   `json:"operation_id,omitempty"` // Nil for branch nodes
	Position      Position  `json:"position"`
	EstimatedTime int       `json:"estimated_time"` // Minutes
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validate checks the kind/operation pairing and the numeric fields.
func (n *WorkflowNode) Validate() error {
	if !n.Kind.Valid() {
		return ErrInvalidNodeKind
	}

	if n.Kind == NodeKindOperation && (n.OperationID == nil || *n.OperationID == "") {
		return ErrOperationRequired
	}

	if n.Kind.IsBranch() && n.OperationID != nil {
		return ErrBranchWithOperation
	}

	if n.EstimatedTime < 0 {
		return ErrNegativeEstimatedTime
	}

	return nil
}

// IsBranch reports whether the node is a structural AND/OR node.
func (n *WorkflowNode) IsBranch() bool {
	return n.Kind.IsBranch()
}

// References reports whether the node places the given operation.
func (n *WorkflowNode) References(operationID string) bool {
	return n.OperationID != nil && *n.OperationID == operationID
}

// Clone returns a deep copy of the node.
func (n *WorkflowNode) Clone() *WorkflowNode {
	clone := *n

	if n.OperationID != nil {
		operationID := *n.OperationID
		clone.OperationID = &operationID
	}

	return &clone
}

// WorkflowEdge is a directed transition between two nodes of the same workflow.
type WorkflowEdge struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id"`
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Label      string         `json:"label"`
	Data       map[string]any `json:"data,omitempty"`
	Count      int            `json:"count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Validate checks the endpoints are set and the counter is non-negative.
func (e *WorkflowEdge) Validate() error {
	if e.SourceID == "" || e.TargetID == "" {
		return ErrEdgeEndpointsRequired
	}

	if e.Count < 0 {
		return ErrNegativeEdgeCount
	}

	return nil
}

// Touches reports whether nodeID is the source or target of the edge.
func (e *WorkflowEdge) Touches(nodeID string) bool {
	return e.SourceID == nodeID || e.TargetID == nodeID
}

// Clone returns a deep copy of the edge. Data values are copied one level deep.
func (e *WorkflowEdge) Clone() *WorkflowEdge {
	clone := *e

	if e.Data != nil {
		clone.Data = make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			clone.Data[k] = v
		}
	}

	return &clone
}
