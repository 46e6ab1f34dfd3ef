package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrNotFound is wrapped by every not-found error below.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is wrapped by every uniqueness violation below.
	ErrAlreadyExists = errors.New("already exists")

	ErrOperationNotFound      = fmt.Errorf("operation %w", ErrNotFound)
	ErrProjectNotFound        = fmt.Errorf("project %w", ErrNotFound)
	ErrWorkflowNotFound       = fmt.Errorf("workflow %w", ErrNotFound)
	ErrNodeNotFound           = fmt.Errorf("node %w", ErrNotFound)
	ErrEdgeNotFound           = fmt.Errorf("edge %w", ErrNotFound)
	ErrCommandProjectNotFound = fmt.Errorf("command project %w", ErrNotFound)
	ErrSprintNotFound         = fmt.Errorf("sprint %w", ErrNotFound)
	ErrPlanningNotFound       = fmt.Errorf("planning %w", ErrNotFound)

	// ErrDuplicateOperationCode indicates the (organization, code) pair is taken.
	ErrDuplicateOperationCode = fmt.Errorf("operation code %w", ErrAlreadyExists)

	// ErrWorkflowAlreadyExists indicates the project already has a workflow.
	ErrWorkflowAlreadyExists = fmt.Errorf("workflow %w", ErrAlreadyExists)

	// ErrDuplicateEdge indicates an edge with the same (source, target) pair exists in the workflow.
	ErrDuplicateEdge = fmt.Errorf("edge %w", ErrAlreadyExists)

	// ErrDuplicateID indicates a record with the same primary key exists.
	ErrDuplicateID = fmt.Errorf("id %w", ErrAlreadyExists)
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Create", "Delete")
	WorkflowID string // Workflow ID if applicable
	ProjectID  string // Project ID if applicable
	Err        error  // Underlying error
}

func (e *WorkflowError) Error() string {
	target := e.WorkflowID
	if e.ProjectID != "" {
		target = fmt.Sprintf("project %s", e.ProjectID)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, target, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Err:        err,
	}
}

// NewProjectWorkflowError creates a new workflow error for lookups by project.
func NewProjectWorkflowError(op, projectID string, err error) *WorkflowError {
	return &WorkflowError{
		Op:        op,
		ProjectID: projectID,
		Err:       err,
	}
}

// NodeError wraps node-related errors with additional context.
type NodeError struct {
	Op         string
	WorkflowID string
	NodeID     string
	Err        error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s operation failed for node %s in workflow %s: %v", e.Op, e.NodeID, e.WorkflowID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// EdgeError wraps edge-related errors with additional context.
type EdgeError struct {
	Op         string
	WorkflowID string
	EdgeID     string
	Err        error
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("%s operation failed for edge %s in workflow %s: %v", e.Op, e.EdgeID, e.WorkflowID, e.Err)
}

func (e *EdgeError) Unwrap() error {
	return e.Err
}

// OperationError wraps catalog errors with additional context.
type OperationError struct {
	Op             string
	OperationID    string
	OrganizationID string
	Err            error
}

func (e *OperationError) Error() string {
	if e.OperationID == "" {
		return fmt.Sprintf("%s operation failed for organization %s catalog: %v", e.Op, e.OrganizationID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for operation %s: %v", e.Op, e.OperationID, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if an error indicates any record was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error indicates a uniqueness violation.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsNodeNotFound checks if an error indicates a node was not found.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// IsEdgeNotFound checks if an error indicates an edge was not found.
func IsEdgeNotFound(err error) bool {
	return errors.Is(err, ErrEdgeNotFound)
}

// IsOperationNotFound checks if an error indicates a catalog operation was not found.
func IsOperationNotFound(err error) bool {
	return errors.Is(err, ErrOperationNotFound)
}
