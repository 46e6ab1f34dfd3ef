package persistence_test

import (
	"errors"
	"testing"

	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("not found sentinels share a root", func(t *testing.T) {
		for _, err := range []error{
			persistence.ErrOperationNotFound,
			persistence.ErrProjectNotFound,
			persistence.ErrWorkflowNotFound,
			persistence.ErrNodeNotFound,
			persistence.ErrEdgeNotFound,
			persistence.ErrCommandProjectNotFound,
			persistence.ErrSprintNotFound,
			persistence.ErrPlanningNotFound,
		} {
			assert.True(t, persistence.IsNotFound(err), err.Error())
			assert.False(t, persistence.IsAlreadyExists(err), err.Error())
		}
	})

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		projectErr := persistence.NewProjectWorkflowError("GetByProject", "project-456", persistence.ErrWorkflowNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.True(t, persistence.IsWorkflowNotFound(projectErr))
		assert.False(t, persistence.IsNodeNotFound(workflowErr))

		nodeErr := &persistence.NodeError{Op: "Update", WorkflowID: "wf-1", NodeID: "n-1", Err: persistence.ErrNodeNotFound}
		assert.True(t, persistence.IsNodeNotFound(nodeErr))
		assert.True(t, errors.Is(nodeErr, persistence.ErrNotFound))

		edgeErr := &persistence.EdgeError{Op: "Create", WorkflowID: "wf-1", EdgeID: "e-1", Err: persistence.ErrDuplicateEdge}
		assert.True(t, persistence.IsAlreadyExists(edgeErr))
		assert.False(t, persistence.IsEdgeNotFound(edgeErr))

		operationErr := &persistence.OperationError{Op: "Create", OrganizationID: "org-1", Err: persistence.ErrDuplicateOperationCode}
		assert.True(t, errors.Is(operationErr, persistence.ErrDuplicateOperationCode))
	})

	t.Run("errors contain context", func(t *testing.T) {
		err := persistence.NewWorkflowError("Delete", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.Contains(t, err.Error(), "Delete")
		assert.Contains(t, err.Error(), "workflow-123")
		assert.Contains(t, err.Error(), "workflow not found")

		err = persistence.NewProjectWorkflowError("GetByProject", "project-456", persistence.ErrWorkflowNotFound)
		assert.Contains(t, err.Error(), "project project-456")

		operationErr := &persistence.OperationError{Op: "List", OrganizationID: "org-1", Err: errors.New("boom")}
		assert.Contains(t, operationErr.Error(), "organization org-1")
	})
}
