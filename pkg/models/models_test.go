package models

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func validationTags(err error) map[string]string {
	var target validator.ValidationErrors

	_ = errors.As(err, &target)

	tags := make(map[string]string, len(target))
	for _, fieldErr := range target {
		tags[fieldErr.Field()] = fieldErr.Tag()
	}

	return tags
}

func TestOperation_Validation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		operation Operation
		wantTags  map[string]string
	}{
		{
			name: "valid operation",
			operation: Operation{
				OrganizationID: "org-1",
				Name:           "Cutting",
				Code:           "CUT",
				Icon:           IconScissors,
			},
			wantTags: map[string]string{},
		},
		{
			name: "empty icon is allowed",
			operation: Operation{
				OrganizationID: "org-1",
				Name:           "Cutting",
				Code:           "CUT",
			},
			wantTags: map[string]string{},
		},
		{
			name: "missing name and code",
			operation: Operation{
				OrganizationID: "org-1",
			},
			wantTags: map[string]string{"Name": "required", "Code": "required"},
		},
		{
			name: "unknown icon",
			operation: Operation{
				OrganizationID: "org-1",
				Name:           "Cutting",
				Code:           "CUT",
				Icon:           "rocket",
			},
			wantTags: map[string]string{"Icon": "icon"},
		},
		{
			name: "missing organization",
			operation: Operation{
				Name: "Cutting",
				Code: "CUT",
			},
			wantTags: map[string]string{"OrganizationID": "required"},
		},
	}

	validate := NewValidator()

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := validate.Struct(tc.operation)
			if len(tc.wantTags) == 0 {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Equal(t, tc.wantTags, validationTags(err))
		})
	}
}

func TestIcon(t *testing.T) {
	t.Parallel()

	assert.True(t, IconTruck.Valid())
	assert.False(t, Icon("rocket").Valid())
	assert.False(t, Icon("").Valid())
	assert.Equal(t, DefaultIcon, Icon("").OrDefault())
	assert.Equal(t, IconBox, IconBox.OrDefault())

	list := Icons()
	require.NotEmpty(t, list)
	list[0] = "mutated"
	assert.Equal(t, IconCog, Icons()[0])
}

func TestWorkflowNode_Validate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		node    WorkflowNode
		wantErr error
	}{
		{
			name: "operation node",
			node: WorkflowNode{Kind: NodeKindOperation, OperationID: strPtr("op-1"), EstimatedTime: 30},
		},
		{
			name: "and branch",
			node: WorkflowNode{Kind: NodeKindAnd},
		},
		{
			name: "or branch",
			node: WorkflowNode{Kind: NodeKindOr},
		},
		{
			name:    "unknown kind",
			node:    WorkflowNode{Kind: "xor"},
			wantErr: ErrInvalidNodeKind,
		},
		{
			name:    "operation node without operation",
			node:    WorkflowNode{Kind: NodeKindOperation},
			wantErr: ErrOperationRequired,
		},
		{
			name:    "operation node with empty operation id",
			node:    WorkflowNode{Kind: NodeKindOperation, OperationID: strPtr("")},
			wantErr: ErrOperationRequired,
		},
		{
			name:    "branch with operation",
			node:    WorkflowNode{Kind: NodeKindAnd, OperationID: strPtr("op-1")},
			wantErr: ErrBranchWithOperation,
		},
		{
			name:    "negative estimate",
			node:    WorkflowNode{Kind: NodeKindOr, EstimatedTime: -1},
			wantErr: ErrNegativeEstimatedTime,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.node.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestWorkflowNode_Clone(t *testing.T) {
	t.Parallel()

	original := &WorkflowNode{ID: "n1", Kind: NodeKindOperation, OperationID: strPtr("op-1"), Position: Position{X: 1, Y: 2}}
	clone := original.Clone()

	*clone.OperationID = "op-2"
	clone.Position.X = 10

	assert.Equal(t, "op-1", *original.OperationID)
	assert.InDelta(t, 1.0, original.Position.X, 0)
	assert.True(t, original.References("op-1"))
	assert.False(t, original.IsBranch())
}

func TestWorkflowEdge(t *testing.T) {
	t.Parallel()

	edge := &WorkflowEdge{ID: "e1", SourceID: "a", TargetID: "b", Data: map[string]any{"k": "v"}}
	require.NoError(t, edge.Validate())
	assert.True(t, edge.Touches("a"))
	assert.True(t, edge.Touches("b"))
	assert.False(t, edge.Touches("c"))

	clone := edge.Clone()
	clone.Data["k"] = "changed"
	assert.Equal(t, "v", edge.Data["k"])

	assert.ErrorIs(t, (&WorkflowEdge{SourceID: "a"}).Validate(), ErrEdgeEndpointsRequired)
	assert.ErrorIs(t, (&WorkflowEdge{SourceID: "a", TargetID: "b", Count: -1}).Validate(), ErrNegativeEdgeCount)
}

func TestWorkflow_Lookup(t *testing.T) {
	t.Parallel()

	workflow := &Workflow{
		ID:    "wf-1",
		Nodes: []*WorkflowNode{{ID: "a"}, {ID: "b"}},
		Edges: []*WorkflowEdge{{ID: "e1", SourceID: "a", TargetID: "b"}},
	}

	assert.Equal(t, "b", workflow.NodeByID("b").ID)
	assert.Nil(t, workflow.NodeByID("z"))
	assert.Equal(t, "e1", workflow.EdgeByID("e1").ID)
	assert.Nil(t, workflow.EdgeByID("e2"))
}

func TestProject_HasWorkflow(t *testing.T) {
	t.Parallel()

	assert.False(t, (&Project{}).HasWorkflow())
	assert.False(t, (&Project{WorkflowID: strPtr("")}).HasWorkflow())
	assert.True(t, (&Project{WorkflowID: strPtr("wf-1")}).HasWorkflow())
}
