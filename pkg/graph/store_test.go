package graph

import (
	"testing"

	"github.com/dukex/opsplan/pkg/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opNode(id string) *models.WorkflowNode {
	operationID := "op-" + id

	return &models.WorkflowNode{
		ID:          id,
		WorkflowID:  "wf-1",
		Kind:        models.NodeKindOperation,
		OperationID: &operationID,
	}
}

func edge(id, source, target string) *models.WorkflowEdge {
	return &models.WorkflowEdge{ID: id, WorkflowID: "wf-1", SourceID: source, TargetID: target}
}

func newStore(t *testing.T, policy Policy, nodeIDs ...string) *Store {
	t.Helper()

	store := New(policy)
	for _, id := range nodeIDs {
		require.NoError(t, store.AddNode(opNode(id)))
	}

	return store
}

func ids[T interface{ *models.WorkflowNode | *models.WorkflowEdge }](items []T) []string {
	out := make([]string, 0, len(items))

	for _, item := range items {
		switch v := any(item).(type) {
		case *models.WorkflowNode:
			out = append(out, v.ID)
		case *models.WorkflowEdge:
			out = append(out, v.ID)
		}
	}

	return out
}

// assertIntegrity checks that every edge endpoint is a node of the store.
func assertIntegrity(t *testing.T, store *Store) {
	t.Helper()

	nodes := make(map[string]bool)
	for _, node := range store.Nodes() {
		nodes[node.ID] = true
	}

	for _, e := range store.Edges() {
		assert.True(t, nodes[e.SourceID], "edge %s has dangling source %s", e.ID, e.SourceID)
		assert.True(t, nodes[e.TargetID], "edge %s has dangling target %s", e.ID, e.TargetID)
	}
}

func TestStore_Connect(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "a", "b")

	created, err := store.Connect("a", "b")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "wf-1", created.WorkflowID)
	assert.Equal(t, 1, store.EdgeCount())

	_, err = store.Connect("a", "b")
	require.ErrorIs(t, err, ErrDuplicateEdge)
	assert.Equal(t, 1, store.EdgeCount())

	_, err = store.Connect("b", "a")
	require.NoError(t, err)
	assert.Equal(t, 2, store.EdgeCount())

	_, err = store.Connect("a", "missing")
	require.ErrorIs(t, err, ErrDanglingReference)
	assert.Equal(t, 2, store.EdgeCount())

	found, err := store.EdgeBetween("a", "b")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	assertIntegrity(t, store)
}

func TestStore_SelfLoopPolicy(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		policy  Policy
		wantErr error
	}{
		{name: "rejected by default", policy: Policy{}, wantErr: ErrSelfLoop},
		{name: "allowed when enabled", policy: Policy{AllowSelfLoops: true}},
		{name: "rejected as cycle when cycles are prevented", policy: Policy{AllowSelfLoops: true, PreventCycles: true}, wantErr: ErrCycle},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := newStore(t, tc.policy, "a")

			_, err := store.Connect("a", "a")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Zero(t, store.EdgeCount())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, 1, store.EdgeCount())
		})
	}
}

func TestStore_PreventCycles(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{PreventCycles: true}, "a", "b", "c")

	_, err := store.Connect("a", "b")
	require.NoError(t, err)
	_, err = store.Connect("b", "c")
	require.NoError(t, err)

	err = store.CanConnect("c", "a")
	require.ErrorIs(t, err, ErrCycle)

	_, err = store.Connect("c", "a")
	require.ErrorIs(t, err, ErrCycle)
	assert.Equal(t, 2, store.EdgeCount())
}

func TestStore_SetEdges_RejectsWholeBatch(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "a", "b", "c")
	require.NoError(t, store.SetEdges([]*models.WorkflowEdge{edge("e1", "a", "b")}))

	err := store.SetEdges([]*models.WorkflowEdge{
		edge("e2", "b", "c"),
		edge("e3", "c", "ghost"),
	})
	require.ErrorIs(t, err, ErrDanglingReference)
	assert.Equal(t, []string{"e1"}, ids(store.Edges()))

	err = store.SetEdges([]*models.WorkflowEdge{
		edge("e2", "b", "c"),
		edge("e3", "b", "c"),
	})
	require.ErrorIs(t, err, ErrDuplicateEdge)
	assert.Equal(t, []string{"e1"}, ids(store.Edges()))

	require.NoError(t, store.SetEdges([]*models.WorkflowEdge{edge("e2", "b", "c"), edge("e4", "a", "c")}))
	assert.Equal(t, []string{"e2", "e4"}, ids(store.Edges()))
}

func TestStore_SetNodes_RefusesToOrphanEdges(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "a", "b", "c")
	require.NoError(t, store.SetEdges([]*models.WorkflowEdge{edge("e1", "a", "b"), edge("e2", "b", "c")}))
	require.NoError(t, store.SelectNode("c"))

	err := store.SetNodes([]*models.WorkflowNode{opNode("a"), opNode("b")})
	require.ErrorIs(t, err, ErrNodeHasEdges)

	assert.Equal(t, []string{"a", "b", "c"}, ids(store.Nodes()))
	assert.Equal(t, []string{"e1", "e2"}, ids(store.Edges()))
	assert.Equal(t, "c", store.Selected())
	assertIntegrity(t, store)

	require.NoError(t, store.RemoveEdge("e2"))
	require.NoError(t, store.SetNodes([]*models.WorkflowNode{opNode("a"), opNode("b")}))

	assert.Equal(t, []string{"a", "b"}, ids(store.Nodes()))
	assert.Equal(t, []string{"e1"}, ids(store.Edges()))
	assert.Empty(t, store.Selected())
	assertIntegrity(t, store)
}

func TestStore_SetNodes_RejectsInvalidNode(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "a")

	err := store.SetNodes([]*models.WorkflowNode{opNode("b"), {ID: "c", Kind: models.NodeKindOperation}})
	require.ErrorIs(t, err, ErrInvalidNode)
	require.ErrorIs(t, err, models.ErrOperationRequired)
	assert.Equal(t, []string{"a"}, ids(store.Nodes()))

	err = store.SetNodes([]*models.WorkflowNode{opNode("b"), opNode("b")})
	require.ErrorIs(t, err, ErrDuplicateNode)
}

func TestStore_ApplyNodeChange(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "a", "b")
	_, err := store.Connect("a", "b")
	require.NoError(t, err)

	require.NoError(t, store.ApplyNodeChange(NodeChange{Type: NodeChangePosition, ID: "a", Position: models.Position{X: 10, Y: 20}}))
	node, err := store.Node("a")
	require.NoError(t, err)
	assert.Equal(t, models.Position{X: 10, Y: 20}, node.Position)

	require.NoError(t, store.ApplyNodeChange(NodeChange{Type: NodeChangeSelect, ID: "a", Selected: true}))
	assert.Equal(t, "a", store.Selected())

	require.NoError(t, store.ApplyNodeChange(NodeChange{Type: NodeChangeSelect, ID: "b", Selected: true}))
	assert.Equal(t, "b", store.Selected(), "at most one node is selected")

	require.NoError(t, store.ApplyNodeChange(NodeChange{Type: NodeChangeSelect, ID: "a", Selected: false}))
	assert.Equal(t, "b", store.Selected())

	err = store.ApplyNodeChange(NodeChange{Type: NodeChangeRemove, ID: "a"})
	require.ErrorIs(t, err, ErrNodeHasEdges)
	assert.Equal(t, 2, store.NodeCount())

	err = store.ApplyNodeChange(NodeChange{Type: NodeChangePosition, ID: "ghost"})
	require.ErrorIs(t, err, ErrNodeNotFound)

	err = store.ApplyNodeChange(NodeChange{Type: "resize", ID: "a"})
	require.ErrorIs(t, err, ErrUnknownChange)
}

func TestStore_ApplyEdgeChange(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "a", "b")
	created, err := store.Connect("a", "b")
	require.NoError(t, err)

	require.NoError(t, store.ApplyEdgeChange(EdgeChange{Type: EdgeChangeSelect, ID: created.ID, Selected: true}))
	assert.Equal(t, created.ID, store.SelectedEdge())

	require.NoError(t, store.ApplyEdgeChange(EdgeChange{Type: EdgeChangeRemove, ID: created.ID}))
	assert.Zero(t, store.EdgeCount())
	assert.Empty(t, store.SelectedEdge())

	require.NoError(t, store.ApplyNodeChange(NodeChange{Type: NodeChangeRemove, ID: "a"}))
	assert.Equal(t, []string{"b"}, ids(store.Nodes()))

	err = store.ApplyEdgeChange(EdgeChange{Type: EdgeChangeRemove, ID: created.ID})
	require.ErrorIs(t, err, ErrEdgeNotFound)
}

func TestStore_RemoveNodeCascade(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "a", "b", "c")
	require.NoError(t, store.SetEdges([]*models.WorkflowEdge{
		edge("e1", "a", "b"),
		edge("e2", "b", "c"),
		edge("e3", "a", "c"),
	}))

	removed, err := store.RemoveNodeCascade("b")
	require.NoError(t, err)

	assert.Equal(t, []string{"e1", "e2"}, ids(removed))
	assert.Equal(t, []string{"a", "c"}, ids(store.Nodes()))
	assert.Equal(t, []string{"e3"}, ids(store.Edges()))
	assert.Empty(t, store.IncidentEdges("b"))
	assertIntegrity(t, store)

	_, err = store.RemoveNodeCascade("b")
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestStore_ReplaceEdge(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "a", "b", "c")
	require.NoError(t, store.SetEdges([]*models.WorkflowEdge{edge("e1", "a", "b"), edge("e2", "a", "c")}))

	updated, err := store.ReplaceEdge("e1", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, "b", updated.SourceID)
	assert.Equal(t, "c", updated.TargetID)

	_, err = store.EdgeBetween("a", "b")
	require.ErrorIs(t, err, ErrEdgeNotFound)

	_, err = store.ReplaceEdge("e1", "a", "c")
	require.ErrorIs(t, err, ErrDuplicateEdge)

	kept, err := store.Edge("e1")
	require.NoError(t, err)
	assert.Equal(t, "b", kept.SourceID, "failed replace keeps the old pairing")

	found, err := store.EdgeBetween("b", "c")
	require.NoError(t, err)
	assert.Equal(t, "e1", found.ID)

	_, err = store.ReplaceEdge("e1", "b", "ghost")
	require.ErrorIs(t, err, ErrDanglingReference)
	assertIntegrity(t, store)
}

func TestStore_CanReplaceEdge(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{PreventCycles: true}, "a", "b", "c")
	require.NoError(t, store.SetEdges([]*models.WorkflowEdge{edge("e1", "a", "b"), edge("e2", "b", "c")}))

	require.NoError(t, store.CanReplaceEdge("e1", "a", "b"))
	require.NoError(t, store.CanReplaceEdge("e1", "a", "c"))
	require.ErrorIs(t, store.CanReplaceEdge("e1", "c", "b"), ErrCycle)
	require.ErrorIs(t, store.CanReplaceEdge("e1", "b", "c"), ErrDuplicateEdge)
	require.ErrorIs(t, store.CanReplaceEdge("missing", "a", "c"), ErrEdgeNotFound)

	found, err := store.EdgeBetween("a", "b")
	require.NoError(t, err)
	assert.Equal(t, "e1", found.ID, "probing leaves the pairing untouched")
	assertIntegrity(t, store)
}

func TestStore_UpdateEdgeLabel(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "a", "b")
	require.NoError(t, store.AddEdge(edge("e1", "a", "b")))

	changed := edge("e1", "a", "b")
	changed.Label = "approved"
	require.NoError(t, store.UpdateEdge(changed))

	got, err := store.Edge("e1")
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Label)

	changed.Label = "mutated after update"
	got, err = store.Edge("e1")
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Label)
}

func TestStore_SnapshotRestore(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "a", "b")
	require.NoError(t, store.AddEdge(edge("e1", "a", "b")))
	require.NoError(t, store.SelectNode("a"))

	snapshot := store.Snapshot()

	require.NoError(t, store.ApplyNodeChange(NodeChange{Type: NodeChangePosition, ID: "a", Position: models.Position{X: 99}}))
	_, err := store.RemoveNodeCascade("b")
	require.NoError(t, err)

	require.NoError(t, store.Restore(snapshot))

	if diff := cmp.Diff(snapshot.Nodes, store.Nodes()); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(snapshot.Edges, store.Edges()); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "a", store.Selected())
}

func TestStore_ReadModelIsCopied(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "a")

	nodes := store.Nodes()
	nodes[0].Position.X = 500

	node, err := store.Node("a")
	require.NoError(t, err)
	assert.Zero(t, node.Position.X)
}

func TestStore_Ordering(t *testing.T) {
	t.Parallel()

	store := newStore(t, Policy{}, "c", "a", "b", "d")
	require.NoError(t, store.SetEdges([]*models.WorkflowEdge{
		edge("e1", "c", "b"),
		edge("e2", "a", "b"),
		edge("e3", "b", "d"),
	}))

	roots, err := store.Roots()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, roots)

	order, err := store.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b", "d"}, order)

	require.NoError(t, store.AddEdge(edge("e4", "d", "c")))

	_, err = store.TopologicalOrder()
	require.ErrorIs(t, err, ErrCycle)
}

func TestStore_Validate(t *testing.T) {
	t.Parallel()

	store := New(Policy{})

	err := store.Validate(
		[]*models.WorkflowNode{opNode("a"), opNode("b")},
		[]*models.WorkflowEdge{edge("e1", "a", "b")},
	)
	require.NoError(t, err)

	err = store.Validate(
		[]*models.WorkflowNode{opNode("a")},
		[]*models.WorkflowEdge{edge("e1", "a", "b")},
	)
	require.ErrorIs(t, err, ErrDanglingReference)
	assert.Zero(t, store.NodeCount())
}

func TestFromWorkflow(t *testing.T) {
	t.Parallel()

	store, err := FromWorkflow(Policy{}, &models.Workflow{
		ID:    "wf-1",
		Nodes: []*models.WorkflowNode{opNode("a"), {ID: "and", WorkflowID: "wf-1", Kind: models.NodeKindAnd}},
		Edges: []*models.WorkflowEdge{edge("e1", "a", "and")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.NodeCount())
	assert.Equal(t, 1, store.EdgeCount())

	empty, err := FromWorkflow(Policy{}, nil)
	require.NoError(t, err)
	assert.Zero(t, empty.NodeCount())

	_, err = FromWorkflow(Policy{}, &models.Workflow{Edges: []*models.WorkflowEdge{edge("e1", "a", "b")}})
	require.ErrorIs(t, err, ErrDanglingReference)
}
