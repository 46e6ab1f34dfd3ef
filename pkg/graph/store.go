// Package graph holds the in-memory node and edge collections of the workflow being edited.
package graph

import (
	"errors"
	"fmt"
	"slices"

	dgraph "github.com/dominikbraun/graph"
	"github.com/dukex/opsplan/pkg/models"
	"github.com/google/uuid"
)

// Policy controls which edges the store accepts.
type Policy struct {
	AllowSelfLoops bool
	PreventCycles  bool
}

// Store is the canonical in-memory graph of one workflow plus its selection state.
// Every edge endpoint is a node of the store; operations that would break this fail
// without partial effect. A Store is not safe for concurrent use.
type Store struct {
	policy       Policy
	idx          *index
	selectedNode string
	selectedEdge string
}

// index keeps the adjacency structure next to the records in insertion order.
type index struct {
	g         dgraph.Graph[string, string]
	nodes     map[string]*models.WorkflowNode
	nodeOrder []string
	edges     map[string]*models.WorkflowEdge
	edgeOrder []string
}

// Snapshot is a deep copy of a store's contents used to roll back optimistic edits.
type Snapshot struct {
	Nodes        []*models.WorkflowNode
	Edges        []*models.WorkflowEdge
	SelectedNode string
	SelectedEdge string
}

func New(policy Policy) *Store {
	return &Store{
		policy: policy,
		idx:    newIndex(policy),
	}
}

// FromWorkflow builds a store holding the nodes and edges of workflow.
func FromWorkflow(policy Policy, workflow *models.Workflow) (*Store, error) {
	store := New(policy)
	if workflow == nil {
		return store, nil
	}

	if err := store.Replace(workflow.Nodes, workflow.Edges); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) Policy() Policy {
	return s.policy
}

// SetNodes replaces the node set. It fails without effect when a current edge would
// lose an endpoint; use Replace to swap both collections.
func (s *Store) SetNodes(nodes []*models.WorkflowNode) error {
	idx := newIndex(s.policy)

	for _, node := range nodes {
		if err := idx.addNode(node); err != nil {
			return err
		}
	}

	for _, id := range s.idx.edgeOrder {
		edge := s.idx.edges[id]

		for _, endpoint := range []string{edge.SourceID, edge.TargetID} {
			if _, ok := idx.nodes[endpoint]; !ok {
				return fmt.Errorf("%w: %s (edge %s)", ErrNodeHasEdges, endpoint, edge.ID)
			}
		}

		if err := idx.addEdge(s.policy, edge); err != nil {
			return err
		}
	}

	s.swap(idx)

	return nil
}

// SetEdges replaces the edge set. The whole batch is rejected if any edge is invalid.
func (s *Store) SetEdges(edges []*models.WorkflowEdge) error {
	idx := newIndex(s.policy)

	for _, id := range s.idx.nodeOrder {
		if err := idx.addNode(s.idx.nodes[id]); err != nil {
			return err
		}
	}

	for _, edge := range edges {
		if err := idx.addEdge(s.policy, edge); err != nil {
			return err
		}
	}

	s.swap(idx)

	return nil
}

// Replace swaps both collections at once, failing without effect if the pair is inconsistent.
func (s *Store) Replace(nodes []*models.WorkflowNode, edges []*models.WorkflowEdge) error {
	idx, err := buildIndex(s.policy, nodes, edges)
	if err != nil {
		return err
	}

	s.swap(idx)

	return nil
}

// Clear empties the store and its selection.
func (s *Store) Clear() {
	s.idx = newIndex(s.policy)
	s.selectedNode = ""
	s.selectedEdge = ""
}

// ApplyNodeChange applies a position, select or remove change to one node.
func (s *Store) ApplyNodeChange(change NodeChange) error {
	switch change.Type {
	case NodeChangePosition:
		node, ok := s.idx.nodes[change.ID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, change.ID)
		}

		node.Position = change.Position

		return nil
	case NodeChangeSelect:
		if !change.Selected {
			if s.selectedNode == change.ID {
				s.selectedNode = ""
			}

			return nil
		}

		return s.SelectNode(change.ID)
	case NodeChangeRemove:
		return s.RemoveNode(change.ID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChange, change.Type)
	}
}

// ApplyEdgeChange applies a select or remove change to one edge.
func (s *Store) ApplyEdgeChange(change EdgeChange) error {
	switch change.Type {
	case EdgeChangeSelect:
		if !change.Selected {
			if s.selectedEdge == change.ID {
				s.selectedEdge = ""
			}

			return nil
		}

		return s.SelectEdge(change.ID)
	case EdgeChangeRemove:
		return s.RemoveEdge(change.ID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChange, change.Type)
	}
}

// SelectNode marks id as the selected node. An empty id clears the selection.
func (s *Store) SelectNode(id string) error {
	if id == "" {
		s.selectedNode = ""

		return nil
	}

	if _, ok := s.idx.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	s.selectedNode = id

	return nil
}

// SelectEdge marks id as the selected edge. An empty id clears the selection.
func (s *Store) SelectEdge(id string) error {
	if id == "" {
		s.selectedEdge = ""

		return nil
	}

	if _, ok := s.idx.edges[id]; !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}

	s.selectedEdge = id

	return nil
}

// CanConnect reports whether an edge from sourceID to targetID would be accepted.
func (s *Store) CanConnect(sourceID, targetID string) error {
	return s.idx.checkEdge(s.policy, sourceID, targetID)
}

// Connect creates a new edge between two existing nodes and returns a copy of it.
func (s *Store) Connect(sourceID, targetID string) (*models.WorkflowEdge, error) {
	if err := s.CanConnect(sourceID, targetID); err != nil {
		return nil, err
	}

	edge := &models.WorkflowEdge{
		ID:         uuid.Must(uuid.NewV7()).String(),
		WorkflowID: s.idx.nodes[sourceID].WorkflowID,
		SourceID:   sourceID,
		TargetID:   targetID,
	}

	if err := s.idx.addEdge(s.policy, edge); err != nil {
		return nil, err
	}

	return edge.Clone(), nil
}

// AddNode inserts a copy of node.
func (s *Store) AddNode(node *models.WorkflowNode) error {
	return s.idx.addNode(node)
}

// AddEdge inserts a copy of edge after checking its endpoints and the policy.
func (s *Store) AddEdge(edge *models.WorkflowEdge) error {
	return s.idx.addEdge(s.policy, edge)
}

// UpdateNode replaces the record of an existing node, keeping its edges.
func (s *Store) UpdateNode(node *models.WorkflowNode) error {
	if node == nil {
		return ErrInvalidNode
	}

	if _, ok := s.idx.nodes[node.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, node.ID)
	}

	if err := node.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNode, err)
	}

	s.idx.nodes[node.ID] = node.Clone()

	return nil
}

// UpdateEdge replaces the record of an existing edge. Changed endpoints are swapped atomically.
func (s *Store) UpdateEdge(edge *models.WorkflowEdge) error {
	if edge == nil {
		return ErrInvalidEdge
	}

	current, ok := s.idx.edges[edge.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, edge.ID)
	}

	if err := edge.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEdge, err)
	}

	if current.SourceID != edge.SourceID || current.TargetID != edge.TargetID {
		if _, err := s.ReplaceEdge(edge.ID, edge.SourceID, edge.TargetID); err != nil {
			return err
		}
	}

	s.idx.edges[edge.ID] = edge.Clone()

	return nil
}

// ReplaceEdge moves an edge to new endpoints. On failure the old pairing is kept.
func (s *Store) ReplaceEdge(edgeID, sourceID, targetID string) (*models.WorkflowEdge, error) {
	edge, ok := s.idx.edges[edgeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeID)
	}

	if edge.SourceID == sourceID && edge.TargetID == targetID {
		return edge.Clone(), nil
	}

	if err := s.idx.g.RemoveEdge(edge.SourceID, edge.TargetID); err != nil {
		return nil, fmt.Errorf("failed to detach edge %s: %w", edgeID, err)
	}

	if err := s.idx.checkEdge(s.policy, sourceID, targetID); err != nil {
		s.idx.restoreEdge(edge)

		return nil, err
	}

	if err := s.idx.g.AddEdge(sourceID, targetID, dgraph.EdgeData(edge.ID)); err != nil {
		s.idx.restoreEdge(edge)

		return nil, translate(err)
	}

	edge.SourceID = sourceID
	edge.TargetID = targetID

	return edge.Clone(), nil
}

// CanReplaceEdge reports whether ReplaceEdge would accept the new endpoints. The store is left unchanged.
func (s *Store) CanReplaceEdge(edgeID, sourceID, targetID string) error {
	edge, ok := s.idx.edges[edgeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeID)
	}

	if edge.SourceID == sourceID && edge.TargetID == targetID {
		return nil
	}

	if err := s.idx.g.RemoveEdge(edge.SourceID, edge.TargetID); err != nil {
		return fmt.Errorf("failed to detach edge %s: %w", edgeID, err)
	}
	defer s.idx.restoreEdge(edge)

	return s.idx.checkEdge(s.policy, sourceID, targetID)
}

// RemoveNode removes a node without incident edges.
func (s *Store) RemoveNode(id string) error {
	if _, ok := s.idx.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	if len(s.IncidentEdges(id)) > 0 {
		return fmt.Errorf("%w: %s", ErrNodeHasEdges, id)
	}

	if err := s.idx.g.RemoveVertex(id); err != nil {
		return translate(err)
	}

	delete(s.idx.nodes, id)
	s.idx.nodeOrder = slices.DeleteFunc(s.idx.nodeOrder, func(v string) bool { return v == id })

	if s.selectedNode == id {
		s.selectedNode = ""
	}

	return nil
}

// RemoveNodeCascade removes a node together with its incident edges and returns the removed edges.
func (s *Store) RemoveNodeCascade(id string) ([]*models.WorkflowEdge, error) {
	if _, ok := s.idx.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	removed := s.IncidentEdges(id)
	for _, edge := range removed {
		if err := s.RemoveEdge(edge.ID); err != nil {
			return nil, err
		}
	}

	if err := s.RemoveNode(id); err != nil {
		return nil, err
	}

	return removed, nil
}

func (s *Store) RemoveEdge(id string) error {
	edge, ok := s.idx.edges[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}

	if err := s.idx.g.RemoveEdge(edge.SourceID, edge.TargetID); err != nil {
		return translate(err)
	}

	delete(s.idx.edges, id)
	s.idx.edgeOrder = slices.DeleteFunc(s.idx.edgeOrder, func(v string) bool { return v == id })

	if s.selectedEdge == id {
		s.selectedEdge = ""
	}

	return nil
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (*models.WorkflowNode, error) {
	node, ok := s.idx.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	return node.Clone(), nil
}

// Edge returns a copy of the edge with the given id.
func (s *Store) Edge(id string) (*models.WorkflowEdge, error) {
	edge, ok := s.idx.edges[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}

	return edge.Clone(), nil
}

// EdgeBetween returns the edge from sourceID to targetID, if any.
func (s *Store) EdgeBetween(sourceID, targetID string) (*models.WorkflowEdge, error) {
	e, err := s.idx.g.Edge(sourceID, targetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s -> %s", ErrEdgeNotFound, sourceID, targetID)
	}

	id, _ := e.Properties.Data.(string)

	return s.Edge(id)
}

// Nodes returns copies of all nodes in insertion order.
func (s *Store) Nodes() []*models.WorkflowNode {
	out := make([]*models.WorkflowNode, 0, len(s.idx.nodeOrder))
	for _, id := range s.idx.nodeOrder {
		out = append(out, s.idx.nodes[id].Clone())
	}

	return out
}

// Edges returns copies of all edges in insertion order.
func (s *Store) Edges() []*models.WorkflowEdge {
	out := make([]*models.WorkflowEdge, 0, len(s.idx.edgeOrder))
	for _, id := range s.idx.edgeOrder {
		out = append(out, s.idx.edges[id].Clone())
	}

	return out
}

func (s *Store) NodeCount() int {
	return len(s.idx.nodeOrder)
}

func (s *Store) EdgeCount() int {
	return len(s.idx.edgeOrder)
}

// Selected returns the selected node id, or "".
func (s *Store) Selected() string {
	return s.selectedNode
}

// SelectedEdge returns the selected edge id, or "".
func (s *Store) SelectedEdge() string {
	return s.selectedEdge
}

// IncidentEdges returns copies of the edges entering or leaving nodeID, in insertion order.
func (s *Store) IncidentEdges(nodeID string) []*models.WorkflowEdge {
	var out []*models.WorkflowEdge

	for _, id := range s.idx.edgeOrder {
		if edge := s.idx.edges[id]; edge.Touches(nodeID) {
			out = append(out, edge.Clone())
		}
	}

	return out
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Nodes:        s.Nodes(),
		Edges:        s.Edges(),
		SelectedNode: s.selectedNode,
		SelectedEdge: s.selectedEdge,
	}
}

// Restore replaces the store contents with a snapshot taken earlier.
func (s *Store) Restore(snapshot Snapshot) error {
	if err := s.Replace(snapshot.Nodes, snapshot.Edges); err != nil {
		return err
	}

	if _, ok := s.idx.nodes[snapshot.SelectedNode]; ok {
		s.selectedNode = snapshot.SelectedNode
	}

	if _, ok := s.idx.edges[snapshot.SelectedEdge]; ok {
		s.selectedEdge = snapshot.SelectedEdge
	}

	return nil
}

// Validate checks a full node/edge set against the store policy without modifying the store.
func (s *Store) Validate(nodes []*models.WorkflowNode, edges []*models.WorkflowEdge) error {
	_, err := buildIndex(s.policy, nodes, edges)

	return err
}

// Roots returns the ids of nodes without incoming edges, in insertion order.
func (s *Store) Roots() ([]string, error) {
	predecessors, err := s.idx.g.PredecessorMap()
	if err != nil {
		return nil, err
	}

	var roots []string

	for _, id := range s.idx.nodeOrder {
		if len(predecessors[id]) == 0 {
			roots = append(roots, id)
		}
	}

	return roots, nil
}

// TopologicalOrder returns node ids so that every edge points forward. Ties keep insertion order.
func (s *Store) TopologicalOrder() ([]string, error) {
	position := make(map[string]int, len(s.idx.nodeOrder))
	for i, id := range s.idx.nodeOrder {
		position[id] = i
	}

	order, err := dgraph.StableTopologicalSort(s.idx.g, func(a, b string) bool {
		return position[a] < position[b]
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCycle, err)
	}

	return order, nil
}

func (s *Store) swap(idx *index) {
	s.idx = idx

	if _, ok := idx.nodes[s.selectedNode]; !ok {
		s.selectedNode = ""
	}

	if _, ok := idx.edges[s.selectedEdge]; !ok {
		s.selectedEdge = ""
	}
}

func newIndex(policy Policy) *index {
	traits := []func(*dgraph.Traits){dgraph.Directed()}
	if policy.PreventCycles {
		traits = append(traits, dgraph.PreventCycles())
	}

	return &index{
		g:     dgraph.New(dgraph.StringHash, traits...),
		nodes: make(map[string]*models.WorkflowNode),
		edges: make(map[string]*models.WorkflowEdge),
	}
}

func buildIndex(policy Policy, nodes []*models.WorkflowNode, edges []*models.WorkflowEdge) (*index, error) {
	idx := newIndex(policy)

	for _, node := range nodes {
		if err := idx.addNode(node); err != nil {
			return nil, err
		}
	}

	for _, edge := range edges {
		if err := idx.addEdge(policy, edge); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

func (idx *index) addNode(node *models.WorkflowNode) error {
	if node == nil || node.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidNode)
	}

	if err := node.Validate(); err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidNode, node.ID, err)
	}

	if err := idx.g.AddVertex(node.ID); err != nil {
		if errors.Is(err, dgraph.ErrVertexAlreadyExists) {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
		}

		return err
	}

	idx.nodes[node.ID] = node.Clone()
	idx.nodeOrder = append(idx.nodeOrder, node.ID)

	return nil
}

func (idx *index) addEdge(policy Policy, edge *models.WorkflowEdge) error {
	if edge == nil || edge.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEdge)
	}

	if err := edge.Validate(); err != nil {
		return fmt.Errorf("%w %s: %w", ErrInvalidEdge, edge.ID, err)
	}

	if _, ok := idx.edges[edge.ID]; ok {
		return fmt.Errorf("%w: id %s", ErrDuplicateEdge, edge.ID)
	}

	if err := idx.checkEdge(policy, edge.SourceID, edge.TargetID); err != nil {
		return err
	}

	if err := idx.g.AddEdge(edge.SourceID, edge.TargetID, dgraph.EdgeData(edge.ID)); err != nil {
		return translate(err)
	}

	idx.edges[edge.ID] = edge.Clone()
	idx.edgeOrder = append(idx.edgeOrder, edge.ID)

	return nil
}

func (idx *index) checkEdge(policy Policy, sourceID, targetID string) error {
	for _, id := range []string{sourceID, targetID} {
		if _, ok := idx.nodes[id]; !ok {
			return fmt.Errorf("%w: %q", ErrDanglingReference, id)
		}
	}

	if sourceID == targetID {
		if !policy.AllowSelfLoops {
			return fmt.Errorf("%w: %s", ErrSelfLoop, sourceID)
		}

		if policy.PreventCycles {
			return fmt.Errorf("%w: %s -> %s", ErrCycle, sourceID, targetID)
		}
	}

	if _, err := idx.g.Edge(sourceID, targetID); err == nil {
		return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, sourceID, targetID)
	}

	if policy.PreventCycles && sourceID != targetID {
		cycle, err := dgraph.CreatesCycle(idx.g, sourceID, targetID)
		if err != nil {
			return err
		}

		if cycle {
			return fmt.Errorf("%w: %s -> %s", ErrCycle, sourceID, targetID)
		}
	}

	return nil
}

// restoreEdge re-attaches an edge detached by a failed ReplaceEdge.
func (idx *index) restoreEdge(edge *models.WorkflowEdge) {
	_ = idx.g.AddEdge(edge.SourceID, edge.TargetID, dgraph.EdgeData(edge.ID))
}

func translate(err error) error {
	switch {
	case errors.Is(err, dgraph.ErrVertexNotFound):
		return fmt.Errorf("%w: %w", ErrDanglingReference, err)
	case errors.Is(err, dgraph.ErrEdgeAlreadyExists):
		return fmt.Errorf("%w: %w", ErrDuplicateEdge, err)
	case errors.Is(err, dgraph.ErrEdgeCreatesCycle):
		return fmt.Errorf("%w: %w", ErrCycle, err)
	case errors.Is(err, dgraph.ErrVertexHasEdges):
		return fmt.Errorf("%w: %w", ErrNodeHasEdges, err)
	case errors.Is(err, dgraph.ErrEdgeNotFound):
		return fmt.Errorf("%w: %w", ErrEdgeNotFound, err)
	default:
		return err
	}
}
