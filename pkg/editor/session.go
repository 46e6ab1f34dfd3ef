package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukex/opsplan/pkg/graph"
	"github.com/dukex/opsplan/pkg/log"
	"github.com/dukex/opsplan/pkg/models"
	"github.com/dukex/opsplan/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Session is the editing state of one project's workflow. Graph mutations must come from a
// single goroutine; Loading, Err and Close may be called from any goroutine.
type Session struct {
	backend Backend
	cfg     Config
	tracer  trace.Tracer
	logger  *slog.Logger

	store      *graph.Store
	palette    []*models.ProjectOperation
	workflowID string
	loaded     bool

	mu      sync.RWMutex
	loading bool
	err     error
	closed  bool
}

func NewSession(backend Backend, cfg Config) (*Session, error) {
	if cfg.ProjectID == "" {
		return nil, ErrProjectRequired
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}

	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("github.com/dukex/opsplan/pkg/editor")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.WithModule("editor")
	}

	return &Session{
		backend: backend,
		cfg:     cfg,
		tracer:  cfg.Tracer,
		logger:  logger.With("project_id", cfg.ProjectID),
		store:   graph.New(cfg.Policy),
	}, nil
}

// Load fetches the palette and the persisted workflow concurrently. The store is populated
// only when both succeed; otherwise the session is left empty in the error state.
func (s *Session) Load(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	var (
		palette  []*models.ProjectOperation
		workflow *models.Workflow
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		operations, err := call(gctx, s, "project_operations", func(ctx context.Context) ([]*models.ProjectOperation, error) {
			return s.backend.ProjectOperations(ctx, s.cfg.ProjectID)
		})
		palette = operations

		return err
	})

	g.Go(func() error {
		found, err := call(gctx, s, "workflow_by_project", func(ctx context.Context) (*models.Workflow, error) {
			return s.backend.WorkflowByProject(ctx, s.cfg.ProjectID)
		})
		workflow = found

		return err
	})

	if err := g.Wait(); err != nil {
		return s.fail(err)
	}

	var (
		nodes      []*models.WorkflowNode
		edges      []*models.WorkflowEdge
		workflowID string
	)

	if workflow != nil {
		nodes, edges, workflowID = workflow.Nodes, workflow.Edges, workflow.ID
	}

	if err := s.store.Replace(nodes, edges); err != nil {
		return s.fail(fmt.Errorf("stored workflow of project %s is inconsistent: %w", s.cfg.ProjectID, err))
	}

	s.palette = palette
	s.workflowID = workflowID
	s.loaded = true
	s.setErr(nil)

	s.logger.InfoContext(ctx, "workflow loaded",
		"workflow_id", workflowID,
		"nodes", s.store.NodeCount(),
		"edges", s.store.EdgeCount(),
		"palette", len(palette),
	)

	return nil
}

// DropOperation places a palette operation on the canvas. Each call creates a new node.
func (s *Session) DropOperation(ctx context.Context, operationID string, x, y float64) (*models.WorkflowNode, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if s.paletteEntry(operationID) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, operationID)
	}

	return s.createNode(ctx, &models.WorkflowNode{
		Kind:        models.NodeKindOperation,
		OperationID: &operationID,
		Position:    models.Position{X: x, Y: y},
	})
}

// AddBranch places a structural AND/OR node.
func (s *Session) AddBranch(ctx context.Context, kind models.NodeKind, x, y float64) (*models.WorkflowNode, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if !kind.IsBranch() {
		return nil, fmt.Errorf("%w: %w: %q is not a branch kind", graph.ErrInvalidNode, models.ErrInvalidNodeKind, kind)
	}

	return s.createNode(ctx, &models.WorkflowNode{
		Kind:     kind,
		Position: models.Position{X: x, Y: y},
	})
}

func (s *Session) createNode(ctx context.Context, node *models.WorkflowNode) (*models.WorkflowNode, error) {
	if err := node.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", graph.ErrInvalidNode, err)
	}

	workflowID, err := s.ensureWorkflow(ctx)
	if err != nil {
		return nil, err
	}

	node.ID = uuid.Must(uuid.NewV7()).String()
	node.WorkflowID = workflowID

	created, err := call(ctx, s, "create_node", func(ctx context.Context) (*models.WorkflowNode, error) {
		return s.backend.CreateNode(ctx, workflowID, node)
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.AddNode(created); err != nil {
		return nil, err
	}

	return created.Clone(), nil
}

func (s *Session) ensureWorkflow(ctx context.Context) (string, error) {
	if s.workflowID != "" {
		return s.workflowID, nil
	}

	workflow, err := call(ctx, s, "ensure_workflow", func(ctx context.Context) (*models.Workflow, error) {
		return s.backend.EnsureWorkflow(ctx, s.cfg.ProjectID)
	})
	if err != nil {
		return "", err
	}

	s.workflowID = workflow.ID
	s.logger.InfoContext(ctx, "workflow assigned", "workflow_id", workflow.ID)

	return s.workflowID, nil
}

// MoveNode repositions a node immediately and persists the change. The previous position is
// restored when persistence fails.
func (s *Session) MoveNode(ctx context.Context, nodeID string, x, y float64) (*models.WorkflowNode, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	previous, err := s.store.Node(nodeID)
	if err != nil {
		return nil, err
	}

	position := models.Position{X: x, Y: y}
	if err := s.store.ApplyNodeChange(graph.NodeChange{Type: graph.NodeChangePosition, ID: nodeID, Position: position}); err != nil {
		return nil, err
	}

	moved := previous.Clone()
	moved.Position = position

	updated, err := call(ctx, s, "update_node", func(ctx context.Context) (*models.WorkflowNode, error) {
		return s.backend.UpdateNode(ctx, s.workflowID, moved)
	})
	if err != nil {
		if rollbackErr := s.store.UpdateNode(previous); rollbackErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back node move", "node_id", nodeID, "error", rollbackErr)
		}

		return nil, err
	}

	return s.replaceNode(updated)
}

// UpdateNodeEstimate sets the estimated time of a node in minutes.
func (s *Session) UpdateNodeEstimate(ctx context.Context, nodeID string, minutes int) (*models.WorkflowNode, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	current, err := s.store.Node(nodeID)
	if err != nil {
		return nil, err
	}

	current.EstimatedTime = minutes
	if err := current.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", graph.ErrInvalidNode, err)
	}

	updated, err := call(ctx, s, "update_node", func(ctx context.Context) (*models.WorkflowNode, error) {
		return s.backend.UpdateNode(ctx, s.workflowID, current)
	})
	if err != nil {
		return nil, err
	}

	return s.replaceNode(updated)
}

func (s *Session) replaceNode(node *models.WorkflowNode) (*models.WorkflowNode, error) {
	if err := s.store.UpdateNode(node); err != nil {
		return nil, err
	}

	return node.Clone(), nil
}

// Connect links two nodes. Edges the store would reject never reach the backend.
func (s *Session) Connect(ctx context.Context, sourceID, targetID, label string) (*models.WorkflowEdge, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if err := s.store.CanConnect(sourceID, targetID); err != nil {
		return nil, err
	}

	edge := &models.WorkflowEdge{
		ID:         uuid.Must(uuid.NewV7()).String(),
		WorkflowID: s.workflowID,
		SourceID:   sourceID,
		TargetID:   targetID,
		Label:      label,
	}

	created, err := call(ctx, s, "create_edge", func(ctx context.Context) (*models.WorkflowEdge, error) {
		return s.backend.CreateEdge(ctx, s.workflowID, edge)
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.AddEdge(created); err != nil {
		return nil, err
	}

	return created.Clone(), nil
}

// Reconnect moves an edge to new endpoints. The store swaps the pairing only after the
// backend accepted it.
func (s *Session) Reconnect(ctx context.Context, edgeID, sourceID, targetID string) (*models.WorkflowEdge, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	current, err := s.store.Edge(edgeID)
	if err != nil {
		return nil, err
	}

	if err := s.store.CanReplaceEdge(edgeID, sourceID, targetID); err != nil {
		return nil, err
	}

	current.SourceID = sourceID
	current.TargetID = targetID

	return s.updateEdge(ctx, current)
}

// UpdateEdgeLabel changes the label shown on an edge.
func (s *Session) UpdateEdgeLabel(ctx context.Context, edgeID, label string) (*models.WorkflowEdge, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	current, err := s.store.Edge(edgeID)
	if err != nil {
		return nil, err
	}

	current.Label = label

	return s.updateEdge(ctx, current)
}

func (s *Session) updateEdge(ctx context.Context, edge *models.WorkflowEdge) (*models.WorkflowEdge, error) {
	updated, err := call(ctx, s, "update_edge", func(ctx context.Context) (*models.WorkflowEdge, error) {
		return s.backend.UpdateEdge(ctx, s.workflowID, edge)
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateEdge(updated); err != nil {
		return nil, err
	}

	return updated.Clone(), nil
}

func (s *Session) DeleteEdge(ctx context.Context, edgeID string) error {
	if err := s.ready(); err != nil {
		return err
	}

	if _, err := s.store.Edge(edgeID); err != nil {
		return err
	}

	if _, err := call(ctx, s, "delete_edge", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.backend.DeleteEdge(ctx, s.workflowID, edgeID)
	}); err != nil {
		if !errors.Is(err, persistence.ErrEdgeNotFound) {
			return err
		}

		// An earlier attempt may have committed before timing out.
		s.logger.WarnContext(ctx, "edge already deleted on backend", "edge_id", edgeID)
	}

	return s.store.RemoveEdge(edgeID)
}

// DeleteNode removes a node and its incident edges in one backend call, then from the store.
// A node the backend no longer has is treated as deleted. It returns the ids of the removed edges.
func (s *Session) DeleteNode(ctx context.Context, nodeID string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if _, err := s.store.Node(nodeID); err != nil {
		return nil, err
	}

	if _, err := call(ctx, s, "delete_node", func(ctx context.Context) ([]string, error) {
		return s.backend.DeleteNode(ctx, s.workflowID, nodeID)
	}); err != nil {
		if !errors.Is(err, persistence.ErrNodeNotFound) {
			return nil, err
		}

		s.logger.WarnContext(ctx, "node already deleted on backend", "node_id", nodeID)
	}

	removed, err := s.store.RemoveNodeCascade(nodeID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(removed))
	for _, edge := range removed {
		ids = append(ids, edge.ID)
	}

	return ids, nil
}

// ApplyNodeChange routes a canvas change to the matching session operation.
func (s *Session) ApplyNodeChange(ctx context.Context, change graph.NodeChange) error {
	switch change.Type {
	case graph.NodeChangePosition:
		_, err := s.MoveNode(ctx, change.ID, change.Position.X, change.Position.Y)

		return err
	case graph.NodeChangeRemove:
		_, err := s.DeleteNode(ctx, change.ID)

		return err
	default:
		if err := s.ready(); err != nil {
			return err
		}

		return s.store.ApplyNodeChange(change)
	}
}

// ApplyEdgeChange routes a canvas change to the matching session operation.
func (s *Session) ApplyEdgeChange(ctx context.Context, change graph.EdgeChange) error {
	if change.Type == graph.EdgeChangeRemove {
		return s.DeleteEdge(ctx, change.ID)
	}

	if err := s.ready(); err != nil {
		return err
	}

	return s.store.ApplyEdgeChange(change)
}

// Select marks a node as selected. An empty id clears the selection.
func (s *Session) Select(nodeID string) error {
	if err := s.ready(); err != nil {
		return err
	}

	return s.store.SelectNode(nodeID)
}

// SearchOperations lists catalog operations of the session's organization.
func (s *Session) SearchOperations(ctx context.Context, search string) ([]*models.Operation, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	return call(ctx, s, "list_operations", func(ctx context.Context) ([]*models.Operation, error) {
		return s.backend.ListOperations(ctx, s.cfg.OrganizationID, strings.TrimSpace(search))
	})
}

// CreateOperation adds an operation to the catalog and makes it available in this project's palette.
func (s *Session) CreateOperation(ctx context.Context, operation *models.Operation) (*models.Operation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	if operation.OrganizationID == "" {
		operation.OrganizationID = s.cfg.OrganizationID
	}

	created, err := call(ctx, s, "create_operation", func(ctx context.Context) (*models.Operation, error) {
		return s.backend.CreateOperation(ctx, operation)
	})
	if err != nil {
		return nil, err
	}

	entry, err := call(ctx, s, "add_project_operation", func(ctx context.Context) (*models.ProjectOperation, error) {
		return s.backend.AddProjectOperation(ctx, s.cfg.ProjectID, created.ID)
	})
	if err != nil {
		return nil, err
	}

	if entry.Operation == nil {
		entry.Operation = created
	}

	s.palette = append(s.palette, entry)

	return created, nil
}

// Close discards the session. Saves already running complete; later calls fail with ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
}

func (s *Session) Policy() graph.Policy {
	return s.cfg.Policy
}

func (s *Session) WorkflowID() string {
	return s.workflowID
}

func (s *Session) Nodes() []*models.WorkflowNode {
	return s.store.Nodes()
}

func (s *Session) Edges() []*models.WorkflowEdge {
	return s.store.Edges()
}

// Node returns a copy of one node of the workflow.
func (s *Session) Node(nodeID string) (*models.WorkflowNode, error) {
	return s.store.Node(nodeID)
}

// Selected returns the selected node id, or "".
func (s *Session) Selected() string {
	return s.store.Selected()
}

// Order returns node ids sorted so every edge points forward. It fails when the graph has a cycle.
func (s *Session) Order() ([]string, error) {
	return s.store.TopologicalOrder()
}

// Palette returns the operations usable in the project.
func (s *Session) Palette() []*models.ProjectOperation {
	out := make([]*models.ProjectOperation, len(s.palette))
	for i, entry := range s.palette {
		clone := *entry
		out[i] = &clone
	}

	return out
}

// PaletteOperation returns the palette entry of operationID, or nil.
func (s *Session) PaletteOperation(operationID string) *models.Operation {
	entry := s.paletteEntry(operationID)
	if entry == nil {
		return nil
	}

	return entry.Operation
}

func (s *Session) paletteEntry(operationID string) *models.ProjectOperation {
	for _, entry := range s.palette {
		if entry.OperationID == operationID {
			return entry
		}
	}

	return nil
}

func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}

// Err returns the error of the last Load, or nil.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.err
}

func (s *Session) setLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = loading
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

func (s *Session) fail(err error) error {
	s.store.Clear()
	s.palette = nil
	s.workflowID = ""
	s.loaded = false
	s.setErr(err)

	s.logger.Error("failed to load workflow", "error", err)

	return err
}

func (s *Session) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSessionClosed
	}

	return nil
}

func (s *Session) ready() error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if !s.loaded {
		return ErrNotLoaded
	}

	return nil
}
